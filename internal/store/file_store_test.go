package store_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dissent/internal/domain"
	"dissent/internal/store"
)

func TestEncryptedFileStore_ValuesSealedAtRest(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewEncryptedFileStore(dir, staticPassphrase("pw"), fastParams(store.KDFArgon2id))
	require.NoError(t, err)
	assert.True(t, s.Encrypted())

	_, err = s.Set(context.Background(), "peer:bob", []byte("top secret chain key"))
	require.NoError(t, err)

	ents, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, ents, 1)
	raw, err := os.ReadFile(filepath.Join(dir, ents[0].Name()))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "top secret")
}

func TestEncryptedFileStore_WrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	good, err := store.NewEncryptedFileStore(dir, staticPassphrase("right"), fastParams(store.KDFScrypt))
	require.NoError(t, err)
	_, err = good.Set(ctx, "k", []byte("v"))
	require.NoError(t, err)

	bad, err := store.NewEncryptedFileStore(dir, staticPassphrase("wrong"), fastParams(store.KDFScrypt))
	require.NoError(t, err)
	_, _, err = bad.Get(ctx, "k")
	require.ErrorIs(t, err, store.ErrWrongPassphrase)
	require.ErrorIs(t, err, domain.ErrSerialization)
}

// entryFile returns the only key file in dir.
func entryFile(t *testing.T, dir string) string {
	t.Helper()
	ents, err := os.ReadDir(dir)
	require.NoError(t, err)
	var files []string
	for _, e := range ents {
		if !strings.HasPrefix(e.Name(), ".") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	require.Len(t, files, 1)
	return files[0]
}

func TestEncryptedFileStore_CorruptSealedRecord(t *testing.T) {
	cases := map[string]func(t *testing.T, sealed []byte) []byte{
		"flipped cipher": func(t *testing.T, sealed []byte) []byte {
			var blob map[string]any
			require.NoError(t, json.Unmarshal(sealed, &blob))
			ct, err := base64.StdEncoding.DecodeString(blob["cipher"].(string))
			require.NoError(t, err)
			ct[0] ^= 0x01
			blob["cipher"] = base64.StdEncoding.EncodeToString(ct)
			out, err := json.Marshal(blob)
			require.NoError(t, err)
			return out
		},
		"garbage envelope": func(*testing.T, []byte) []byte { return []byte("not an envelope") },
	}
	for name, corrupt := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()
			src := staticPassphrase("correct horse")
			fs, err := store.NewEncryptedFileStore(dir, src, fastParams(store.KDFScrypt))
			require.NoError(t, err)
			require.NoError(t, fs.VerifyPassphrase(src))

			ss := store.NewSessionStore(fs)
			_, err = ss.CreateSession(ctx, "bob", fixtureRecord(t))
			require.NoError(t, err)

			path := entryFile(t, dir)
			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			var entry struct {
				Version uint64 `json:"version"`
				Value   []byte `json:"value"`
			}
			require.NoError(t, json.Unmarshal(raw, &entry))
			entry.Value = corrupt(t, entry.Value)
			raw, err = json.Marshal(entry)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(path, raw, 0o600))

			_, _, err = ss.LoadSession(ctx, "bob")
			require.ErrorIs(t, err, domain.ErrSerialization)
			require.NotErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestFileStore_VerifyPassphrase(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewEncryptedFileStore(dir, staticPassphrase("unused"), fastParams(store.KDFScrypt))
	require.NoError(t, err)

	// First verification fixes the passphrase.
	require.NoError(t, s.VerifyPassphrase([]byte("hunter2")))
	require.NoError(t, s.VerifyPassphrase([]byte("hunter2")))
	require.ErrorIs(t, s.VerifyPassphrase([]byte("hunter3")), store.ErrWrongPassphrase)

	// The sentinel never shows up as a key.
	keys, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys)

	raw, err := os.ReadFile(filepath.Join(dir, ".sentinel"))
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), store.SentinelValue))
}

func TestFileStore_PlainAcceptsAnyPassphrase(t *testing.T) {
	s, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	assert.False(t, s.Encrypted())
	require.NoError(t, s.VerifyPassphrase([]byte("anything")))
}

func TestFileStore_LockedSourceBlocksAccess(t *testing.T) {
	s, err := store.NewEncryptedFileStore(t.TempDir(), lockedSource{}, fastParams(store.KDFScrypt))
	require.NoError(t, err)
	_, err = s.Set(context.Background(), "k", []byte("v"))
	require.ErrorIs(t, err, domain.ErrLocked)
}

type lockedSource struct{}

func (lockedSource) WithPassphrase(func([]byte) error) error { return domain.ErrLocked }
