package store

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"dissent/internal/domain"
	"dissent/internal/util/memzero"
)

const (
	fileExt      = ".json"
	sentinelFile = ".sentinel"

	// SentinelValue is sealed into the sentinel file so a passphrase can be
	// checked without touching any session.
	SentinelValue = "DISSENT-V1"
)

// ErrWrongPassphrase is returned when the passphrase does not open the store.
var ErrWrongPassphrase = errWrongPassphrase

// fileEntry is the on-disk shape of one key.
type fileEntry struct {
	Version domain.Version `json:"version"`
	Value   []byte         `json:"value"`
}

// FileStore keeps one JSON file per key under a directory.
//
// When built with NewEncryptedFileStore every value is sealed with a key
// derived from the passphrase lent by the PassphraseSource. Versions stay in
// clear so a compare-and-swap miss costs no KDF run.
type FileStore struct {
	dir    string
	src    domain.PassphraseSource
	params EnvelopeParams

	mu sync.Mutex
}

// NewFileStore returns a plaintext FileStore rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// NewEncryptedFileStore returns a FileStore that seals values at rest.
func NewEncryptedFileStore(
	dir string,
	src domain.PassphraseSource,
	params EnvelopeParams,
) (*FileStore, error) {
	if src == nil {
		return nil, errors.New("file store: nil passphrase source")
	}
	fs, err := NewFileStore(dir)
	if err != nil {
		return nil, err
	}
	fs.src = src
	fs.params = params
	return fs, nil
}

// Encrypted reports whether values are sealed at rest.
func (s *FileStore) Encrypted() bool { return s.src != nil }

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, base64.RawURLEncoding.EncodeToString([]byte(key))+fileExt)
}

func (s *FileStore) readEntry(key string) (fileEntry, bool, error) {
	var e fileEntry
	b, err := readFile(s.path(key))
	if err != nil {
		return e, false, err
	}
	if b == nil {
		return e, false, nil
	}
	if err := json.Unmarshal(b, &e); err != nil {
		return e, false, fmt.Errorf("%w: %s: %v", domain.ErrSerialization, key, err)
	}
	return e, true, nil
}

func (s *FileStore) writeEntry(key string, v domain.Version, value []byte) error {
	sealed, err := s.sealValue(value)
	if err != nil {
		return err
	}
	b, err := json.Marshal(fileEntry{Version: v, Value: sealed})
	if err != nil {
		return err
	}
	return writeFile(s.path(key), b, 0o600)
}

func (s *FileStore) sealValue(value []byte) ([]byte, error) {
	if s.src == nil {
		return value, nil
	}
	var out []byte
	err := s.src.WithPassphrase(func(pass []byte) error {
		var err error
		out, err = seal(pass, value, s.params)
		return err
	})
	return out, err
}

// openValue unseals value. A locked source is passed through; an envelope
// that does not open under the unlocked passphrase is a corrupt entry.
func (s *FileStore) openValue(key string, value []byte) ([]byte, error) {
	if s.src == nil {
		return value, nil
	}
	var (
		out     []byte
		openErr error
	)
	err := s.src.WithPassphrase(func(pass []byte) error {
		out, openErr = open(pass, value)
		return openErr
	})
	if openErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrSerialization, key, openErr)
	}
	return out, err
}

// Get returns the value stored under key.
func (s *FileStore) Get(_ context.Context, key string) ([]byte, domain.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok, err := s.readEntry(key)
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, domain.ErrNotFound
	}
	value, err := s.openValue(key, e.Value)
	if err != nil {
		return nil, 0, err
	}
	return value, e.Version, nil
}

// Set stores value unconditionally.
func (s *FileStore) Set(_ context.Context, key string, value []byte) (domain.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, _, err := s.readEntry(key)
	if err != nil && !errors.Is(err, domain.ErrSerialization) {
		return 0, err
	}
	v := e.Version + 1
	if err := s.writeEntry(key, v, value); err != nil {
		return 0, err
	}
	return v, nil
}

// CompareAndSwap stores value only if key is at the expected version.
func (s *FileStore) CompareAndSwap(
	_ context.Context,
	key string,
	expected domain.Version,
	value []byte,
) (domain.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, _, err := s.readEntry(key)
	if err != nil {
		return 0, err
	}
	if e.Version != expected {
		return 0, domain.ErrVersionConflict
	}
	v := expected + 1
	if err := s.writeEntry(key, v, value); err != nil {
		return 0, err
	}
	return v, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeFile(s.path(key))
}

// List returns the sorted keys that start with prefix.
func (s *FileStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, de := range ents {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSuffix(name, fileExt))
		if err != nil {
			continue
		}
		if k := string(raw); strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// VerifyPassphrase checks pass against the sentinel file. The first call on
// a fresh directory seals the sentinel, fixing the passphrase for the store.
// A plaintext store accepts any passphrase.
func (s *FileStore) VerifyPassphrase(pass []byte) error {
	if s.src == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, sentinelFile)
	b, err := readFile(path)
	if err != nil {
		return err
	}
	if b == nil {
		sealed, err := seal(pass, []byte(SentinelValue), s.params)
		if err != nil {
			return err
		}
		return writeFile(path, sealed, 0o600)
	}

	pt, err := open(pass, b)
	if err != nil {
		return ErrWrongPassphrase
	}
	defer memzero.Zero(pt)
	if subtle.ConstantTimeCompare(pt, []byte(SentinelValue)) != 1 {
		return ErrWrongPassphrase
	}
	return nil
}

var (
	_ domain.SecretStore        = (*FileStore)(nil)
	_ domain.PassphraseVerifier = (*FileStore)(nil)
)
