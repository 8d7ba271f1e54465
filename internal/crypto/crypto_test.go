package crypto_test

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dissent/internal/crypto"
	"dissent/internal/domain"
)

func TestHKDF_RFC5869Case3(t *testing.T) {
	// RFC 5869 A.3: empty salt is equivalent to HashLen zero bytes.
	ikm := bytes.Repeat([]byte{0x0b}, 22)
	want := "8da4e775a563c18f715f802a063c5a31b8a11f5c5ee1879ec3454e5f3c738d2d9d201395faa4b61a96c8"

	got := crypto.HKDF("", ikm, 42)
	assert.Equal(t, want, hex.EncodeToString(got))
}

func TestHKDF_LabelsSeparate(t *testing.T) {
	ikm := bytes.Repeat([]byte{1}, 32)
	a := crypto.HKDFKey("ck:me->them", ikm)
	b := crypto.HKDFKey("ck:them->me", ikm)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, crypto.HKDFKey("ck:me->them", ikm))
}

func TestDerivePerMessage_Deterministic(t *testing.T) {
	ck := domain.SymmetricKey(bytes.Repeat([]byte{7}, 32))

	mk1, n1 := crypto.DerivePerMessage(ck, 42)
	mk2, n2 := crypto.DerivePerMessage(ck, 42)
	assert.Equal(t, mk1, mk2)
	assert.Equal(t, n1, n2)

	mk3, n3 := crypto.DerivePerMessage(ck, 43)
	assert.NotEqual(t, mk1, mk3)
	assert.NotEqual(t, n1, n3)

	full := crypto.HMAC(ck.Slice(), append([]byte("nonce"), 0, 0, 0, 0, 0, 0, 0, 42))
	assert.Equal(t, full[:12], n1[:])
}

func TestNextChainKey_NoRepeats(t *testing.T) {
	ck := domain.SymmetricKey(bytes.Repeat([]byte{9}, 32))
	seen := map[domain.SymmetricKey]struct{}{ck: {}}

	for i := 0; i < 10000; i++ {
		next := crypto.NextChainKey(ck)
		require.NotEqual(t, ck, next)
		_, dup := seen[next]
		require.False(t, dup, "chain key repeated at step %d", i)
		seen[next] = struct{}{}
		ck = next
	}
}

func TestX25519_DHAgrees(t *testing.T) {
	aPriv, aPub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	bPriv, bPub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	s1, err := crypto.DH(aPriv, bPub)
	require.NoError(t, err)
	s2, err := crypto.DH(bPriv, aPub)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)

	pub, err := crypto.PublicFromPrivate(aPriv)
	require.NoError(t, err)
	assert.Equal(t, aPub, pub)
}

func TestDER_RoundTrip(t *testing.T) {
	priv, pub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	privDER, err := crypto.MarshalPrivateDER(priv)
	require.NoError(t, err)
	pubDER, err := crypto.MarshalPublicDER(pub)
	require.NoError(t, err)

	// Fixed PKCS#8 and SPKI prefixes for X25519 (OID 1.3.101.110).
	assert.Equal(t, "302e020100300506032b656e04220420", hex.EncodeToString(privDER[:16]))
	assert.Equal(t, "302a300506032b656e032100", hex.EncodeToString(pubDER[:12]))

	gotPriv, err := crypto.ParsePrivateDER(privDER)
	require.NoError(t, err)
	gotPub, err := crypto.ParsePublicDER(pubDER)
	require.NoError(t, err)
	assert.Equal(t, priv, gotPriv)
	assert.Equal(t, pub, gotPub)
}

func TestDER_RejectsGarbage(t *testing.T) {
	_, err := crypto.ParsePublicDER([]byte{0x30, 0x00})
	require.Error(t, err)
	_, err = crypto.ParsePrivateDER(nil)
	require.Error(t, err)
}

func TestGCM_SealOpen(t *testing.T) {
	key := domain.SymmetricKey(bytes.Repeat([]byte{3}, 32))
	var nonce [crypto.NonceSize]byte
	aad := []byte("me->them;seq=1;epoch=0")

	ct, tag, err := crypto.SealGCM(key, nonce, []byte("hello"), aad)
	require.NoError(t, err)
	assert.Len(t, tag, crypto.TagSize)
	assert.Len(t, ct, 5)

	pt, err := crypto.OpenGCM(key, nonce, ct, tag, aad)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(pt))

	_, err = crypto.OpenGCM(key, nonce, ct, tag, []byte("other"))
	require.ErrorIs(t, err, crypto.ErrOpen)
}

func TestFingerprintX25519(t *testing.T) {
	a := crypto.FingerprintX25519(domain.X25519Public{1})
	assert.Len(t, a.String(), 20)
	assert.Equal(t, a, crypto.FingerprintX25519(domain.X25519Public{1}))
	assert.NotEqual(t, a, crypto.FingerprintX25519(domain.X25519Public{2}))
}
