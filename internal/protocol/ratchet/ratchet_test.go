package ratchet_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dissent/internal/domain"
	"dissent/internal/protocol/ratchet"
)

// makePair returns two records sharing one root with swapped directions.
func makePair(t *testing.T) (a, b domain.SessionRecord) {
	t.Helper()
	root := domain.SymmetricKey(bytes.Repeat([]byte{0x42}, 32))

	a, err := ratchet.NewSession(root, domain.MeToThem)
	require.NoError(t, err)
	b, err = ratchet.NewSession(root, domain.ThemToMe)
	require.NoError(t, err)
	return a, b
}

func TestNewSession_ChainsMirror(t *testing.T) {
	a, b := makePair(t)

	assert.Equal(t, a.Send.ChainKey, b.Recv.ChainKey)
	assert.Equal(t, a.Recv.ChainKey, b.Send.ChainKey)
	assert.NotEqual(t, a.Send.ChainKey, a.Recv.ChainKey)
	assert.Zero(t, a.Epoch)
	assert.Zero(t, a.Send.Seq)
	assert.Nil(t, a.PeerDHPublic)
	assert.Equal(t, domain.RecordFormatVersion, a.Version)
	assert.NotEqual(t, a.LocalDH.Public, b.LocalDH.Public)
}

func TestNewRandomSession_FreshRoots(t *testing.T) {
	a, err := ratchet.NewRandomSession(domain.MeToThem)
	require.NoError(t, err)
	b, err := ratchet.NewRandomSession(domain.MeToThem)
	require.NoError(t, err)

	assert.False(t, a.RootKey.IsZero())
	assert.NotEqual(t, a.RootKey, b.RootKey)
	assert.NotEqual(t, a.Send.ChainKey, b.Send.ChainKey)
}

func TestNewSession_RejectsBadDirection(t *testing.T) {
	_, err := ratchet.NewSession(domain.SymmetricKey{}, domain.Direction("sideways"))
	require.Error(t, err)
}

func TestRotateOnReceive_Converges(t *testing.T) {
	a, b := makePair(t)

	aPub, err := ratchet.RotateOnSend(&a)
	require.NoError(t, err)
	bPub, err := ratchet.RotateOnSend(&b)
	require.NoError(t, err)

	require.NoError(t, ratchet.RotateOnReceive(&a, bPub))
	require.NoError(t, ratchet.RotateOnReceive(&b, aPub))

	assert.Equal(t, a.RootKey, b.RootKey)
	assert.Equal(t, a.Send.ChainKey, b.Recv.ChainKey)
	assert.Equal(t, a.Recv.ChainKey, b.Send.ChainKey)
	assert.Equal(t, uint32(1), a.Epoch)
	assert.Equal(t, uint32(1), b.Epoch)
	require.NotNil(t, a.PeerDHPublic)
	assert.Equal(t, bPub, *a.PeerDHPublic)
}

func TestRotateOnReceive_ResetsSequences(t *testing.T) {
	a, b := makePair(t)
	for i := 0; i < 3; i++ {
		_, err := ratchet.Encode(&a, []byte("x"), nil)
		require.NoError(t, err)
	}
	require.Equal(t, uint64(3), a.Send.Seq)

	oldRoot := a.RootKey
	require.NoError(t, ratchet.RotateOnReceive(&a, b.LocalDH.Public))

	assert.NotEqual(t, oldRoot, a.RootKey)
	assert.Zero(t, a.Send.Seq)
	assert.Zero(t, a.Recv.Seq)
}

func TestRotateOnReceive_RejectsLowOrderPoint(t *testing.T) {
	a, _ := makePair(t)
	before := a.Clone()

	err := ratchet.RotateOnReceive(&a, domain.X25519Public{})
	require.Error(t, err)
	assert.Equal(t, before, a)
}

func TestRotateOnSend_LeavesRootAndChains(t *testing.T) {
	a, _ := makePair(t)
	before := a.Clone()

	pub, err := ratchet.RotateOnSend(&a)
	require.NoError(t, err)

	assert.Equal(t, pub, a.LocalDH.Public)
	assert.NotEqual(t, before.LocalDH.Public, a.LocalDH.Public)
	assert.Equal(t, before.RootKey, a.RootKey)
	assert.Equal(t, before.Send, a.Send)
	assert.Equal(t, before.Recv, a.Recv)
	assert.Equal(t, before.Epoch, a.Epoch)
}

func TestRotateAndAdvance_RequiresPeerKey(t *testing.T) {
	a, _ := makePair(t)
	_, err := ratchet.RotateAndAdvance(&a)
	require.ErrorIs(t, err, ratchet.ErrNoPeerKey)
}

func TestClone_DoesNotAlias(t *testing.T) {
	a, b := makePair(t)
	require.NoError(t, ratchet.RotateOnReceive(&a, b.LocalDH.Public))

	c := a.Clone()
	c.PeerDHPublic[0] ^= 0xff
	c.RootKey[0] ^= 0xff

	assert.NotEqual(t, c.PeerDHPublic, a.PeerDHPublic)
	assert.NotEqual(t, c.RootKey, a.RootKey)
}
