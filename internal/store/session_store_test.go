package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dissent/internal/domain"
	"dissent/internal/store"
)

func TestSessionStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	secrets := store.NewMemoryStore()
	ss := store.NewSessionStore(secrets)
	rec := fixtureRecord(t)

	_, _, err := ss.LoadSession(ctx, "bob")
	require.ErrorIs(t, err, domain.ErrNotFound)

	v, err := ss.CreateSession(ctx, "bob", rec)
	require.NoError(t, err)

	_, err = ss.CreateSession(ctx, "bob", rec)
	require.ErrorIs(t, err, domain.ErrSessionExists)

	got, gotV, err := ss.LoadSession(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, v, gotV)
	assert.Equal(t, rec, got)

	_, _, err = secrets.Get(ctx, "peer:bob")
	require.NoError(t, err)

	rec.Send.Seq++
	v2, err := ss.SaveSession(ctx, "bob", rec, v)
	require.NoError(t, err)
	_, err = ss.SaveSession(ctx, "bob", rec, v)
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	_, err = ss.CreateSession(ctx, "alice", rec)
	require.NoError(t, err)
	peers, err := ss.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.PeerID{"alice", "bob"}, peers)

	require.NoError(t, ss.DeleteSession(ctx, "bob"))
	_, _, err = ss.LoadSession(ctx, "bob")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Greater(t, v2, v)
}

func TestSessionStore_CorruptIsNotAbsent(t *testing.T) {
	ctx := context.Background()
	secrets := store.NewMemoryStore()
	ss := store.NewSessionStore(secrets)

	_, err := secrets.Set(ctx, store.PeerKey("mallory"), []byte(`{"version":1}`))
	require.NoError(t, err)

	_, _, err = ss.LoadSession(ctx, "mallory")
	require.ErrorIs(t, err, domain.ErrSerialization)
	require.NotErrorIs(t, err, domain.ErrNotFound)
}
