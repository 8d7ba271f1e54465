package store_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dissent/internal/crypto"
	"dissent/internal/domain"
	"dissent/internal/store"
)

func fixtureRecord(t *testing.T) domain.SessionRecord {
	t.Helper()
	priv := domain.X25519Private(bytes.Repeat([]byte{0x04}, 32))
	pub, err := crypto.PublicFromPrivate(priv)
	require.NoError(t, err)
	peer := domain.X25519Public(bytes.Repeat([]byte{0x05}, 32))

	return domain.SessionRecord{
		Version:      1,
		SessionID:    "6f9c1d2e-5b7a-4c3d-9e8f-0a1b2c3d4e5f",
		Direction:    domain.MeToThem,
		RootKey:      domain.SymmetricKey(bytes.Repeat([]byte{0x01}, 32)),
		Send:         domain.ChainState{ChainKey: domain.SymmetricKey(bytes.Repeat([]byte{0x02}, 32)), Seq: 3},
		Recv:         domain.ChainState{ChainKey: domain.SymmetricKey(bytes.Repeat([]byte{0x03}, 32)), Seq: 2},
		LocalDH:      domain.DHKeyPair{Private: priv, Public: pub},
		PeerDHPublic: &peer,
		Epoch:        2,
		UpdatedAt:    time.Date(2026, 10, 19, 12, 0, 0, 500000000, time.UTC),
	}
}

func TestMarshalRecord_Golden(t *testing.T) {
	out, err := store.MarshalRecord(fixtureRecord(t))
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "record_v1", out)
}

func TestRecord_RoundTrip(t *testing.T) {
	rec := fixtureRecord(t)
	out, err := store.MarshalRecord(rec)
	require.NoError(t, err)

	back, err := store.UnmarshalRecord(out)
	require.NoError(t, err)
	assert.Equal(t, rec, back)

	rec.PeerDHPublic = nil
	out, err = store.MarshalRecord(rec)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "peerPublicKeyDerB64")
	back, err = store.UnmarshalRecord(out)
	require.NoError(t, err)
	assert.Nil(t, back.PeerDHPublic)
}

func TestRecord_SequenceBound(t *testing.T) {
	rec := fixtureRecord(t)
	rec.Send.Seq = domain.MaxSeq
	rec.Recv.Seq = domain.MaxSeq - 1
	out, err := store.MarshalRecord(rec)
	require.NoError(t, err)
	back, err := store.UnmarshalRecord(out)
	require.NoError(t, err)
	assert.Equal(t, uint64(domain.MaxSeq), back.Send.Seq)
	assert.Equal(t, uint64(domain.MaxSeq-1), back.Recv.Seq)

	rec.Send.Seq = domain.MaxSeq + 2
	_, err = store.MarshalRecord(rec)
	require.ErrorIs(t, err, domain.ErrSerialization)

	good, err := store.MarshalRecord(fixtureRecord(t))
	require.NoError(t, err)
	big := strings.Replace(string(good), `"seq":3`, `"seq":9007199254740993`, 1)
	_, err = store.UnmarshalRecord([]byte(big))
	require.ErrorIs(t, err, domain.ErrSerialization)
}

func TestUnmarshalRecord_MissingDirectionDefaults(t *testing.T) {
	out, err := store.MarshalRecord(fixtureRecord(t))
	require.NoError(t, err)
	legacy := strings.Replace(string(out), `"direction":"me->them",`, "", 1)

	rec, err := store.UnmarshalRecord([]byte(legacy))
	require.NoError(t, err)
	assert.Equal(t, domain.MeToThem, rec.Direction)
}

func TestUnmarshalRecord_Corrupt(t *testing.T) {
	good, err := store.MarshalRecord(fixtureRecord(t))
	require.NoError(t, err)
	s := string(good)

	cases := map[string]string{
		"not json":         "{",
		"empty object":     "{}",
		"unknown field":    strings.Replace(s, `"epoch":2`, `"epoch":2,"extra":true`, 1),
		"short root key":   strings.Replace(s, "AQEBAQEBAQEBAQEBAQEBAQEBAQEBAQEBAQEBAQEBAQE=", "AQEB", 1),
		"bad base64":       strings.Replace(s, "AgICAgICAgICAgICAgICAgICAgICAgICAgICAgICAgI=", "!!!!", 1),
		"bad direction":    strings.Replace(s, `"me->them"`, `"up"`, 1),
		"negative seq":     strings.Replace(s, `"seq":3`, `"seq":-3`, 1),
		"bad timestamp":    strings.Replace(s, "2026-10-19T12:00:00.5Z", "yesterday", 1),
		"garbage der":      strings.Replace(s, "MCowBQYDK2VuAyEABQUFBQUFBQUFBQUFBQUFBQUFBQUFBQUFBQUFBQUFBQU=", "AAAA", 1),
		"mismatched local": strings.Replace(s, "MCowBQYDK2VuAyEArAGyIJ6GNU+4UyN7XeD0+rE8f8v0M6YcAZNpYX/s8Qs=", "MCowBQYDK2VuAyEABQUFBQUFBQUFBQUFBQUFBQUFBQUFBQUFBQUFBQUFBQU=", 1),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			require.NotEqual(t, s, in)
			_, err := store.UnmarshalRecord([]byte(in))
			require.ErrorIs(t, err, domain.ErrSerialization)
			require.NotErrorIs(t, err, domain.ErrNotFound)
		})
	}
}
