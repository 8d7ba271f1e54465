package ratchet_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dissent/internal/domain"
	"dissent/internal/protocol/ratchet"
)

func TestMarshalPacket_Golden(t *testing.T) {
	pkt := domain.Packet{
		Header:     domain.PacketHeader{Direction: domain.MeToThem, Seq: 1, Epoch: 0},
		Ciphertext: []byte("ct"),
		AuthTag:    bytes.Repeat([]byte{0xaa}, 16),
		Nonce:      bytes.Repeat([]byte{0xbb}, 12),
		AAD:        []byte("me->them;seq=1;epoch=0"),
	}
	out, err := ratchet.MarshalPacket(pkt)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "packet", out)

	back, err := ratchet.ReadPacket(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, pkt, back)
}

func TestReadPacket_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":        "{",
		"bad direction":   `{"header":{"direction":"up","seq":1,"epoch":0}}`,
		"unknown field":   `{"header":{"direction":"me->them","seq":1,"epoch":0},"extra":1}`,
		"negative seq":    `{"header":{"direction":"me->them","seq":-1,"epoch":0}}`,
		"bad base64 body": `{"header":{"direction":"me->them","seq":1,"epoch":0},"ciphertext":"%%"}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ratchet.ReadPacket(strings.NewReader(in))
			require.Error(t, err)
		})
	}
}

func TestWire_EncodeThroughJSON(t *testing.T) {
	a, b := makePair(t)
	pkt, err := ratchet.Encode(&a, []byte("over the wire"), nil)
	require.NoError(t, err)

	raw, err := ratchet.MarshalPacket(pkt)
	require.NoError(t, err)
	got, err := ratchet.ReadPacket(bytes.NewReader(raw))
	require.NoError(t, err)

	pt, err := ratchet.Decode(&b, got)
	require.NoError(t, err)
	assert.Equal(t, "over the wire", string(pt))
}
