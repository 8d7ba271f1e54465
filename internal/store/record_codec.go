package store

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gowebpki/jcs"
	"github.com/kaptinlin/jsonschema"

	"dissent/internal/crypto"
	"dissent/internal/domain"
)

//go:embed record.schema.json
var recordSchemaJSON []byte

var recordSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.NewCompiler().Compile(recordSchemaJSON)
})

type chainJSON struct {
	ChainKey string `json:"chainKey"`
	Seq      uint64 `json:"seq"`
}

type localDHJSON struct {
	PrivateKeyDerB64 string `json:"privateKeyDerB64"`
	PublicKeyDerB64  string `json:"publicKeyDerB64"`
}

// recordJSON is the persisted form of a SessionRecord.
type recordJSON struct {
	Version             int         `json:"version"`
	SessionID           string      `json:"sessionId,omitempty"`
	Direction           string      `json:"direction,omitempty"`
	RootKey             string      `json:"rootKey"`
	Send                chainJSON   `json:"send"`
	Recv                chainJSON   `json:"recv"`
	LocalDH             localDHJSON `json:"localDh"`
	PeerPublicKeyDerB64 *string     `json:"peerPublicKeyDerB64,omitempty"`
	Epoch               uint32      `json:"epoch"`
	UpdatedAt           string      `json:"updatedAt"`
}

// MarshalRecord encodes rec as canonical (RFC 8785) JSON. Sequences above
// domain.MaxSeq cannot be represented and are rejected.
func MarshalRecord(rec domain.SessionRecord) ([]byte, error) {
	if rec.Send.Seq > domain.MaxSeq || rec.Recv.Seq > domain.MaxSeq {
		return nil, fmt.Errorf("%w: sequence above %d", domain.ErrSerialization, uint64(domain.MaxSeq))
	}
	privDER, err := crypto.MarshalPrivateDER(rec.LocalDH.Private)
	if err != nil {
		return nil, fmt.Errorf("%w: local private key: %v", domain.ErrSerialization, err)
	}
	pubDER, err := crypto.MarshalPublicDER(rec.LocalDH.Public)
	if err != nil {
		return nil, fmt.Errorf("%w: local public key: %v", domain.ErrSerialization, err)
	}

	out := recordJSON{
		Version:   rec.Version,
		SessionID: rec.SessionID,
		Direction: string(rec.Direction),
		RootKey:   crypto.B64(rec.RootKey.Slice()),
		Send:      chainJSON{ChainKey: crypto.B64(rec.Send.ChainKey.Slice()), Seq: rec.Send.Seq},
		Recv:      chainJSON{ChainKey: crypto.B64(rec.Recv.ChainKey.Slice()), Seq: rec.Recv.Seq},
		LocalDH: localDHJSON{
			PrivateKeyDerB64: crypto.B64(privDER),
			PublicKeyDerB64:  crypto.B64(pubDER),
		},
		Epoch:     rec.Epoch,
		UpdatedAt: rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if out.Version == 0 {
		out.Version = domain.RecordFormatVersion
	}
	if rec.PeerDHPublic != nil {
		der, err := crypto.MarshalPublicDER(*rec.PeerDHPublic)
		if err != nil {
			return nil, fmt.Errorf("%w: peer public key: %v", domain.ErrSerialization, err)
		}
		s := crypto.B64(der)
		out.PeerPublicKeyDerB64 = &s
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSerialization, err)
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: canonicalize: %v", domain.ErrSerialization, err)
	}
	return canon, nil
}

// UnmarshalRecord decodes and validates a persisted record. Every failure
// wraps domain.ErrSerialization.
func UnmarshalRecord(data []byte) (rec domain.SessionRecord, err error) {
	schema, err := recordSchema()
	if err != nil {
		return rec, fmt.Errorf("%w: compile schema: %v", domain.ErrSerialization, err)
	}
	if res := schema.ValidateJSON(data); !res.IsValid() {
		return rec, fmt.Errorf("%w: schema: %v", domain.ErrSerialization, res.Errors)
	}

	var in recordJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return rec, fmt.Errorf("%w: %v", domain.ErrSerialization, err)
	}

	defer func() {
		if err != nil {
			rec.Wipe()
			rec = domain.SessionRecord{}
		}
	}()

	rec.Version = in.Version
	rec.SessionID = in.SessionID
	rec.Epoch = in.Epoch
	rec.Send.Seq = in.Send.Seq
	rec.Recv.Seq = in.Recv.Seq

	rec.Direction = domain.MeToThem
	if in.Direction != "" {
		if rec.Direction, err = domain.ParseDirection(in.Direction); err != nil {
			return rec, fmt.Errorf("%w: %v", domain.ErrSerialization, err)
		}
	}

	if err := decodeKey(&rec.RootKey, in.RootKey, "rootKey"); err != nil {
		return rec, err
	}
	if err := decodeKey(&rec.Send.ChainKey, in.Send.ChainKey, "send.chainKey"); err != nil {
		return rec, err
	}
	if err := decodeKey(&rec.Recv.ChainKey, in.Recv.ChainKey, "recv.chainKey"); err != nil {
		return rec, err
	}

	der, err := crypto.FromB64(in.LocalDH.PrivateKeyDerB64)
	if err != nil {
		return rec, fmt.Errorf("%w: localDh.privateKeyDerB64: %v", domain.ErrSerialization, err)
	}
	if rec.LocalDH.Private, err = crypto.ParsePrivateDER(der); err != nil {
		return rec, fmt.Errorf("%w: localDh.privateKeyDerB64: %v", domain.ErrSerialization, err)
	}
	if der, err = crypto.FromB64(in.LocalDH.PublicKeyDerB64); err != nil {
		return rec, fmt.Errorf("%w: localDh.publicKeyDerB64: %v", domain.ErrSerialization, err)
	}
	if rec.LocalDH.Public, err = crypto.ParsePublicDER(der); err != nil {
		return rec, fmt.Errorf("%w: localDh.publicKeyDerB64: %v", domain.ErrSerialization, err)
	}
	derived, err := crypto.PublicFromPrivate(rec.LocalDH.Private)
	if err != nil || derived != rec.LocalDH.Public {
		return rec, fmt.Errorf("%w: localDh public key does not match private key", domain.ErrSerialization)
	}

	if in.PeerPublicKeyDerB64 != nil {
		der, err := crypto.FromB64(*in.PeerPublicKeyDerB64)
		if err != nil {
			return rec, fmt.Errorf("%w: peerPublicKeyDerB64: %v", domain.ErrSerialization, err)
		}
		pk, err := crypto.ParsePublicDER(der)
		if err != nil {
			return rec, fmt.Errorf("%w: peerPublicKeyDerB64: %v", domain.ErrSerialization, err)
		}
		rec.PeerDHPublic = &pk
	}

	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, in.UpdatedAt); err != nil {
		return rec, fmt.Errorf("%w: updatedAt: %v", domain.ErrSerialization, err)
	}
	return rec, nil
}

func decodeKey(dst *domain.SymmetricKey, s, field string) error {
	b, err := crypto.FromB64(s)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrSerialization, field, err)
	}
	defer crypto.Wipe(b)
	if len(b) != len(dst) {
		return fmt.Errorf("%w: %s: want %d bytes, got %d", domain.ErrSerialization, field, len(dst), len(b))
	}
	copy(dst[:], b)
	return nil
}
