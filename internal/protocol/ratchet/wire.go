package ratchet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"dissent/internal/domain"
)

// MarshalPacket renders pkt as one line of JSON. Byte fields are base64.
func MarshalPacket(pkt domain.Packet) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(pkt); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadPacket decodes a single JSON packet from r.
func ReadPacket(r io.Reader) (domain.Packet, error) {
	var pkt domain.Packet
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&pkt); err != nil {
		return domain.Packet{}, fmt.Errorf("read packet: %w", err)
	}
	if !pkt.Header.Direction.Valid() {
		return domain.Packet{}, fmt.Errorf("read packet: bad direction %q", pkt.Header.Direction)
	}
	return pkt, nil
}
