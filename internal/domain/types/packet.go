package types

// PacketHeader travels in the clear alongside every ciphertext.
// NewPeerPublicKey, when present, is the sender's freshly rotated X25519
// public key in SPKI DER form.
type PacketHeader struct {
	Direction        Direction `json:"direction"`
	Seq              uint64    `json:"seq"`
	Epoch            uint32    `json:"epoch"`
	NewPeerPublicKey []byte    `json:"newPeerPublicKey,omitempty"`
}

// Packet is the AEAD-framed message exchanged between peers.
//
// Nonce is informational only; receivers re-derive it from chain state.
type Packet struct {
	Header     PacketHeader `json:"header"`
	Ciphertext []byte       `json:"ciphertext"`
	AuthTag    []byte       `json:"authTag"`
	Nonce      []byte       `json:"nonce"`
	AAD        []byte       `json:"aad"`
}
