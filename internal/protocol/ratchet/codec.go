package ratchet

import (
	"crypto/subtle"
	"fmt"

	"dissent/internal/crypto"
	"dissent/internal/domain"
)

// AssociatedData renders the AAD bound to a packet:
// "<direction>;seq=<seq>;epoch=<epoch>".
func AssociatedData(h domain.PacketHeader) []byte {
	return fmt.Appendf(nil, "%s;seq=%d;epoch=%d", h.Direction, h.Seq, h.Epoch)
}

// Encode seals plaintext under the next send-chain message key.
//
// The send sequence is incremented first, so the first packet of a chain
// carries seq 1. advertise, when non-nil, is placed in the header as the
// sender's new DH public key (see RotateOnSend). On error st is unchanged.
func Encode(st *domain.SessionRecord, plaintext []byte, advertise *domain.X25519Public) (domain.Packet, error) {
	if st.Send.Seq >= domain.MaxSeq {
		return domain.Packet{}, ErrSequenceExhausted
	}
	work := st.Clone()
	defer work.Wipe()

	work.Send.Seq++
	mk, nonce := crypto.DerivePerMessage(work.Send.ChainKey, work.Send.Seq)

	header := domain.PacketHeader{
		Direction: work.Direction,
		Seq:       work.Send.Seq,
		Epoch:     work.Epoch,
	}
	aad := AssociatedData(header)
	ct, tag, err := crypto.SealGCM(mk, nonce, plaintext, aad)
	crypto.Wipe(mk[:])
	if err != nil {
		return domain.Packet{}, fmt.Errorf("seal: %w", err)
	}
	work.Send.ChainKey = crypto.NextChainKey(work.Send.ChainKey)

	if advertise != nil {
		der, err := crypto.MarshalPublicDER(*advertise)
		if err != nil {
			return domain.Packet{}, fmt.Errorf("encode advertised key: %w", err)
		}
		header.NewPeerPublicKey = der
	}

	*st = work
	return domain.Packet{
		Header:     header,
		Ciphertext: ct,
		AuthTag:    tag,
		Nonce:      nonce[:],
		AAD:        aad,
	}, nil
}

// Decode verifies and opens pkt against the receive chain.
//
// A header public key triggers RotateOnReceive before anything else. The
// header sequence must then be exactly recv.seq+1 (ErrOutOfOrder otherwise),
// the AAD must match the header, and the tag must verify under the message
// key re-derived from chain state; the wire nonce is never used. Every
// failure leaves st exactly as it was, including any rotation.
func Decode(st *domain.SessionRecord, pkt domain.Packet) ([]byte, error) {
	work := st.Clone()
	defer work.Wipe()

	h := pkt.Header
	if len(h.NewPeerPublicKey) > 0 {
		peer, err := crypto.ParsePublicDER(h.NewPeerPublicKey)
		if err != nil {
			return nil, fmt.Errorf("%w: header public key: %v", domain.ErrAuthenticationFailure, err)
		}
		if err := RotateOnReceive(&work, peer); err != nil {
			return nil, fmt.Errorf("%w: rotate: %v", domain.ErrAuthenticationFailure, err)
		}
	}

	if work.Recv.Seq >= domain.MaxSeq || h.Seq != work.Recv.Seq+1 {
		return nil, fmt.Errorf("%w: want seq %d, got %d", domain.ErrOutOfOrder, work.Recv.Seq+1, h.Seq)
	}
	if subtle.ConstantTimeCompare(pkt.AAD, AssociatedData(h)) != 1 {
		return nil, fmt.Errorf("%w: associated data does not match header", domain.ErrAuthenticationFailure)
	}

	mk, nonce := crypto.DerivePerMessage(work.Recv.ChainKey, h.Seq)
	pt, err := crypto.OpenGCM(mk, nonce, pkt.Ciphertext, pkt.AuthTag, pkt.AAD)
	crypto.Wipe(mk[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthenticationFailure, err)
	}

	work.Recv.ChainKey = crypto.NextChainKey(work.Recv.ChainKey)
	work.Recv.Seq = h.Seq
	*st = work
	return pt, nil
}
