package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"dissent/internal/util/memzero"
)

const (
	// The current supported version of the encrypted blob format stored on disk.
	envelopeFormatVersion = 1
)

// KDF names the passphrase key-derivation function of an envelope.
type KDF string

const (
	KDFScrypt   KDF = "scrypt"
	KDFArgon2id KDF = "argon2id"
)

var (
	// Returned when the passphrase is incorrect or the ciphertext has been modified / corrupted.
	errWrongPassphrase = errors.New("wrong passphrase or corrupted vault file")
)

// EnvelopeParams tunes the passphrase KDF used for new envelopes. Existing
// envelopes carry their own parameters.
type EnvelopeParams struct {
	KDF KDF

	ScryptN, ScryptR, ScryptP int

	ArgonTime    uint32
	ArgonMemory  uint32 // KiB
	ArgonThreads uint8
}

// DefaultEnvelopeParams returns interactive-strength parameters for kdf.
// An empty kdf selects argon2id.
func DefaultEnvelopeParams(kdf KDF) EnvelopeParams {
	if kdf == "" {
		kdf = KDFArgon2id
	}
	return EnvelopeParams{
		KDF:          kdf,
		ScryptN:      1 << 15,
		ScryptR:      8,
		ScryptP:      1,
		ArgonTime:    1,
		ArgonMemory:  1 << 16,
		ArgonThreads: 4,
	}
}

// blob is the on-disk JSON structure holding the ciphertext and KDF parameters.
type blob struct {
	V       int    `json:"v"`
	KDF     KDF    `json:"kdf"`
	Salt    []byte `json:"salt"`
	N       int    `json:"scrypt_N,omitempty"`
	R       int    `json:"scrypt_r,omitempty"`
	P       int    `json:"scrypt_p,omitempty"`
	Time    uint32 `json:"argon2_t,omitempty"`
	Memory  uint32 `json:"argon2_m,omitempty"`
	Threads uint8  `json:"argon2_p,omitempty"`
	Cipher  []byte `json:"cipher"`
}

func (b blob) deriveKey(passphrase []byte) ([]byte, error) {
	switch b.KDF {
	case KDFScrypt:
		return scrypt.Key(passphrase, b.Salt, b.N, b.R, b.P, chacha20poly1305.KeySize)
	case KDFArgon2id:
		if b.Time == 0 || b.Memory == 0 || b.Threads == 0 {
			return nil, errors.New("argon2id parameters missing")
		}
		return argon2.IDKey(passphrase, b.Salt, b.Time, b.Memory, b.Threads, chacha20poly1305.KeySize), nil
	default:
		return nil, fmt.Errorf("unknown kdf %q", b.KDF)
	}
}

// seal derives a key from passphrase and seals raw into a JSON blob.
func seal(passphrase, raw []byte, params EnvelopeParams) ([]byte, error) {
	bl := blob{
		V:   envelopeFormatVersion,
		KDF: params.KDF,
	}
	switch params.KDF {
	case KDFScrypt:
		bl.N, bl.R, bl.P = params.ScryptN, params.ScryptR, params.ScryptP
	case KDFArgon2id:
		bl.Time, bl.Memory, bl.Threads = params.ArgonTime, params.ArgonMemory, params.ArgonThreads
	}

	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, err
	}
	bl.Salt = salt[:]

	key, err := bl.deriveKey(passphrase)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte // zero nonce; salt-bound key guarantees uniqueness
	bl.Cipher = aead.Seal(nil, nonce[:], raw, salt[:])
	return json.Marshal(bl)
}

// open decrypts the JSON blob using a key derived from passphrase.
func open(passphrase, b []byte) ([]byte, error) {
	var bl blob
	if err := json.Unmarshal(b, &bl); err != nil {
		return nil, err
	}
	if bl.V > envelopeFormatVersion {
		return nil, fmt.Errorf("unsupported envelope version %d", bl.V)
	}

	key, err := bl.deriveKey(passphrase)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	pt, err := aead.Open(nil, nonce[:], bl.Cipher, bl.Salt)
	if err != nil {
		return nil, errWrongPassphrase
	}
	return pt, nil
}
