package crypto

import (
	"errors"
	"fmt"
)

// FormatV1 is PBKDF2-HMAC-SHA256 (150,000 iterations) with AES-256-GCM.
const FormatV1 byte = 1

const (
	headerSize      = 1
	MinEnvelopeSize = headerSize + SaltSize + NonceSize + TagSize
)

var (
	ErrMalformedEnvelope  = errors.New("malformed envelope")
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported format version", ErrMalformedEnvelope)
)

// Envelope is the persisted form of a sealed payload.
//
// Layout: version(1) | salt(16) | nonce(12) | ciphertext+tag(>=16)
type Envelope struct {
	Version    byte
	Salt       []byte
	Nonce      []byte
	Ciphertext []byte
}

// SealEnvelope encrypts plaintext under a key derived from passphrase.
// A new salt and nonce are generated on every call.
func SealEnvelope(passphrase, plaintext []byte) (*Envelope, error) {
	kdf, err := NewKDF()
	if err != nil {
		return nil, err
	}
	nonce, err := GenerateRandom(NonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	key := kdf.DeriveKey(passphrase)
	defer ClearBytes(key)

	ciphertext, err := Seal(key, nonce, plaintext)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		Version:    FormatV1,
		Salt:       kdf.Salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, nil
}

// Open derives the key from passphrase and the stored salt and decrypts
// the payload. Any verification failure yields ErrAuthFailed.
func (e *Envelope) Open(passphrase []byte) ([]byte, error) {
	if e.Version != FormatV1 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, e.Version)
	}

	key, err := DeriveKey(passphrase, e.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	defer ClearBytes(key)

	return Open(key, e.Nonce, e.Ciphertext)
}

// Marshal encodes the envelope into its binary form
func (e *Envelope) Marshal() []byte {
	out := make([]byte, 0, headerSize+len(e.Salt)+len(e.Nonce)+len(e.Ciphertext))
	out = append(out, e.Version)
	out = append(out, e.Salt...)
	out = append(out, e.Nonce...)
	out = append(out, e.Ciphertext...)
	return out
}

// ParseEnvelope decodes a blob produced by Marshal. The returned envelope
// does not alias data.
func ParseEnvelope(data []byte) (*Envelope, error) {
	if len(data) < MinEnvelopeSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrMalformedEnvelope, len(data), MinEnvelopeSize)
	}
	if data[0] != FormatV1 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, data[0])
	}

	rest := data[headerSize:]
	salt := append([]byte(nil), rest[:SaltSize]...)
	rest = rest[SaltSize:]
	nonce := append([]byte(nil), rest[:NonceSize]...)
	ciphertext := append([]byte(nil), rest[NonceSize:]...)

	return &Envelope{
		Version:    data[0],
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, nil
}
