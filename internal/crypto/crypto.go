package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize   = 16     // Salt size in bytes
	KeySize    = 32     // AES-256 key size
	NonceSize  = 12     // GCM nonce size
	TagSize    = 16     // GCM authentication tag size
	Iterations = 150000 // PBKDF2 iterations for format version 1
)

var (
	ErrAuthFailed   = errors.New("authentication failed")
	ErrInvalidKey   = errors.New("invalid key length")
	ErrInvalidNonce = errors.New("invalid nonce length")
	ErrInvalidSalt  = errors.New("invalid salt length")
)

// KDF handles key derivation from passwords
type KDF struct {
	Salt       []byte
	Iterations int
}

// NewKDF creates a new KDF with a random salt
func NewKDF() (*KDF, error) {
	salt, err := GenerateRandom(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	return &KDF{
		Salt:       salt,
		Iterations: Iterations,
	}, nil
}

// DeriveKey derives an encryption key from a password
func (k *KDF) DeriveKey(password []byte) []byte {
	return pbkdf2.Key(password, k.Salt, k.Iterations, KeySize, sha256.New)
}

// DeriveKey derives a 256-bit key from passphrase and a 16-byte salt
// using the fixed iteration count.
func DeriveKey(passphrase, salt []byte) ([]byte, error) {
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidSalt, len(salt), SaltSize)
	}
	kdf := &KDF{Salt: salt, Iterations: Iterations}
	return kdf.DeriveKey(passphrase), nil
}

// Encryptor provides authenticated encryption under a single key
type Encryptor struct {
	key  []byte
	aead cipher.AEAD
}

// NewEncryptor creates a new encryptor with the given key
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKey, len(key), KeySize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Encryptor{
		key:  key,
		aead: gcm,
	}, nil
}

// Seal encrypts and authenticates plaintext using AES-256-GCM.
// The returned ciphertext carries the tag at its end.
func (e *Encryptor) Seal(nonce, plaintext []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonce, len(nonce), NonceSize)
	}
	return e.aead.Seal(nil, nonce, plaintext, nil), nil
}

// Open verifies and decrypts ciphertext using AES-256-GCM
func (e *Encryptor) Open(nonce, ciphertext []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonce, len(nonce), NonceSize)
	}
	if len(ciphertext) < TagSize {
		return nil, ErrAuthFailed
	}

	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}

	return plaintext, nil
}

// Destroy clears the encryptor's key from memory
func (e *Encryptor) Destroy() {
	ClearBytes(e.key)
}

// Seal is a one-shot AES-256-GCM encryption under key and nonce.
func Seal(key, nonce, plaintext []byte) ([]byte, error) {
	enc, err := NewEncryptor(key)
	if err != nil {
		return nil, err
	}
	return enc.Seal(nonce, plaintext)
}

// Open is a one-shot AES-256-GCM decryption under key and nonce.
func Open(key, nonce, ciphertext []byte) ([]byte, error) {
	enc, err := NewEncryptor(key)
	if err != nil {
		return nil, err
	}
	return enc.Open(nonce, ciphertext)
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
