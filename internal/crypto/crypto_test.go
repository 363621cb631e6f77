package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := DeriveKey([]byte("correct-horse"), bytes.Repeat([]byte{0x01}, SaltSize))
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	return key
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{0xAB}, SaltSize)

	k1, err := DeriveKey([]byte("passphrase"), salt)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	k2, err := DeriveKey([]byte("passphrase"), salt)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}

	if len(k1) != KeySize {
		t.Fatalf("key length = %d, want %d", len(k1), KeySize)
	}
	if !bytes.Equal(k1, k2) {
		t.Error("same passphrase and salt should derive the same key")
	}

	otherSalt := bytes.Repeat([]byte{0xCD}, SaltSize)
	k3, err := DeriveKey([]byte("passphrase"), otherSalt)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if bytes.Equal(k1, k3) {
		t.Error("different salts should derive different keys")
	}
}

func TestDeriveKeyRejectsBadSalt(t *testing.T) {
	if _, err := DeriveKey([]byte("passphrase"), []byte("short")); !errors.Is(err, ErrInvalidSalt) {
		t.Errorf("expected ErrInvalidSalt, got %v", err)
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	key := testKey(t)
	nonce := bytes.Repeat([]byte{0x02}, NonceSize)

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"empty", []byte{}},
		{"json", []byte(`[{"id":"1","label":"github","username":"alice","password":"s3cr3t"}]`)},
		{"binary", []byte{0x00, 0xFF, 0x10, 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := Seal(key, nonce, tt.plaintext)
			if err != nil {
				t.Fatalf("Seal failed: %v", err)
			}
			if len(ciphertext) != len(tt.plaintext)+TagSize {
				t.Errorf("ciphertext length = %d, want %d", len(ciphertext), len(tt.plaintext)+TagSize)
			}

			plaintext, err := Open(key, nonce, ciphertext)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			if !bytes.Equal(plaintext, tt.plaintext) {
				t.Errorf("plaintext mismatch: got %q, want %q", plaintext, tt.plaintext)
			}
		})
	}
}

func TestSealRejectsMalformedInputs(t *testing.T) {
	key := testKey(t)
	nonce := bytes.Repeat([]byte{0x02}, NonceSize)

	if _, err := Seal(key[:16], nonce, []byte("data")); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
	if _, err := Seal(key, nonce[:8], []byte("data")); !errors.Is(err, ErrInvalidNonce) {
		t.Errorf("expected ErrInvalidNonce, got %v", err)
	}
	if _, err := Open(key, nonce[:8], make([]byte, TagSize)); !errors.Is(err, ErrInvalidNonce) {
		t.Errorf("expected ErrInvalidNonce, got %v", err)
	}
}

func TestOpenShortCiphertext(t *testing.T) {
	key := testKey(t)
	nonce := bytes.Repeat([]byte{0x02}, NonceSize)

	if _, err := Open(key, nonce, make([]byte, TagSize-1)); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed, got %v", err)
	}
}

func TestOpenWrongKey(t *testing.T) {
	key := testKey(t)
	nonce := bytes.Repeat([]byte{0x02}, NonceSize)

	ciphertext, err := Seal(key, nonce, []byte("secret"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	wrongKey, err := DeriveKey([]byte("wrong-pass"), bytes.Repeat([]byte{0x01}, SaltSize))
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}

	plaintext, err := Open(wrongKey, nonce, ciphertext)
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed, got %v", err)
	}
	if plaintext != nil {
		t.Error("no plaintext should be returned on failure")
	}
}

func TestEncryptorDestroy(t *testing.T) {
	key := testKey(t)
	enc, err := NewEncryptor(key)
	if err != nil {
		t.Fatalf("NewEncryptor failed: %v", err)
	}

	enc.Destroy()

	if !bytes.Equal(key, make([]byte, KeySize)) {
		t.Error("key should be zeroed after Destroy")
	}
}

func TestClearBytes(t *testing.T) {
	b := []byte("sensitive")
	ClearBytes(b)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d not cleared", i)
		}
	}
}

func TestConstantTimeCompare(t *testing.T) {
	if !ConstantTimeCompare([]byte("abc"), []byte("abc")) {
		t.Error("equal slices should compare equal")
	}
	if ConstantTimeCompare([]byte("abc"), []byte("abd")) {
		t.Error("different slices should not compare equal")
	}
}
