// Package keyring caches vault passphrases in the OS keyring, keyed by
// the vault ID stored in the unencrypted config bucket.
package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "lockpass"

var (
	ErrDisabled = errors.New("keyring disabled")
	ErrNotFound = keyring.ErrNotFound
)

// Keyring reads and writes passphrases unless disabled by configuration.
type Keyring struct {
	enabled bool
}

// New returns a Keyring; a disabled one fails every call with ErrDisabled.
func New(enabled bool) *Keyring {
	return &Keyring{enabled: enabled}
}

// Enabled reports whether the OS keyring is in use
func (k *Keyring) Enabled() bool {
	return k.enabled
}

// Save stores a passphrase for the vault
func (k *Keyring) Save(vaultID string, passphrase []byte) error {
	if !k.enabled {
		return ErrDisabled
	}
	return keyring.Set(serviceName, vaultID, string(passphrase))
}

// Get retrieves the passphrase for the vault. The caller owns the
// returned slice.
func (k *Keyring) Get(vaultID string) ([]byte, error) {
	if !k.enabled {
		return nil, ErrDisabled
	}
	secret, err := keyring.Get(serviceName, vaultID)
	if err != nil {
		return nil, err
	}
	return []byte(secret), nil
}

// Delete removes the passphrase for the vault
func (k *Keyring) Delete(vaultID string) error {
	if !k.enabled {
		return ErrDisabled
	}
	return keyring.Delete(serviceName, vaultID)
}

// Has checks if a passphrase is stored for the vault
func (k *Keyring) Has(vaultID string) bool {
	if !k.enabled || vaultID == "" {
		return false
	}
	_, err := keyring.Get(serviceName, vaultID)
	return err == nil
}
