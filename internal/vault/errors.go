package vault

import "errors"

var (
	// ErrAuthentication covers a wrong passphrase and a damaged ciphertext
	// alike; callers cannot tell the two apart.
	ErrAuthentication = errors.New("incorrect passphrase or corrupted vault")

	// ErrCorrupted means the stored envelope or its payload cannot be parsed.
	ErrCorrupted = errors.New("vault is corrupted")

	// ErrLocked is returned by operations that need an unlocked vault.
	ErrLocked = errors.New("vault is locked")

	ErrRecordNotFound = errors.New("record not found")
	ErrEmptyLabel     = errors.New("label must not be empty")
)
