// Package crypto provides cryptographic operations for lockpass.
//
// Encryption uses AES-256-GCM with:
//   - 32-byte key derived from the passphrase via PBKDF2
//   - 12-byte random nonce, regenerated on every seal
//   - Authenticated encryption prevents tampering
//
// Key derivation uses PBKDF2-HMAC-SHA256 with:
//   - 16-byte random salt, regenerated on every seal
//   - 150,000 iterations
//
// The sealed vault is stored as an Envelope: a version byte followed by
// salt, nonce and ciphertext. The version byte pins the KDF and cipher
// parameters so they can change without breaking existing vaults.
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Encryptor.Destroy() when done with encryption operations
package crypto
