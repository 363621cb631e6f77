// Package storage provides the blob persistence used by lockpass.
//
// The BBolt database uses two buckets:
//   - config: schema version, timestamps, vault ID (unencrypted)
//   - blobs: opaque values by key; the vault keeps its sealed envelope here
//
// Storage never sees plaintext. The unencrypted config bucket lets
// lockpass status work without a passphrase.
//
// BBolt provides ACID transactions, an exclusive file lock per open
// database, and corruption detection. Memory offers the same Get/Set
// contract without a file.
package storage
