// Package vault provides the lockpass credential store.
//
// A Store moves between three states:
//   - Locked: no plaintext and no passphrase in memory (initial state)
//   - Unlocking: key derivation and decryption are running
//   - Unlocked: the full record collection and the passphrase are held
//
// Operations:
//   - Unlock: Decrypt the stored envelope, or start empty on first use
//   - Add/Update/Remove: Change the collection and re-seal it immediately
//   - Lock: Overwrite the passphrase and drop the records
//
// Every change re-encrypts the whole collection with a fresh salt and
// nonce before it is visible in memory, so memory and storage never
// disagree after an operation returns.
package vault
