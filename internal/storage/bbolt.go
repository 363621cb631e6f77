package storage

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket = []byte("config") // Format version, timestamps, vault ID - unencrypted
	BlobsBucket  = []byte("blobs")  // Opaque blobs, one per key
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
	ConfigVaultID  = []byte("vault_id")
)

const (
	SchemaVersion  = "1"
	FilePermSecure = 0600
	DirPermSecure  = 0700
)

var (
	ErrNotFound       = errors.New("not found")
	ErrNotInitialized = errors.New("storage not initialized")
)

// Storage provides BBolt-based blob storage for lockpass
type Storage struct {
	db      *bolt.DB
	timeout time.Duration
}

// Open opens or creates a lockpass database. bbolt holds an exclusive
// file lock until Close; timeout bounds the wait for a lock held by
// another process (zero waits forever). Missing parent directories are
// created owner-only.
func Open(path string, timeout time.Duration) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), DirPermSecure); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}

	db, err := openLive(path, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Storage{db: db, timeout: timeout}, nil
}

// openLive opens path and makes sure the locked file is still the one the
// path names. Compact swaps a new file in under the lock, so an opener that
// was waiting ends up holding the unlinked old file and has to try again.
func openLive(path string, timeout time.Duration) (*bolt.DB, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		wait := timeout
		if timeout > 0 {
			if wait = time.Until(deadline); wait <= 0 {
				return nil, bolt.ErrTimeout
			}
		}

		// Keep the handle bbolt locks so its inode can be checked
		var file *os.File
		openFile := func(name string, flag int, perm os.FileMode) (*os.File, error) {
			f, err := os.OpenFile(name, flag, perm)
			file = f
			return f, err
		}

		db, err := bolt.Open(path, FilePermSecure, &bolt.Options{Timeout: wait, OpenFile: openFile})
		if err != nil {
			return nil, err
		}

		live, err := sameFile(file, path)
		if err != nil {
			db.Close()
			return nil, err
		}
		if live {
			return db, nil
		}
		db.Close()
	}
}

func sameFile(f *os.File, path string) (bool, error) {
	held, err := f.Stat()
	if err != nil {
		return false, err
	}
	current, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return os.SameFile(held, current), nil
}

// Close closes the database. It is a no-op when a failed Compact left
// nothing open.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// initialize creates the bucket structure on first write
func initialize(tx *bolt.Tx) error {
	for _, bucket := range [][]byte{ConfigBucket, BlobsBucket} {
		if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}

	config := tx.Bucket(ConfigBucket)
	if config.Get(ConfigVersion) != nil {
		return nil
	}
	if err := config.Put(ConfigVersion, []byte(SchemaVersion)); err != nil {
		return err
	}
	created, _ := time.Now().MarshalBinary()
	return config.Put(ConfigCreated, created)
}

// IsInitialized checks if the database has been written to
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// Get retrieves the blob stored under key. Returns ErrNotFound if absent.
func (s *Storage) Get(key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		blobs := tx.Bucket(BlobsBucket)
		if blobs == nil {
			return ErrNotFound
		}
		v := blobs.Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// Make a copy since the slice is only valid during the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

// Set stores value under key and bumps the modified timestamp in the
// same transaction.
func (s *Storage) Set(key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := initialize(tx); err != nil {
			return err
		}
		if err := tx.Bucket(BlobsBucket).Put([]byte(key), value); err != nil {
			return fmt.Errorf("failed to store %s: %w", key, err)
		}
		modified, _ := time.Now().MarshalBinary()
		return tx.Bucket(ConfigBucket).Put(ConfigModified, modified)
	})
}

func (s *Storage) getTime(key []byte) (time.Time, error) {
	var t time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		data := config.Get(key)
		if data == nil {
			return fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return t.UnmarshalBinary(data)
	})
	return t, err
}

// GetCreated retrieves the creation timestamp
func (s *Storage) GetCreated() (time.Time, error) {
	return s.getTime(ConfigCreated)
}

// GetModified retrieves the last modified timestamp
func (s *Storage) GetModified() (time.Time, error) {
	return s.getTime(ConfigModified)
}

// GetVaultID retrieves the vault ID from config bucket
func (s *Storage) GetVaultID() (string, error) {
	var vaultID string
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		data := config.Get(ConfigVaultID)
		if data == nil {
			return fmt.Errorf("vault_id: %w", ErrNotFound)
		}
		vaultID = string(data)
		return nil
	})
	return vaultID, err
}

// GetOrCreateVaultID retrieves existing vault ID or generates a new one
func (s *Storage) GetOrCreateVaultID() (string, error) {
	vaultID, err := s.GetVaultID()
	if err == nil {
		return vaultID, nil
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate vault ID: %w", err)
	}
	vaultID = hex.EncodeToString(b)

	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := initialize(tx); err != nil {
			return err
		}
		return tx.Bucket(ConfigBucket).Put(ConfigVaultID, []byte(vaultID))
	})
	if err != nil {
		return "", err
	}

	return vaultID, nil
}

// Compact creates a compacted copy of the database, removing unused space.
// Every envelope rewrite leaves free pages behind, so this is run after
// removals.
//
// The copy replaces the file while the lock is still held. Openers blocked
// on the old file notice the swap in openLive and reopen the path, so no
// write lands in the replaced file.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, FilePermSecure, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	// Copy all buckets
	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	// Atomic replace. Fails on platforms that cannot rename over an open
	// file, leaving the original untouched and still open.
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace database: %w", err)
	}

	closeErr := s.db.Close()
	s.db = nil
	if closeErr != nil {
		return fmt.Errorf("failed to close source database: %w", closeErr)
	}

	db, err := openLive(srcPath, s.timeout)
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}
	s.db = db

	return nil
}
