package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/illarion/lockpass/internal/crypto"
	"github.com/illarion/lockpass/internal/logger"
	"github.com/illarion/lockpass/internal/storage"
)

// EnvelopeKey is the backend key holding the sealed envelope.
const EnvelopeKey = "vault"

// State is the lifecycle state of a Store.
type State int32

const (
	Locked State = iota
	Unlocking
	Unlocked
)

func (s State) String() string {
	switch s {
	case Locked:
		return "locked"
	case Unlocking:
		return "unlocking"
	case Unlocked:
		return "unlocked"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Backend is the blob persistence the vault writes its envelope to.
// Get returns storage.ErrNotFound when nothing is stored under key.
type Backend interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// Info describes the stored envelope without decrypting it.
type Info struct {
	Version byte
	Size    int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for lifecycle diagnostics.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) {
		s.log = l.With("vault")
	}
}

// Store owns the decrypted records while unlocked and re-seals the whole
// collection to the backend after every change.
//
// All operations are serialized by a single mutex, which is held across
// the read-decide-write sequence of each call. State can be read at any
// time without blocking.
type Store struct {
	mu      sync.Mutex
	state   atomic.Int32
	backend Backend
	log     *logger.Logger

	// session, valid only while Unlocked
	passphrase []byte
	records    []Record
}

// New creates a locked Store on top of backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports the current lifecycle state.
func (s *Store) State() State {
	return State(s.state.Load())
}

// Unlock decrypts the stored vault with passphrase and keeps the records
// and a copy of the passphrase in memory. When nothing is stored yet the
// vault unlocks empty; the first mutation creates the envelope.
//
// Any existing session is discarded first, so a failed attempt always
// leaves the store Locked. Key derivation is deliberately slow.
func (s *Store) Unlock(ctx context.Context, passphrase []byte) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearSession()
	s.state.Store(int32(Unlocking))

	records, err := s.load(passphrase)
	if err != nil {
		s.state.Store(int32(Locked))
		s.log.Debug().Err(err).Msg("unlock failed")
		return nil, err
	}

	s.passphrase = append([]byte(nil), passphrase...)
	s.records = records
	s.state.Store(int32(Unlocked))
	s.log.Debug().Int("records", len(records)).Msg("vault unlocked")

	return cloneRecords(records), nil
}

func (s *Store) load(passphrase []byte) ([]Record, error) {
	blob, err := s.backend.Get(EnvelopeKey)
	if errors.Is(err, storage.ErrNotFound) {
		s.log.Debug().Msg("no envelope stored, starting empty vault")
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vault: %w", err)
	}

	env, err := crypto.ParseEnvelope(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	plaintext, err := env.Open(passphrase)
	switch {
	case errors.Is(err, crypto.ErrAuthFailed):
		return nil, ErrAuthentication
	case errors.Is(err, crypto.ErrMalformedEnvelope):
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	case err != nil:
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}
	defer crypto.ClearBytes(plaintext)

	records, err := decodeRecords(plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return records, nil
}

// persist seals next under the session passphrase with a fresh salt and
// nonce and writes it to the backend.
func (s *Store) persist(next []Record) error {
	plaintext, err := encodeRecords(next)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(plaintext)

	env, err := crypto.SealEnvelope(s.passphrase, plaintext)
	if err != nil {
		return fmt.Errorf("failed to seal vault: %w", err)
	}

	if err := s.backend.Set(EnvelopeKey, env.Marshal()); err != nil {
		return fmt.Errorf("failed to store vault: %w", err)
	}

	s.log.Debug().Int("records", len(next)).Msg("vault sealed")
	return nil
}

func (s *Store) requireUnlocked() error {
	if s.State() != Unlocked {
		return ErrLocked
	}
	return nil
}

// Add appends a new record and persists the vault.
func (s *Store) Add(ctx context.Context, label, username, password string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUnlocked(); err != nil {
		return Record{}, err
	}
	if label == "" {
		return Record{}, ErrEmptyLabel
	}

	rec := Record{
		ID:       newID(),
		Label:    label,
		Username: username,
		Password: password,
	}
	next := append(cloneRecords(s.records), rec)

	if err := s.persist(next); err != nil {
		return Record{}, err
	}
	s.records = next

	return rec, nil
}

// Update replaces the editable fields of the record with the given id and
// persists the vault.
func (s *Store) Update(ctx context.Context, id, label, username, password string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUnlocked(); err != nil {
		return Record{}, err
	}
	if label == "" {
		return Record{}, ErrEmptyLabel
	}

	idx := indexOf(s.records, id)
	if idx < 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	next := cloneRecords(s.records)
	next[idx].Label = label
	next[idx].Username = username
	next[idx].Password = password

	if err := s.persist(next); err != nil {
		return Record{}, err
	}
	s.records = next

	return next[idx], nil
}

// Remove deletes the record with the given id and persists the vault.
// Removing an unknown id changes nothing and writes nothing.
func (s *Store) Remove(ctx context.Context, id string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}

	idx := indexOf(s.records, id)
	if idx < 0 {
		return cloneRecords(s.records), nil
	}

	next := make([]Record, 0, len(s.records)-1)
	next = append(next, s.records[:idx]...)
	next = append(next, s.records[idx+1:]...)

	if err := s.persist(next); err != nil {
		return nil, err
	}
	s.records = next

	return cloneRecords(next), nil
}

// Lock discards the records and overwrites the retained passphrase.
// The stored envelope is left untouched.
func (s *Store) Lock() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUnlocked(); err != nil {
		return err
	}

	s.clearSession()
	s.state.Store(int32(Locked))
	s.log.Debug().Msg("vault locked")
	return nil
}

// Close drops any session regardless of state.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearSession()
	s.state.Store(int32(Locked))
}

// clearSession zeroes the passphrase. Record strings cannot be
// overwritten in place and are only dereferenced.
func (s *Store) clearSession() {
	crypto.ClearBytes(s.passphrase)
	s.passphrase = nil
	s.records = nil
}

// Records returns a copy of the unlocked collection in insertion order.
func (s *Store) Records() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}
	return cloneRecords(s.records), nil
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUnlocked(); err != nil {
		return Record{}, err
	}
	if idx := indexOf(s.records, id); idx >= 0 {
		return s.records[idx], nil
	}
	return Record{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
}

// Find looks a record up by id, then by exact label, then by label
// ignoring case. The first match in insertion order wins.
func (s *Store) Find(query string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUnlocked(); err != nil {
		return Record{}, err
	}
	if idx := indexOf(s.records, query); idx >= 0 {
		return s.records[idx], nil
	}
	for _, r := range s.records {
		if r.Label == query {
			return r, nil
		}
	}
	for _, r := range s.records {
		if strings.EqualFold(r.Label, query) {
			return r, nil
		}
	}
	return Record{}, fmt.Errorf("%w: %s", ErrRecordNotFound, query)
}

// HasEnvelope reports whether a sealed vault is stored. No passphrase is
// needed.
func (s *Store) HasEnvelope() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.backend.Get(EnvelopeKey)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read vault: %w", err)
	}
	return true, nil
}

// Info parses the stored envelope header. Returns storage.ErrNotFound when
// no vault is stored and ErrCorrupted when the blob cannot be parsed.
func (s *Store) Info() (*Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := s.backend.Get(EnvelopeKey)
	if err != nil {
		return nil, err
	}

	env, err := crypto.ParseEnvelope(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return &Info{Version: env.Version, Size: len(blob)}, nil
}
