package vault

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/lockpass/internal/crypto"
	"github.com/illarion/lockpass/internal/storage"
)

// failingBackend wraps a Memory and fails Set on demand.
type failingBackend struct {
	*storage.Memory
	failSet bool
	sets    int
}

func (f *failingBackend) Set(key string, value []byte) error {
	f.sets++
	if f.failSet {
		return errors.New("disk full")
	}
	return f.Memory.Set(key, value)
}

// blockingBackend holds Get until release is closed.
type blockingBackend struct {
	*storage.Memory
	entered chan struct{}
	release chan struct{}
}

func (b *blockingBackend) Get(key string) ([]byte, error) {
	close(b.entered)
	<-b.release
	return b.Memory.Get(key)
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	s := New(backend)

	records, err := s.Unlock(ctx, []byte("correct-horse"))
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, Unlocked, s.State())

	rec, err := s.Add(ctx, "github", "alice", "s3cr3t")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "github", rec.Label)
	assert.Equal(t, "alice", rec.Username)
	assert.Equal(t, "s3cr3t", rec.Password)

	records, err = s.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec, records[0])

	require.NoError(t, s.Lock())
	assert.Equal(t, Locked, s.State())

	records, err = s.Unlock(ctx, []byte("correct-horse"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec, records[0])

	records, err = s.Unlock(ctx, []byte("wrong-pass"))
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Nil(t, records)
	assert.Equal(t, Locked, s.State())

	_, err = s.Records()
	assert.ErrorIs(t, err, ErrLocked)
}

func TestLockedPreconditions(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemory())

	_, err := s.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)
	require.NoError(t, s.Lock())

	_, err = s.Add(ctx, "label", "user", "pass")
	assert.ErrorIs(t, err, ErrLocked)

	_, err = s.Update(ctx, "id", "label", "user", "pass")
	assert.ErrorIs(t, err, ErrLocked)

	// The lock check comes before argument validation
	_, err = s.Add(ctx, "", "user", "pass")
	assert.ErrorIs(t, err, ErrLocked)

	_, err = s.Update(ctx, "id", "", "user", "pass")
	assert.ErrorIs(t, err, ErrLocked)

	_, err = s.Remove(ctx, "id")
	assert.ErrorIs(t, err, ErrLocked)

	assert.ErrorIs(t, s.Lock(), ErrLocked)

	_, err = s.Get("id")
	assert.ErrorIs(t, err, ErrLocked)

	_, err = s.Find("label")
	assert.ErrorIs(t, err, ErrLocked)
}

func TestNewStoreIsLocked(t *testing.T) {
	s := New(storage.NewMemory())
	assert.Equal(t, Locked, s.State())
	assert.ErrorIs(t, s.Lock(), ErrLocked)
}

func TestFirstUnlockDoesNotWrite(t *testing.T) {
	backend := &failingBackend{Memory: storage.NewMemory()}
	s := New(backend)

	_, err := s.Unlock(context.Background(), []byte("pw"))
	require.NoError(t, err)
	assert.Zero(t, backend.sets)

	exists, err := s.HasEnvelope()
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRemoveIdempotent(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{Memory: storage.NewMemory()}
	s := New(backend)

	_, err := s.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)

	keep, err := s.Add(ctx, "keep", "u1", "p1")
	require.NoError(t, err)
	drop, err := s.Add(ctx, "drop", "u2", "p2")
	require.NoError(t, err)

	records, err := s.Remove(ctx, drop.ID)
	require.NoError(t, err)
	assert.Equal(t, []Record{keep}, records)
	setsAfterFirst := backend.sets

	records, err = s.Remove(ctx, drop.ID)
	require.NoError(t, err)
	assert.Equal(t, []Record{keep}, records)
	assert.Equal(t, setsAfterFirst, backend.sets, "removing a missing id should not write")
}

func TestInsertionOrderPreserved(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	s := New(backend)

	_, err := s.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)

	labels := []string{"zeta", "alpha", "mid"}
	for _, l := range labels {
		_, err := s.Add(ctx, l, "", "")
		require.NoError(t, err)
	}

	reopened := New(backend)
	records, err := reopened.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)
	require.Len(t, records, len(labels))
	for i, l := range labels {
		assert.Equal(t, l, records[i].Label)
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	s := New(backend)

	_, err := s.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)

	rec, err := s.Add(ctx, "github", "alice", "old")
	require.NoError(t, err)

	updated, err := s.Update(ctx, rec.ID, "GitHub", "alice@example.com", "new")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, updated.ID)
	assert.Equal(t, "new", updated.Password)

	_, err = s.Update(ctx, "missing", "x", "", "")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	_, err = s.Update(ctx, rec.ID, "", "", "")
	assert.ErrorIs(t, err, ErrEmptyLabel)

	reopened := New(backend)
	records, err := reopened.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, []Record{updated}, records)
}

func TestAddRequiresLabel(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemory())

	_, err := s.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)

	_, err = s.Add(ctx, "", "user", "pass")
	assert.ErrorIs(t, err, ErrEmptyLabel)
}

func TestUniqueIDs(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemory())

	_, err := s.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		rec, err := s.Add(ctx, "same", "same", "same")
		require.NoError(t, err)
		assert.False(t, seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
	}
}

func TestFailedPersistLeavesMemoryUnchanged(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{Memory: storage.NewMemory()}
	s := New(backend)

	_, err := s.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)
	rec, err := s.Add(ctx, "github", "alice", "s3cr3t")
	require.NoError(t, err)

	backend.failSet = true

	_, err = s.Add(ctx, "gitlab", "bob", "x")
	assert.Error(t, err)
	_, err = s.Update(ctx, rec.ID, "changed", "", "")
	assert.Error(t, err)
	_, err = s.Remove(ctx, rec.ID)
	assert.Error(t, err)

	records, err := s.Records()
	require.NoError(t, err)
	assert.Equal(t, []Record{rec}, records)
	assert.Equal(t, Unlocked, s.State())
}

func TestResealUsesFreshSaltAndNonce(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	s := New(backend)

	_, err := s.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)
	rec, err := s.Add(ctx, "github", "alice", "s3cr3t")
	require.NoError(t, err)

	first, err := backend.Get(EnvelopeKey)
	require.NoError(t, err)

	// Same content, rewritten
	_, err = s.Update(ctx, rec.ID, rec.Label, rec.Username, rec.Password)
	require.NoError(t, err)

	second, err := backend.Get(EnvelopeKey)
	require.NoError(t, err)

	e1, err := crypto.ParseEnvelope(first)
	require.NoError(t, err)
	e2, err := crypto.ParseEnvelope(second)
	require.NoError(t, err)

	assert.NotEqual(t, e1.Salt, e2.Salt)
	assert.NotEqual(t, e1.Nonce, e2.Nonce)
}

func TestCorruptedEnvelope(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	require.NoError(t, backend.Set(EnvelopeKey, []byte("garbage")))

	s := New(backend)
	_, err := s.Unlock(ctx, []byte("pw"))
	assert.ErrorIs(t, err, ErrCorrupted)
	assert.Equal(t, Locked, s.State())

	_, err = s.Info()
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestTamperedEnvelopeIsAuthenticationError(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	s := New(backend)

	_, err := s.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)
	_, err = s.Add(ctx, "github", "alice", "s3cr3t")
	require.NoError(t, err)
	require.NoError(t, s.Lock())

	blob, err := backend.Get(EnvelopeKey)
	require.NoError(t, err)
	blob[len(blob)-1] ^= 0x80
	require.NoError(t, backend.Set(EnvelopeKey, blob))

	_, err = s.Unlock(ctx, []byte("pw"))
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Equal(t, Locked, s.State())
}

func TestInvalidPayloadIsCorrupted(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "not json"},
		{"duplicate ids", `[{"id":"a","label":"x"},{"id":"a","label":"y"}]`},
		{"missing id", `[{"label":"x"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := crypto.SealEnvelope([]byte("pw"), []byte(tt.payload))
			require.NoError(t, err)

			backend := storage.NewMemory()
			require.NoError(t, backend.Set(EnvelopeKey, env.Marshal()))

			s := New(backend)
			_, err = s.Unlock(context.Background(), []byte("pw"))
			assert.ErrorIs(t, err, ErrCorrupted)
			assert.Equal(t, Locked, s.State())
		})
	}
}

func TestNullPayloadIsEmpty(t *testing.T) {
	env, err := crypto.SealEnvelope([]byte("pw"), []byte("null"))
	require.NoError(t, err)

	backend := storage.NewMemory()
	require.NoError(t, backend.Set(EnvelopeKey, env.Marshal()))

	records, err := New(backend).Unlock(context.Background(), []byte("pw"))
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestLockClearsPassphrase(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemory())

	passphrase := []byte("correct-horse")
	_, err := s.Unlock(ctx, passphrase)
	require.NoError(t, err)

	retained := s.passphrase
	require.Equal(t, passphrase, retained)

	require.NoError(t, s.Lock())
	assert.Equal(t, make([]byte, len(passphrase)), retained)
	assert.Nil(t, s.passphrase)
	assert.Nil(t, s.records)

	// Caller's buffer is independent of the session copy
	assert.Equal(t, []byte("correct-horse"), passphrase)
}

func TestCloseClearsSession(t *testing.T) {
	s := New(storage.NewMemory())
	_, err := s.Unlock(context.Background(), []byte("pw"))
	require.NoError(t, err)

	s.Close()
	assert.Equal(t, Locked, s.State())
	assert.Nil(t, s.passphrase)
}

func TestFind(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemory())

	_, err := s.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)
	gh, err := s.Add(ctx, "GitHub", "alice", "a")
	require.NoError(t, err)
	gl, err := s.Add(ctx, "gitlab", "bob", "b")
	require.NoError(t, err)

	got, err := s.Find(gl.ID)
	require.NoError(t, err)
	assert.Equal(t, gl, got)

	got, err = s.Find("GitHub")
	require.NoError(t, err)
	assert.Equal(t, gh, got)

	got, err = s.Find("github")
	require.NoError(t, err)
	assert.Equal(t, gh, got)

	_, err = s.Find("bitbucket")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	got, err = s.Get(gh.ID)
	require.NoError(t, err)
	assert.Equal(t, gh, got)
}

func TestRecordsReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemory())

	_, err := s.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)
	_, err = s.Add(ctx, "github", "alice", "s3cr3t")
	require.NoError(t, err)

	records, err := s.Records()
	require.NoError(t, err)
	records[0].Password = "mutated"

	again, err := s.Records()
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", again[0].Password)
}

func TestInfoAndHasEnvelope(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemory())

	_, err := s.Info()
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)
	_, err = s.Add(ctx, "github", "alice", "s3cr3t")
	require.NoError(t, err)

	exists, err := s.HasEnvelope()
	require.NoError(t, err)
	assert.True(t, exists)

	info, err := s.Info()
	require.NoError(t, err)
	assert.Equal(t, crypto.FormatV1, info.Version)
	assert.Greater(t, info.Size, crypto.MinEnvelopeSize)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(storage.NewMemory())
	_, err := s.Unlock(ctx, []byte("pw"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Locked, s.State())
}

func TestStateDuringUnlock(t *testing.T) {
	backend := &blockingBackend{
		Memory:  storage.NewMemory(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := New(backend)

	done := make(chan error)
	go func() {
		_, err := s.Unlock(context.Background(), []byte("pw"))
		done <- err
	}()

	<-backend.entered
	assert.Equal(t, Unlocking, s.State())
	close(backend.release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("unlock did not finish")
	}
	assert.Equal(t, Unlocked, s.State())
}

func TestConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	s := New(backend)

	_, err := s.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)

	const n = 4
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Add(ctx, "label", "user", "pass")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	reopened := New(backend)
	records, err := reopened.Unlock(ctx, []byte("pw"))
	require.NoError(t, err)
	assert.Len(t, records, n)
}

func TestBoltBackend(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.lockpass")

	db, err := storage.Open(dbPath, time.Second)
	require.NoError(t, err)

	s := New(db)
	_, err = s.Unlock(ctx, []byte("correct-horse"))
	require.NoError(t, err)
	rec, err := s.Add(ctx, "github", "alice", "s3cr3t")
	require.NoError(t, err)
	s.Close()
	require.NoError(t, db.Close())

	db, err = storage.Open(dbPath, time.Second)
	require.NoError(t, err)
	defer db.Close()

	records, err := New(db).Unlock(ctx, []byte("correct-horse"))
	require.NoError(t, err)
	assert.Equal(t, []Record{rec}, records)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "locked", Locked.String())
	assert.Equal(t, "unlocking", Unlocking.String())
	assert.Equal(t, "unlocked", Unlocked.String())
	assert.Equal(t, "State(9)", State(9).String())
}
