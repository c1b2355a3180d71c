// Package storetest is a conformance suite for twofactor.Store implementations.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/svc/twofactor"
)

// Run exercises newStore against the Store contract. Every subtest uses its
// own user IDs, so a shared backend needs no cleanup between runs.
func Run(t *testing.T, newStore func(t *testing.T) twofactor.Store) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s twofactor.Store)
	}{
		{name: "GetMissing", fn: testGetMissing},
		{name: "PutPendingRoundTrip", fn: testPutPendingRoundTrip},
		{name: "PutReplacesPending", fn: testPutReplacesPending},
		{name: "PutEnablesOnce", fn: testPutEnablesOnce},
		{name: "PutExpectEnabled", fn: testPutExpectEnabled},
		{name: "PutInvalid", fn: testPutInvalid},
		{name: "ReturnsCopies", fn: testReturnsCopies},
		{name: "ConcurrentEnable", fn: testConcurrentEnable},
		{name: "ConsumeBackupCode", fn: testConsumeBackupCode},
		{name: "ConcurrentConsume", fn: testConcurrentConsume},
		{name: "AdvanceCounter", fn: testAdvanceCounter},
		{name: "Delete", fn: testDelete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.fn(t, newStore(t))
		})
	}
}

var hashes = []string{
	"1111111111111111111111111111111111111111111111111111111111111111",
	"2222222222222222222222222222222222222222222222222222222222222222",
	"3333333333333333333333333333333333333333333333333333333333333333",
}

func pending(userID string) *twofactor.Record {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &twofactor.Record{
		UserID:    userID,
		Secret:    "JBSWY3DPEHPK3PXP",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func enabled(userID string) *twofactor.Record {
	rec := pending(userID)
	rec.Enabled = true
	rec.EnabledAt = rec.CreatedAt
	rec.BackupCodeHashes = append([]string(nil), hashes...)
	return rec
}

func newUserID() string { return "user-" + uuid.NewString() }

func putEnabled(t *testing.T, s twofactor.Store) *twofactor.Record {
	t.Helper()
	rec := enabled(newUserID())
	require.NoError(t, s.Put(context.Background(), rec, false))
	return rec
}

func assertRecord(t *testing.T, want, got *twofactor.Record) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.UserID, got.UserID)
	assert.Equal(t, want.Secret, got.Secret)
	assert.Equal(t, want.Enabled, got.Enabled)
	assert.Equal(t, want.LastCounter, got.LastCounter)
	if len(want.BackupCodeHashes) == 0 {
		assert.Empty(t, got.BackupCodeHashes)
	} else {
		assert.Equal(t, want.BackupCodeHashes, got.BackupCodeHashes)
	}
	assert.True(t, want.EnabledAt.Equal(got.EnabledAt), "enabled at: want %v, got %v", want.EnabledAt, got.EnabledAt)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created at: want %v, got %v", want.CreatedAt, got.CreatedAt)
}

func testGetMissing(t *testing.T, s twofactor.Store) {
	rec, err := s.Get(context.Background(), newUserID())
	assert.ErrorIs(t, err, twofactor.ErrNotFound)
	assert.Nil(t, rec)
}

func testPutPendingRoundTrip(t *testing.T, s twofactor.Store) {
	ctx := context.Background()
	rec := pending(newUserID())
	require.NoError(t, s.Put(ctx, rec, false))

	got, err := s.Get(ctx, rec.UserID)
	require.NoError(t, err)
	assertRecord(t, rec, got)
	assert.Equal(t, twofactor.StatePending, got.State())
}

func testPutReplacesPending(t *testing.T, s twofactor.Store) {
	ctx := context.Background()
	rec := pending(newUserID())
	require.NoError(t, s.Put(ctx, rec, false))

	rec.Secret = "MZXW6YTBOI"
	require.NoError(t, s.Put(ctx, rec, false))

	got, err := s.Get(ctx, rec.UserID)
	require.NoError(t, err)
	assert.Equal(t, "MZXW6YTBOI", got.Secret)
}

func testPutEnablesOnce(t *testing.T, s twofactor.Store) {
	ctx := context.Background()
	userID := newUserID()
	require.NoError(t, s.Put(ctx, pending(userID), false))

	rec := enabled(userID)
	require.NoError(t, s.Put(ctx, rec, false))

	got, err := s.Get(ctx, userID)
	require.NoError(t, err)
	assertRecord(t, rec, got)
	assert.Equal(t, twofactor.StateEnabled, got.State())

	again := enabled(userID)
	again.BackupCodeHashes = hashes[:1]
	assert.ErrorIs(t, s.Put(ctx, again, false), twofactor.ErrConflict)

	got, err = s.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, hashes, got.BackupCodeHashes)
}

func testPutExpectEnabled(t *testing.T, s twofactor.Store) {
	ctx := context.Background()

	missing := enabled(newUserID())
	assert.ErrorIs(t, s.Put(ctx, missing, true), twofactor.ErrConflict)
	_, err := s.Get(ctx, missing.UserID)
	assert.ErrorIs(t, err, twofactor.ErrNotFound)

	p := pending(newUserID())
	require.NoError(t, s.Put(ctx, p, false))
	assert.ErrorIs(t, s.Put(ctx, enabled(p.UserID), true), twofactor.ErrConflict)

	rec := putEnabled(t, s)
	rec.BackupCodeHashes = hashes[1:]
	require.NoError(t, s.Put(ctx, rec, true))

	got, err := s.Get(ctx, rec.UserID)
	require.NoError(t, err)
	assert.Equal(t, hashes[1:], got.BackupCodeHashes)
}

func testPutInvalid(t *testing.T, s twofactor.Store) {
	ctx := context.Background()
	assert.ErrorIs(t, s.Put(ctx, nil, false), twofactor.ErrInvalidInput)
	assert.ErrorIs(t, s.Put(ctx, &twofactor.Record{}, false), twofactor.ErrInvalidInput)
}

func testReturnsCopies(t *testing.T, s twofactor.Store) {
	ctx := context.Background()
	rec := putEnabled(t, s)
	rec.BackupCodeHashes[0] = "mutated"

	got, err := s.Get(ctx, rec.UserID)
	require.NoError(t, err)
	got.BackupCodeHashes[1] = "mutated"

	again, err := s.Get(ctx, rec.UserID)
	require.NoError(t, err)
	assert.Equal(t, hashes, again.BackupCodeHashes)
}

func testConcurrentEnable(t *testing.T, s twofactor.Store) {
	ctx := context.Background()
	userID := newUserID()
	require.NoError(t, s.Put(ctx, pending(userID), false))

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	start := make(chan struct{})
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := s.Put(ctx, enabled(userID), false)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, twofactor.ErrConflict):
				conflicts++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)
}

func testConsumeBackupCode(t *testing.T, s twofactor.Store) {
	ctx := context.Background()
	rec := putEnabled(t, s)

	ok, err := s.ConsumeBackupCode(ctx, rec.UserID, hashes[1])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ConsumeBackupCode(ctx, rec.UserID, hashes[1])
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.ConsumeBackupCode(ctx, rec.UserID, "unknown")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.Get(ctx, rec.UserID)
	require.NoError(t, err)
	assert.Equal(t, []string{hashes[0], hashes[2]}, got.BackupCodeHashes)

	_, err = s.ConsumeBackupCode(ctx, newUserID(), hashes[0])
	assert.ErrorIs(t, err, twofactor.ErrNotFound)
}

func testConcurrentConsume(t *testing.T, s twofactor.Store) {
	ctx := context.Background()
	rec := putEnabled(t, s)

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		consumed int
	)
	start := make(chan struct{})
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := s.ConsumeBackupCode(ctx, rec.UserID, hashes[0])
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				consumed++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, consumed)
	got, err := s.Get(ctx, rec.UserID)
	require.NoError(t, err)
	assert.Equal(t, hashes[1:], got.BackupCodeHashes)
}

func testAdvanceCounter(t *testing.T, s twofactor.Store) {
	ctx := context.Background()
	rec := putEnabled(t, s)

	steps := []struct {
		counter int64
		want    bool
	}{
		{counter: 5, want: true},
		{counter: 5, want: false},
		{counter: 4, want: false},
		{counter: 6, want: true},
	}
	for _, step := range steps {
		ok, err := s.AdvanceCounter(ctx, rec.UserID, step.counter)
		require.NoError(t, err)
		assert.Equal(t, step.want, ok, "counter %d", step.counter)
	}

	got, err := s.Get(ctx, rec.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got.LastCounter)

	_, err = s.AdvanceCounter(ctx, newUserID(), 1)
	assert.ErrorIs(t, err, twofactor.ErrNotFound)
}

func testDelete(t *testing.T, s twofactor.Store) {
	ctx := context.Background()
	rec := putEnabled(t, s)

	require.NoError(t, s.Delete(ctx, rec.UserID))
	_, err := s.Get(ctx, rec.UserID)
	assert.ErrorIs(t, err, twofactor.ErrNotFound)

	require.NoError(t, s.Delete(ctx, rec.UserID))

	// The user can enroll again after deletion.
	require.NoError(t, s.Put(ctx, pending(rec.UserID), false))
}
