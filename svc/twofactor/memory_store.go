package twofactor

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore is a Store kept in process memory. Records are copied on the way
// in and out so callers cannot mutate stored state.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, rec *Record, expectEnabled bool) error {
	if rec == nil || rec.UserID == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[rec.UserID]
	if expectEnabled != (ok && current.Enabled) {
		return ErrConflict
	}
	s.records[rec.UserID] = rec.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, userID)
	return nil
}

func (s *MemoryStore) ConsumeBackupCode(_ context.Context, userID, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return false, ErrNotFound
	}
	i := slices.Index(rec.BackupCodeHashes, hash)
	if i < 0 {
		return false, nil
	}
	rec.BackupCodeHashes = slices.Delete(rec.BackupCodeHashes, i, i+1)
	rec.UpdatedAt = s.now().UTC()
	return true, nil
}

func (s *MemoryStore) AdvanceCounter(_ context.Context, userID string, counter int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return false, ErrNotFound
	}
	if counter <= rec.LastCounter {
		return false, nil
	}
	rec.LastCounter = counter
	rec.UpdatedAt = s.now().UTC()
	return true, nil
}
