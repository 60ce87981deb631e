// Package throttle provides the attempt-record store backing login
// throttling: a key-value map with TTL semantics and atomic
// increment-or-create per client key.
package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/otzivi/authcore/internal/models"
)

// Store persists attempt records keyed by client network address. All
// mutations are atomic per key: two concurrent failures for the same key must
// both be counted.
type Store interface {
	// Get returns the record for key, or nil if absent or expired.
	Get(ctx context.Context, key string) (*models.AttemptRecord, error)

	// IncrementFailure atomically increments the failure count for key,
	// creating the record if absent, and refreshes its retention deadline.
	// It returns the updated record.
	IncrementFailure(ctx context.Context, key string, retention time.Duration) (*models.AttemptRecord, error)

	// Clear removes the record for key and returns the removed record, or
	// nil if none existed.
	Clear(ctx context.Context, key string) (*models.AttemptRecord, error)
}

type memoryEntry struct {
	record    models.AttemptRecord
	expiresAt time.Time
}

// MemoryStore is the default in-process Store. Expiry is decided by
// comparing stored deadlines against the clock at read time; Sweep only
// reclaims memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// SetClock replaces the store's time source. Test hook.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Get(_ context.Context, key string) (*models.AttemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return nil, nil
	}

	record := entry.record
	return &record, nil
}

func (s *MemoryStore) IncrementFailure(_ context.Context, key string, retention time.Duration) (*models.AttemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.entries[key]
	if !ok || !now.Before(entry.expiresAt) {
		entry = &memoryEntry{
			record: models.AttemptRecord{
				ClientKey:      key,
				FirstFailureAt: now,
			},
		}
		s.entries[key] = entry
	}

	entry.record.FailureCount++
	entry.record.LastFailureAt = now
	entry.expiresAt = now.Add(retention)

	record := entry.record
	return &record, nil
}

func (s *MemoryStore) Clear(_ context.Context, key string) (*models.AttemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	delete(s.entries, key)

	if !s.now().Before(entry.expiresAt) {
		return nil, nil
	}

	record := entry.record
	return &record, nil
}

// Sweep drops entries whose retention deadline has passed and returns the
// number removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries. Test hook.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
