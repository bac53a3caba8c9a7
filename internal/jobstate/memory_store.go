package jobstate

import (
	"context"
	"sync"
	"time"

	"github.com/dunamismax/artshield/internal/domain"
)

// MemoryStore is the in-process Store used by tests and by deployments that
// run without Redis. TTL handling matches the Redis implementation: entries
// expire a fixed duration after creation regardless of later writes.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	rec       domain.JobRecord
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, rec domain.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[rec.JobID]; ok && s.now().Before(entry.expiresAt) {
		return nil
	}
	s.entries[rec.JobID] = memoryEntry{
		rec:       rec,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) UpdateProgress(_ context.Context, jobID string, p domain.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(jobID)
	if !ok {
		return nil
	}
	if entry.rec.ApplyProgress(p, s.now().UTC()) {
		s.entries[jobID] = entry
	}
	return nil
}

func (s *MemoryStore) RecordStep(_ context.Context, jobID, step, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(jobID)
	if !ok {
		return nil
	}
	if entry.rec.ApplyStep(step, status, s.now().UTC()) {
		s.entries[jobID] = entry
	}
	return nil
}

func (s *MemoryStore) Complete(_ context.Context, jobID, status, artifactID string, jerr *domain.JobError) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(jobID)
	if !ok {
		return false, nil
	}
	if !entry.rec.ApplyCompletion(status, artifactID, jerr, s.now().UTC()) {
		return false, nil
	}
	s.entries[jobID] = entry
	return true, nil
}

func (s *MemoryStore) Get(_ context.Context, jobID string) (domain.JobRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.live(jobID)
	if !ok {
		return domain.JobRecord{}, false, nil
	}
	return entry.rec, true, nil
}

// live returns the entry when present and unexpired. Callers hold the lock.
func (s *MemoryStore) live(jobID string) (memoryEntry, bool) {
	entry, ok := s.entries[jobID]
	if !ok || !s.now().Before(entry.expiresAt) {
		return memoryEntry{}, false
	}
	return entry, true
}
