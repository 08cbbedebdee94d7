package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used when no database is configured and
// in tests. Expired records are dropped lazily on access and eagerly via
// PurgeExpired.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

// NewMemoryStore creates an empty in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*Job),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create persists a new job.
func (s *MemoryStore) Create(_ context.Context, job *Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job must have an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}

	stored := *job
	s.jobs[job.ID] = &stored
	return nil
}

// Get returns a copy of the job, or ErrNotFound when missing or expired.
// The copy is taken under the lock: Update mutates the stored record in
// place, and pollers read while the orchestrator writes progress.
func (s *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, ErrNotFound
	}
	if s.expired(job) {
		delete(s.jobs, id)
		return nil, ErrNotFound
	}

	copied := *job
	return &copied, nil
}

// Update applies a partial mutation under the store lock.
func (s *MemoryStore) Update(_ context.Context, id string, update Update) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists || s.expired(job) {
		delete(s.jobs, id)
		return nil, ErrNotFound
	}

	if err := update.validate(job); err != nil {
		return nil, err
	}
	update.apply(job, s.now())

	copied := *job
	return &copied, nil
}

// PurgeExpired removes all expired records and reports how many were dropped.
func (s *MemoryStore) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, job := range s.jobs {
		if s.expired(job) {
			delete(s.jobs, id)
			purged++
		}
	}
	return purged
}

// Len returns the number of live records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (s *MemoryStore) expired(job *Job) bool {
	return !job.ExpiresAt.IsZero() && s.now().After(job.ExpiresAt)
}
