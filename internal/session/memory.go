package session

import (
	"context"
	"sync"
	"time"
)

// sweepFloor bounds how often the expiry sweeper runs.
const sweepFloor = time.Second

// MemoryStore is an in-process Store for single-node deployments and tests.
// With a positive TTL a background sweeper evicts expired snapshots, and
// Load treats an expired snapshot as missing even before the sweep reaches
// it.
type MemoryStore struct {
	mu     sync.RWMutex
	snaps  map[string]*Snapshot
	ttl    time.Duration
	stop   chan struct{}
	closed bool
}

// NewMemoryStore creates an empty in-memory store. ttl <= 0 keeps snapshots
// forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		snaps: make(map[string]*Snapshot),
		ttl:   ttl,
	}
	if ttl > 0 {
		s.stop = make(chan struct{})
		go s.sweep()
	}
	return s
}

func (s *MemoryStore) sweep() {
	interval := s.ttl / 2
	if interval < sweepFloor {
		interval = sweepFloor
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) evictExpired() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for id, snap := range s.snaps {
		if now.Sub(snap.UpdatedAt) > s.ttl {
			delete(s.snaps, id)
		}
	}
}

func (s *MemoryStore) expired(snap *Snapshot) bool {
	return s.ttl > 0 && time.Since(snap.UpdatedAt) > s.ttl
}

// Save creates or replaces the snapshot for a session.
func (s *MemoryStore) Save(ctx context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	cp := *snap
	cp.UpdatedAt = time.Now().UTC()
	s.snaps[snap.SessionID] = &cp
	return nil
}

// Load retrieves the latest snapshot for a session.
func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	snap, ok := s.snaps[sessionID]
	if !ok || s.expired(snap) {
		return nil, ErrSessionNotFound
	}
	cp := *snap
	return &cp, nil
}

// Delete removes a session's snapshot.
func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	delete(s.snaps, sessionID)
	return nil
}

// Close marks the store closed and stops the sweeper.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.snaps = nil
	if s.stop != nil {
		close(s.stop)
	}
	return nil
}
