// Package session keeps in-progress PFT sessions for a bounded lifetime.
// Nothing is persisted beyond the configured TTL.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/pft-analyzer-server/internal/domain"
)

// Stats reports store activity.
type Stats struct {
	Created int64 `json:"created"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Saved   int64 `json:"saved"`
	Deleted int64 `json:"deleted"`
	Active  int   `json:"active"`
}

// MemoryStore is a size-bounded in-process store. Each save restarts the
// session's TTL.
type MemoryStore struct {
	cache  *expirable.LRU[string, *domain.Session]
	logger *logrus.Logger
	now    func() time.Time

	mu    sync.Mutex
	stats Stats
}

// NewMemoryStore creates a store holding at most maxSessions for ttl each.
func NewMemoryStore(maxSessions int, ttl time.Duration, logger *logrus.Logger) *MemoryStore {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s := &MemoryStore{logger: logger, now: time.Now}
	s.cache = expirable.NewLRU[string, *domain.Session](maxSessions, s.onEvict, ttl)
	return s
}

// Create implements domain.SessionStore
func (s *MemoryStore) Create(ctx context.Context) (*domain.Session, error) {
	now := s.now().UTC()
	session := &domain.Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.cache.Add(session.ID, session.Clone())
	s.count(func(st *Stats) { st.Created++ })
	return session, nil
}

// Get implements domain.SessionStore
func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	session, ok := s.cache.Get(id)
	if !ok {
		s.count(func(st *Stats) { st.Misses++ })
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	s.count(func(st *Stats) { st.Hits++ })
	return session.Clone(), nil
}

// Save implements domain.SessionStore
func (s *MemoryStore) Save(ctx context.Context, session *domain.Session) error {
	if !s.cache.Contains(session.ID) {
		return fmt.Errorf("session %s: %w", session.ID, domain.ErrNotFound)
	}
	s.cache.Add(session.ID, session.Clone())
	s.count(func(st *Stats) { st.Saved++ })
	return nil
}

// Delete implements domain.SessionStore
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if s.cache.Remove(id) {
		s.count(func(st *Stats) { st.Deleted++ })
	}
	return nil
}

// Close implements domain.SessionStore
func (s *MemoryStore) Close() error {
	s.cache.Purge()
	return nil
}

// Stats returns a snapshot of store activity.
func (s *MemoryStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.stats
	out.Active = s.cache.Len()
	return out
}

func (s *MemoryStore) count(fn func(*Stats)) {
	s.mu.Lock()
	fn(&s.stats)
	s.mu.Unlock()
}

func (s *MemoryStore) onEvict(id string, _ *domain.Session) {
	if s.logger != nil {
		s.logger.WithField("session_id", id).Debug("Session evicted")
	}
}
