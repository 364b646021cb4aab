package session

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/xavierca1/loan-advisor/internal/entity"
)

// MemoryStore keeps sessions in process memory. Entries are evicted when
// the store is full (least recently used first) or ttl after their last
// write. capacity <= 0 means unbounded, ttl <= 0 means no expiry.
type MemoryStore struct {
	cache *expirable.LRU[string, entity.Session]
}

func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: expirable.NewLRU[string, entity.Session](capacity, nil, ttl),
	}
}

// Get returns a copy; callers mutate it freely and Put it back.
func (s *MemoryStore) Get(_ context.Context, senderID string) (*entity.Session, error) {
	v, ok := s.cache.Get(senderID)
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	return &v, nil
}

func (s *MemoryStore) Put(_ context.Context, session *entity.Session) error {
	s.cache.Add(session.SenderID, *session)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, senderID string) error {
	s.cache.Remove(senderID)
	return nil
}

func (s *MemoryStore) Len() int {
	return s.cache.Len()
}
