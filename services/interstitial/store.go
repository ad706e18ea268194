package interstitial

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/CANDRY15/flashprint/utils/cache"
)

const ticketKeyPrefix = "interstitial:"

// RedisStore keeps tickets in Redis and consumes them with GETDEL
type RedisStore struct {
	cache *cache.RedisCache
}

func NewRedisStore(c *cache.RedisCache) *RedisStore {
	return &RedisStore{cache: c}
}

func (s *RedisStore) Save(ctx context.Context, t Ticket, ttl time.Duration) error {
	return s.cache.SetJSON(ctx, ticketKeyPrefix+t.ID, t, ttl)
}

func (s *RedisStore) Get(ctx context.Context, id string) (Ticket, error) {
	var t Ticket
	if err := s.cache.GetJSON(ctx, ticketKeyPrefix+id, &t); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return Ticket{}, ErrTicketGone
		}
		return Ticket{}, err
	}
	return t, nil
}

func (s *RedisStore) Take(ctx context.Context, id string) (Ticket, error) {
	raw, err := s.cache.GetDel(ctx, ticketKeyPrefix+id)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return Ticket{}, ErrTicketGone
		}
		return Ticket{}, err
	}

	var t Ticket
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return Ticket{}, fmt.Errorf("corrupt ticket: %w", err)
	}
	return t, nil
}

// MemoryStore is a process-local store for single-instance setups and tests
type MemoryStore struct {
	mu      sync.Mutex
	clock   Clock
	tickets map[string]memoryEntry
}

type memoryEntry struct {
	ticket    Ticket
	expiresAt time.Time
}

func NewMemoryStore(clock Clock) *MemoryStore {
	if clock == nil {
		clock = systemClock{}
	}
	return &MemoryStore{clock: clock, tickets: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Save(ctx context.Context, t Ticket, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	s.tickets[t.ID] = memoryEntry{ticket: t, expiresAt: s.clock.Now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tickets[id]
	if !ok || !s.clock.Now().Before(e.expiresAt) {
		return Ticket{}, ErrTicketGone
	}
	return e.ticket, nil
}

func (s *MemoryStore) Take(ctx context.Context, id string) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tickets[id]
	if !ok || !s.clock.Now().Before(e.expiresAt) {
		return Ticket{}, ErrTicketGone
	}
	delete(s.tickets, id)
	return e.ticket, nil
}

// sweep drops expired entries; callers hold mu
func (s *MemoryStore) sweep() {
	now := s.clock.Now()
	for id, e := range s.tickets {
		if !now.Before(e.expiresAt) {
			delete(s.tickets, id)
		}
	}
}
