package memory

import (
	"context"
	"sync"

	"quiz-player-service/internal/domain"
)

// HistoryStore keeps finished attempts in process memory, newest first,
// pruned to a per-client cap.
type HistoryStore struct {
	cap     int
	mu      sync.RWMutex
	entries map[string][]domain.HistoryEntry
}

func NewHistoryStore(cap int) *HistoryStore {
	if cap <= 0 {
		cap = 50
	}
	return &HistoryStore{cap: cap, entries: make(map[string][]domain.HistoryEntry)}
}

func (s *HistoryStore) Append(_ context.Context, clientID string, entry domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append([]domain.HistoryEntry{entry}, s.entries[clientID]...)
	if len(list) > s.cap {
		list = list[:s.cap]
	}
	s.entries[clientID] = list
	return nil
}

func (s *HistoryStore) List(_ context.Context, clientID string, limit int) ([]domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.entries[clientID]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return append([]domain.HistoryEntry(nil), list...), nil
}

// NopEventSink drops analytics events; the no-Redis deployment uses it.
type NopEventSink struct{}

func (NopEventSink) Publish(context.Context, domain.Event) {}
