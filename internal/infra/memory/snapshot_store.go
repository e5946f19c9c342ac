package memory

import (
	"context"
	"sync"

	"quiz-player-service/internal/domain"
)

// SnapshotStore keeps session snapshots in process memory, one per
// {client, subject} pair. The no-Redis deployment and most tests use this.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]domain.Snapshot
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snapshots: make(map[string]domain.Snapshot)}
}

func (s *SnapshotStore) Load(_ context.Context, clientID, subject string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if snap, ok := s.snapshots[snapshotKey(clientID, subject)]; ok {
		copied := snap
		return &copied, nil
	}
	return nil, nil
}

func (s *SnapshotStore) Save(_ context.Context, clientID, subject string, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshotKey(clientID, subject)] = snap
	return nil
}

func (s *SnapshotStore) Delete(_ context.Context, clientID, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, snapshotKey(clientID, subject))
	return nil
}

func snapshotKey(clientID, subject string) string {
	return clientID + "/" + subject
}

// BookmarkStore keeps bookmarked positions in process memory, keyed by
// {client, subject}. Bookmarks outlive session restarts.
type BookmarkStore struct {
	mu        sync.RWMutex
	bookmarks map[string][]int
}

func NewBookmarkStore() *BookmarkStore {
	return &BookmarkStore{bookmarks: make(map[string][]int)}
}

func (s *BookmarkStore) Load(_ context.Context, clientID, subject string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int(nil), s.bookmarks[snapshotKey(clientID, subject)]...), nil
}

func (s *BookmarkStore) Save(_ context.Context, clientID, subject string, positions []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookmarks[snapshotKey(clientID, subject)] = append([]int(nil), positions...)
	return nil
}
