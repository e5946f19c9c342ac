package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-player-service/internal/domain"
)

// SnapshotStore persists session snapshots in Redis, one JSON value per
// {client, subject} key with a TTL. Read failures and corrupt payloads are
// recovered as "no prior snapshot"; persistence problems must never block a
// session from starting.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

func (s *SnapshotStore) Load(ctx context.Context, clientID, subject string) (*domain.Snapshot, error) {
	raw, err := s.client.Get(ctx, s.key(clientID, subject)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		// Corrupt entry: drop it and resume fresh.
		_ = s.client.Del(ctx, s.key(clientID, subject)).Err()
		return nil, nil
	}
	return &snap, nil
}

func (s *SnapshotStore) Save(ctx context.Context, clientID, subject string, snap domain.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(clientID, subject), raw, s.ttl).Err()
}

func (s *SnapshotStore) Delete(ctx context.Context, clientID, subject string) error {
	return s.client.Del(ctx, s.key(clientID, subject)).Err()
}

func (s *SnapshotStore) key(clientID, subject string) string {
	return "quiz:snapshot:" + clientID + ":" + subject
}

// BookmarkStore persists bookmarked positions as a JSON array per
// {client, subject} key. Bookmarks carry no TTL: they outlive sessions.
type BookmarkStore struct {
	client *redis.Client
}

func NewBookmarkStore(client *redis.Client) *BookmarkStore {
	return &BookmarkStore{client: client}
}

func (s *BookmarkStore) Load(ctx context.Context, clientID, subject string) ([]int, error) {
	raw, err := s.client.Get(ctx, s.key(clientID, subject)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var positions []int
	if err := json.Unmarshal(raw, &positions); err != nil {
		return nil, nil
	}
	return positions, nil
}

func (s *BookmarkStore) Save(ctx context.Context, clientID, subject string, positions []int) error {
	raw, err := json.Marshal(positions)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(clientID, subject), raw, 0).Err()
}

func (s *BookmarkStore) key(clientID, subject string) string {
	return "quiz:bookmarks:" + clientID + ":" + subject
}
