package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"quiz-player-service/internal/domain"
)

// EventRelay forwards analytics events and score updates to Redis: every
// event is published to a channel for any observer, and completed attempts
// bump a per-subject leaderboard. Purely observational: the core never
// reads any of this back, and every write is best-effort.
type EventRelay struct {
	client  *redis.Client
	channel string
}

func NewEventRelay(client *redis.Client) *EventRelay {
	return &EventRelay{client: client, channel: "quiz:events"}
}

// Publish relays one event. Errors are swallowed: a lost analytics event
// must never affect the session.
func (r *EventRelay) Publish(ctx context.Context, event domain.Event) {
	if raw, err := json.Marshal(event); err == nil {
		_ = r.client.Publish(ctx, r.channel, raw).Err()
	}
	if event.Name == "quiz_complete" {
		if correct, ok := asInt(event.Params["correct"]); ok {
			_ = r.client.ZIncrBy(ctx, r.leaderboardKey(event.Subject), float64(correct), event.ClientID).Err()
		}
	}
}

func (r *EventRelay) leaderboardKey(subject string) string {
	return "quiz:leaderboard:" + subject
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
