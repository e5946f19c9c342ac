package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-player-service/internal/bank"
	"quiz-player-service/internal/domain"
)

// BankRepository caches whole bank documents in Redis (one JSON value per
// subject) and falls back to a loader on cache miss. Unlike snapshots, bank
// content is shared by every client, so the cache lives server-side.
type BankRepository struct {
	client *redis.Client
	loader bank.Loader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewBankRepository(client *redis.Client, loader bank.Loader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *BankRepository) GetBank(ctx context.Context, subject string) (domain.Bank, error) {
	if b, ok := r.cached(ctx, subject); ok {
		return b, nil
	}

	result, err, _ := r.sf.Do(subject, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if b, ok := r.cached(ctx, subject); ok {
			return b, nil
		}

		loaded, err := r.loader.LoadBank(ctx, subject)
		if err != nil {
			return domain.Bank{}, err
		}

		if raw, err := json.Marshal(loaded); err == nil {
			_ = r.client.Set(ctx, r.key(subject), raw, r.ttlWithJitter()).Err()
		}
		return loaded, nil
	})
	if err != nil {
		return domain.Bank{}, err
	}
	return result.(domain.Bank), nil
}

func (r *BankRepository) cached(ctx context.Context, subject string) (domain.Bank, bool) {
	raw, err := r.client.Get(ctx, r.key(subject)).Bytes()
	if err != nil {
		return domain.Bank{}, false
	}
	var b domain.Bank
	if err := json.Unmarshal(raw, &b); err != nil || b.Len() == 0 {
		return domain.Bank{}, false
	}
	return b, true
}

func (r *BankRepository) key(subject string) string {
	return "quiz:bank:" + subject
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
