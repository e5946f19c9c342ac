package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-player-service/internal/bank"
	"quiz-player-service/internal/domain"
)

// BankRepository caches loaded banks with a TTL to avoid re-reading the
// backing resource on every session start.
type BankRepository struct {
	loader bank.Loader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedBank
}

type cachedBank struct {
	bank      domain.Bank
	expiresAt time.Time
}

func NewBankRepository(loader bank.Loader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBank),
	}
}

func (r *BankRepository) GetBank(ctx context.Context, subject string) (domain.Bank, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[subject]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.bank, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(subject, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[subject]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.bank, nil
		}
		r.mu.RUnlock()

		loaded, err := r.loader.LoadBank(ctx, subject)
		if err != nil {
			return domain.Bank{}, err
		}

		r.mu.Lock()
		r.cache[subject] = cachedBank{
			bank:      loaded,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return domain.Bank{}, err
	}
	return result.(domain.Bank), nil
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticLoader is a map-backed bank loader for tests and demo mode.
type StaticLoader struct {
	banks map[string]domain.Bank
}

func NewStaticLoader(banks map[string]domain.Bank) *StaticLoader {
	return &StaticLoader{banks: banks}
}

func (l *StaticLoader) LoadBank(_ context.Context, subject string) (domain.Bank, error) {
	if b, ok := l.banks[subject]; ok {
		return b, nil
	}
	return domain.Bank{}, domain.ErrBankNotFound
}
