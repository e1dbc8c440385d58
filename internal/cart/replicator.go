package cart

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"

	"github.com/codgamerofficial/Kultzr/internal/cart/cache"
	"github.com/codgamerofficial/Kultzr/internal/cart/repository"
	"github.com/codgamerofficial/Kultzr/internal/domain"
)

// Remote replicates a session's cart to a persisted copy. All write methods
// are best-effort: the Store never rolls back a local mutation because a
// remote call failed.
type Remote interface {
	Save(ctx context.Context, sessionID string, items []domain.LineItem) error
	Clear(ctx context.Context, sessionID string) error
	Load(ctx context.Context, sessionID string) ([]domain.LineItem, error)
}

// Replicator is the production Remote: MongoDB persistence behind a Redis
// read cache, with a circuit breaker so a dead backend does not hold every
// mutation hostage for a full timeout.
type Replicator struct {
	repo    repository.CartRepository
	cache   cache.CartCache
	breaker *gobreaker.CircuitBreaker[any]
	timeout time.Duration
	sfg     singleflight.Group // Prevents cache stampede
}

func NewReplicator(repo repository.CartRepository, c cache.CartCache, timeout time.Duration) *Replicator {
	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "cart-remote",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Replicator{
		repo:    repo,
		cache:   c,
		breaker: breaker,
		timeout: timeout,
	}
}

func (r *Replicator) Save(ctx context.Context, sessionID string, items []domain.LineItem) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.breaker.Execute(func() (any, error) {
		return nil, r.repo.SaveCart(ctx, sessionID, items)
	})
	if err != nil {
		return err
	}

	r.invalidateCache(sessionID)
	return nil
}

func (r *Replicator) Clear(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.breaker.Execute(func() (any, error) {
		errClear := r.repo.ClearCart(ctx, sessionID)
		if errClear != nil && !errors.Is(errClear, repository.ErrCartNotFound) {
			return nil, errClear
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	r.invalidateCache(sessionID)
	return nil
}

// Load fetches the persisted cart for a session, cache-first. A session with
// no persisted cart gets an empty item list, not an error.
func (r *Replicator) Load(ctx context.Context, sessionID string) ([]domain.LineItem, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := r.sfg.Do(sessionID, func() (interface{}, error) {

		items, err := r.cache.Get(ctx, sessionID)
		if err == nil {
			return items, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		items, errLoad := r.repo.LoadCart(ctx, sessionID)
		if errLoad != nil && errors.Is(errLoad, repository.ErrCartNotFound) {
			return []domain.LineItem{}, nil
		}
		if errLoad != nil {
			return nil, errLoad
		}

		// set cache
		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), r.timeout)
			defer cancel()
			if errSet := r.cache.Set(setCtx, sessionID, items); errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return items, nil
	})

	if err != nil {
		return nil, err
	}

	return v.([]domain.LineItem), nil
}

func (r *Replicator) invalidateCache(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.cache.Delete(ctx, sessionID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
