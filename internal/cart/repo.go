package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pkgredis "github.com/cropchain/cropchain-backend/pkg/redis"
)

// Repository persists the full item list of a session cart.
type Repository interface {
	Load(ctx context.Context, sessionID string) ([]CartItem, error)
	Save(ctx context.Context, sessionID string, items []CartItem) error
}

type redisRepository struct {
	store pkgredis.CartStore
	ttl   time.Duration
}

// NewRedisRepository stores carts as JSON arrays under the namespaced cart key.
// A zero ttl keeps carts until cleared.
func NewRedisRepository(store pkgredis.CartStore, ttl time.Duration) (Repository, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	return &redisRepository{store: store, ttl: ttl}, nil
}

func (r *redisRepository) Load(ctx context.Context, sessionID string) ([]CartItem, error) {
	raw, err := r.store.Get(ctx, r.store.CartKey(sessionID))
	if err != nil {
		if pkgredis.IsNil(err) {
			return []CartItem{}, nil
		}
		return nil, err
	}
	var items []CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return items, nil
}

func (r *redisRepository) Save(ctx context.Context, sessionID string, items []CartItem) error {
	key := r.store.CartKey(sessionID)
	if len(items) == 0 {
		return r.store.Del(ctx, key)
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	return r.store.Set(ctx, key, string(payload), r.ttl)
}
