package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"anhthoxay/internal/escrow"
)

const policyCacheKey = "settings:escrow:policy"

// PolicyCache keeps the escrow policy in Redis for ttl.
type PolicyCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPolicyCache(client *redis.Client, ttl time.Duration) *PolicyCache {
	return &PolicyCache{client: client, ttl: ttl}
}

type cachedPolicy struct {
	Percentage int64  `json:"percentage"`
	MinAmount  int64  `json:"minAmount"`
	MaxAmount  *int64 `json:"maxAmount,omitempty"`
	Currency   string `json:"currency"`
}

// Get reports ok=false on a cache miss.
func (c *PolicyCache) Get(ctx context.Context) (escrow.Policy, bool, error) {
	b, err := c.client.Get(ctx, policyCacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return escrow.Policy{}, false, nil
		}
		return escrow.Policy{}, false, err
	}
	var cp cachedPolicy
	if err := json.Unmarshal(b, &cp); err != nil {
		return escrow.Policy{}, false, err
	}
	return escrow.Policy{
		Percentage: cp.Percentage,
		MinAmount:  cp.MinAmount,
		MaxAmount:  cp.MaxAmount,
		Currency:   cp.Currency,
	}, true, nil
}

func (c *PolicyCache) Set(ctx context.Context, p escrow.Policy) error {
	b, err := json.Marshal(cachedPolicy{
		Percentage: p.Percentage,
		MinAmount:  p.MinAmount,
		MaxAmount:  p.MaxAmount,
		Currency:   p.Currency,
	})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, policyCacheKey, b, c.ttl).Err()
}

func (c *PolicyCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, policyCacheKey).Err()
}
