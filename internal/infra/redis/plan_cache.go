// File: internal/infra/redis/plan_cache.go
package redis

import (
	"context"
	"encoding/json"
	"time"

	"pos-license-platform/internal/domain/model"
	"pos-license-platform/internal/domain/ports/repository"
	"pos-license-platform/internal/infra/metrics"
)

// Compile-time check
var _ repository.PlanRepository = (*CachedPlanRepository)(nil)

// CachedPlanRepository is a read-through cache in front of the plan store.
// Plans change rarely and are read on every checkout, renewal and token
// mint, so single-key lookups are cached; writes invalidate.
type CachedPlanRepository struct {
	inner  repository.PlanRepository
	client *Client
	ttl    time.Duration
}

func NewCachedPlanRepository(inner repository.PlanRepository, client *Client, ttl time.Duration) *CachedPlanRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedPlanRepository{inner: inner, client: client, ttl: ttl}
}

func planIDKey(id string) string     { return "plan:id:" + id }
func planCodeKey(code string) string { return "plan:code:" + code }

func (r *CachedPlanRepository) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	if err := r.inner.Save(ctx, tx, p); err != nil {
		return err
	}
	// Invalidation failure only costs a stale read until the TTL expires.
	_ = r.client.Del(ctx, planIDKey(p.ID), planCodeKey(p.Code))
	return nil
}

func (r *CachedPlanRepository) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	if tx != nil {
		// Transactional reads bypass the cache for read-your-writes.
		return r.inner.FindByID(ctx, tx, id)
	}
	if p, ok := r.lookup(ctx, planIDKey(id)); ok {
		return p, nil
	}
	p, err := r.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, planIDKey(id), p)
	return p, nil
}

func (r *CachedPlanRepository) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Plan, error) {
	if tx != nil {
		return r.inner.FindByCode(ctx, tx, code)
	}
	if p, ok := r.lookup(ctx, planCodeKey(code)); ok {
		return p, nil
	}
	p, err := r.inner.FindByCode(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	r.store(ctx, planCodeKey(code), p)
	return p, nil
}

func (r *CachedPlanRepository) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	// Listings go straight through; only point lookups are hot enough.
	return r.inner.ListActive(ctx, tx)
}

func (r *CachedPlanRepository) lookup(ctx context.Context, key string) (*model.Plan, bool) {
	raw, err := r.client.Get(ctx, key)
	if err != nil {
		metrics.IncCacheRequest("plan", "miss")
		return nil, false
	}
	var p model.Plan
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		metrics.IncCacheRequest("plan", "miss")
		return nil, false
	}
	metrics.IncCacheRequest("plan", "hit")
	return &p, true
}

func (r *CachedPlanRepository) store(ctx context.Context, key string, p *model.Plan) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	_ = r.client.Set(ctx, key, data, r.ttl)
}
