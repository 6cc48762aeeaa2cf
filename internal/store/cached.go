package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ashureev/tandem/internal/domain"
	cache "github.com/patrickmn/go-cache"
)

const activeRulesKey = "rules:active"

// CachedRepository serves pattern rules and the exercise catalog from a TTL
// cache. Everything else passes through to the wrapped Repository.
type CachedRepository struct {
	Repository
	catalog *cache.Cache
}

// NewCachedRepository wraps repo. A ttl <= 0 returns repo unchanged.
func NewCachedRepository(repo Repository, ttl time.Duration) Repository {
	if ttl <= 0 {
		return repo
	}
	return &CachedRepository{
		Repository: repo,
		catalog:    cache.New(ttl, 2*ttl),
	}
}

// ListActiveRules returns cached active rules, loading them on a miss.
func (c *CachedRepository) ListActiveRules(ctx context.Context) ([]domain.PatternRule, error) {
	if v, ok := c.catalog.Get(activeRulesKey); ok {
		return v.([]domain.PatternRule), nil
	}
	rules, err := c.Repository.ListActiveRules(ctx)
	if err != nil {
		return nil, err
	}
	c.catalog.Set(activeRulesKey, rules, cache.DefaultExpiration)
	return rules, nil
}

// ListExercisesByCategory returns cached exercises, loading them on a miss.
func (c *CachedRepository) ListExercisesByCategory(ctx context.Context, category domain.Category, limit int) ([]domain.GuidedExercise, error) {
	key := fmt.Sprintf("exercises:%s:%d", category, limit)
	if v, ok := c.catalog.Get(key); ok {
		return v.([]domain.GuidedExercise), nil
	}
	exercises, err := c.Repository.ListExercisesByCategory(ctx, category, limit)
	if err != nil {
		return nil, err
	}
	c.catalog.Set(key, exercises, cache.DefaultExpiration)
	return exercises, nil
}

// UpsertRule writes through and drops cached catalog entries.
func (c *CachedRepository) UpsertRule(ctx context.Context, rule *domain.PatternRule) error {
	if err := c.Repository.UpsertRule(ctx, rule); err != nil {
		return err
	}
	c.catalog.Flush()
	return nil
}

// UpsertExercise writes through and drops cached catalog entries.
func (c *CachedRepository) UpsertExercise(ctx context.Context, exercise *domain.GuidedExercise) error {
	if err := c.Repository.UpsertExercise(ctx, exercise); err != nil {
		return err
	}
	c.catalog.Flush()
	return nil
}
