// Package cache fronts slow catalog lookups with bounded in-process caches.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/observability"
)

// Invalidator drops cached entries after the underlying store changes.
type Invalidator interface {
	Invalidate(ctx context.Context, from, to string) error
}

// NoopInvalidator is a no-op implementation.
type NoopInvalidator struct{}

// Invalidate performs no action.
func (NoopInvalidator) Invalidate(context.Context, string, string) error { return nil }

type entry struct {
	transition *domain.Transition
}

// TransitionCache caches transition lookups, including misses, for a bounded time.
type TransitionCache struct {
	next domain.TransitionRepository
	lru  *expirable.LRU[string, entry]
}

// NewTransitionCache wraps next. Errors from next are never cached.
func NewTransitionCache(next domain.TransitionRepository, size int, ttl time.Duration) *TransitionCache {
	if size <= 0 {
		size = 256
	}
	return &TransitionCache{
		next: next,
		lru:  expirable.NewLRU[string, entry](size, nil, ttl),
	}
}

// GetTransition implements domain.TransitionRepository.
func (c *TransitionCache) GetTransition(ctx context.Context, from, to string) (*domain.Transition, error) {
	key := cacheKey(from, to)
	if cached, ok := c.lru.Get(key); ok {
		observability.RecordTransitionCacheLookup(true)
		return copyTransition(cached.transition), nil
	}
	observability.RecordTransitionCacheLookup(false)

	transition, err := c.next.GetTransition(ctx, from, to)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, entry{transition: copyTransition(transition)})
	return transition, nil
}

// Invalidate implements Invalidator.
func (c *TransitionCache) Invalidate(_ context.Context, from, to string) error {
	c.lru.Remove(cacheKey(from, to))
	return nil
}

// Purge drops every cached entry.
func (c *TransitionCache) Purge() {
	c.lru.Purge()
}

// Len reports the number of cached pairs.
func (c *TransitionCache) Len() int {
	return c.lru.Len()
}

func cacheKey(from, to string) string {
	return strings.ToLower(strings.TrimSpace(from)) + "|" + strings.ToLower(strings.TrimSpace(to))
}

func copyTransition(t *domain.Transition) *domain.Transition {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}
