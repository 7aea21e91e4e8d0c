// Package cache adds a read-aside caching layer over an installation store.
package cache

import (
	"context"
	"fmt"
	"time"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
	"github.com/tispr/loopback-component-push/pkg/push"
)

// CacheClient defines the subset of Redis commands we need.
type CacheClient interface {
	// Get returns the value or a specific error if not found.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set stores the value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Del removes the key.
	Del(ctx context.Context, key string) error
}

// CachedInstallationStore is a decorator that adds read-aside caching to
// any InstallationStore. Writes invalidate, never update, the cache: when
// a gone token is purged, the next fetch must hit the source of truth.
type CachedInstallationStore struct {
	realStore push.InstallationStore
	cache     CacheClient
	ttl       time.Duration
}

func NewCachedInstallationStore(realStore push.InstallationStore, cache CacheClient, ttl time.Duration) *CachedInstallationStore {
	return &CachedInstallationStore{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
	}
}

// Tokens reads through the cache.
func (s *CachedInstallationStore) Tokens(ctx context.Context, owner urn.URN) ([]string, error) {
	key := s.cacheKey(owner)

	var cached []string
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	fresh, err := s.realStore.Tokens(ctx, owner)
	if err != nil {
		return nil, err
	}

	// Caching is an optimization, not a transaction; if Redis is down we
	// just serve from the real store.
	_ = s.cache.Set(ctx, key, fresh, s.ttl)

	return fresh, nil
}

func (s *CachedInstallationStore) Register(ctx context.Context, owner urn.URN, token string) error {
	if err := s.realStore.Register(ctx, owner, token); err != nil {
		return err
	}
	return s.invalidate(ctx, owner)
}

// Unregister must clear the cache even though the DB write succeeded:
// a purged token has to stop receiving notifications immediately.
func (s *CachedInstallationStore) Unregister(ctx context.Context, owner urn.URN, token string) error {
	if err := s.realStore.Unregister(ctx, owner, token); err != nil {
		return err
	}
	return s.invalidate(ctx, owner)
}

func (s *CachedInstallationStore) invalidate(ctx context.Context, owner urn.URN) error {
	return s.cache.Del(ctx, s.cacheKey(owner))
}

func (s *CachedInstallationStore) cacheKey(owner urn.URN) string {
	return fmt.Sprintf("push:installations:%s", owner.String())
}
