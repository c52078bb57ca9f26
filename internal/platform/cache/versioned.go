package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Observer is notified of cache hits and misses.
type Observer interface {
	ObserveCache(namespace string, hit bool)
}

// Versioned caches JSON values under keys suffixed with a per-scope version.
// Bumping a scope's version orphans every key built from the old one, so
// invalidation never has to enumerate keys.
type Versioned struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
	group     singleflight.Group
	observer  Observer
}

// NewVersioned builds a cache under namespace. A nil client disables caching
// and every fetch goes straight to the loader.
func NewVersioned(client *redis.Client, namespace string, ttl time.Duration) *Versioned {
	return &Versioned{client: client, namespace: namespace, ttl: ttl}
}

// WithObserver attaches a hit/miss observer.
func (c *Versioned) WithObserver(o Observer) *Versioned {
	c.observer = o
	return c
}

func (c *Versioned) versionKey(scope string) string {
	return fmt.Sprintf("%s:version:%s", c.namespace, scope)
}

// Version returns the current version of scope, initialising it when missing.
func (c *Versioned) Version(ctx context.Context, scope string) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	key := c.versionKey(scope)
	if err := c.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
		return 0, err
	}
	return c.client.Get(ctx, key).Int64()
}

// Key composes a cache key for scope at its current version.
func (c *Versioned) Key(ctx context.Context, scope string, parts ...string) (string, error) {
	ver, err := c.Version(ctx, scope)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s:%s:v%d", c.namespace, scope, strings.Join(parts, ":"), ver), nil
}

// FetchJSON fills dest from the cache or from loader. Concurrent misses on the
// same key share one loader call.
func (c *Versioned) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c != nil && c.client != nil {
		payload, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			c.observe(true)
			return json.Unmarshal(payload, dest)
		}
		if !errors.Is(err, redis.Nil) {
			return err
		}
		c.observe(false)
	}

	raw, err := c.load(ctx, key, loader)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func (c *Versioned) load(ctx context.Context, key string, loader func(context.Context) (any, error)) ([]byte, error) {
	build := func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if c != nil && c.client != nil {
			if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
				return nil, err
			}
		}
		return raw, nil
	}
	if c == nil {
		v, err := build()
		if err != nil {
			return nil, err
		}
		return v.([]byte), nil
	}

	ch := c.group.DoChan(key, build)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Bump invalidates every key of scope and publishes the new version.
func (c *Versioned) Bump(ctx context.Context, scope string) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, c.versionKey(scope)).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, c.namespace+".bump", fmt.Sprintf("%s:%d", scope, ver)).Err()
}

func (c *Versioned) observe(hit bool) {
	if c.observer != nil {
		c.observer.ObserveCache(c.namespace, hit)
	}
}
