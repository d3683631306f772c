// Package cache wraps the memcached client with namespaced keys, per-call
// TTLs, and a circuit breaker: after any client error, cache traffic is
// suppressed for a window (default 60s) and every operation reports a miss,
// degrading the resolvers to SQL-only mode. Cache failures never reach the
// caller.
package cache

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// Client is the KV surface the cache needs. found is false on a plain miss;
// err is reserved for transport failures, which trip the breaker.
type Client interface {
	Get(key string) (value string, found bool, err error)
	Set(key string, value string, ttl int32) error
}

// Config configures the cache tier.
type Config struct {
	// Host is the memcached address (host:port).
	Host string `mapstructure:"host" validate:"required" yaml:"host"`
	// DefaultTTL is applied by Put, in seconds.
	DefaultTTL int32 `mapstructure:"default_ttl" validate:"gt=0" yaml:"default_ttl"`
	// BreakerWindow is how long cache traffic stays suppressed after a
	// client error.
	BreakerWindow time.Duration `mapstructure:"breaker_window" yaml:"breaker_window"`
}

// ApplyDefaults fills unset fields with production defaults.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost:11211"
	}
	if c.DefaultTTL == 0 {
		c.DefaultTTL = 3600
	}
	if c.BreakerWindow == 0 {
		c.BreakerWindow = 60 * time.Second
	}
}

// Cache is a namespaced KV tier. It is owned by a single worker and is not
// safe for concurrent use.
type Cache struct {
	client     Client
	defaultTTL int32
	window     time.Duration

	lastFailAt time.Time
	now        func() time.Time

	stats *StatsSet
	emit  *StatsSet
}

// New connects a Cache to memcached at cfg.Host.
func New(cfg Config) *Cache {
	cfg.ApplyDefaults()
	return NewWithClient(memcacheClient{mc: memcache.New(cfg.Host)}, cfg)
}

// NewWithClient builds a Cache over an explicit client. Used by tests and by
// callers that manage the memcached connection themselves.
func NewWithClient(client Client, cfg Config) *Cache {
	cfg.ApplyDefaults()
	return &Cache{
		client:     client,
		defaultTTL: cfg.DefaultTTL,
		window:     cfg.BreakerWindow,
		now:        time.Now,
		stats:      NewStatsSet(),
		emit:       NewStatsSet(),
	}
}

// Ok reports whether the breaker currently allows cache traffic.
func (c *Cache) Ok() bool {
	if c.lastFailAt.IsZero() {
		return true
	}
	return c.now().Sub(c.lastFailAt) > c.window
}

// Get fetches ns:key. The second return is false on miss, breaker-open, or
// client failure.
func (c *Cache) Get(ns, key string) (string, bool) {
	if !c.Ok() {
		return "", false
	}

	c.stats.NS(ns).Tries++
	c.emit.NS(ns).Tries++

	start := c.now()
	value, found, err := c.client.Get(ns + ":" + key)
	c.observe(ns, start)

	if err != nil || !found {
		if err != nil {
			c.trip()
		}
		c.stats.NS(ns).Misses++
		c.emit.NS(ns).Misses++
		return "", false
	}

	c.stats.NS(ns).Hits++
	c.emit.NS(ns).Hits++
	return value, true
}

// Put stores ns:key with the default TTL.
func (c *Cache) Put(ns, key, value string) bool {
	return c.PutTTL(ns, key, value, c.defaultTTL)
}

// PutTTL stores ns:key with an explicit TTL in seconds.
func (c *Cache) PutTTL(ns, key, value string, ttl int32) bool {
	if !c.Ok() {
		return false
	}

	start := c.now()
	err := c.client.Set(ns+":"+key, value, ttl)
	c.observe(ns, start)

	if err != nil {
		c.trip()
		return false
	}

	c.stats.NS(ns).Stored++
	c.emit.NS(ns).Stored++
	return true
}

// DefaultTTL returns the TTL Put applies.
func (c *Cache) DefaultTTL() int32 {
	return c.defaultTTL
}

// Stats returns the long-interval stats set (reset by the periodic report).
func (c *Cache) Stats() *StatsSet {
	return c.stats
}

// EmitStats returns the short-interval stats set (reset by the 5s emit).
func (c *Cache) EmitStats() *StatsSet {
	return c.emit
}

func (c *Cache) trip() {
	c.lastFailAt = c.now()
}

func (c *Cache) observe(ns string, start time.Time) {
	sample := c.now().Sub(start).Seconds()
	c.stats.Profile(ns).Add(sample)
	c.emit.Profile(ns).Add(sample)
}

// memcacheClient adapts gomemcache to the Client interface.
type memcacheClient struct {
	mc *memcache.Client
}

func (m memcacheClient) Get(key string) (string, bool, error) {
	item, err := m.mc.Get(key)
	if err == memcache.ErrCacheMiss {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(item.Value), true, nil
}

func (m memcacheClient) Set(key, value string, ttl int32) error {
	return m.mc.Set(&memcache.Item{Key: key, Value: []byte(value), Expiration: ttl})
}
