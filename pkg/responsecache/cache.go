// Package responsecache stores successful external lookup responses for a fixed
// time-to-live, keyed by request identity.
// Keys are deterministic: Hash(Method+Endpoint+SortedParams+Body)
package responsecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrNotFound is returned by a Store when no entry exists for a key.
var ErrNotFound = errors.New("cache entry not found")

// Entry is a stored response.
type Entry struct {
	Key       string
	Value     json.RawMessage
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is past its TTL at now.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store persists cache entries.
type Store interface {
	// Get returns the entry for key or ErrNotFound.
	Get(ctx context.Context, key string) (*Entry, error)
	// PutIfAbsent stores e unless a live entry for the key exists at e.CreatedAt.
	PutIfAbsent(ctx context.Context, e Entry) (bool, error)
	// DeleteExpired removes entries expired at now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Config holds configuration for the cache
type Config struct {
	// TTL is how long a stored response is served
	TTL time.Duration
	// CleanupInterval is how often to purge expired entries
	CleanupInterval time.Duration
}

// DefaultConfig returns the lookup defaults
func DefaultConfig() Config {
	return Config{
		TTL:             time.Hour,
		CleanupInterval: 10 * time.Minute,
	}
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithObserver is called with the outcome of every Get.
func WithObserver(fn func(hit bool)) Option {
	return func(c *Cache) { c.observe = fn }
}

// Cache is a TTL response cache over a Store. Entries are immutable once stored.
type Cache struct {
	store   Store
	config  Config
	logger  *zap.Logger
	tracer  trace.Tracer
	now     func() time.Time
	observe func(hit bool)

	// Control for cleanup goroutine
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a cache.
func New(store Store, cfg Config, logger *zap.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultConfig().CleanupInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		store:   store,
		config:  cfg,
		logger:  logger,
		tracer:  otel.Tracer("responsecache"),
		now:     time.Now,
		observe: func(bool) {},
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration { return c.config.TTL }

// Get returns the live value stored for key. Store errors count as a miss.
func (c *Cache) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	ctx, span := c.tracer.Start(ctx, "cache_get", trace.WithAttributes(attribute.String("cache_key", key)))
	defer span.End()

	entry, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
			span.RecordError(err)
		}
		c.observe(false)
		return nil, false
	}
	if entry.Expired(c.now()) {
		c.observe(false)
		return nil, false
	}

	span.SetAttributes(attribute.Bool("hit", true))
	c.observe(true)
	return entry.Value, true
}

// Put stores value under key unless a live entry already exists. Failures are
// logged and otherwise ignored.
func (c *Cache) Put(ctx context.Context, key string, value json.RawMessage) {
	now := c.now()
	stored, err := c.store.PutIfAbsent(ctx, Entry{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(c.config.TTL),
	})
	if err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		return
	}
	if !stored {
		c.logger.Debug("cache entry already present", zap.String("key", key))
	}
}

// Key creates a deterministic key from request components. Parameter order does
// not matter.
func Key(method, endpoint string, params map[string]string, body []byte) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names)+3)
	parts = append(parts, strings.ToUpper(method), endpoint)
	for _, k := range names {
		parts = append(parts, k+"="+params[k])
	}
	parts = append(parts, string(body))

	data := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// StartCleanup starts the background cleanup goroutine
func (c *Cache) StartCleanup() {
	go c.cleanupLoop()
	c.logger.Info("response cache cleanup started", zap.Duration("interval", c.config.CleanupInterval))
}

// Stop stops the cleanup goroutine. It must only be called after StartCleanup.
func (c *Cache) Stop() {
	c.cancel()
	<-c.done
	c.logger.Info("response cache stopped")
}

func (c *Cache) cleanupLoop() {
	defer close(c.done)

	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.Cleanup(c.ctx)
		}
	}
}

// Cleanup removes expired entries once.
func (c *Cache) Cleanup(ctx context.Context) {
	deleted, err := c.store.DeleteExpired(ctx, c.now())
	if err != nil {
		c.logger.Error("response cache cleanup failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		c.logger.Info("response cache cleanup completed", zap.Int64("deleted", deleted))
	}
}
