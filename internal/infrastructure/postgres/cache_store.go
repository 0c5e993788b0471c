package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/drfirst/go-healthassist/pkg/responsecache"
)

// CacheStore keeps lookup responses in the lookup_cache table so several
// processes share them.
type CacheStore struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewCacheStore creates a cache store.
func NewCacheStore(pool *pgxpool.Pool) *CacheStore {
	return &CacheStore{pool: pool, tracer: otel.Tracer("postgres-cache")}
}

var _ responsecache.Store = (*CacheStore)(nil)

// Get retrieves an entry by key
func (s *CacheStore) Get(ctx context.Context, key string) (*responsecache.Entry, error) {
	query := `
		SELECT cache_key, value, created_at, expires_at
		FROM lookup_cache
		WHERE cache_key = $1
	`

	e := &responsecache.Entry{}
	err := s.pool.QueryRow(ctx, query, key).Scan(&e.Key, &e.Value, &e.CreatedAt, &e.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, responsecache.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return e, nil
}

// PutIfAbsent inserts e, replacing an existing row only when it has expired
func (s *CacheStore) PutIfAbsent(ctx context.Context, e responsecache.Entry) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "cache_put", trace.WithAttributes(attribute.String("cache_key", e.Key)))
	defer span.End()

	query := `
		INSERT INTO lookup_cache (cache_key, value, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cache_key) DO UPDATE
		SET value = EXCLUDED.value, created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at
		WHERE lookup_cache.expires_at <= EXCLUDED.created_at
		RETURNING cache_key
	`

	var returned string
	err := s.pool.QueryRow(ctx, query, e.Key, []byte(e.Value), e.CreatedAt, e.ExpiresAt).Scan(&returned)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Conflict with a live entry
			return false, nil
		}
		span.RecordError(err)
		return false, fmt.Errorf("failed to store cache entry: %w", err)
	}
	return true, nil
}

// DeleteExpired removes entries expired at now
func (s *CacheStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.pool.Exec(ctx, `DELETE FROM lookup_cache WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}
	return result.RowsAffected(), nil
}
