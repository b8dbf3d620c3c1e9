package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/course-portal-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheOptions tunes the cache service.
type CacheOptions struct {
	Enabled       bool
	DefaultTTL    time.Duration
	Prefix        string
	RetryAttempts int
	RetryDelay    time.Duration
}

// CacheService orchestrates cache operations, read retries and invalidation.
type CacheService struct {
	repo          CacheRepository
	metrics       *MetricsService
	defaultTTL    time.Duration
	prefix        string
	retryAttempts int
	retryDelay    time.Duration
	logger        *zap.Logger
	enabled       bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, opts CacheOptions, logger *zap.Logger) *CacheService {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 5 * time.Minute
	}
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		repo:          repo,
		metrics:       metrics,
		defaultTTL:    opts.DefaultTTL,
		prefix:        strings.TrimSuffix(opts.Prefix, ":"),
		retryAttempts: opts.RetryAttempts,
		retryDelay:    opts.RetryDelay,
		logger:        logger,
		enabled:       opts.Enabled,
	}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

func (s *CacheService) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, s.key(key), dest)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	s.metrics.RecordCacheOperation(true, duration)
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, s.key(key), value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate drops every cached read the mutation makes stale. Failures are logged, never returned,
// so a committed write is not reported as failed because of the cache.
func (s *CacheService) Invalidate(ctx context.Context, kind MutationKind, scopes ...CacheScope) {
	if s == nil {
		return
	}
	s.metrics.RecordInvalidation(string(kind))
	if !s.Enabled() {
		return
	}
	var exact []string
	for _, key := range InvalidationKeys(kind, scopes...) {
		if strings.Contains(key, "*") {
			if err := s.repo.DeleteByPattern(ctx, s.key(key)); err != nil {
				s.logger.Warn("cache invalidate failed", zap.String("mutation", string(kind)), zap.String("pattern", key), zap.Error(err))
			}
			continue
		}
		exact = append(exact, s.key(key))
	}
	if len(exact) == 0 {
		return
	}
	if err := s.repo.Delete(ctx, exact...); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("mutation", string(kind)), zap.Strings("keys", exact), zap.Error(err))
	}
}

// Fetch reads through the cache: a hit is returned as is, a miss runs load with the bounded
// read retry and stores the result. Only reads go through here.
func Fetch[T any](ctx context.Context, s *CacheService, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if hit, _ := s.Get(ctx, key, &cached); hit {
		return cached, nil
	}
	value, err := Retry(ctx, s, queryLabel(key), load)
	if err != nil {
		return value, err
	}
	_ = s.Set(ctx, key, value, ttl)
	return value, nil
}

// Retry runs a read up to the configured number of attempts. Client errors and
// context cancellation stop it early. Each attempt is timed under label.
func Retry[T any](ctx context.Context, s *CacheService, label string, load func(context.Context) (T, error)) (T, error) {
	attempts, delay := 1, time.Duration(0)
	logger := zap.NewNop()
	var metrics *MetricsService
	if s != nil {
		attempts, delay, logger, metrics = s.retryAttempts, s.retryDelay, s.logger, s.metrics
	}

	var (
		value T
		err   error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		value, err = load(ctx)
		metrics.ObserveDBQuery(label, time.Since(start))
		if err == nil || !retryable(err) || attempt == attempts {
			return value, err
		}
		logger.Debug("read failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return value, err
		case <-timer.C:
		}
	}
	return value, err
}

// queryLabel names a read after its cache key template, e.g. "course_enrollments".
func queryLabel(key string) string {
	name, _, _ := strings.Cut(key, ":")
	return strings.ReplaceAll(name, "-", "_")
}

func retryable(err error) bool {
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr.Status >= 500
	}
	return true
}
