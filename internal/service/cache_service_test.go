package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-daily-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-daily-scheduler/pkg/errors"
)

type memoryCacheRepo struct {
	mu     sync.Mutex
	values map[string][]byte
	getErr error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{values: make(map[string][]byte)}
}

func (r *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return r.getErr
	}
	raw, ok := r.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = raw
	return nil
}

func (r *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range keys {
		delete(r.values, key)
	}
	return nil
}

func (r *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.values {
		if ok, _ := path.Match(pattern, key); ok {
			delete(r.values, key)
		}
	}
	return nil
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, 0, nil, false)

	require.NoError(t, svc.Set(context.Background(), "k", 1, 0))
	hit, err := svc.Get(context.Background(), "k", new(int))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, repo.values)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}

func TestCacheServiceRecordsHitsAndMisses(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(newMemoryCacheRepo(), metrics, time.Minute, zap.NewNop(), true)

	var out []string
	hit, err := svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), "k", []string{"a"}, 0))
	hit, err = svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"a"}, out)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
}

func TestCacheServiceGetErrorIsReported(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.getErr = errors.New("redis down")
	svc := NewCacheService(repo, nil, 0, nil, true)

	hit, err := svc.Get(context.Background(), "k", new(int))
	assert.False(t, hit)
	assert.Error(t, err)
}

func TestCacheServiceInvalidateDatesDropsStats(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, 0, nil, true)
	ctx := context.Background()
	require.NoError(t, svc.Set(ctx, DailyScheduleCacheKey("2025-09-29"), 1, 0))
	require.NoError(t, svc.Set(ctx, DailyScheduleCacheKey("2025-09-30"), 1, 0))
	require.NoError(t, svc.Set(ctx, ScheduleStatsCacheKey("2025-09-01", "2025-09-30"), 1, 0))

	require.NoError(t, svc.InvalidateDates(ctx, "2025-09-29"))

	assert.NotContains(t, repo.values, DailyScheduleCacheKey("2025-09-29"))
	assert.Contains(t, repo.values, DailyScheduleCacheKey("2025-09-30"))
	assert.NotContains(t, repo.values, ScheduleStatsCacheKey("2025-09-01", "2025-09-30"))
}

func TestDailyScheduleServiceDayScheduleServedFromCache(t *testing.T) {
	fx := newDailyFixture(t, nil)
	fx.service.cache = NewCacheService(newMemoryCacheRepo(), fx.metrics, time.Minute, nil, true)
	fx.store.byDate = []models.DailySchedule{{ClassID: "C1", TeacherID: "T1", StartTime: "08:00"}}

	rows, hit, err := fx.service.DayScheduleCached(context.Background(), "2025-09-29")
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, rows, 1)

	fx.store.byDate = nil
	rows, hit, err = fx.service.DayScheduleCached(context.Background(), "2025-09-29")
	require.NoError(t, err)
	assert.True(t, hit)
	require.Len(t, rows, 1)
	assert.Equal(t, "C1", rows[0].ClassID)
}
