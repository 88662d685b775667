package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/sma-daily-scheduler/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]string
	assert.ErrorIs(t, repo.Get(ctx, "schedule:daily:2025-09-29", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "schedule:daily:2025-09-29", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, repo.Delete(ctx, "schedule:daily:2025-09-29"))
	assert.NoError(t, repo.DeleteByPattern(ctx, "schedule:*"))
	assert.NoError(t, repo.Ping(ctx))
	assert.NoError(t, repo.Close())
}
