package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justice-digital/incentives-engine/internal/models"
	appErrors "github.com/justice-digital/incentives-engine/pkg/errors"
)

type fakeLevelSource struct {
	levels []models.IncentiveLevel
	err    error
	calls  int
}

func (f *fakeLevelSource) ActiveLevels(_ context.Context, _ string) ([]models.IncentiveLevel, error) {
	f.calls++
	return f.levels, f.err
}

type fakeCache struct {
	entries map[string][]byte
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (f *fakeCache) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	f.sets++
	return nil
}

func TestExpired(t *testing.T) {
	fetched := day("2026-06-01")

	assert.False(t, Expired(fetched, fetched.Add(23*time.Hour), 24*time.Hour))
	assert.True(t, Expired(fetched, fetched.Add(24*time.Hour), 24*time.Hour))
	assert.True(t, Expired(fetched, fetched.Add(48*time.Hour), 24*time.Hour))
}

func TestActiveLevelsServesFreshEntryFromCache(t *testing.T) {
	source := &fakeLevelSource{levels: []models.IncentiveLevel{{Code: "STD"}}}
	cache := newFakeCache()
	svc := NewLevelCatalogService(source, cache, 24*time.Hour, nil)
	now := day("2026-06-01")
	svc.now = func() time.Time { return now }

	first, err := svc.ActiveLevels(context.Background(), "MDI")
	require.NoError(t, err)
	second, err := svc.ActiveLevels(context.Background(), "MDI")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, source.calls)
}

func TestActiveLevelsTreatsExpiredEntryAsAbsent(t *testing.T) {
	source := &fakeLevelSource{levels: []models.IncentiveLevel{{Code: "STD"}}}
	cache := newFakeCache()
	svc := NewLevelCatalogService(source, cache, 24*time.Hour, nil)
	now := day("2026-06-01")
	svc.now = func() time.Time { return now }

	_, err := svc.ActiveLevels(context.Background(), "MDI")
	require.NoError(t, err)

	now = now.Add(25 * time.Hour)
	_, err = svc.ActiveLevels(context.Background(), "MDI")
	require.NoError(t, err)

	assert.Equal(t, 2, source.calls)
	assert.Equal(t, 2, cache.sets)
}

func TestActiveLevelsFailsWhenExpiredAndSourceUnavailable(t *testing.T) {
	source := &fakeLevelSource{levels: []models.IncentiveLevel{{Code: "STD"}}}
	cache := newFakeCache()
	svc := NewLevelCatalogService(source, cache, 24*time.Hour, nil)
	now := day("2026-06-01")
	svc.now = func() time.Time { return now }

	_, err := svc.ActiveLevels(context.Background(), "MDI")
	require.NoError(t, err)

	now = now.Add(25 * time.Hour)
	source.err = appErrors.ErrProviderUnavailable
	_, err = svc.ActiveLevels(context.Background(), "MDI")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrProviderUnavailable.Code, appErrors.FromError(err).Code)
}
