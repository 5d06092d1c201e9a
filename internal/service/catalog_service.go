package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/justice-digital/incentives-engine/internal/models"
	appErrors "github.com/justice-digital/incentives-engine/pkg/errors"
)

type levelSource interface {
	ActiveLevels(ctx context.Context, prisonID string) ([]models.IncentiveLevel, error)
}

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// catalogEntry is the cached shape: the value plus the moment it was
// fetched. Freshness is decided at read time, never at write time.
type catalogEntry struct {
	Levels    []models.IncentiveLevel `json:"levels"`
	FetchedAt time.Time               `json:"fetchedAt"`
}

// Expired reports whether an entry fetched at the given instant is past
// its freshness bound at now. Pure so freshness is testable without a
// clock.
func Expired(fetchedAt, now time.Time, freshFor time.Duration) bool {
	return now.Sub(fetchedAt) >= freshFor
}

// LevelCatalogService serves each prison's active incentive levels from a
// cache in front of the prison reference service. An expired entry is
// treated exactly like an absent one.
type LevelCatalogService struct {
	source   levelSource
	cache    cacheStore
	freshFor time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewLevelCatalogService constructs the service.
func NewLevelCatalogService(source levelSource, cache cacheStore, freshFor time.Duration, logger *zap.Logger) *LevelCatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LevelCatalogService{
		source:   source,
		cache:    cache,
		freshFor: freshFor,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ActiveLevels returns the active level catalog for a prison.
func (s *LevelCatalogService) ActiveLevels(ctx context.Context, prisonID string) ([]models.IncentiveLevel, error) {
	key := "levels:" + prisonID

	var entry catalogEntry
	if err := s.cache.Get(ctx, key, &entry); err == nil {
		if !Expired(entry.FetchedAt, s.now(), s.freshFor) {
			return entry.Levels, nil
		}
	} else if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("level catalog cache read failed", zap.String("prison_id", prisonID), zap.Error(err))
	}

	levels, err := s.source.ActiveLevels(ctx, prisonID)
	if err != nil {
		return nil, err
	}

	entry = catalogEntry{Levels: levels, FetchedAt: s.now()}
	if err := s.cache.Set(ctx, key, entry, s.freshFor); err != nil {
		s.logger.Warn("level catalog cache write failed", zap.String("prison_id", prisonID), zap.Error(err))
	}
	return levels, nil
}
