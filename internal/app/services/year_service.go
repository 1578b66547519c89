package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mertcan/gradus/internal/app/models"
	"github.com/mertcan/gradus/internal/app/repositories"
)

// DefaultAcademicYear is the compiled-in fallback used when no year has ever
// been persisted. The sanity ceiling sits one year above it: anything larger
// in storage is treated as corrupt and reset.
const DefaultAcademicYear = 2025

// YearClock holds the process-wide current academic year. The cached value is
// explicit state with an explicit invalidation call; only a successful
// promotion moves it.
type YearClock struct {
	settings    *repositories.SettingsRepository
	defaultYear int
	logger      zerolog.Logger

	mu     sync.RWMutex
	cached int
	loaded bool
}

// NewYearClock creates a clock over the persisted settings. A defaultYear of
// zero falls back to DefaultAcademicYear.
func NewYearClock(settings *repositories.SettingsRepository, defaultYear int, logger zerolog.Logger) *YearClock {
	if defaultYear == 0 {
		defaultYear = DefaultAcademicYear
	}
	return &YearClock{
		settings:    settings,
		defaultYear: defaultYear,
		logger:      logger,
	}
}

// Load reads the persisted year and primes the cache. It never fails the
// caller: a missing record is initialized with the compiled-in default, an
// implausible one is reset to it, and a storage error falls back to the
// in-memory default.
func (c *YearClock) Load(ctx context.Context) int {
	persisted, err := c.settings.GetYear(ctx)
	if errors.Is(err, repositories.ErrSettingsNotFound) {
		c.logger.Info().Int("year", c.defaultYear).Msg("No academic year persisted, initializing with default")
		c.persistDefault(ctx)
		return c.set(c.defaultYear)
	}
	if err != nil {
		c.logger.Error().Err(err).Int("fallback", c.defaultYear).Msg("Failed to load academic year, serving in-memory default")
		return c.set(c.defaultYear)
	}

	year := persisted.CurrentYear
	if year > c.defaultYear+1 {
		c.logger.Warn().
			Int("persisted", year).
			Int("ceiling", c.defaultYear+1).
			Msg("Persisted academic year is implausible, resetting to default")
		c.persistDefault(ctx)
		year = c.defaultYear
	}
	return c.set(year)
}

// Current returns the cached year, loading it on first use.
func (c *YearClock) Current(ctx context.Context) int {
	c.mu.RLock()
	if c.loaded {
		year := c.cached
		c.mu.RUnlock()
		return year
	}
	c.mu.RUnlock()
	return c.Load(ctx)
}

// SetCurrent updates the cache after a successful promotion.
func (c *YearClock) SetCurrent(year int) {
	c.set(year)
}

// Invalidate drops the cache so the next read hits storage.
func (c *YearClock) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
}

func (c *YearClock) set(year int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = year
	c.loaded = true
	return year
}

func (c *YearClock) persistDefault(ctx context.Context) {
	err := c.settings.SaveYear(ctx, &models.YearSettings{
		CurrentYear: c.defaultYear,
		LastUpdated: time.Now(),
		UpdatedBy:   models.UpdatedBySystem,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to persist default academic year")
	}
}
