package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mertcan/gradus/internal/app/models"
	"github.com/mertcan/gradus/internal/app/repositories"
	"github.com/mertcan/gradus/internal/pkg/docstore"
)

func TestYearClock(t *testing.T) {
	ctx := context.Background()

	t.Run("loads the persisted year", func(t *testing.T) {
		f := newMemoryFixture(t, 2026, "CSE")
		assert.Equal(t, 2026, f.clock.Current(ctx))
	})

	t.Run("initializes storage when nothing is persisted", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		settings := repositories.NewSettingsRepository(store)
		clock := NewYearClock(settings, 2025, zerolog.Nop())

		assert.Equal(t, 2025, clock.Current(ctx))

		persisted, err := settings.GetYear(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2025, persisted.CurrentYear)
		assert.Equal(t, models.UpdatedBySystem, persisted.UpdatedBy)
	})

	t.Run("resets an implausible persisted year", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		settings := repositories.NewSettingsRepository(store)
		require.NoError(t, settings.SaveYear(ctx, &models.YearSettings{CurrentYear: 2098}))

		clock := NewYearClock(settings, 2025, zerolog.Nop())
		assert.Equal(t, 2025, clock.Load(ctx))

		persisted, err := settings.GetYear(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2025, persisted.CurrentYear)
	})

	t.Run("accepts a persisted year one above the default", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		settings := repositories.NewSettingsRepository(store)
		require.NoError(t, settings.SaveYear(ctx, &models.YearSettings{CurrentYear: 2026}))

		clock := NewYearClock(settings, 2025, zerolog.Nop())
		assert.Equal(t, 2026, clock.Load(ctx))
	})

	t.Run("caches until invalidated", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE")
		require.Equal(t, 2025, f.clock.Current(ctx))

		// A write behind the clock's back is not observed through the cache.
		require.NoError(t, f.repos.SettingsRepository.SaveYear(ctx, &models.YearSettings{CurrentYear: 2026}))
		assert.Equal(t, 2025, f.clock.Current(ctx))

		f.clock.Invalidate()
		assert.Equal(t, 2026, f.clock.Current(ctx))
	})

	t.Run("SetCurrent moves the cache without a storage read", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE")
		f.clock.SetCurrent(2026)
		assert.Equal(t, 2026, f.clock.Current(ctx))
	})

	t.Run("zero default falls back to the compiled-in year", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		clock := NewYearClock(repositories.NewSettingsRepository(store), 0, zerolog.Nop())
		assert.Equal(t, DefaultAcademicYear, clock.Current(ctx))
	})
}
