package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mertcan/gradus/internal/app/models"
	"github.com/mertcan/gradus/internal/pkg/apperrors"
	"github.com/mertcan/gradus/internal/pkg/docstore"
)

func TestPromote(t *testing.T) {
	ctx := context.Background()

	t.Run("advances every cohort and the academic year", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE")
		for level := 1; level <= 4; level++ {
			joining := models.JoiningYearFor(2025, level)
			f.seedStudent(t, testStudent("CSE", level, modelsLevelID(level), joining))
		}

		result, err := f.promotion.Promote(ctx, "admin@example.edu")
		require.NoError(t, err)
		assert.Equal(t, 2025, result.FromYear)
		assert.Equal(t, 2026, result.ToYear)
		assert.Equal(t, 1, result.Archived)
		assert.Equal(t, 3, result.Migrated)
		assert.Empty(t, result.FailedPartitions)

		// Terminal student graduated, everyone else is one level up.
		graduates, err := f.repos.GraduateRepository.List(ctx)
		require.NoError(t, err)
		require.Len(t, graduates, 1)
		assert.Equal(t, 2025, graduates[0].GraduationYear)

		for level := 2; level <= 4; level++ {
			s := f.student(t, "CSE", level, modelsLevelID(level-1))
			assert.Equal(t, models.JoiningYearFor(2026, level), s.JoiningYear)
		}

		first, err := f.repos.StudentRepository.ListByPartition(ctx, "CSE", 1)
		require.NoError(t, err)
		assert.Empty(t, first)

		persisted, err := f.repos.SettingsRepository.GetYear(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2026, persisted.CurrentYear)
		assert.Equal(t, 2025, persisted.PreviousYear)
		assert.Equal(t, "admin@example.edu", persisted.UpdatedBy)
		assert.Equal(t, 2026, f.clock.Current(ctx))
	})

	t.Run("migrates representatives alongside their cohorts", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE")
		f.seedStudent(t, testStudent("CSE", 2, "s1", 2024))
		f.seedAssignment(t, &models.CRAssignment{
			ID:         "a1",
			Slot:       models.Slot1,
			StudentID:  "s1",
			AccountID:  "acct-1",
			Email:      "s1@example.edu",
			YearLevel:  2,
			BatchYear:  2024,
			Department: "CSE",
			Active:     true,
			AssignedAt: time.Now(),
		})

		_, err := f.promotion.Promote(ctx, "admin")
		require.NoError(t, err)

		moved, err := f.repos.PrimaryAssignments.ListActive(ctx, 3, "CSE")
		require.NoError(t, err)
		require.Len(t, moved, 1)
		assert.Equal(t, 2024, moved[0].BatchYear)
	})

	t.Run("ordering keeps a cohort from being promoted twice", func(t *testing.T) {
		// Levels run top-down: were level 1 promoted before level 2, the
		// freshly promoted students would be swept up again.
		f := newMemoryFixture(t, 2025, "CSE")
		f.seedStudent(t, testStudent("CSE", 1, "fresh", 2025))

		_, err := f.promotion.Promote(ctx, "admin")
		require.NoError(t, err)

		s := f.student(t, "CSE", 2, "fresh")
		assert.Equal(t, 2025, s.JoiningYear)

		third, err := f.repos.StudentRepository.ListByPartition(ctx, "CSE", 3)
		require.NoError(t, err)
		assert.Empty(t, third)
	})

	t.Run("conflicting persisted year aborts before any stage", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE")
		f.seedStudent(t, testStudent("CSE", 4, "g1", 2022))
		require.Equal(t, 2025, f.clock.Current(ctx))

		// Another instance already promoted behind this one's cache.
		require.NoError(t, f.repos.SettingsRepository.SaveYear(ctx, &models.YearSettings{CurrentYear: 2026}))

		_, err := f.promotion.Promote(ctx, "admin")
		assert.ErrorIs(t, err, apperrors.ErrPromotionConflict)

		// Nothing moved.
		f.student(t, "CSE", 4, "g1")
	})

	t.Run("partial department failures are tagged and surfaced", func(t *testing.T) {
		flaky := &flakyStore{Store: docstore.NewMemoryStore(), failPrefix: "students/ECE/level-2"}
		f := newFixture(t, flaky, 2025, "CSE", "ECE")
		f.seedStudent(t, testStudent("CSE", 1, "c1", 2025))
		f.seedStudent(t, testStudent("ECE", 1, "e1", 2025))

		result, err := f.promotion.Promote(ctx, "admin")
		require.NoError(t, err)
		assert.Equal(t, []string{"migrate-1-2/ECE"}, result.FailedPartitions)
		assert.Equal(t, 1, result.Migrated)

		// The year still advances; the failed partition is retried by a
		// targeted re-run, not by repeating the whole promotion.
		persisted, err := f.repos.SettingsRepository.GetYear(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2026, persisted.CurrentYear)
	})

	t.Run("consecutive promotions walk a student to graduation", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE")
		f.seedStudent(t, testStudent("CSE", 3, "s1", 2023))

		_, err := f.promotion.Promote(ctx, "admin")
		require.NoError(t, err)
		s := f.student(t, "CSE", 4, "s1")
		assert.Equal(t, 2023, s.JoiningYear)

		_, err = f.promotion.Promote(ctx, "admin")
		require.NoError(t, err)

		graduates, err := f.repos.GraduateRepository.List(ctx)
		require.NoError(t, err)
		require.Len(t, graduates, 1)
		assert.Equal(t, "s1", graduates[0].StudentID)
		assert.Equal(t, 2026, graduates[0].GraduationYear)
		assert.Equal(t, 2027, f.clock.Current(ctx))
	})
}

func modelsLevelID(level int) string {
	return map[int]string{1: "l1", 2: "l2", 3: "l3", 4: "l4"}[level]
}
