package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mertcan/gradus/internal/app/models"
	"github.com/mertcan/gradus/internal/pkg/docstore"
)

func TestCRMigrateForLevel(t *testing.T) {
	ctx := context.Background()

	activeAssignment := func(id, dept string, level int) *models.CRAssignment {
		return &models.CRAssignment{
			ID:         id,
			Slot:       models.Slot1,
			StudentID:  "s-" + id,
			AccountID:  "acct-" + id,
			Email:      id + "@example.edu",
			YearLevel:  level,
			BatchYear:  models.JoiningYearFor(2025, level),
			Department: dept,
			Active:     true,
			AssignedAt: time.Now(),
		}
	}

	t.Run("moves active assignments to the new level key", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE")
		f.seedAssignment(t, activeAssignment("a1", "CSE", 2))

		failed := f.crs.MigrateForLevel(ctx, 2, 3, 2026, "admin@example.edu")
		assert.Empty(t, failed)

		old, err := f.repos.PrimaryAssignments.ListAll(ctx, 2, "CSE")
		require.NoError(t, err)
		assert.Empty(t, old)

		moved, err := f.repos.PrimaryAssignments.ListActive(ctx, 3, "CSE")
		require.NoError(t, err)
		require.Len(t, moved, 1)
		assert.Equal(t, "a1", moved[0].ID)
		assert.Equal(t, 3, moved[0].YearLevel)
		assert.Equal(t, models.JoiningYearFor(2026, 3), moved[0].BatchYear)
		assert.Equal(t, "admin@example.edu", moved[0].MigratedBy)
		require.NotNil(t, moved[0].MigratedAt)
	})

	t.Run("inactive assignments stay where they are", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE")
		inactive := activeAssignment("old", "CSE", 2)
		inactive.Active = false
		f.seedAssignment(t, inactive)
		f.seedAssignment(t, activeAssignment("live", "CSE", 2))

		failed := f.crs.MigrateForLevel(ctx, 2, 3, 2026, "admin")
		assert.Empty(t, failed)

		remaining, err := f.repos.PrimaryAssignments.ListAll(ctx, 2, "CSE")
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, "old", remaining[0].ID)

		moved, err := f.repos.PrimaryAssignments.ListActive(ctx, 3, "CSE")
		require.NoError(t, err)
		require.Len(t, moved, 1)
		assert.Equal(t, "live", moved[0].ID)
	})

	t.Run("updates the holder's role flags", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE")
		a := activeAssignment("a1", "CSE", 2)
		f.seedAssignment(t, a)

		b := f.store.Batch()
		f.repos.RoleFlagsRepository.BatchSet(b, &models.RoleFlags{
			AccountID:        a.AccountID,
			IsRepresentative: true,
			YearLevel:        2,
			Department:       "CSE",
			Slot:             a.Slot,
			Email:            a.Email,
			UpdatedAt:        time.Now(),
		})
		require.NoError(t, b.Commit(ctx))

		failed := f.crs.MigrateForLevel(ctx, 2, 3, 2026, "admin")
		assert.Empty(t, failed)

		flags, err := f.repos.RoleFlagsRepository.Get(ctx, a.AccountID)
		require.NoError(t, err)
		require.NotNil(t, flags)
		assert.True(t, flags.IsRepresentative)
		assert.Equal(t, 3, flags.YearLevel)
	})

	t.Run("missing profile leaves flags stale without failing the move", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE")
		a := activeAssignment("a1", "CSE", 2)
		a.AccountID = ""
		f.seedAssignment(t, a)

		failed := f.crs.MigrateForLevel(ctx, 2, 3, 2026, "admin")
		assert.Empty(t, failed)

		moved, err := f.repos.PrimaryAssignments.ListActive(ctx, 3, "CSE")
		require.NoError(t, err)
		assert.Len(t, moved, 1)
	})

	t.Run("mirrors the move into the legacy shape", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE")
		a := activeAssignment("a1", "CSE", 2)
		f.seedAssignment(t, a)
		f.seedLegacyAssignment(t, a)

		failed := f.crs.MigrateForLevel(ctx, 2, 3, 2026, "admin")
		assert.Empty(t, failed)

		oldShape, err := f.repos.LegacyAssignments.ListActive(ctx, 2, "CSE")
		require.NoError(t, err)
		assert.Empty(t, oldShape)

		newShape, err := f.repos.LegacyAssignments.ListActive(ctx, 3, "CSE")
		require.NoError(t, err)
		require.Len(t, newShape, 1)
		assert.Equal(t, 3, newShape[0].YearLevel)
	})

	t.Run("a failing department is reported and the rest proceed", func(t *testing.T) {
		flaky := &flakyStore{Store: docstore.NewMemoryStore(), failPrefix: "representatives/level-3/ECE"}
		f := newFixture(t, flaky, 2025, "CSE", "ECE")

		for _, a := range []*models.CRAssignment{
			activeAssignment("c1", "CSE", 2),
			activeAssignment("e1", "ECE", 2),
		} {
			b := flaky.Store.Batch()
			f.repos.PrimaryAssignments.BatchUpsert(b, a)
			require.NoError(t, b.Commit(ctx))
		}

		failed := f.crs.MigrateForLevel(ctx, 2, 3, 2026, "admin")
		assert.Equal(t, []string{"ECE"}, failed)

		moved, err := f.repos.PrimaryAssignments.ListActive(ctx, 3, "CSE")
		require.NoError(t, err)
		assert.Len(t, moved, 1)

		// ECE stayed at the source level for a retry.
		stayed, err := f.repos.PrimaryAssignments.ListActive(ctx, 2, "ECE")
		require.NoError(t, err)
		assert.Len(t, stayed, 1)
	})
}
