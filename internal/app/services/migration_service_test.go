package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mertcan/gradus/internal/app/models"
	"github.com/mertcan/gradus/internal/pkg/apperrors"
	"github.com/mertcan/gradus/internal/pkg/docstore"
)

func TestMigrateLevel(t *testing.T) {
	ctx := context.Background()

	t.Run("moves a cohort up one level and recomputes joining year", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE")
		f.seedStudent(t, testStudent("CSE", 2, "s1", 2024))
		f.seedStudent(t, testStudent("CSE", 2, "s2", 2024))

		moved, failed, err := f.migration.MigrateLevel(ctx, 2, 3, 2026, "admin@example.edu")
		require.NoError(t, err)
		assert.Empty(t, failed)
		assert.Equal(t, 2, moved)

		// Same cohort, one level up, joining year unchanged in effect:
		// 2026 - 3 + 1 = 2024.
		s := f.student(t, "CSE", 3, "s1")
		assert.Equal(t, 3, s.YearLevel)
		assert.Equal(t, 2024, s.JoiningYear)
		assert.Equal(t, "admin@example.edu", s.MigratedBy)
		assert.Equal(t, 2, s.MigratedFrom)
		require.NotNil(t, s.MigratedAt)

		_, err = f.repos.StudentRepository.Get(ctx, "CSE", 2, "s1")
		assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
	})

	t.Run("covers every department", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE", "ECE", "MECH")
		for _, dept := range []string{"CSE", "ECE", "MECH"} {
			f.seedStudent(t, testStudent(dept, 1, dept+"-s1", 2025))
		}

		moved, failed, err := f.migration.MigrateLevel(ctx, 1, 2, 2026, "admin")
		require.NoError(t, err)
		assert.Empty(t, failed)
		assert.Equal(t, 3, moved)

		for _, dept := range []string{"CSE", "ECE", "MECH"} {
			s := f.student(t, dept, 2, dept+"-s1")
			assert.Equal(t, 2026, s.JoiningYear+s.YearLevel-1)
		}
	})

	t.Run("rejects a non-adjacent level pair", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE")

		for _, pair := range [][2]int{{1, 3}, {3, 2}, {2, 2}, {0, 1}, {4, 5}} {
			_, _, err := f.migration.MigrateLevel(ctx, pair[0], pair[1], 2026, "admin")
			assert.ErrorIs(t, err, apperrors.ErrInvalidYearLevel, "pair %v", pair)
		}
	})

	t.Run("empty partition is a no-op", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE")

		moved, failed, err := f.migration.MigrateLevel(ctx, 2, 3, 2026, "admin")
		require.NoError(t, err)
		assert.Empty(t, failed)
		assert.Zero(t, moved)
	})

	t.Run("re-running a finished migration moves nothing", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE")
		f.seedStudent(t, testStudent("CSE", 1, "s1", 2025))

		moved, _, err := f.migration.MigrateLevel(ctx, 1, 2, 2026, "admin")
		require.NoError(t, err)
		require.Equal(t, 1, moved)

		moved, _, err = f.migration.MigrateLevel(ctx, 1, 2, 2026, "admin")
		require.NoError(t, err)
		assert.Zero(t, moved)

		students, err := f.repos.StudentRepository.ListByPartition(ctx, "CSE", 2)
		require.NoError(t, err)
		assert.Len(t, students, 1)
	})

	t.Run("a failing department does not stop the others", func(t *testing.T) {
		flaky := &flakyStore{Store: docstore.NewMemoryStore(), failPrefix: "students/ECE/level-3"}
		f := newFixture(t, flaky, 2025, "CSE", "ECE")
		f.seedStudent(t, testStudent("CSE", 2, "c1", 2024))
		f.seedStudent(t, testStudent("ECE", 2, "e1", 2024))

		moved, failed, err := f.migration.MigrateLevel(ctx, 2, 3, 2026, "admin")
		require.NoError(t, err)
		assert.Equal(t, []string{"ECE"}, failed)
		assert.Equal(t, 1, moved)

		// CSE moved, ECE stayed put for a retry.
		f.student(t, "CSE", 3, "c1")
		f.student(t, "ECE", 2, "e1")
	})

	t.Run("large cohorts are chunked into bounded batches", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE")
		total := 3*docstore.MaxBatchOps/4 + 7
		for i := 0; i < total; i++ {
			f.seedStudent(t, testStudent("CSE", 1, fmt.Sprintf("s%04d", i), 2025))
		}

		moved, failed, err := f.migration.MigrateLevel(ctx, 1, 2, 2026, "admin")
		require.NoError(t, err)
		assert.Empty(t, failed)
		assert.Equal(t, total, moved)

		students, err := f.repos.StudentRepository.ListByPartition(ctx, "CSE", 2)
		require.NoError(t, err)
		assert.Len(t, students, total)
	})

	t.Run("representative flag travels with the student record", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE")
		cr := testStudent("CSE", 2, "s1", 2024)
		cr.IsRepresentative = true
		f.seedStudent(t, cr)

		_, _, err := f.migration.MigrateLevel(ctx, 2, 3, 2026, "admin")
		require.NoError(t, err)

		s := f.student(t, "CSE", 3, "s1")
		assert.True(t, s.IsRepresentative)
	})
}

func TestJoiningYearFor(t *testing.T) {
	// The cohort year stays fixed while the student climbs levels.
	assert.Equal(t, 2024, models.JoiningYearFor(2024, 1))
	assert.Equal(t, 2024, models.JoiningYearFor(2025, 2))
	assert.Equal(t, 2024, models.JoiningYearFor(2026, 3))
	assert.Equal(t, 2024, models.JoiningYearFor(2027, 4))
}
