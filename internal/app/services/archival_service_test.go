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

func TestArchiveTerminalLevel(t *testing.T) {
	ctx := context.Background()

	t.Run("archives the terminal cohort and removes the active records", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE")
		f.seedStudent(t, testStudent("CSE", 4, "g1", 2022))
		f.seedStudent(t, testStudent("CSE", 4, "g2", 2022))
		f.seedStudent(t, testStudent("CSE", 3, "stays", 2023))

		archived, failed, err := f.archival.ArchiveTerminalLevel(ctx, "admin@example.edu")
		require.NoError(t, err)
		assert.Empty(t, failed)
		assert.Equal(t, 2, archived)

		graduates, err := f.repos.GraduateRepository.List(ctx)
		require.NoError(t, err)
		require.Len(t, graduates, 2)
		for _, g := range graduates {
			assert.Equal(t, 2022, g.JoiningYear)
			assert.Equal(t, 2025, g.GraduationYear)
			assert.Equal(t, "admin@example.edu", g.ArchivedBy)
		}

		_, err = f.repos.StudentRepository.Get(ctx, "CSE", 4, "g1")
		assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
		f.student(t, "CSE", 3, "stays")
	})

	t.Run("never overwrites an existing archive record", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE")
		s := testStudent("CSE", 4, "g1", 2022)
		f.seedStudent(t, s)

		// Pre-existing snapshot from an earlier, partially failed run.
		b := f.store.Batch()
		earlier := models.NewGraduateRecord(s, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), "first-run")
		f.repos.GraduateRepository.BatchArchive(b, earlier)
		require.NoError(t, b.Commit(ctx))

		_, _, err := f.archival.ArchiveTerminalLevel(ctx, "second-run")
		require.NoError(t, err)

		graduates, err := f.repos.GraduateRepository.List(ctx)
		require.NoError(t, err)
		require.Len(t, graduates, 1)
		assert.Equal(t, "first-run", graduates[0].ArchivedBy)

		// The active record is still gone, so the re-run converged.
		_, err = f.repos.StudentRepository.Get(ctx, "CSE", 4, "g1")
		assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
	})

	t.Run("same student id across cohorts never collides", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE")
		s := testStudent("CSE", 4, "g1", 2022)
		f.seedStudent(t, s)

		older := testStudent("CSE", 4, "g1", 2018)
		b := f.store.Batch()
		f.repos.GraduateRepository.BatchArchive(b, models.NewGraduateRecord(older, time.Now(), "earlier-cohort"))
		require.NoError(t, b.Commit(ctx))

		_, _, err := f.archival.ArchiveTerminalLevel(ctx, "admin")
		require.NoError(t, err)

		graduates, err := f.repos.GraduateRepository.List(ctx)
		require.NoError(t, err)
		assert.Len(t, graduates, 2)
	})

	t.Run("deactivates assignments held by graduating students", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE")
		f.seedStudent(t, testStudent("CSE", 4, "g1", 2022))
		f.seedAssignment(t, &models.CRAssignment{
			ID:         "a1",
			Slot:       models.Slot1,
			StudentID:  "g1",
			AccountID:  "acct-1",
			Email:      "g1@example.edu",
			YearLevel:  4,
			Department: "CSE",
			Active:     true,
			AssignedAt: time.Now(),
		})

		_, _, err := f.archival.ArchiveTerminalLevel(ctx, "admin")
		require.NoError(t, err)

		active, err := f.repos.PrimaryAssignments.ListActive(ctx, 4, "CSE")
		require.NoError(t, err)
		assert.Empty(t, active)

		all, err := f.repos.PrimaryAssignments.ListAll(ctx, 4, "CSE")
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.False(t, all[0].Active)
		assert.NotNil(t, all[0].RevokedAt)
	})

	t.Run("matches legacy assignments by email when the id is absent", func(t *testing.T) {
		f := newMemoryFixture(t, 2025, "CSE")
		f.seedStudent(t, testStudent("CSE", 4, "g1", 2022))
		f.seedLegacyAssignment(t, &models.CRAssignment{
			ID:         "legacy-1",
			Slot:       models.Slot2,
			Email:      "G1@Example.edu",
			YearLevel:  4,
			Department: "CSE",
			Active:     true,
			AssignedAt: time.Now(),
		})

		_, _, err := f.archival.ArchiveTerminalLevel(ctx, "admin")
		require.NoError(t, err)

		active, err := f.repos.LegacyAssignments.ListActive(ctx, 4, "CSE")
		require.NoError(t, err)
		assert.Empty(t, active)
	})

	t.Run("assignment cleanup failure does not fail archival", func(t *testing.T) {
		flaky := &flakyStore{Store: docstore.NewMemoryStore(), failPrefix: "representatives/"}
		f := newFixture(t, flaky, 2025, "CSE")
		f.seedStudent(t, testStudent("CSE", 4, "g1", 2022))

		b := flaky.Store.Batch()
		f.repos.PrimaryAssignments.BatchUpsert(b, &models.CRAssignment{
			ID: "a1", Slot: models.Slot1, StudentID: "g1", YearLevel: 4,
			Department: "CSE", Active: true, AssignedAt: time.Now(),
		})
		require.NoError(t, b.Commit(ctx))

		archived, failed, err := f.archival.ArchiveTerminalLevel(ctx, "admin")
		require.NoError(t, err)
		assert.Empty(t, failed)
		assert.Equal(t, 1, archived)

		// Cleanup was injected to fail; the assignment is still active and a
		// later projection repair or manual revoke handles it.
		active, err := f.repos.PrimaryAssignments.ListActive(ctx, 4, "CSE")
		require.NoError(t, err)
		assert.Len(t, active, 1)
	})

	t.Run("a failing department does not stop the others", func(t *testing.T) {
		flaky := &flakyStore{Store: docstore.NewMemoryStore(), failPrefix: "graduates/2022_e"}
		f := newFixture(t, flaky, 2025, "CSE", "ECE")
		f.seedStudent(t, testStudent("CSE", 4, "c1", 2022))
		f.seedStudent(t, testStudent("ECE", 4, "e1", 2022))

		archived, failed, err := f.archival.ArchiveTerminalLevel(ctx, "admin")
		require.NoError(t, err)
		assert.Equal(t, []string{"ECE"}, failed)
		assert.Equal(t, 1, archived)

		f.student(t, "ECE", 4, "e1")
	})
}
