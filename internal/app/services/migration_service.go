package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mertcan/gradus/internal/app/models"
	"github.com/mertcan/gradus/internal/app/repositories"
	"github.com/mertcan/gradus/internal/pkg/apperrors"
	"github.com/mertcan/gradus/internal/pkg/docstore"
)

// MigrationService advances students one level at a time across the
// year-keyed partitions.
type MigrationService struct {
	store       docstore.Store
	students    *repositories.StudentRepository
	departments *repositories.DepartmentRepository
	logger      zerolog.Logger
}

// NewMigrationService creates a new MigrationService
func NewMigrationService(
	store docstore.Store,
	students *repositories.StudentRepository,
	departments *repositories.DepartmentRepository,
	logger zerolog.Logger,
) *MigrationService {
	return &MigrationService{
		store:       store,
		students:    students,
		departments: departments,
		logger:      logger,
	}
}

// MigrateLevel moves every student at fromLevel into toLevel across all
// departments. Each student's joining year is recomputed from the new
// academic year; each record moves as one set-plus-delete inside a bounded
// batch. A department failing mid-way is logged and reported; the remaining
// departments still run. Re-running after success finds no source documents
// and is a no-op.
func (s *MigrationService) MigrateLevel(ctx context.Context, fromLevel, toLevel, newAcademicYear int, actingIdentity string) (int, []string, error) {
	if !models.ValidYearLevel(fromLevel) || !models.ValidYearLevel(toLevel) || toLevel != fromLevel+1 {
		return 0, nil, fmt.Errorf("%w: cannot migrate level %d to %d", apperrors.ErrInvalidYearLevel, fromLevel, toLevel)
	}

	departments, err := s.departments.List(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("migration %d→%d: %w", fromLevel, toLevel, err)
	}

	var migrated int64
	failed := forEachDepartment(departments, func(dept string) error {
		n, err := s.migratePartition(ctx, dept, fromLevel, toLevel, newAcademicYear, actingIdentity)
		atomic.AddInt64(&migrated, int64(n))
		if err != nil {
			s.logger.Error().Err(err).
				Str("stage", "student-migration").
				Str("department", dept).
				Int("fromLevel", fromLevel).
				Int("toLevel", toLevel).
				Msg("Department migration failed")
			return err
		}
		return nil
	})

	return int(migrated), failed, nil
}

// migratePartition transplants one department's cohort, chunked to the batch
// bound. Returns how many students committed even when a later chunk fails.
func (s *MigrationService) migratePartition(ctx context.Context, dept string, fromLevel, toLevel, newAcademicYear int, actingIdentity string) (int, error) {
	students, err := s.students.ListByPartition(ctx, dept, fromLevel)
	if err != nil {
		return 0, err
	}
	if len(students) == 0 {
		return 0, nil
	}

	joiningYear := models.JoiningYearFor(newAcademicYear, toLevel)
	now := time.Now()

	migrated := 0
	for start := 0; start < len(students); start += repositories.TransplantChunkSize {
		end := start + repositories.TransplantChunkSize
		if end > len(students) {
			end = len(students)
		}

		batch := s.store.Batch()
		for _, student := range students[start:end] {
			s.students.BatchTransplant(batch, student, toLevel, joiningYear, now, actingIdentity)
		}
		if err := batch.Commit(ctx); err != nil {
			return migrated, fmt.Errorf("chunk %d..%d: %w", start, end, err)
		}
		migrated += end - start
	}

	s.logger.Info().
		Str("department", dept).
		Int("fromLevel", fromLevel).
		Int("toLevel", toLevel).
		Int("migrated", migrated).
		Int("joiningYear", joiningYear).
		Msg("Department cohort migrated")
	return migrated, nil
}
