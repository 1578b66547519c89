package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mertcan/gradus/internal/app/models"
	"github.com/mertcan/gradus/internal/app/repositories"
	"github.com/mertcan/gradus/internal/pkg/apperrors"
	"github.com/mertcan/gradus/internal/pkg/docstore"
)

// CRMigrationService moves active representative assignments in lock-step
// with the students they represent. Assignments are a secondary index over
// enrollment, so one department failing is logged and skipped, never fatal.
type CRMigrationService struct {
	store       docstore.Store
	primary     repositories.AssignmentStore
	legacy      repositories.AssignmentStore
	flags       *repositories.RoleFlagsRepository
	departments *repositories.DepartmentRepository
	logger      zerolog.Logger
}

// NewCRMigrationService creates a new CRMigrationService
func NewCRMigrationService(
	store docstore.Store,
	primary repositories.AssignmentStore,
	legacy repositories.AssignmentStore,
	flags *repositories.RoleFlagsRepository,
	departments *repositories.DepartmentRepository,
	logger zerolog.Logger,
) *CRMigrationService {
	return &CRMigrationService{
		store:       store,
		primary:     primary,
		legacy:      legacy,
		flags:       flags,
		departments: departments,
		logger:      logger,
	}
}

// MigrateForLevel moves every active assignment from the source level key to
// the target level key, refreshes the batch year, and propagates the level
// change to the holder's role flags and the legacy shape. Inactive
// assignments are historical and stay where they are. Returns the
// departments that failed.
func (s *CRMigrationService) MigrateForLevel(ctx context.Context, fromLevel, toLevel, newAcademicYear int, actingIdentity string) []string {
	departments, err := s.departments.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).
			Str("stage", "cr-migration").
			Msg("Could not list departments, skipping CR migration for level")
		return []string{"*"}
	}

	return forEachDepartment(departments, func(dept string) error {
		if err := s.migratePartition(ctx, dept, fromLevel, toLevel, newAcademicYear, actingIdentity); err != nil {
			s.logger.Error().Err(err).
				Str("stage", "cr-migration").
				Str("department", dept).
				Int("fromLevel", fromLevel).
				Int("toLevel", toLevel).
				Msg("Department CR migration failed")
			return err
		}
		return nil
	})
}

func (s *CRMigrationService) migratePartition(ctx context.Context, dept string, fromLevel, toLevel, newAcademicYear int, actingIdentity string) error {
	active, err := s.primary.ListActive(ctx, fromLevel, dept)
	if err != nil {
		return err
	}

	now := time.Now()
	batchYear := models.JoiningYearFor(newAcademicYear, toLevel)

	for _, a := range active {
		moved := *a
		moved.YearLevel = toLevel
		moved.BatchYear = batchYear
		moved.MigratedAt = &now
		moved.MigratedBy = actingIdentity

		batch := s.store.Batch()
		s.primary.BatchUpsert(batch, &moved)
		s.primary.BatchDelete(batch, a)
		if err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("assignment %s: %w", a.ID, err)
		}

		s.propagateFlags(ctx, &moved)
		s.migrateLegacy(ctx, a, &moved, now)
	}
	return nil
}

// propagateFlags pushes the new level into the holder's role-flag
// projection, preferring the stored account id and falling back to an
// email-based profile lookup. Best-effort.
func (s *CRMigrationService) propagateFlags(ctx context.Context, a *models.CRAssignment) {
	accountID := a.AccountID
	if accountID == "" {
		var err error
		accountID, err = s.flags.FindAccountByEmail(ctx, a.Email)
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			s.logger.Warn().
				Str("assignment", a.ID).
				Str("email", a.Email).
				Msg("No profile found for migrated CR, flags left stale")
			return
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("assignment", a.ID).Msg("Profile lookup failed during CR migration")
			return
		}
	}

	batch := s.store.Batch()
	s.flags.BatchSet(batch, &models.RoleFlags{
		AccountID:        accountID,
		IsRepresentative: true,
		YearLevel:        a.YearLevel,
		Department:       a.Department,
		Slot:             a.Slot,
		Email:            a.Email,
		UpdatedAt:        time.Now(),
	})
	if err := batch.Commit(ctx); err != nil {
		s.logger.Warn().Err(err).
			Str("assignment", a.ID).
			Str("accountId", accountID).
			Msg("Role-flag propagation did not commit")
	}
}

// migrateLegacy mirrors the move into the legacy nested shape. Best-effort.
func (s *CRMigrationService) migrateLegacy(ctx context.Context, old, moved *models.CRAssignment, at time.Time) {
	batch := s.store.Batch()
	s.legacy.BatchUpsert(batch, moved)
	s.legacy.BatchDelete(batch, old)
	if err := batch.Commit(ctx); err != nil {
		s.logger.Warn().Err(err).
			Str("assignment", old.ID).
			Str("department", old.Department).
			Msg("Legacy assignment shape not updated")
	}
}
