package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mertcan/gradus/internal/app/models"
	"github.com/mertcan/gradus/internal/app/repositories"
	"github.com/mertcan/gradus/internal/pkg/apperrors"
)

// promotionSteps lists the level transitions in the order they must run:
// highest first, so a cohort is never read at its source level after it was
// already written to its target level within the same run.
var promotionSteps = []struct {
	from, to int
}{
	{3, 4},
	{2, 3},
	{1, 2},
}

// PromotionResult reports what a promotion run committed. FailedPartitions
// names stage/department pairs that did not commit; re-running the promotion
// converges them, since every stage only acts on documents still present at
// their source.
type PromotionResult struct {
	FromYear         int      `json:"fromYear"`
	ToYear           int      `json:"toYear"`
	Archived         int      `json:"archived"`
	Migrated         int      `json:"migrated"`
	FailedPartitions []string `json:"failedPartitions,omitempty"`
}

// PromotionService orchestrates a full promotion run: archival, student
// migration per level, CR migration per level, then the year advance.
type PromotionService struct {
	clock       *YearClock
	settings    *repositories.SettingsRepository
	archival    *ArchivalService
	migration   *MigrationService
	crMigration *CRMigrationService
	logger      zerolog.Logger

	mu sync.Mutex
}

// NewPromotionService creates a new PromotionService
func NewPromotionService(
	clock *YearClock,
	settings *repositories.SettingsRepository,
	archival *ArchivalService,
	migration *MigrationService,
	crMigration *CRMigrationService,
	logger zerolog.Logger,
) *PromotionService {
	return &PromotionService{
		clock:       clock,
		settings:    settings,
		archival:    archival,
		migration:   migration,
		crMigration: crMigration,
		logger:      logger,
	}
}

// Promote advances the whole institution by one academic year. Stages that
// already committed are never rolled back; a failing stage surfaces as an
// error alongside whatever the earlier stages achieved. The persisted year
// moves only at the very end, after all dependent data has moved, so readers
// observe either the old or the new year and nothing else.
func (s *PromotionService) Promote(ctx context.Context, actingIdentity string) (*PromotionResult, error) {
	if !s.mu.TryLock() {
		return nil, apperrors.ErrPromotionInProgress
	}
	defer s.mu.Unlock()

	startYear := s.clock.Current(ctx)

	// Guard against a promotion that already ran elsewhere: the persisted
	// year must still match the value this run starts from.
	persisted, err := s.settings.GetYear(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot verify academic year before promotion: %w", err)
	}
	if persisted.CurrentYear != startYear {
		return nil, apperrors.NewCustomError(apperrors.ErrPromotionConflict,
			fmt.Sprintf("expected year %d, storage holds %d", startYear, persisted.CurrentYear))
	}

	newYear := startYear + 1
	result := &PromotionResult{FromYear: startYear, ToYear: newYear}

	s.logger.Info().
		Int("fromYear", startYear).
		Int("toYear", newYear).
		Str("actingIdentity", actingIdentity).
		Msg("Promotion started")

	archived, failed, err := s.archival.ArchiveTerminalLevel(ctx, actingIdentity)
	result.Archived = archived
	result.FailedPartitions = append(result.FailedPartitions, tagPartitions("archive", failed)...)
	if err != nil {
		return result, fmt.Errorf("graduate archival stage failed: %w", err)
	}

	for _, step := range promotionSteps {
		migrated, failed, err := s.migration.MigrateLevel(ctx, step.from, step.to, newYear, actingIdentity)
		result.Migrated += migrated
		result.FailedPartitions = append(result.FailedPartitions,
			tagPartitions(fmt.Sprintf("migrate-%d-%d", step.from, step.to), failed)...)
		if err != nil {
			return result, fmt.Errorf("student migration %d→%d failed: %w", step.from, step.to, err)
		}

		crFailed := s.crMigration.MigrateForLevel(ctx, step.from, step.to, newYear, actingIdentity)
		result.FailedPartitions = append(result.FailedPartitions,
			tagPartitions(fmt.Sprintf("cr-migrate-%d-%d", step.from, step.to), crFailed)...)
	}

	err = s.settings.SaveYear(ctx, &models.YearSettings{
		CurrentYear:  newYear,
		PreviousYear: startYear,
		LastUpdated:  time.Now(),
		UpdatedBy:    actingIdentity,
	})
	if err != nil {
		// Data has moved but the year did not advance; re-running the
		// promotion is not the fix here, only the year write needs retrying.
		return result, fmt.Errorf("promotion stages committed but the academic year was not persisted: %w", err)
	}
	s.clock.SetCurrent(newYear)

	s.logger.Info().
		Int("year", newYear).
		Int("archived", result.Archived).
		Int("migrated", result.Migrated).
		Int("failedPartitions", len(result.FailedPartitions)).
		Msg("Promotion completed")
	return result, nil
}

func tagPartitions(stage string, departments []string) []string {
	tagged := make([]string, 0, len(departments))
	for _, d := range departments {
		tagged = append(tagged, stage+"/"+d)
	}
	return tagged
}
