package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mertcan/gradus/internal/app/models"
	"github.com/mertcan/gradus/internal/app/repositories"
	"github.com/mertcan/gradus/internal/pkg/docstore"
)

// ArchivalService extracts terminal-level students into the permanent
// graduate archive before migration runs.
type ArchivalService struct {
	store       docstore.Store
	students    *repositories.StudentRepository
	graduates   *repositories.GraduateRepository
	departments *repositories.DepartmentRepository
	flags       *repositories.RoleFlagsRepository
	primary     repositories.AssignmentStore
	legacy      repositories.AssignmentStore
	logger      zerolog.Logger
}

// NewArchivalService creates a new ArchivalService
func NewArchivalService(
	store docstore.Store,
	students *repositories.StudentRepository,
	graduates *repositories.GraduateRepository,
	departments *repositories.DepartmentRepository,
	flags *repositories.RoleFlagsRepository,
	primary repositories.AssignmentStore,
	legacy repositories.AssignmentStore,
	logger zerolog.Logger,
) *ArchivalService {
	return &ArchivalService{
		store:       store,
		students:    students,
		graduates:   graduates,
		departments: departments,
		flags:       flags,
		primary:     primary,
		legacy:      legacy,
		logger:      logger,
	}
}

// ArchiveTerminalLevel writes a graduate record for every terminal-level
// student and removes the student from the active partition, one bounded
// batch per chunk per department. Active representative assignments held by
// archived students are then deactivated best-effort, in the primary and the
// legacy shape independently; those failures are logged, never fatal.
func (s *ArchivalService) ArchiveTerminalLevel(ctx context.Context, actingIdentity string) (int, []string, error) {
	departments, err := s.departments.List(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("archival: %w", err)
	}

	var archived int64
	failed := forEachDepartment(departments, func(dept string) error {
		n, err := s.archivePartition(ctx, dept, actingIdentity)
		atomic.AddInt64(&archived, int64(n))
		if err != nil {
			s.logger.Error().Err(err).
				Str("stage", "graduate-archival").
				Str("department", dept).
				Msg("Department archival failed")
			return err
		}
		return nil
	})

	return int(archived), failed, nil
}

func (s *ArchivalService) archivePartition(ctx context.Context, dept, actingIdentity string) (int, error) {
	students, err := s.students.ListByPartition(ctx, dept, models.TerminalYearLevel)
	if err != nil {
		return 0, err
	}
	if len(students) == 0 {
		return 0, nil
	}

	now := time.Now()
	archived := 0
	for start := 0; start < len(students); start += repositories.TransplantChunkSize {
		end := start + repositories.TransplantChunkSize
		if end > len(students) {
			end = len(students)
		}

		batch := s.store.Batch()
		for _, student := range students[start:end] {
			// An existing archive record is never overwritten; the active
			// record is still removed so a re-run converges.
			exists, err := s.graduates.Exists(ctx, student.JoiningYear, student.ID)
			if err != nil {
				return archived, err
			}
			if !exists {
				s.graduates.BatchArchive(batch, models.NewGraduateRecord(student, now, actingIdentity))
			}
			s.students.BatchDelete(batch, student)
		}
		if err := batch.Commit(ctx); err != nil {
			return archived, fmt.Errorf("chunk %d..%d: %w", start, end, err)
		}
		archived += end - start
	}

	s.logger.Info().
		Str("department", dept).
		Int("archived", archived).
		Msg("Terminal cohort archived")

	// CR cleanup is secondary to getting graduates archived.
	s.deactivateGraduatedCRs(ctx, s.primary, "primary", dept, students)
	s.deactivateGraduatedCRs(ctx, s.legacy, "legacy", dept, students)
	return archived, nil
}

// deactivateGraduatedCRs ends any active assignment held by one of the
// archived students in the given storage shape. Best-effort.
func (s *ArchivalService) deactivateGraduatedCRs(ctx context.Context, store repositories.AssignmentStore, shape, dept string, graduated []*models.Student) {
	active, err := store.ListActive(ctx, models.TerminalYearLevel, dept)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("shape", shape).
			Str("department", dept).
			Msg("Could not list assignments for graduate cleanup")
		return
	}
	if len(active) == 0 {
		return
	}

	byID := make(map[string]*models.Student, len(graduated))
	for _, g := range graduated {
		byID[g.ID] = g
	}

	now := time.Now()
	batch := s.store.Batch()
	for _, a := range active {
		var matched *models.Student
		if a.StudentID != "" {
			matched = byID[a.StudentID]
		}
		if matched == nil {
			for _, g := range graduated {
				if a.Matches(g.ID, g.Email) {
					matched = g
					break
				}
			}
		}
		if matched == nil {
			continue
		}
		store.BatchDeactivate(batch, a, now, models.ReasonRevoked)
		if a.AccountID != "" {
			s.flags.BatchClear(batch, a.AccountID)
		}
	}
	if batch.Len() == 0 {
		return
	}
	if err := batch.Commit(ctx); err != nil {
		s.logger.Warn().Err(err).
			Str("shape", shape).
			Str("department", dept).
			Msg("Graduate CR cleanup did not commit")
	}
}
