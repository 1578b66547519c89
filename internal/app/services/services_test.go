package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mertcan/gradus/internal/app/models"
	"github.com/mertcan/gradus/internal/app/repositories"
	"github.com/mertcan/gradus/internal/pkg/docstore"
	"github.com/mertcan/gradus/internal/pkg/identity"
)

// fixture wires every service over a single in-memory store and identity
// provider, the way bootstrap wires the real ones.
type fixture struct {
	store     docstore.Store
	repos     *repositories.Repositories
	idp       *identity.MemoryProvider
	clock     *YearClock
	migration *MigrationService
	archival  *ArchivalService
	crs       *CRMigrationService
	promotion *PromotionService
	reps      *RepresentativeService
}

func newFixture(t *testing.T, store docstore.Store, year int, departments ...string) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()

	repos := repositories.NewRepositories(store)
	require.NoError(t, repos.DepartmentRepository.Ensure(ctx, departments))
	require.NoError(t, repos.SettingsRepository.SaveYear(ctx, &models.YearSettings{
		CurrentYear: year,
		LastUpdated: time.Now(),
		UpdatedBy:   models.UpdatedBySystem,
	}))

	idp := identity.NewMemoryProvider()
	clock := NewYearClock(repos.SettingsRepository, year, logger)
	migration := NewMigrationService(store, repos.StudentRepository, repos.DepartmentRepository, logger)
	archival := NewArchivalService(store, repos.StudentRepository, repos.GraduateRepository,
		repos.DepartmentRepository, repos.RoleFlagsRepository,
		repos.PrimaryAssignments, repos.LegacyAssignments, logger)
	crs := NewCRMigrationService(store, repos.PrimaryAssignments, repos.LegacyAssignments,
		repos.RoleFlagsRepository, repos.DepartmentRepository, logger)

	return &fixture{
		store:     store,
		repos:     repos,
		idp:       idp,
		clock:     clock,
		migration: migration,
		archival:  archival,
		crs:       crs,
		promotion: NewPromotionService(clock, repos.SettingsRepository, archival, migration, crs, logger),
		reps: NewRepresentativeService(store, repos.StudentRepository, repos.DepartmentRepository,
			repos.PrimaryAssignments, repos.RoleFlagsRepository, idp, clock, logger),
	}
}

func newMemoryFixture(t *testing.T, year int, departments ...string) *fixture {
	t.Helper()
	return newFixture(t, docstore.NewMemoryStore(), year, departments...)
}

func (f *fixture) seedStudent(t *testing.T, s *models.Student) {
	t.Helper()
	path := fmt.Sprintf("students/%s/level-%d/%s", s.Department, s.YearLevel, s.ID)
	err := f.store.Set(context.Background(), path, map[string]interface{}{
		"rollNo":           s.RollNo,
		"name":             s.Name,
		"email":            s.Email,
		"yearLevel":        s.YearLevel,
		"academicYear":     s.JoiningYear,
		"department":       s.Department,
		"isRepresentative": s.IsRepresentative,
	}, false)
	require.NoError(t, err)
}

func (f *fixture) seedAssignment(t *testing.T, a *models.CRAssignment) {
	t.Helper()
	b := f.store.Batch()
	f.repos.PrimaryAssignments.BatchUpsert(b, a)
	require.NoError(t, b.Commit(context.Background()))
}

func (f *fixture) seedLegacyAssignment(t *testing.T, a *models.CRAssignment) {
	t.Helper()
	b := f.store.Batch()
	f.repos.LegacyAssignments.BatchUpsert(b, a)
	require.NoError(t, b.Commit(context.Background()))
}

func (f *fixture) student(t *testing.T, dept string, level int, id string) *models.Student {
	t.Helper()
	s, err := f.repos.StudentRepository.Get(context.Background(), dept, level, id)
	require.NoError(t, err)
	return s
}

func testStudent(dept string, level int, id string, joiningYear int) *models.Student {
	return &models.Student{
		ID:          id,
		RollNo:      "R-" + id,
		Name:        "Student " + id,
		Email:       id + "@example.edu",
		YearLevel:   level,
		JoiningYear: joiningYear,
		Department:  dept,
	}
}

// flakyStore injects commit failures into every batch that touches a path
// with the configured prefix. Reads and single writes pass through.
type flakyStore struct {
	docstore.Store
	failPrefix string
}

func (s *flakyStore) Batch() docstore.Batch {
	return &flakyBatch{inner: s.Store.Batch(), prefix: s.failPrefix}
}

type flakyBatch struct {
	inner   docstore.Batch
	prefix  string
	tripped bool
}

func (b *flakyBatch) Set(path string, fields map[string]interface{}, merge bool) {
	if strings.HasPrefix(path, b.prefix) {
		b.tripped = true
	}
	b.inner.Set(path, fields, merge)
}

func (b *flakyBatch) Delete(path string) {
	if strings.HasPrefix(path, b.prefix) {
		b.tripped = true
	}
	b.inner.Delete(path)
}

func (b *flakyBatch) Len() int { return b.inner.Len() }

func (b *flakyBatch) Commit(ctx context.Context) error {
	if b.tripped {
		return errors.New("injected commit failure")
	}
	return b.inner.Commit(ctx)
}
