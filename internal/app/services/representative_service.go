package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/mertcan/gradus/internal/app/models"
	"github.com/mertcan/gradus/internal/app/repositories"
	"github.com/mertcan/gradus/internal/pkg/apperrors"
	"github.com/mertcan/gradus/internal/pkg/auth"
	"github.com/mertcan/gradus/internal/pkg/docstore"
	"github.com/mertcan/gradus/internal/pkg/identity"
)

// RepresentativeService drives the slot assignment state machine:
// Unassigned → Active → {Replaced | Deactivated | Deleted}. Every mutation
// keeps the student flag and the role-flag projection in step with the
// authoritative assignment record inside one batch.
type RepresentativeService struct {
	store       docstore.Store
	students    *repositories.StudentRepository
	departments *repositories.DepartmentRepository
	primary     repositories.AssignmentStore
	flags       *repositories.RoleFlagsRepository
	idp         identity.Provider
	clock       *YearClock
	validate    *validator.Validate
	logger      zerolog.Logger
}

// NewRepresentativeService creates a new RepresentativeService
func NewRepresentativeService(
	store docstore.Store,
	students *repositories.StudentRepository,
	departments *repositories.DepartmentRepository,
	primary repositories.AssignmentStore,
	flags *repositories.RoleFlagsRepository,
	idp identity.Provider,
	clock *YearClock,
	logger zerolog.Logger,
) *RepresentativeService {
	return &RepresentativeService{
		store:       store,
		students:    students,
		departments: departments,
		primary:     primary,
		flags:       flags,
		idp:         idp,
		clock:       clock,
		validate:    validator.New(),
		logger:      logger,
	}
}

// AssignInput identifies the slot and the student taking it. Slot may be
// empty: the first free slot is taken in fixed order, and when both are
// occupied the caller must choose explicitly.
type AssignInput struct {
	YearLevel      int
	Department     string
	Slot           models.SlotID
	StudentID      string
	ActingIdentity string
}

// AssignResult reports the new assignment. Credential carries the generated
// plaintext exactly once for a freshly created account, or the reset-pending
// marker when the holder already had one.
type AssignResult struct {
	Assignment     *models.CRAssignment `json:"assignment"`
	AccountID      string               `json:"accountId"`
	AccountCreated bool                 `json:"accountCreated"`
	Credential     string               `json:"credential"`
}

// RepairResult reports what a projection repair fixed.
type RepairResult struct {
	StudentFlagsRepaired int `json:"studentFlagsRepaired"`
	RoleFlagsRepaired    int `json:"roleFlagsRepaired"`
}

// Assign makes a student the active holder of a slot. The identity-provider
// call happens before the batch; if the batch then fails, the account is left
// behind and the error says so — a re-run finds the account by email and
// proceeds without creating another.
func (s *RepresentativeService) Assign(ctx context.Context, in AssignInput) (*AssignResult, error) {
	student, err := s.resolveStudent(ctx, in.YearLevel, in.Department, in.StudentID)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Var(student.Email, "required,email"); err != nil {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrMalformedEmail, student.Email)
	}

	slot, err := s.resolveSlot(ctx, in.YearLevel, in.Department, in.Slot)
	if err != nil {
		return nil, err
	}

	// Identity first: the account must exist before the assignment that
	// references it. This ordering cannot be batched away, hence
	// ErrAssignmentIncomplete below.
	accountID, credential, created, err := s.prepareAccount(ctx, student)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	batch := s.store.Batch()

	prior, err := s.collectPriorHolders(ctx, in.YearLevel, in.Department, slot, student)
	if err != nil {
		return nil, err
	}
	for _, p := range prior {
		s.primary.BatchDeactivate(batch, p, now, models.ReasonReplaced)
		s.clearHolderProjections(ctx, batch, p, student.ID)
	}

	s.students.BatchSetRepresentative(batch, in.Department, in.YearLevel, student.ID, true)

	assignment := &models.CRAssignment{
		ID:           repositories.NewAssignmentID(),
		Slot:         slot,
		StudentID:    student.ID,
		AccountID:    accountID,
		Name:         student.Name,
		Email:        student.Email,
		YearLevel:    in.YearLevel,
		BatchYear:    models.JoiningYearFor(s.clock.Current(ctx), in.YearLevel),
		Department:   in.Department,
		Active:       true,
		AssignedAt:   now,
		AssignedBy:   in.ActingIdentity,
		PasswordNote: credential,
	}
	s.primary.BatchUpsert(batch, assignment)

	s.flags.BatchSet(batch, &models.RoleFlags{
		AccountID:        accountID,
		IsRepresentative: true,
		YearLevel:        in.YearLevel,
		Department:       in.Department,
		Slot:             slot,
		Email:            student.Email,
		UpdatedAt:        now,
	})

	if err := batch.Commit(ctx); err != nil {
		s.logger.Error().Err(err).
			Str("email", student.Email).
			Str("accountId", accountID).
			Bool("accountCreated", created).
			Msg("Assignment batch failed after identity call")
		return nil, apperrors.NewCustomError(apperrors.ErrAssignmentIncomplete, err.Error()).
			WithDetails(map[string]interface{}{
				"accountId": accountID,
				"email":     student.Email,
			})
	}

	s.logger.Info().
		Str("slot", string(slot)).
		Str("department", in.Department).
		Int("yearLevel", in.YearLevel).
		Str("student", student.ID).
		Bool("accountCreated", created).
		Msg("Representative assigned")

	return &AssignResult{
		Assignment:     assignment,
		AccountID:      accountID,
		AccountCreated: created,
		Credential:     credential,
	}, nil
}

// Replace puts a new holder into an occupied slot. Replacing a student with
// themselves is rejected.
func (s *RepresentativeService) Replace(ctx context.Context, in AssignInput) (*AssignResult, error) {
	if !models.ValidSlot(in.Slot) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidSlot, in.Slot)
	}

	student, err := s.resolveStudent(ctx, in.YearLevel, in.Department, in.StudentID)
	if err != nil {
		return nil, err
	}

	current, err := s.primary.FindActiveBySlot(ctx, in.YearLevel, in.Department, in.Slot)
	if err != nil {
		return nil, err
	}
	if current != nil && current.Matches(student.ID, student.Email) {
		return nil, apperrors.ErrSelfReplacement
	}

	return s.Assign(ctx, in)
}

// Deactivate ends the active assignment on a slot, keeping the record as
// history.
func (s *RepresentativeService) Deactivate(ctx context.Context, yearLevel int, dept string, slot models.SlotID, actingIdentity string) error {
	return s.revokeSlot(ctx, yearLevel, dept, slot, actingIdentity, false)
}

// Delete ends the active assignment on a slot and removes the document. A
// later assignment starts a fresh document.
func (s *RepresentativeService) Delete(ctx context.Context, yearLevel int, dept string, slot models.SlotID, actingIdentity string) error {
	return s.revokeSlot(ctx, yearLevel, dept, slot, actingIdentity, true)
}

// Remove is the student-keyed entry point: it finds whatever active
// assignments the student holds in the partition and performs the same
// cleanup as Deactivate.
func (s *RepresentativeService) Remove(ctx context.Context, yearLevel int, dept, studentID, actingIdentity string) error {
	if err := s.validatePartition(ctx, yearLevel, dept); err != nil {
		return err
	}

	student, err := s.students.Get(ctx, dept, yearLevel, studentID)
	if err != nil {
		return err
	}

	matches, err := s.primary.FindByStudent(ctx, yearLevel, dept, student.ID, student.Email)
	if err != nil {
		return err
	}

	now := time.Now()
	batch := s.store.Batch()
	found := false
	for _, a := range matches {
		if !a.Active {
			continue
		}
		found = true
		s.primary.BatchDeactivate(batch, a, now, models.ReasonRevoked)
		s.clearHolderProjections(ctx, batch, a, "")
	}
	if !found {
		return apperrors.ErrAssignmentNotFound
	}
	s.students.BatchSetRepresentative(batch, dept, yearLevel, student.ID, false)

	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("failed to remove representative: %w", err)
	}
	s.logger.Info().
		Str("student", studentID).
		Str("department", dept).
		Int("yearLevel", yearLevel).
		Msg("Representative removed")
	return nil
}

// ListActive returns the active assignments of a partition.
func (s *RepresentativeService) ListActive(ctx context.Context, yearLevel int, dept string) ([]*models.CRAssignment, error) {
	if err := s.validatePartition(ctx, yearLevel, dept); err != nil {
		return nil, err
	}
	return s.primary.ListActive(ctx, yearLevel, dept)
}

// RepairProjections reconciles the student flags and role-flag projections of
// one partition against the authoritative assignment records. Stand-alone
// job; run it whenever best-effort propagation is suspected to have drifted.
func (s *RepresentativeService) RepairProjections(ctx context.Context, yearLevel int, dept string) (*RepairResult, error) {
	if err := s.validatePartition(ctx, yearLevel, dept); err != nil {
		return nil, err
	}

	active, err := s.primary.ListActive(ctx, yearLevel, dept)
	if err != nil {
		return nil, err
	}
	students, err := s.students.ListByPartition(ctx, dept, yearLevel)
	if err != nil {
		return nil, err
	}

	result := &RepairResult{}
	now := time.Now()
	batch := s.store.Batch()

	activeStudents := make(map[string]bool, len(active))
	activeAccounts := make(map[string]bool, len(active))

	for _, a := range active {
		if a.StudentID != "" {
			activeStudents[a.StudentID] = true
		}

		accountID := a.AccountID
		if accountID == "" {
			accountID, err = s.flags.FindAccountByEmail(ctx, a.Email)
			if err != nil {
				continue
			}
		}
		activeAccounts[accountID] = true

		current, err := s.flags.Get(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if current == nil || !current.IsRepresentative ||
			current.YearLevel != yearLevel || current.Department != dept || current.Slot != a.Slot {
			s.flags.BatchSet(batch, &models.RoleFlags{
				AccountID:        accountID,
				IsRepresentative: true,
				YearLevel:        yearLevel,
				Department:       dept,
				Slot:             a.Slot,
				Email:            a.Email,
				UpdatedAt:        now,
			})
			result.RoleFlagsRepaired++
		}
	}

	for _, student := range students {
		if student.IsRepresentative != activeStudents[student.ID] {
			s.students.BatchSetRepresentative(batch, dept, yearLevel, student.ID, activeStudents[student.ID])
			result.StudentFlagsRepaired++
		}
	}

	flagged, err := s.flags.ListRepresentatives(ctx, yearLevel, dept)
	if err != nil {
		return nil, err
	}
	for _, f := range flagged {
		if !activeAccounts[f.AccountID] {
			s.flags.BatchClear(batch, f.AccountID)
			result.RoleFlagsRepaired++
		}
	}

	if batch.Len() > 0 {
		if err := batch.Commit(ctx); err != nil {
			return nil, fmt.Errorf("projection repair did not commit: %w", err)
		}
	}

	s.logger.Info().
		Str("department", dept).
		Int("yearLevel", yearLevel).
		Int("studentFlags", result.StudentFlagsRepaired).
		Int("roleFlags", result.RoleFlagsRepaired).
		Msg("Projection repair completed")
	return result, nil
}

// revokeSlot locates the active holder of a slot and ends the assignment,
// flipping it inactive or deleting the document outright.
func (s *RepresentativeService) revokeSlot(ctx context.Context, yearLevel int, dept string, slot models.SlotID, actingIdentity string, remove bool) error {
	if err := s.validatePartition(ctx, yearLevel, dept); err != nil {
		return err
	}
	if !models.ValidSlot(slot) {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidSlot, slot)
	}

	a, err := s.primary.FindActiveBySlot(ctx, yearLevel, dept, slot)
	if err != nil {
		return err
	}
	if a == nil {
		return apperrors.ErrAssignmentNotFound
	}

	now := time.Now()
	batch := s.store.Batch()
	if remove {
		s.primary.BatchDelete(batch, a)
	} else {
		s.primary.BatchDeactivate(batch, a, now, models.ReasonRevoked)
	}
	s.clearHolderProjections(ctx, batch, a, "")

	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("failed to end assignment %s: %w", a.ID, err)
	}

	s.logger.Info().
		Str("slot", string(slot)).
		Str("department", dept).
		Int("yearLevel", yearLevel).
		Bool("deleted", remove).
		Msg("Representative assignment ended")
	return nil
}

// clearHolderProjections queues the cleanup of a holder's student flag and
// role flags. The student flag is skipped when the holder is the student
// being assigned right now (keepStudentID) so the later set wins.
func (s *RepresentativeService) clearHolderProjections(ctx context.Context, batch docstore.Batch, a *models.CRAssignment, keepStudentID string) {
	if a.StudentID != "" && a.StudentID != keepStudentID {
		s.students.BatchSetRepresentative(batch, a.Department, a.YearLevel, a.StudentID, false)
	}

	accountID := a.AccountID
	if accountID == "" && a.Email != "" {
		if found, err := s.flags.FindAccountByEmail(ctx, a.Email); err == nil {
			accountID = found
		}
	}
	if accountID != "" {
		s.flags.BatchClear(batch, accountID)
	}
}

// prepareAccount ensures the student has an identity account. A fresh
// account gets a generated credential disclosed once; an existing one gets a
// reset dispatch and its password is never touched.
func (s *RepresentativeService) prepareAccount(ctx context.Context, student *models.Student) (accountID, credential string, created bool, err error) {
	accountID, err = s.idp.FindAccountByEmail(ctx, student.Email)
	if err == nil {
		if err := s.idp.SendPasswordReset(ctx, student.Email); err != nil {
			return "", "", false, fmt.Errorf("failed to dispatch password reset: %w", err)
		}
		return accountID, models.PasswordNoteResetPending, false, nil
	}
	if !errors.Is(err, identity.ErrAccountNotFound) {
		return "", "", false, fmt.Errorf("identity lookup failed: %w", err)
	}

	password, err := auth.GenerateInitialPassword(student.FirstName())
	if err != nil {
		return "", "", false, err
	}
	accountID, err = s.idp.CreateAccount(ctx, student.Email, password)
	if errors.Is(err, identity.ErrAccountExists) {
		// Lost a race; fold back to the existing-account path.
		accountID, err = s.idp.FindAccountByEmail(ctx, student.Email)
		if err != nil {
			return "", "", false, fmt.Errorf("identity lookup failed: %w", err)
		}
		if err := s.idp.SendPasswordReset(ctx, student.Email); err != nil {
			return "", "", false, fmt.Errorf("failed to dispatch password reset: %w", err)
		}
		return accountID, models.PasswordNoteResetPending, false, nil
	}
	if err != nil {
		return "", "", false, fmt.Errorf("account creation failed: %w", err)
	}
	return accountID, password, true, nil
}

// resolveSlot honors an explicit slot id and otherwise picks the first free
// slot in fixed order. With both slots occupied and no explicit choice, the
// call is rejected rather than silently replacing slot-1.
func (s *RepresentativeService) resolveSlot(ctx context.Context, yearLevel int, dept string, slot models.SlotID) (models.SlotID, error) {
	if slot != "" {
		if !models.ValidSlot(slot) {
			return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidSlot, slot)
		}
		return slot, nil
	}

	for _, candidate := range models.SlotOrder {
		holder, err := s.primary.FindActiveBySlot(ctx, yearLevel, dept, candidate)
		if err != nil {
			return "", err
		}
		if holder == nil {
			return candidate, nil
		}
	}
	return "", apperrors.ErrSlotChoiceRequired
}

// collectPriorHolders gathers every active assignment the new one displaces:
// the slot's current holder plus any record already pointing at the same
// student or email, catching legacy entries without canonical slot ids.
func (s *RepresentativeService) collectPriorHolders(ctx context.Context, yearLevel int, dept string, slot models.SlotID, student *models.Student) ([]*models.CRAssignment, error) {
	seen := make(map[string]bool)
	var prior []*models.CRAssignment

	holder, err := s.primary.FindActiveBySlot(ctx, yearLevel, dept, slot)
	if err != nil {
		return nil, err
	}
	if holder != nil {
		seen[holder.ID] = true
		prior = append(prior, holder)
	}

	matches, err := s.primary.FindByStudent(ctx, yearLevel, dept, student.ID, student.Email)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if m.Active && !seen[m.ID] {
			seen[m.ID] = true
			prior = append(prior, m)
		}
	}
	return prior, nil
}

func (s *RepresentativeService) resolveStudent(ctx context.Context, yearLevel int, dept, studentID string) (*models.Student, error) {
	if err := s.validatePartition(ctx, yearLevel, dept); err != nil {
		return nil, err
	}
	return s.students.Get(ctx, dept, yearLevel, studentID)
}

func (s *RepresentativeService) validatePartition(ctx context.Context, yearLevel int, dept string) error {
	if !models.ValidYearLevel(yearLevel) {
		return fmt.Errorf("%w: %d", apperrors.ErrInvalidYearLevel, yearLevel)
	}
	if _, err := s.departments.Get(ctx, dept); err != nil {
		return err
	}
	return nil
}
