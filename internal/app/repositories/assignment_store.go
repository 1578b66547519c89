package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mertcan/gradus/internal/app/models"
	"github.com/mertcan/gradus/internal/pkg/docstore"
)

// AssignmentStore is the narrow interface both representative storage shapes
// implement. The migration and assignment logic runs against this interface
// so the legacy shape can be retired without touching it.
type AssignmentStore interface {
	// ListAll returns every assignment in a partition, active or not.
	ListAll(ctx context.Context, level int, dept string) ([]*models.CRAssignment, error)
	// ListActive returns the active assignments in a partition.
	ListActive(ctx context.Context, level int, dept string) ([]*models.CRAssignment, error)
	// FindActiveBySlot returns the active holder of a slot, or nil when the
	// slot is vacant.
	FindActiveBySlot(ctx context.Context, level int, dept string, slot models.SlotID) (*models.CRAssignment, error)
	// FindByStudent returns every assignment in a partition matching the
	// student by id or email, catching legacy records without canonical ids.
	FindByStudent(ctx context.Context, level int, dept, studentID, email string) ([]*models.CRAssignment, error)
	// BatchUpsert writes the assignment at the location derived from its
	// year level, department and id.
	BatchUpsert(b docstore.Batch, a *models.CRAssignment)
	// BatchDeactivate flips the assignment inactive, stamping the timestamp
	// appropriate to the reason.
	BatchDeactivate(b docstore.Batch, a *models.CRAssignment, at time.Time, reason models.RevocationReason)
	// BatchDelete removes the assignment record entirely.
	BatchDelete(b docstore.Batch, a *models.CRAssignment)
}

// PrimaryAssignmentStore is the authoritative assignment-tracking collection,
// one document per assignment.
type PrimaryAssignmentStore struct {
	store docstore.Store
}

// NewPrimaryAssignmentStore creates the authoritative assignment store.
func NewPrimaryAssignmentStore(store docstore.Store) *PrimaryAssignmentStore {
	return &PrimaryAssignmentStore{store: store}
}

// NewAssignmentID mints an id for a fresh assignment document.
func NewAssignmentID() string {
	return uuid.New().String()
}

// ListAll returns every assignment in a partition.
func (r *PrimaryAssignmentStore) ListAll(ctx context.Context, level int, dept string) ([]*models.CRAssignment, error) {
	docs, err := r.store.List(ctx, assignmentCollection(level, dept))
	if err != nil {
		return nil, fmt.Errorf("error listing assignments %s level %d: %w", dept, level, err)
	}

	assignments := make([]*models.CRAssignment, 0, len(docs))
	for _, doc := range docs {
		assignments = append(assignments, assignmentFromFields(doc.ID(), level, dept, doc.Fields))
	}
	return assignments, nil
}

// ListActive returns the active assignments in a partition.
func (r *PrimaryAssignmentStore) ListActive(ctx context.Context, level int, dept string) ([]*models.CRAssignment, error) {
	all, err := r.ListAll(ctx, level, dept)
	if err != nil {
		return nil, err
	}
	active := make([]*models.CRAssignment, 0, len(all))
	for _, a := range all {
		if a.Active {
			active = append(active, a)
		}
	}
	return active, nil
}

// FindActiveBySlot returns the active holder of a slot, or nil.
func (r *PrimaryAssignmentStore) FindActiveBySlot(ctx context.Context, level int, dept string, slot models.SlotID) (*models.CRAssignment, error) {
	active, err := r.ListActive(ctx, level, dept)
	if err != nil {
		return nil, err
	}
	for _, a := range active {
		if a.Slot == slot {
			return a, nil
		}
	}
	return nil, nil
}

// FindByStudent returns assignments matching the student by id or email.
func (r *PrimaryAssignmentStore) FindByStudent(ctx context.Context, level int, dept, studentID, email string) ([]*models.CRAssignment, error) {
	all, err := r.ListAll(ctx, level, dept)
	if err != nil {
		return nil, err
	}
	var matches []*models.CRAssignment
	for _, a := range all {
		if a.Matches(studentID, email) {
			matches = append(matches, a)
		}
	}
	return matches, nil
}

// BatchUpsert writes the assignment document.
func (r *PrimaryAssignmentStore) BatchUpsert(b docstore.Batch, a *models.CRAssignment) {
	b.Set(assignmentPath(a.YearLevel, a.Department, a.ID), assignmentToFields(a), true)
}

// BatchDeactivate flips the assignment inactive in place.
func (r *PrimaryAssignmentStore) BatchDeactivate(b docstore.Batch, a *models.CRAssignment, at time.Time, reason models.RevocationReason) {
	fields := map[string]interface{}{
		"active": false,
	}
	if reason == models.ReasonReplaced {
		fields["replacedAt"] = encodeTime(at)
	} else {
		fields["revokedAt"] = encodeTime(at)
	}
	b.Set(assignmentPath(a.YearLevel, a.Department, a.ID), fields, true)
}

// BatchDelete removes the assignment document.
func (r *PrimaryAssignmentStore) BatchDelete(b docstore.Batch, a *models.CRAssignment) {
	b.Delete(assignmentPath(a.YearLevel, a.Department, a.ID))
}

func assignmentToFields(a *models.CRAssignment) map[string]interface{} {
	fields := map[string]interface{}{
		"slot":        string(a.Slot),
		"studentId":   a.StudentID,
		"accountId":   a.AccountID,
		"name":        a.Name,
		"email":       a.Email,
		"year":        a.YearLevel,
		"currentYear": a.BatchYear,
		"department":  a.Department,
		"active":      a.Active,
		"assignedAt":  encodeTime(a.AssignedAt),
		"assignedBy":  a.AssignedBy,
	}
	if a.PasswordNote != "" {
		fields["passwordNote"] = a.PasswordNote
	}
	if a.ReplacedAt != nil {
		fields["replacedAt"] = encodeTimePtr(a.ReplacedAt)
	}
	if a.RevokedAt != nil {
		fields["revokedAt"] = encodeTimePtr(a.RevokedAt)
	}
	if a.MigratedAt != nil {
		fields["migratedAt"] = encodeTimePtr(a.MigratedAt)
		fields["migratedBy"] = a.MigratedBy
	}
	return fields
}

func assignmentFromFields(id string, level int, dept string, fields map[string]interface{}) *models.CRAssignment {
	a := &models.CRAssignment{
		ID:           id,
		Slot:         models.SlotID(stringField(fields, "slot")),
		StudentID:    stringField(fields, "studentId"),
		AccountID:    stringField(fields, "accountId"),
		Name:         stringField(fields, "name"),
		Email:        stringField(fields, "email"),
		YearLevel:    level,
		BatchYear:    intField(fields, "currentYear"),
		Department:   dept,
		Active:       boolField(fields, "active"),
		AssignedBy:   stringField(fields, "assignedBy"),
		PasswordNote: stringField(fields, "passwordNote"),
		ReplacedAt:   timeField(fields, "replacedAt"),
		RevokedAt:    timeField(fields, "revokedAt"),
		MigratedAt:   timeField(fields, "migratedAt"),
		MigratedBy:   stringField(fields, "migratedBy"),
	}
	if t := timeField(fields, "assignedAt"); t != nil {
		a.AssignedAt = *t
	}
	return a
}
