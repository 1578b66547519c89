package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mertcan/gradus/internal/app/models"
	"github.com/mertcan/gradus/internal/pkg/docstore"
)

// LegacyAssignmentStore implements AssignmentStore over the alternate-keyed
// shape older app versions wrote: one document per (department, level) with
// both slots nested inside it. It only exists so old readers keep working
// until they are retired.
type LegacyAssignmentStore struct {
	store docstore.Store
}

// NewLegacyAssignmentStore creates the legacy assignment store.
func NewLegacyAssignmentStore(store docstore.Store) *LegacyAssignmentStore {
	return &LegacyAssignmentStore{store: store}
}

// ListAll returns every assignment nested in the partition document.
func (r *LegacyAssignmentStore) ListAll(ctx context.Context, level int, dept string) ([]*models.CRAssignment, error) {
	fields, err := r.store.Get(ctx, legacyAssignmentPath(dept, level))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading legacy assignments %s level %d: %w", dept, level, err)
	}

	var assignments []*models.CRAssignment
	for _, slot := range models.SlotOrder {
		nested := mapField(fields, string(slot))
		if nested == nil {
			continue
		}
		a := assignmentFromFields(stringField(nested, "id"), level, dept, nested)
		a.Slot = slot
		assignments = append(assignments, a)
	}
	return assignments, nil
}

// ListActive returns the active assignments nested in the partition document.
func (r *LegacyAssignmentStore) ListActive(ctx context.Context, level int, dept string) ([]*models.CRAssignment, error) {
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
func (r *LegacyAssignmentStore) FindActiveBySlot(ctx context.Context, level int, dept string, slot models.SlotID) (*models.CRAssignment, error) {
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
func (r *LegacyAssignmentStore) FindByStudent(ctx context.Context, level int, dept, studentID, email string) ([]*models.CRAssignment, error) {
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

// BatchUpsert writes the assignment under its slot key inside the partition
// document.
func (r *LegacyAssignmentStore) BatchUpsert(b docstore.Batch, a *models.CRAssignment) {
	nested := assignmentToFields(a)
	nested["id"] = a.ID
	b.Set(legacyAssignmentPath(a.Department, a.YearLevel), map[string]interface{}{
		string(a.Slot): nested,
	}, true)
}

// BatchDeactivate rewrites the nested slot entry with the active flag down.
func (r *LegacyAssignmentStore) BatchDeactivate(b docstore.Batch, a *models.CRAssignment, at time.Time, reason models.RevocationReason) {
	inactive := *a
	inactive.Active = false
	if reason == models.ReasonReplaced {
		inactive.ReplacedAt = &at
	} else {
		inactive.RevokedAt = &at
	}
	r.BatchUpsert(b, &inactive)
}

// BatchDelete clears the slot entry inside the partition document.
func (r *LegacyAssignmentStore) BatchDelete(b docstore.Batch, a *models.CRAssignment) {
	b.Set(legacyAssignmentPath(a.Department, a.YearLevel), map[string]interface{}{
		string(a.Slot): nil,
	}, true)
}
