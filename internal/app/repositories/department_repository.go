package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/mertcan/gradus/internal/app/models"
	"github.com/mertcan/gradus/internal/pkg/apperrors"
	"github.com/mertcan/gradus/internal/pkg/docstore"
)

// DepartmentRepository handles the department partition list the promotion
// pipeline iterates over.
type DepartmentRepository struct {
	store docstore.Store
}

// NewDepartmentRepository creates a new department repository.
func NewDepartmentRepository(store docstore.Store) *DepartmentRepository {
	return &DepartmentRepository{store: store}
}

// List returns all departments.
func (r *DepartmentRepository) List(ctx context.Context) ([]*models.Department, error) {
	docs, err := r.store.List(ctx, departmentsCollection)
	if err != nil {
		return nil, fmt.Errorf("error listing departments: %w", err)
	}

	departments := make([]*models.Department, 0, len(docs))
	for _, doc := range docs {
		departments = append(departments, &models.Department{
			Code: doc.ID(),
			Name: stringField(doc.Fields, "name"),
		})
	}
	return departments, nil
}

// Get returns one department, or apperrors.ErrUnknownDepartment.
func (r *DepartmentRepository) Get(ctx context.Context, code string) (*models.Department, error) {
	fields, err := r.store.Get(ctx, departmentPath(code))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperrors.ErrUnknownDepartment
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving department %s: %w", code, err)
	}
	return &models.Department{Code: code, Name: stringField(fields, "name")}, nil
}

// Ensure creates department documents for any configured codes not present
// yet. Called at bootstrap.
func (r *DepartmentRepository) Ensure(ctx context.Context, codes []string) error {
	for _, code := range codes {
		_, err := r.store.Get(ctx, departmentPath(code))
		if err == nil {
			continue
		}
		if !errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("error checking department %s: %w", code, err)
		}
		if err := r.store.Set(ctx, departmentPath(code), map[string]interface{}{
			"name": code,
		}, false); err != nil {
			return fmt.Errorf("error creating department %s: %w", code, err)
		}
	}
	return nil
}
