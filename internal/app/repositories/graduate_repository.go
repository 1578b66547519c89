package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/mertcan/gradus/internal/app/models"
	"github.com/mertcan/gradus/internal/pkg/docstore"
)

// GraduateRepository handles the append-only graduate archive.
type GraduateRepository struct {
	store docstore.Store
}

// NewGraduateRepository creates a new graduate repository.
func NewGraduateRepository(store docstore.Store) *GraduateRepository {
	return &GraduateRepository{store: store}
}

// Exists reports whether an archive record is already present for the
// student. Used to keep re-runs from ever overwriting an earlier snapshot.
func (r *GraduateRepository) Exists(ctx context.Context, joiningYear int, studentID string) (bool, error) {
	_, err := r.store.Get(ctx, graduatePath(joiningYear, studentID))
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error checking graduate record: %w", err)
	}
	return true, nil
}

// List returns every archived graduate.
func (r *GraduateRepository) List(ctx context.Context) ([]*models.GraduateRecord, error) {
	docs, err := r.store.List(ctx, graduatesCollection)
	if err != nil {
		return nil, fmt.Errorf("error listing graduates: %w", err)
	}
	graduates := make([]*models.GraduateRecord, 0, len(docs))
	for _, doc := range docs {
		graduates = append(graduates, graduateFromFields(doc.Fields))
	}
	return graduates, nil
}

// BatchArchive writes a graduate snapshot. The record is written whole, never
// merged into an existing one.
func (r *GraduateRepository) BatchArchive(b docstore.Batch, g *models.GraduateRecord) {
	b.Set(graduatePath(g.JoiningYear, g.StudentID), map[string]interface{}{
		"studentId":      g.StudentID,
		"rollNo":         g.RollNo,
		"name":           g.Name,
		"email":          g.Email,
		"phone":          g.Phone,
		"joiningYear":    g.JoiningYear,
		"graduationYear": g.GraduationYear,
		"department":     g.Department,
		"college":        g.College,
		"archivedAt":     encodeTime(g.ArchivedAt),
		"archivedBy":     g.ArchivedBy,
	}, false)
}

func graduateFromFields(fields map[string]interface{}) *models.GraduateRecord {
	g := &models.GraduateRecord{
		StudentID:      stringField(fields, "studentId"),
		RollNo:         stringField(fields, "rollNo"),
		Name:           stringField(fields, "name"),
		Email:          stringField(fields, "email"),
		Phone:          stringField(fields, "phone"),
		JoiningYear:    intField(fields, "joiningYear"),
		GraduationYear: intField(fields, "graduationYear"),
		Department:     stringField(fields, "department"),
		College:        stringField(fields, "college"),
		ArchivedBy:     stringField(fields, "archivedBy"),
	}
	if t := timeField(fields, "archivedAt"); t != nil {
		g.ArchivedAt = *t
	}
	return g
}
