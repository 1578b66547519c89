package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mertcan/gradus/internal/app/models"
	"github.com/mertcan/gradus/internal/pkg/apperrors"
	"github.com/mertcan/gradus/internal/pkg/docstore"
)

// TransplantChunkSize is the number of students that fit in one batch when
// each record costs a set plus a delete.
const TransplantChunkSize = docstore.MaxBatchOps / 2

// StudentRepository handles document operations for students.
type StudentRepository struct {
	store docstore.Store
}

// NewStudentRepository creates a new student repository.
func NewStudentRepository(store docstore.Store) *StudentRepository {
	return &StudentRepository{store: store}
}

// ListByPartition returns every student in a (department, level) partition.
func (r *StudentRepository) ListByPartition(ctx context.Context, dept string, level int) ([]*models.Student, error) {
	docs, err := r.store.List(ctx, studentCollection(dept, level))
	if err != nil {
		return nil, fmt.Errorf("error listing students %s level %d: %w", dept, level, err)
	}

	students := make([]*models.Student, 0, len(docs))
	for _, doc := range docs {
		students = append(students, studentFromFields(doc.ID(), doc.Fields))
	}
	return students, nil
}

// Get retrieves one student from a partition.
func (r *StudentRepository) Get(ctx context.Context, dept string, level int, id string) (*models.Student, error) {
	fields, err := r.store.Get(ctx, studentPath(dept, level, id))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperrors.ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving student %s: %w", id, err)
	}
	return studentFromFields(id, fields), nil
}

// BatchTransplant moves a student one level up within a batch: the record is
// written into the target partition under the same id, annotated with
// migration metadata, and removed from the source partition. Both operations
// land in the same batch so the record never exists authoritatively in two
// partitions.
func (r *StudentRepository) BatchTransplant(b docstore.Batch, s *models.Student, toLevel, joiningYear int, migratedAt time.Time, migratedBy string) {
	moved := *s
	moved.YearLevel = toLevel
	moved.JoiningYear = joiningYear
	moved.MigratedAt = &migratedAt
	moved.MigratedBy = migratedBy
	moved.MigratedFrom = s.YearLevel

	b.Set(studentPath(s.Department, toLevel, s.ID), studentToFields(&moved), true)
	b.Delete(studentPath(s.Department, s.YearLevel, s.ID))
}

// BatchDelete removes a student from its partition.
func (r *StudentRepository) BatchDelete(b docstore.Batch, s *models.Student) {
	b.Delete(studentPath(s.Department, s.YearLevel, s.ID))
}

// BatchSetRepresentative flips the representative flag on a student document.
func (r *StudentRepository) BatchSetRepresentative(b docstore.Batch, dept string, level int, id string, value bool) {
	b.Set(studentPath(dept, level, id), map[string]interface{}{
		"isRepresentative": value,
	}, true)
}

func studentToFields(s *models.Student) map[string]interface{} {
	fields := map[string]interface{}{
		"rollNo":           s.RollNo,
		"name":             s.Name,
		"email":            s.Email,
		"phone":            s.Phone,
		"yearLevel":        s.YearLevel,
		"academicYear":     s.JoiningYear,
		"department":       s.Department,
		"college":          s.College,
		"isRepresentative": s.IsRepresentative,
	}
	if s.MigratedAt != nil {
		fields["migratedAt"] = encodeTime(*s.MigratedAt)
		fields["migratedBy"] = s.MigratedBy
		fields["migratedFrom"] = s.MigratedFrom
	}
	return fields
}

func studentFromFields(id string, fields map[string]interface{}) *models.Student {
	return &models.Student{
		ID:               id,
		RollNo:           stringField(fields, "rollNo"),
		Name:             stringField(fields, "name"),
		Email:            stringField(fields, "email"),
		Phone:            stringField(fields, "phone"),
		YearLevel:        intField(fields, "yearLevel"),
		JoiningYear:      intField(fields, "academicYear"),
		Department:       stringField(fields, "department"),
		College:          stringField(fields, "college"),
		IsRepresentative: boolField(fields, "isRepresentative"),
		MigratedAt:       timeField(fields, "migratedAt"),
		MigratedBy:       stringField(fields, "migratedBy"),
		MigratedFrom:     intField(fields, "migratedFrom"),
	}
}
