package repositories

import (
	"github.com/mertcan/gradus/internal/pkg/docstore"
)

// Repositories holds all the repository instances
type Repositories struct {
	StudentRepository    *StudentRepository
	GraduateRepository   *GraduateRepository
	DepartmentRepository *DepartmentRepository
	SettingsRepository   *SettingsRepository
	RoleFlagsRepository  *RoleFlagsRepository
	PrimaryAssignments   *PrimaryAssignmentStore
	LegacyAssignments    *LegacyAssignmentStore
}

// NewRepositories initializes all repositories over one document store
func NewRepositories(store docstore.Store) *Repositories {
	return &Repositories{
		StudentRepository:    NewStudentRepository(store),
		GraduateRepository:   NewGraduateRepository(store),
		DepartmentRepository: NewDepartmentRepository(store),
		SettingsRepository:   NewSettingsRepository(store),
		RoleFlagsRepository:  NewRoleFlagsRepository(store),
		PrimaryAssignments:   NewPrimaryAssignmentStore(store),
		LegacyAssignments:    NewLegacyAssignmentStore(store),
	}
}
