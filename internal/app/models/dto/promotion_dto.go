package dto

import "time"

// PromotionResponse reports the outcome of a full promotion run.
type PromotionResponse struct {
	FromYear         int      `json:"fromYear" example:"2025"`
	ToYear           int      `json:"toYear" example:"2026"`
	Archived         int      `json:"archived" example:"412"`
	Migrated         int      `json:"migrated" example:"1250"`
	FailedPartitions []string `json:"failedPartitions,omitempty"`
}

// AcademicYearResponse mirrors the persisted academic-year record.
type AcademicYearResponse struct {
	CurrentYear  int       `json:"currentYear" example:"2025"`
	PreviousYear int       `json:"previousYear,omitempty" example:"2024"`
	LastUpdated  time.Time `json:"lastUpdated"`
	UpdatedBy    string    `json:"updatedBy" example:"admin@school.edu"`
}

// GraduateResponse is one archived graduate record.
type GraduateResponse struct {
	StudentID      string    `json:"studentId"`
	RollNo         string    `json:"rollNo"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	JoiningYear    int       `json:"joiningYear" example:"2021"`
	GraduationYear int       `json:"graduationYear" example:"2024"`
	Department     string    `json:"department" example:"CSE"`
	ArchivedAt     time.Time `json:"archivedAt"`
}

// MigrateLevelRequest retries the student migration of a single level pair
// after a partial promotion failure.
type MigrateLevelRequest struct {
	FromLevel int `json:"fromLevel" binding:"required,min=1,max=4" example:"2"`
	ToLevel   int `json:"toLevel" binding:"required,min=1,max=4" example:"3"`
}
