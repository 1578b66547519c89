package models

import "time"

// GraduateRecord is an immutable archival snapshot of a student taken at the
// moment of graduation. Created once, never mutated or deleted.
type GraduateRecord struct {
	StudentID      string    `json:"studentId"`
	RollNo         string    `json:"rollNo"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	JoiningYear    int       `json:"joiningYear"`
	GraduationYear int       `json:"graduationYear"`
	Department     string    `json:"department"`
	College        string    `json:"college"`
	ArchivedAt     time.Time `json:"archivedAt"`
	ArchivedBy     string    `json:"archivedBy"`
}

// NewGraduateRecord snapshots a terminal-level student for the archive.
func NewGraduateRecord(s *Student, archivedAt time.Time, archivedBy string) *GraduateRecord {
	return &GraduateRecord{
		StudentID:      s.ID,
		RollNo:         s.RollNo,
		Name:           s.Name,
		Email:          s.Email,
		Phone:          s.Phone,
		JoiningYear:    s.JoiningYear,
		GraduationYear: s.JoiningYear + TerminalYearLevel - 1,
		Department:     s.Department,
		College:        s.College,
		ArchivedAt:     archivedAt,
		ArchivedBy:     archivedBy,
	}
}
