package models

import "time"

// Year level bounds. Level 1 is the entry level; the terminal level graduates
// at promotion time.
const (
	MinYearLevel      = 1
	TerminalYearLevel = 4
)

// Student represents one enrolled person. The record is owned by the
// (yearLevel, department) partition it currently resides in; moving it means
// writing it into the target partition and deleting it from the source in one
// batch.
type Student struct {
	ID               string     `json:"id"`         // Stable identifier derived from the roll number
	RollNo           string     `json:"rollNo"`     // Roll number as printed on the student card
	Name             string     `json:"name"`       // Display name
	Email            string     `json:"email"`      // Contact email, required for representative assignment
	Phone            string     `json:"phone"`      // Contact phone (optional)
	YearLevel        int        `json:"yearLevel"`  // Current standing, 1..4
	JoiningYear      int        `json:"academicYear"` // Cohort entry year, recomputed on every migration
	Department       string     `json:"department"` // Department code, e.g. "CSE"
	College          string     `json:"college"`    // College identifier
	IsRepresentative bool       `json:"isRepresentative"`
	MigratedAt       *time.Time `json:"migratedAt,omitempty"`
	MigratedBy       string     `json:"migratedBy,omitempty"`
	MigratedFrom     int        `json:"migratedFrom,omitempty"` // Source year level of the last migration
}

// FirstName returns the first word of the display name, used for generated
// credentials.
func (s *Student) FirstName() string {
	for i := 0; i < len(s.Name); i++ {
		if s.Name[i] == ' ' {
			return s.Name[:i]
		}
	}
	return s.Name
}

// ValidYearLevel reports whether level is within the supported range.
func ValidYearLevel(level int) bool {
	return level >= MinYearLevel && level <= TerminalYearLevel
}

// JoiningYearFor derives a cohort's entry year from the current academic year
// and the level the cohort sits at.
func JoiningYearFor(academicYear, yearLevel int) int {
	return academicYear - yearLevel + 1
}
