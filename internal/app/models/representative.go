package models

import (
	"strings"
	"time"
)

// SlotID identifies one of the two fixed representative positions per
// (year level, department) partition.
type SlotID string

const (
	Slot1 SlotID = "slot-1"
	Slot2 SlotID = "slot-2"
)

// SlotOrder is the fixed preference order used when no explicit slot is given.
var SlotOrder = []SlotID{Slot1, Slot2}

// ValidSlot reports whether s names a known slot.
func ValidSlot(s SlotID) bool {
	return s == Slot1 || s == Slot2
}

// PasswordNoteResetPending marks an assignment whose holder already had an
// identity account: no plaintext credential exists, a reset was dispatched.
const PasswordNoteResetPending = "reset pending"

// RevocationReason distinguishes why an active assignment was ended.
type RevocationReason string

const (
	// ReasonReplaced means a new holder immediately took over the slot.
	ReasonReplaced RevocationReason = "replaced"
	// ReasonRevoked means the slot was vacated with no successor.
	ReasonRevoked RevocationReason = "revoked"
)

// CRAssignment is the authoritative record of one representative slot holder.
// At most one assignment per (year level, department, slot) is active at any
// time. It references a student but does not own it.
type CRAssignment struct {
	ID           string     `json:"id"`
	Slot         SlotID     `json:"slot"`
	StudentID    string     `json:"studentId"`
	AccountID    string     `json:"accountId"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	YearLevel    int        `json:"year"`        // Partition year level, 1..4
	BatchYear    int        `json:"currentYear"` // Cohort entry year, kept in step with the students
	Department   string     `json:"department"`
	Active       bool       `json:"active"`
	AssignedAt   time.Time  `json:"assignedAt"`
	AssignedBy   string     `json:"assignedBy"`
	ReplacedAt   *time.Time `json:"replacedAt,omitempty"`
	RevokedAt    *time.Time `json:"revokedAt,omitempty"`
	PasswordNote string     `json:"passwordNote,omitempty"` // Plaintext credential for one-time disclosure, or the reset-pending marker
	MigratedAt   *time.Time `json:"migratedAt,omitempty"`
	MigratedBy   string     `json:"migratedBy,omitempty"`
}

// Matches reports whether the assignment belongs to the given student,
// matching by stable id first and falling back to email for legacy records
// written without one.
func (a *CRAssignment) Matches(studentID, email string) bool {
	if a.StudentID != "" && a.StudentID == studentID {
		return true
	}
	return a.Email != "" && strings.EqualFold(a.Email, email)
}

// RoleFlags is the denormalized projection of representative state stored on
// an identity profile for fast authorization checks. It is a cache of
// CRAssignment state, repaired best-effort; the assignment records stay the
// source of truth.
type RoleFlags struct {
	AccountID        string    `json:"accountId"`
	IsRepresentative bool      `json:"isRepresentative"`
	YearLevel        int       `json:"year"`
	Department       string    `json:"department"`
	Slot             SlotID    `json:"slot"`
	Email            string    `json:"email,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

