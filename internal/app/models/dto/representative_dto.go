package dto

import "time"

// AssignRepresentativeRequest nominates a student for a representative slot.
// Slot may be omitted; the first free slot is then taken.
type AssignRepresentativeRequest struct {
	StudentID string `json:"studentId" binding:"required" example:"stu-48121"`
	Slot      string `json:"slot,omitempty" binding:"omitempty,oneof=slot-1 slot-2" example:"slot-1"`
}

// ReplaceRepresentativeRequest swaps the holder of an occupied slot.
type ReplaceRepresentativeRequest struct {
	StudentID string `json:"studentId" binding:"required" example:"stu-48121"`
	Slot      string `json:"slot" binding:"required,oneof=slot-1 slot-2" example:"slot-1"`
}

// RepresentativeResponse is one representative assignment.
type RepresentativeResponse struct {
	ID         string     `json:"id"`
	Slot       string     `json:"slot" example:"slot-1"`
	StudentID  string     `json:"studentId"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	YearLevel  int        `json:"year" example:"2"`
	BatchYear  int        `json:"currentYear" example:"2024"`
	Department string     `json:"department" example:"CSE"`
	Active     bool       `json:"active"`
	AssignedAt time.Time  `json:"assignedAt"`
	AssignedBy string     `json:"assignedBy"`
	ReplacedAt *time.Time `json:"replacedAt,omitempty"`
	RevokedAt  *time.Time `json:"revokedAt,omitempty"`
}

// AssignRepresentativeResponse reports a completed assignment. Credential is
// either the generated initial password, disclosed exactly once here, or the
// reset-pending marker for an account that already existed.
type AssignRepresentativeResponse struct {
	Assignment     RepresentativeResponse `json:"assignment"`
	AccountID      string                 `json:"accountId"`
	AccountCreated bool                   `json:"accountCreated"`
	Credential     string                 `json:"credential" example:"reset pending"`
}

// RepairProjectionsResponse reports what a projection repair run fixed.
type RepairProjectionsResponse struct {
	StudentFlagsRepaired int `json:"studentFlagsRepaired" example:"2"`
	RoleFlagsRepaired    int `json:"roleFlagsRepaired" example:"1"`
}
