package models

import "time"

// UpdatedBySystem marks settings writes done by bootstrap rather than a user.
const UpdatedBySystem = "system"

// YearSettings is the persisted academic-year record. PreviousYear is set
// only by a promotion; LastUpdated and UpdatedBy audit every write.
type YearSettings struct {
	CurrentYear  int       `json:"currentYear"`
	PreviousYear int       `json:"previousYear,omitempty"`
	LastUpdated  time.Time `json:"lastUpdated"`
	UpdatedBy    string    `json:"updatedBy"`
}

// Department is a department partition the promotion pipeline iterates over.
type Department struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
}
