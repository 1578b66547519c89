package apperrors

import "errors"

// Validation errors, rejected before any write
var (
	ErrInvalidYearLevel   = errors.New("invalid year level")
	ErrUnknownDepartment  = errors.New("unknown department code")
	ErrMalformedEmail     = errors.New("malformed email address")
	ErrSelfReplacement    = errors.New("student cannot replace themselves")
	ErrInvalidSlot        = errors.New("invalid representative slot")
	ErrSlotChoiceRequired = errors.New("both slots occupied, an explicit slot is required")
	ErrValidationFailed   = errors.New("validation failed")
)

// Resource errors
var (
	ErrStudentNotFound    = errors.New("student not found")
	ErrAssignmentNotFound = errors.New("no active representative assignment found")
	ErrAccountNotFound    = errors.New("identity account not found")
	ErrResourceNotFound   = errors.New("resource not found")
)

// Promotion errors
var (
	// ErrPromotionConflict is returned when the persisted year no longer
	// matches the value a promotion run started from.
	ErrPromotionConflict   = errors.New("academic year changed since promotion started")
	ErrPromotionInProgress = errors.New("a promotion is already in progress")
)

// ErrAssignmentIncomplete marks the ordering hazard in assign: the identity
// account call succeeded but the assignment batch did not commit. The account
// is left behind; re-running assign picks it up instead of creating another.
var ErrAssignmentIncomplete = errors.New("identity account prepared but assignment was not recorded")

// Authentication errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrInvalidFormat      = errors.New("invalid token format")
	ErrPermissionDenied   = errors.New("permission denied")
)

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// Is returns whether target matches err or any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}
	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
