package domain

import "errors"

// Sentinel errors shared across the domain. Services wrap storage errors with
// fmt.Errorf("...: %w", err); controllers map these with errors.Is.
var (
	// ErrNotFound is returned when a referenced event, attendee, attendance
	// or QR code does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned on a malformed request (bad guest hint,
	// unknown action, negative companion count).
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden is returned when the caller is not the owner of the
	// affected event.
	ErrForbidden = errors.New("forbidden")
)

// IsClientError reports whether err is one of the sentinels caused by the
// caller rather than by infrastructure. Controllers use it to decide whether
// an error is worth an error-level log line.
func IsClientError(err error) bool {
	for _, sentinel := range []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrForbidden,
		ErrUserNotFound,
		ErrDuplicateEmail,
		ErrProtectedState,
		ErrInvalidTransition,
		ErrWrongEvent,
		ErrAlreadyIssued,
		ErrDuplicateAttendance,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
