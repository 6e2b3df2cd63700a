package domain

import (
	"context"
	"errors"
	"time"
)

// AttendanceStatus is the lifecycle status of one attendee on one event.
type AttendanceStatus string

const (
	StatusPending   AttendanceStatus = "pending"
	StatusConfirmed AttendanceStatus = "confirmed"
	StatusPresent   AttendanceStatus = "present"
	StatusAbsent    AttendanceStatus = "absent"
)

// CheckInOrigin records how a present/absent status was reached. A scan is
// ground truth and can never be reverted; a manual action can.
type CheckInOrigin string

const (
	OriginScan   CheckInOrigin = "scan"
	OriginManual CheckInOrigin = "manual"
)

// ManualAction is an event-admin action on an attendance record.
type ManualAction string

const (
	ActionCheckIn ManualAction = "checkin"
	ActionUndo    ManualAction = "undo"
	ActionAbsent  ManualAction = "absent"
)

// Sentinel errors for attendance operations.
var (
	// ErrProtectedState is returned on any attempt to mutate a
	// scan-originated present record.
	ErrProtectedState = errors.New("scan-verified presence cannot be modified")

	// ErrInvalidTransition is returned when an action does not match the
	// attendance's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrWrongEvent is returned when a QR code belongs to a different event.
	ErrWrongEvent = errors.New("code belongs to a different event")

	// ErrAlreadyIssued is returned when issuing a QR code for an attendance
	// that already has one and no reissue was requested.
	ErrAlreadyIssued = errors.New("qr code already issued")

	// ErrQRCodeTaken is returned by the repository when a candidate QR code
	// collides with an existing one. The issuer retries with a new suffix.
	ErrQRCodeTaken = errors.New("qr code already in use")

	// ErrDuplicateAttendance is returned when a concurrent confirmation
	// already created the attendance for the same identity and event.
	ErrDuplicateAttendance = errors.New("attendance already exists")
)

// Attendance is the relationship between one attendee identity and one event.
// QRCode is globally unique once issued and immutable outside an explicit
// admin reissue. CheckInOrigin/CheckInAdminID carry the provenance of the
// current present (or absent) state.
// swagger:model Attendance
type Attendance struct {
	ID             string           `json:"id"`
	EventID        string           `json:"event_id"`
	AttendeeID     string           `json:"attendee_id"`
	Status         AttendanceStatus `json:"status"`
	QRCode         *string          `json:"qr_code"`
	Companions     int              `json:"companions"`
	ConfirmedAt    *time.Time       `json:"confirmed_at"`
	CheckedInAt    *time.Time       `json:"checked_in_at"`
	CheckInOrigin  *CheckInOrigin   `json:"checkin_origin"`
	CheckInAdminID *string          `json:"checkin_admin_id"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// ScanVerified reports whether the current status was reached via a QR scan.
func (a *Attendance) ScanVerified() bool {
	return a.CheckInOrigin != nil && *a.CheckInOrigin == OriginScan
}

// AttendeeStats is the per-status attendance breakdown of one event.
// swagger:model AttendeeStats
type AttendeeStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Present   int `json:"present"`
	Absent    int `json:"absent"`
}

// AttendanceWithAttendee bundles an attendance with its identity for listings.
type AttendanceWithAttendee struct {
	Attendance *Attendance `json:"attendance"`
	Attendee   *Attendee   `json:"attendee"`
}

// AttendanceRepository defines storage operations for attendance records.
// Status guards are enforced by conditional updates: each transition method
// reports via its return value whether the guarded write applied, so callers
// never act on a status read in an earlier round-trip.
type AttendanceRepository interface {
	// CreateConfirmed inserts a new attendance directly in confirmed status
	// with its QR code. Returns ErrQRCodeTaken when the code collides and
	// ErrDuplicateAttendance when the identity already has an attendance on
	// the event.
	CreateConfirmed(ctx context.Context, att *Attendance) error
	GetByID(ctx context.Context, id string) (*Attendance, error)
	GetByEventAndAttendee(ctx context.Context, eventID, attendeeID string) (*Attendance, error)
	// GetByQRCode looks a code up across all events; scanning UIs may not
	// know the event beforehand.
	GetByQRCode(ctx context.Context, code string) (*Attendance, error)
	// UpdateCompanions refreshes the companion count on re-confirmation.
	UpdateCompanions(ctx context.Context, id string, companions int) error
	// PromoteToConfirmed moves a pending attendance to confirmed, setting the
	// QR code and confirmation timestamp. Applies only while the attendance
	// is pending and has no code.
	PromoteToConfirmed(ctx context.Context, id, qrCode string, companions int) (applied bool, err error)
	// ReplaceQRCode atomically swaps the attendance's code for a new one
	// (admin reissue). There is no window with zero or two active codes.
	ReplaceQRCode(ctx context.Context, id, newCode string) (applied bool, err error)
	// MarkPresentByScan applies confirmed -> present with scan provenance.
	MarkPresentByScan(ctx context.Context, id string) (applied bool, err error)
	// MarkPresentManual applies confirmed -> present with manual provenance.
	MarkPresentManual(ctx context.Context, id, adminID string) (applied bool, err error)
	// RevertManual applies present/absent -> confirmed, only when the current
	// state has manual provenance.
	RevertManual(ctx context.Context, id string) (applied bool, err error)
	// MarkAbsentManual applies confirmed -> absent with manual provenance.
	MarkAbsentManual(ctx context.Context, id, adminID string) (applied bool, err error)
	// CountConfirmed counts attendances that have been confirmed at some
	// point (status confirmed, present or absent).
	CountConfirmed(ctx context.Context, eventID string) (int, error)
	Stats(ctx context.Context, eventID string) (*AttendeeStats, error)
	ListByEventID(ctx context.Context, eventID string, params PaginationParams) ([]*AttendanceWithAttendee, int, error)
}

// ConfirmResult is the outcome of a confirmation call. Created is false when
// the identity was already confirmed for the event (idempotent re-confirm).
// swagger:model ConfirmResult
type ConfirmResult struct {
	AttendanceID string           `json:"attendance_id"`
	QRCode       string           `json:"qr_code"`
	Status       AttendanceStatus `json:"status"`
	Created      bool             `json:"created"`
}

// CheckInResult is the outcome of a check-in call. AlreadyPresent marks the
// benign re-scan no-op.
// swagger:model CheckInResult
type CheckInResult struct {
	AttendanceID   string           `json:"attendance_id"`
	Status         AttendanceStatus `json:"status"`
	AlreadyPresent bool             `json:"already_present"`
}

// AttendanceService owns the attendee status lifecycle.
type AttendanceService interface {
	// Confirm resolves the identity and confirms attendance, issuing a QR
	// code. Idempotent per identity and event.
	Confirm(ctx context.Context, eventID string, hint IdentityHint, companions int) (*ConfirmResult, error)
	// CheckIn marks the attendance behind the scanned code present.
	CheckIn(ctx context.Context, eventID, qrCode string) (*CheckInResult, error)
	// ManualCheckIn applies an admin action; adminID must own the event.
	ManualCheckIn(ctx context.Context, attendanceID string, action ManualAction, adminID string) (*CheckInResult, error)
	// ReissueQRCode invalidates the current code and activates a fresh one.
	ReissueQRCode(ctx context.Context, attendanceID, adminID string) (string, error)
	Stats(ctx context.Context, eventID string) (*AttendeeStats, error)
	ListAttendees(ctx context.Context, eventID, callerID string, params PaginationParams) ([]*AttendanceWithAttendee, int, error)
}

// QRCodeIssuer generates and assigns unique check-in codes. Uniqueness is
// guaranteed by the store's unique constraint; the issuer's retry loop is a
// courtesy on top of it.
type QRCodeIssuer interface {
	// Generate returns a fresh candidate code for the display name.
	Generate(displayName string) (string, error)
	// Issue assigns a code to a pending attendance that has none. Returns
	// ErrAlreadyIssued when a code exists.
	Issue(ctx context.Context, att *Attendance) (string, error)
	// Reissue atomically replaces an existing code (administrative reset).
	Reissue(ctx context.Context, att *Attendance) (string, error)
}
