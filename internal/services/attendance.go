package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"guestgallery/internal/domain"
)

const confirmAttempts = 5

type attendanceService struct {
	eventRepo      domain.EventRepository
	attendanceRepo domain.AttendanceRepository
	attendeeRepo   domain.AttendeeRepository
	resolver       domain.IdentityResolver
	issuer         domain.QRCodeIssuer
	threshold      domain.ThresholdNotifier
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewAttendanceService creates the AttendanceService that owns the attendee
// status lifecycle. threshold may be nil (no organizer notifications).
func NewAttendanceService(
	eventRepo domain.EventRepository,
	attendanceRepo domain.AttendanceRepository,
	attendeeRepo domain.AttendeeRepository,
	resolver domain.IdentityResolver,
	issuer domain.QRCodeIssuer,
	threshold domain.ThresholdNotifier,
	logger *slog.Logger,
	timeout time.Duration,
) domain.AttendanceService {
	return &attendanceService{
		eventRepo:      eventRepo,
		attendanceRepo: attendanceRepo,
		attendeeRepo:   attendeeRepo,
		resolver:       resolver,
		issuer:         issuer,
		threshold:      threshold,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func (s *attendanceService) Confirm(ctx context.Context, eventID string, hint domain.IdentityHint, companions int) (*domain.ConfirmResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if companions < 0 {
		return nil, fmt.Errorf("%w: companions must not be negative", domain.ErrInvalidInput)
	}
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	attendee, err := s.resolver.Resolve(ctx, eventID, hint)
	if err != nil {
		return nil, err
	}

	existing, err := s.attendanceRepo.GetByEventAndAttendee(ctx, eventID, attendee.ID)
	if err == nil {
		return s.reconfirm(ctx, existing, companions)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get attendance: %w", err)
	}

	return s.createConfirmed(ctx, eventID, attendee, companions)
}

// reconfirm handles the idempotent path: the identity already has an
// attendance on this event. Mutable fields are refreshed, nothing is
// regenerated, and no second row is created.
func (s *attendanceService) reconfirm(ctx context.Context, att *domain.Attendance, companions int) (*domain.ConfirmResult, error) {
	if att.Status == domain.StatusPending {
		att.Companions = companions
		code, err := s.issuer.Issue(ctx, att)
		if err != nil {
			if errors.Is(err, domain.ErrAlreadyIssued) {
				// A concurrent confirm won; re-read and fall through.
				refreshed, rerr := s.attendanceRepo.GetByID(ctx, att.ID)
				if rerr != nil {
					return nil, fmt.Errorf("get attendance after race: %w", rerr)
				}
				att = refreshed
			} else {
				return nil, err
			}
		} else {
			s.notifyThreshold(ctx, att.EventID)
			return &domain.ConfirmResult{
				AttendanceID: att.ID,
				QRCode:       code,
				Status:       domain.StatusConfirmed,
				Created:      false,
			}, nil
		}
	}
	if err := s.attendanceRepo.UpdateCompanions(ctx, att.ID, companions); err != nil {
		return nil, fmt.Errorf("update companions: %w", err)
	}
	code := ""
	if att.QRCode != nil {
		code = *att.QRCode
	}
	return &domain.ConfirmResult{
		AttendanceID: att.ID,
		QRCode:       code,
		Status:       att.Status,
		Created:      false,
	}, nil
}

// createConfirmed inserts the attendance directly in confirmed status with
// its QR code in a single write, so no half-applied state (code without
// confirmation, or the reverse) is ever observable. Code collisions and
// concurrent-confirm races surface as distinct constraint violations.
func (s *attendanceService) createConfirmed(ctx context.Context, eventID string, attendee *domain.Attendee, companions int) (*domain.ConfirmResult, error) {
	for attempt := 0; attempt < confirmAttempts; attempt++ {
		code, err := s.issuer.Generate(attendee.DisplayName)
		if err != nil {
			return nil, err
		}
		now := time.Now()
		att := &domain.Attendance{
			EventID:     eventID,
			AttendeeID:  attendee.ID,
			Status:      domain.StatusConfirmed,
			QRCode:      &code,
			Companions:  companions,
			ConfirmedAt: &now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		err = s.attendanceRepo.CreateConfirmed(ctx, att)
		if err == nil {
			s.notifyThreshold(ctx, eventID)
			return &domain.ConfirmResult{
				AttendanceID: att.ID,
				QRCode:       code,
				Status:       domain.StatusConfirmed,
				Created:      true,
			}, nil
		}
		if errors.Is(err, domain.ErrQRCodeTaken) {
			continue
		}
		if errors.Is(err, domain.ErrDuplicateAttendance) {
			existing, rerr := s.attendanceRepo.GetByEventAndAttendee(ctx, eventID, attendee.ID)
			if rerr != nil {
				return nil, fmt.Errorf("get attendance after race: %w", rerr)
			}
			return s.reconfirm(ctx, existing, companions)
		}
		return nil, fmt.Errorf("create attendance: %w", err)
	}
	return nil, fmt.Errorf("confirm attendance: exhausted %d qr code attempts", confirmAttempts)
}

// notifyThreshold evaluates the organizer notification threshold. Any failure
// here is logged and never affects the confirmation that triggered it.
func (s *attendanceService) notifyThreshold(ctx context.Context, eventID string) {
	if s.threshold == nil {
		return
	}
	if _, err := s.threshold.OnConfirmation(ctx, eventID); err != nil {
		s.logger.WarnContext(ctx, "threshold evaluation failed", "event_id", eventID, "err", err)
	}
}

func (s *attendanceService) CheckIn(ctx context.Context, eventID, qrCode string) (*domain.CheckInResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	code := strings.ToUpper(strings.TrimSpace(qrCode))
	if code == "" {
		return nil, fmt.Errorf("%w: qr code is required", domain.ErrInvalidInput)
	}
	att, err := s.attendanceRepo.GetByQRCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get attendance by code: %w", err)
	}
	if att.EventID != eventID {
		return nil, domain.ErrWrongEvent
	}
	if att.Status == domain.StatusPresent {
		// Re-scan of an already-present code: benign no-op, no side effects.
		return &domain.CheckInResult{
			AttendanceID:   att.ID,
			Status:         domain.StatusPresent,
			AlreadyPresent: true,
		}, nil
	}

	applied, err := s.attendanceRepo.MarkPresentByScan(ctx, att.ID)
	if err != nil {
		return nil, fmt.Errorf("mark present by scan: %w", err)
	}
	if applied {
		return &domain.CheckInResult{AttendanceID: att.ID, Status: domain.StatusPresent}, nil
	}
	// The guarded update did not apply: someone mutated the row between the
	// read and the write. Re-read only to classify the rejection.
	current, err := s.attendanceRepo.GetByID(ctx, att.ID)
	if err != nil {
		return nil, fmt.Errorf("get attendance after scan conflict: %w", err)
	}
	if current.Status == domain.StatusPresent {
		return &domain.CheckInResult{
			AttendanceID:   current.ID,
			Status:         domain.StatusPresent,
			AlreadyPresent: true,
		}, nil
	}
	return nil, fmt.Errorf("%w: cannot check in from status %q", domain.ErrInvalidTransition, current.Status)
}

func (s *attendanceService) ManualCheckIn(ctx context.Context, attendanceID string, action domain.ManualAction, adminID string) (*domain.CheckInResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	att, err := s.getOwnedAttendance(ctx, attendanceID, adminID)
	if err != nil {
		return nil, err
	}

	switch action {
	case domain.ActionCheckIn:
		return s.manualTransition(ctx, att, domain.StatusPresent, func() (bool, error) {
			return s.attendanceRepo.MarkPresentManual(ctx, att.ID, adminID)
		})
	case domain.ActionUndo:
		return s.manualUndo(ctx, att)
	case domain.ActionAbsent:
		return s.manualTransition(ctx, att, domain.StatusAbsent, func() (bool, error) {
			return s.attendanceRepo.MarkAbsentManual(ctx, att.ID, adminID)
		})
	default:
		return nil, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidInput, action)
	}
}

// manualTransition applies a guarded confirmed -> target write and classifies
// a non-applied write by re-reading the row. The guard itself lives in the
// conditional update, so the classification read cannot race the decision.
func (s *attendanceService) manualTransition(ctx context.Context, att *domain.Attendance, target domain.AttendanceStatus, apply func() (bool, error)) (*domain.CheckInResult, error) {
	applied, err := apply()
	if err != nil {
		return nil, fmt.Errorf("manual transition to %s: %w", target, err)
	}
	if applied {
		return &domain.CheckInResult{AttendanceID: att.ID, Status: target}, nil
	}
	current, err := s.attendanceRepo.GetByID(ctx, att.ID)
	if err != nil {
		return nil, fmt.Errorf("get attendance after manual conflict: %w", err)
	}
	if current.Status == domain.StatusPresent && current.ScanVerified() {
		return nil, domain.ErrProtectedState
	}
	if current.Status == target {
		// Repeating the same manual action is a no-op, not an error.
		return &domain.CheckInResult{
			AttendanceID:   current.ID,
			Status:         current.Status,
			AlreadyPresent: target == domain.StatusPresent,
		}, nil
	}
	return nil, fmt.Errorf("%w: cannot apply %s from status %q", domain.ErrInvalidTransition, target, current.Status)
}

func (s *attendanceService) manualUndo(ctx context.Context, att *domain.Attendance) (*domain.CheckInResult, error) {
	applied, err := s.attendanceRepo.RevertManual(ctx, att.ID)
	if err != nil {
		return nil, fmt.Errorf("revert manual check-in: %w", err)
	}
	if applied {
		return &domain.CheckInResult{AttendanceID: att.ID, Status: domain.StatusConfirmed}, nil
	}
	current, err := s.attendanceRepo.GetByID(ctx, att.ID)
	if err != nil {
		return nil, fmt.Errorf("get attendance after undo conflict: %w", err)
	}
	if current.Status == domain.StatusPresent && current.ScanVerified() {
		return nil, domain.ErrProtectedState
	}
	return nil, fmt.Errorf("%w: cannot undo from status %q", domain.ErrInvalidTransition, current.Status)
}

func (s *attendanceService) ReissueQRCode(ctx context.Context, attendanceID, adminID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	att, err := s.getOwnedAttendance(ctx, attendanceID, adminID)
	if err != nil {
		return "", err
	}
	return s.issuer.Reissue(ctx, att)
}

func (s *attendanceService) Stats(ctx context.Context, eventID string) (*domain.AttendeeStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	stats, err := s.attendanceRepo.Stats(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("attendance stats: %w", err)
	}
	return stats, nil
}

func (s *attendanceService) ListAttendees(ctx context.Context, eventID, callerID string, params domain.PaginationParams) ([]*domain.AttendanceWithAttendee, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, fmt.Errorf("get event: %w", err)
	}
	if event.OwnerID == nil || *event.OwnerID != callerID {
		return nil, 0, domain.ErrForbidden
	}
	list, total, err := s.attendanceRepo.ListByEventID(ctx, eventID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list attendances: %w", err)
	}
	if list == nil {
		list = []*domain.AttendanceWithAttendee{}
	}
	return list, total, nil
}

// getOwnedAttendance loads the attendance and verifies the caller owns its
// event.
func (s *attendanceService) getOwnedAttendance(ctx context.Context, attendanceID, callerID string) (*domain.Attendance, error) {
	att, err := s.attendanceRepo.GetByID(ctx, attendanceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	event, err := s.eventRepo.GetByID(ctx, att.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OwnerID == nil || *event.OwnerID != callerID {
		return nil, domain.ErrForbidden
	}
	return att, nil
}
