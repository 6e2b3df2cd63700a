package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"guestgallery/internal/domain"
)

var adminEmailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type thresholdNotifier struct {
	eventRepo      domain.EventRepository
	attendanceRepo domain.AttendanceRepository
	settingsRepo   domain.NotificationSettingsRepository
	notifier       domain.Notifier
	logger         *slog.Logger
}

// NewThresholdNotifier creates the ThresholdNotifier. Exactly-once dispatch
// per boundary is enforced by the settings repository's compare-and-set on
// lastNotifiedCount, not by in-process synchronization: the service runs in
// many request handlers at once.
func NewThresholdNotifier(
	eventRepo domain.EventRepository,
	attendanceRepo domain.AttendanceRepository,
	settingsRepo domain.NotificationSettingsRepository,
	notifier domain.Notifier,
	logger *slog.Logger,
) domain.ThresholdNotifier {
	return &thresholdNotifier{
		eventRepo:      eventRepo,
		attendanceRepo: attendanceRepo,
		settingsRepo:   settingsRepo,
		notifier:       notifier,
		logger:         logger,
	}
}

func (s *thresholdNotifier) OnConfirmation(ctx context.Context, eventID string) (*domain.NotificationDecision, error) {
	settings, err := s.loadSettings(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !settings.Enabled || settings.Threshold < 1 || settings.AdminEmail == "" {
		return &domain.NotificationDecision{}, nil
	}

	current, err := s.attendanceRepo.CountConfirmed(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("count confirmed: %w", err)
	}
	last := settings.LastNotifiedCount
	if current/settings.Threshold <= last/settings.Threshold {
		return &domain.NotificationDecision{TotalConfirmed: current}, nil
	}

	// A boundary was crossed. Claim it before dispatching: of all concurrent
	// callers that observed the crossing, only the CAS winner notifies.
	won, err := s.settingsRepo.CompareAndSetLastNotified(ctx, eventID, last, current)
	if err != nil {
		return nil, fmt.Errorf("advance last notified count: %w", err)
	}
	if !won {
		return &domain.NotificationDecision{TotalConfirmed: current}, nil
	}

	decision := &domain.NotificationDecision{
		Dispatch:         true,
		NewConfirmations: current - last,
		TotalConfirmed:   current,
	}
	digest := &domain.OrganizerDigest{
		EventID:          eventID,
		AdminEmail:       settings.AdminEmail,
		NewConfirmations: decision.NewConfirmations,
		TotalConfirmed:   current,
	}
	if event, err := s.eventRepo.GetByID(ctx, eventID); err == nil {
		digest.EventTitle = event.Title
	}
	if err := s.notifier.NotifyOrganizer(ctx, digest); err != nil {
		// Downstream failure never rolls back the confirmation or the
		// counter; the crossing was consumed.
		s.logger.WarnContext(ctx, "organizer notification failed",
			"event_id", eventID,
			"total_confirmed", current,
			"err", err,
		)
	}
	return decision, nil
}

func (s *thresholdNotifier) GetSettings(ctx context.Context, eventID, callerID string) (*domain.NotificationSettings, error) {
	if err := s.requireOwner(ctx, eventID, callerID); err != nil {
		return nil, err
	}
	return s.loadSettings(ctx, eventID)
}

func (s *thresholdNotifier) UpdateSettings(ctx context.Context, eventID, callerID string, threshold int, enabled bool, adminEmail string) (*domain.NotificationSettings, error) {
	if err := s.requireOwner(ctx, eventID, callerID); err != nil {
		return nil, err
	}
	if threshold < 1 {
		return nil, fmt.Errorf("%w: threshold must be at least 1", domain.ErrInvalidInput)
	}
	if enabled && !adminEmailRegexp.MatchString(adminEmail) {
		return nil, fmt.Errorf("%w: admin email is not usable", domain.ErrInvalidInput)
	}
	settings := &domain.NotificationSettings{
		EventID:    eventID,
		Threshold:  threshold,
		Enabled:    enabled,
		AdminEmail: adminEmail,
	}
	if err := s.settingsRepo.UpsertSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("upsert notification settings: %w", err)
	}
	return s.loadSettings(ctx, eventID)
}

func (s *thresholdNotifier) loadSettings(ctx context.Context, eventID string) (*domain.NotificationSettings, error) {
	settings, err := s.settingsRepo.Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.DefaultNotificationSettings(eventID), nil
		}
		return nil, fmt.Errorf("get notification settings: %w", err)
	}
	return settings, nil
}

func (s *thresholdNotifier) requireOwner(ctx context.Context, eventID, callerID string) error {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get event: %w", err)
	}
	if event.OwnerID == nil || *event.OwnerID != callerID {
		return domain.ErrForbidden
	}
	return nil
}
