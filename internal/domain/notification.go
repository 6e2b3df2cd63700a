package domain

import (
	"context"
	"time"
)

// DefaultNotificationThreshold is used for events without stored settings.
const DefaultNotificationThreshold = 5

// NotificationSettings holds the per-event confirmation digest configuration
// together with the threshold tracking state. LastNotifiedCount is the
// confirmed count observed when the last digest was dispatched; it only moves
// forward through a compare-and-set.
// swagger:model NotificationSettings
type NotificationSettings struct {
	EventID           string    `json:"event_id"`
	Threshold         int       `json:"threshold"`
	Enabled           bool      `json:"enabled"`
	AdminEmail        string    `json:"admin_email"`
	LastNotifiedCount int       `json:"last_notified_count"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DefaultNotificationSettings returns the settings applied to events that
// were never configured: disabled, default threshold.
func DefaultNotificationSettings(eventID string) *NotificationSettings {
	return &NotificationSettings{
		EventID:   eventID,
		Threshold: DefaultNotificationThreshold,
	}
}

// NotificationDecision is the outcome of a threshold evaluation.
// swagger:model NotificationDecision
type NotificationDecision struct {
	Dispatch         bool `json:"dispatch"`
	NewConfirmations int  `json:"new_confirmations"`
	TotalConfirmed   int  `json:"total_confirmed"`
}

// NotificationSettingsRepository defines storage for notification settings
// and threshold state.
type NotificationSettingsRepository interface {
	Get(ctx context.Context, eventID string) (*NotificationSettings, error)
	// UpsertSettings writes threshold, enabled and admin email without
	// touching the threshold tracking state.
	UpsertSettings(ctx context.Context, s *NotificationSettings) error
	// CompareAndSetLastNotified advances LastNotifiedCount from expected to
	// next. It reports false when the stored value no longer matches
	// expected, meaning a concurrent caller won the boundary.
	CompareAndSetLastNotified(ctx context.Context, eventID string, expected, next int) (bool, error)
}

// OrganizerDigest is the payload of one threshold notification: everything
// confirmed since the previous dispatch.
type OrganizerDigest struct {
	EventID          string `json:"event_id"`
	EventTitle       string `json:"event_title"`
	AdminEmail       string `json:"admin_email"`
	NewConfirmations int    `json:"new_confirmations"`
	TotalConfirmed   int    `json:"total_confirmed"`
}

// Notifier delivers organizer digests. Implementations may deliver directly
// or enqueue for a background worker; failures are logged by the caller and
// never fail the confirmation that triggered them.
type Notifier interface {
	NotifyOrganizer(ctx context.Context, digest *OrganizerDigest) error
}

// ThresholdNotifier decides, exactly once per threshold boundary crossed,
// whether the organizer should be notified about new confirmations.
type ThresholdNotifier interface {
	OnConfirmation(ctx context.Context, eventID string) (*NotificationDecision, error)
	GetSettings(ctx context.Context, eventID, callerID string) (*NotificationSettings, error)
	UpdateSettings(ctx context.Context, eventID, callerID string, threshold int, enabled bool, adminEmail string) (*NotificationSettings, error)
}
