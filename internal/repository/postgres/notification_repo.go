package postgres

import (
	"context"
	"database/sql"
	"errors"

	"guestgallery/internal/domain"
)

type notificationSettingsRepository struct {
	DB *sql.DB
}

// NewNotificationSettingsRepository returns a domain.NotificationSettingsRepository
// implemented with Postgres.
func NewNotificationSettingsRepository(db *sql.DB) domain.NotificationSettingsRepository {
	return &notificationSettingsRepository{
		DB: db,
	}
}

func (r *notificationSettingsRepository) Get(ctx context.Context, eventID string) (*domain.NotificationSettings, error) {
	query := `
		SELECT event_id, threshold, enabled, admin_email, last_notified_count, updated_at
		FROM notification_settings
		WHERE event_id = $1
	`
	s := &domain.NotificationSettings{}
	err := r.DB.QueryRowContext(ctx, query, eventID).
		Scan(&s.EventID, &s.Threshold, &s.Enabled, &s.AdminEmail, &s.LastNotifiedCount, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *notificationSettingsRepository) UpsertSettings(ctx context.Context, s *domain.NotificationSettings) error {
	// last_notified_count is deliberately not touched here; only the
	// compare-and-set below may move it.
	query := `
		INSERT INTO notification_settings (event_id, threshold, enabled, admin_email, last_notified_count, updated_at)
		VALUES ($1, $2, $3, $4, 0, NOW())
		ON CONFLICT (event_id)
		DO UPDATE SET threshold = EXCLUDED.threshold, enabled = EXCLUDED.enabled, admin_email = EXCLUDED.admin_email, updated_at = NOW()
	`
	_, err := r.DB.ExecContext(ctx, query, s.EventID, s.Threshold, s.Enabled, s.AdminEmail)
	return err
}

// CompareAndSetLastNotified advances the counter only when it still holds the
// value the caller read. Under concurrent confirmations every caller that
// observed the same boundary races here and exactly one wins.
func (r *notificationSettingsRepository) CompareAndSetLastNotified(ctx context.Context, eventID string, expected, next int) (bool, error) {
	query := `
		UPDATE notification_settings
		SET last_notified_count = $3, updated_at = NOW()
		WHERE event_id = $1 AND last_notified_count = $2
	`
	result, err := r.DB.ExecContext(ctx, query, eventID, expected, next)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
