package postgres

import (
	"context"
	"database/sql"
	"errors"

	"guestgallery/internal/domain"
)

type attendeeRepository struct {
	DB *sql.DB
}

// NewAttendeeRepository returns a domain.AttendeeRepository implemented with Postgres.
func NewAttendeeRepository(db *sql.DB) domain.AttendeeRepository {
	return &attendeeRepository{
		DB: db,
	}
}

const attendeeColumns = `id, event_id, account_id, guest_email, display_name, whatsapp, created_at, updated_at`

func scanAttendee(row interface{ Scan(...any) error }) (*domain.Attendee, error) {
	a := &domain.Attendee{}
	var accountNull, emailNull, whatsappNull sql.NullString
	if err := row.Scan(&a.ID, &a.EventID, &accountNull, &emailNull, &a.DisplayName, &whatsappNull, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if accountNull.Valid {
		a.AccountID = &accountNull.String
	}
	if emailNull.Valid {
		a.GuestEmail = &emailNull.String
	}
	if whatsappNull.Valid {
		a.WhatsApp = whatsappNull.String
	}
	return a, nil
}

// UpsertRegistered inserts or refreshes the identity keyed by (event, account)
// in one statement, so concurrent resolves converge on a single row.
func (r *attendeeRepository) UpsertRegistered(ctx context.Context, eventID, accountID, displayName string) (*domain.Attendee, error) {
	query := `
		INSERT INTO attendees (event_id, account_id, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (event_id, account_id)
		DO UPDATE SET display_name = EXCLUDED.display_name, updated_at = NOW()
		RETURNING ` + attendeeColumns + `
	`
	return scanAttendee(r.DB.QueryRowContext(ctx, query, eventID, accountID, displayName))
}

// UpsertGuest inserts or refreshes the identity keyed by (event, email).
// Re-submitting the same email updates name and contact instead of creating
// a duplicate.
func (r *attendeeRepository) UpsertGuest(ctx context.Context, eventID, email, displayName, whatsapp string) (*domain.Attendee, error) {
	query := `
		INSERT INTO attendees (event_id, guest_email, display_name, whatsapp, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (event_id, guest_email)
		DO UPDATE SET display_name = EXCLUDED.display_name, whatsapp = EXCLUDED.whatsapp, updated_at = NOW()
		RETURNING ` + attendeeColumns + `
	`
	return scanAttendee(r.DB.QueryRowContext(ctx, query, eventID, email, displayName, whatsapp))
}

func (r *attendeeRepository) GetByID(ctx context.Context, id string) (*domain.Attendee, error) {
	query := `SELECT ` + attendeeColumns + ` FROM attendees WHERE id = $1`
	a, err := scanAttendee(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}
