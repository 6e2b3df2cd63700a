package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"guestgallery/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

// NewEventRepository returns a domain.EventRepository implemented with Postgres.
func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

const eventColumns = `id, owner_id, title, date, timezone, redirect_enabled, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*domain.Event, error) {
	e := &domain.Event{}
	var ownerNull sql.NullString
	var dateNull sql.NullTime
	var tzNull sql.NullString
	if err := row.Scan(&e.ID, &ownerNull, &e.Title, &dateNull, &tzNull, &e.RedirectEnabled, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if ownerNull.Valid {
		e.OwnerID = &ownerNull.String
	}
	if dateNull.Valid {
		e.Date = &dateNull.Time
	}
	if tzNull.Valid {
		e.Timezone = tzNull.String
	}
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (owner_id, title, date, timezone, redirect_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var owner any
	if e.OwnerID != nil {
		owner = *e.OwnerID
	}
	var date any
	if e.Date != nil {
		date = *e.Date
	}
	return r.DB.QueryRowContext(ctx, query, owner, e.Title, date, e.Timezone, e.RedirectEnabled, e.CreatedAt, e.UpdatedAt).
		Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE owner_id = $1 ORDER BY created_at DESC`
	return r.listEvents(ctx, query, ownerID)
}

func (r *eventRepository) ListOrphansByTitle(ctx context.Context, titleLike string) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE owner_id IS NULL AND title ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
	`
	return r.listEvents(ctx, query, titleLike)
}

func (r *eventRepository) listEvents(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepository) Update(ctx context.Context, eventID string, date *time.Time, timezone *string, redirectEnabled *bool) (*domain.Event, error) {
	setClauses := []string{"updated_at = NOW()"}
	args := []any{}
	n := 1
	if date != nil {
		setClauses = append(setClauses, fmt.Sprintf("date = $%d", n))
		args = append(args, *date)
		n++
	}
	if timezone != nil {
		setClauses = append(setClauses, fmt.Sprintf("timezone = $%d", n))
		args = append(args, *timezone)
		n++
	}
	if redirectEnabled != nil {
		setClauses = append(setClauses, fmt.Sprintf("redirect_enabled = $%d", n))
		args = append(args, *redirectEnabled)
		n++
	}
	if n == 1 {
		// No fields to update; just fetch current row
		return r.GetByID(ctx, eventID)
	}
	args = append(args, eventID)
	query := fmt.Sprintf(`
		UPDATE events SET %s
		WHERE id = $%d
		RETURNING `+eventColumns+`
	`, strings.Join(setClauses, ", "), n)
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// MergeInto re-parents the duplicate's content onto the survivor and deletes
// the duplicate, in one transaction. Content migration happens strictly
// before the delete, so an aborted transaction never loses content.
func (r *eventRepository) MergeInto(ctx context.Context, duplicateID, survivorID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE photos SET event_id = $1 WHERE event_id = $2`, survivorID, duplicateID); err != nil {
		return fmt.Errorf("re-parent photos: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE text_posts SET event_id = $1 WHERE event_id = $2`, survivorID, duplicateID); err != nil {
		return fmt.Errorf("re-parent text posts: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, duplicateID)
	if err != nil {
		return fmt.Errorf("delete duplicate event: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit()
}
