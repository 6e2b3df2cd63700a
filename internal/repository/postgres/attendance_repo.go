package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	"guestgallery/internal/domain"
)

// Unique constraint names used to tell collision kinds apart.
const (
	qrCodeConstraint           = "attendances_qr_code_key"
	eventAttendeeConstraint    = "attendances_event_id_attendee_id_key"
	uniqueViolation pq.ErrorCode = "23505"
)

type attendanceRepository struct {
	DB *sql.DB
}

// NewAttendanceRepository returns a domain.AttendanceRepository implemented
// with Postgres. All status guards are single conditional UPDATEs; the
// unique index on qr_code is the global uniqueness guarantee.
func NewAttendanceRepository(db *sql.DB) domain.AttendanceRepository {
	return &attendanceRepository{
		DB: db,
	}
}

const attendanceColumns = `id, event_id, attendee_id, status, qr_code, companions, confirmed_at, checked_in_at, checkin_origin, checkin_admin_id, created_at, updated_at`

func scanAttendance(row interface{ Scan(...any) error }) (*domain.Attendance, error) {
	a := &domain.Attendance{}
	var codeNull, originNull, adminNull sql.NullString
	var confirmedNull, checkedInNull sql.NullTime
	err := row.Scan(
		&a.ID, &a.EventID, &a.AttendeeID, &a.Status, &codeNull, &a.Companions,
		&confirmedNull, &checkedInNull, &originNull, &adminNull,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if codeNull.Valid {
		a.QRCode = &codeNull.String
	}
	if confirmedNull.Valid {
		a.ConfirmedAt = &confirmedNull.Time
	}
	if checkedInNull.Valid {
		a.CheckedInAt = &checkedInNull.Time
	}
	if originNull.Valid {
		origin := domain.CheckInOrigin(originNull.String)
		a.CheckInOrigin = &origin
	}
	if adminNull.Valid {
		a.CheckInAdminID = &adminNull.String
	}
	return a, nil
}

// mapUniqueViolation translates a pq unique violation into the matching
// domain sentinel, or returns err unchanged.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}
	switch {
	case pqErr.Constraint == qrCodeConstraint || strings.Contains(pqErr.Constraint, "qr_code"):
		return domain.ErrQRCodeTaken
	case pqErr.Constraint == eventAttendeeConstraint || strings.Contains(pqErr.Constraint, "attendee"):
		return domain.ErrDuplicateAttendance
	default:
		return err
	}
}

func (r *attendanceRepository) CreateConfirmed(ctx context.Context, att *domain.Attendance) error {
	query := `
		INSERT INTO attendances (event_id, attendee_id, status, qr_code, companions, confirmed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		att.EventID, att.AttendeeID, att.Status, att.QRCode, att.Companions,
		att.ConfirmedAt, att.CreatedAt, att.UpdatedAt,
	).Scan(&att.ID)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

func (r *attendanceRepository) GetByID(ctx context.Context, id string) (*domain.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendances WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *attendanceRepository) GetByEventAndAttendee(ctx context.Context, eventID, attendeeID string) (*domain.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendances WHERE event_id = $1 AND attendee_id = $2`
	return r.getOne(ctx, query, eventID, attendeeID)
}

func (r *attendanceRepository) GetByQRCode(ctx context.Context, code string) (*domain.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendances WHERE qr_code = $1`
	return r.getOne(ctx, query, code)
}

func (r *attendanceRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Attendance, error) {
	a, err := scanAttendance(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *attendanceRepository) UpdateCompanions(ctx context.Context, id string, companions int) error {
	query := `UPDATE attendances SET companions = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, id, companions)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *attendanceRepository) PromoteToConfirmed(ctx context.Context, id, qrCode string, companions int) (bool, error) {
	query := `
		UPDATE attendances
		SET status = 'confirmed', qr_code = $2, companions = $3, confirmed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending' AND qr_code IS NULL
	`
	return r.applyGuarded(ctx, query, id, qrCode, companions)
}

func (r *attendanceRepository) ReplaceQRCode(ctx context.Context, id, newCode string) (bool, error) {
	// One statement: the old code stops resolving in the same instant the
	// new one starts.
	query := `
		UPDATE attendances
		SET qr_code = $2, updated_at = NOW()
		WHERE id = $1 AND qr_code IS NOT NULL
	`
	return r.applyGuarded(ctx, query, id, newCode)
}

func (r *attendanceRepository) MarkPresentByScan(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE attendances
		SET status = 'present', checked_in_at = NOW(), checkin_origin = 'scan', checkin_admin_id = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'
	`
	return r.applyGuarded(ctx, query, id)
}

func (r *attendanceRepository) MarkPresentManual(ctx context.Context, id, adminID string) (bool, error) {
	query := `
		UPDATE attendances
		SET status = 'present', checked_in_at = NOW(), checkin_origin = 'manual', checkin_admin_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'
	`
	return r.applyGuarded(ctx, query, id, adminID)
}

func (r *attendanceRepository) RevertManual(ctx context.Context, id string) (bool, error) {
	// The provenance check lives inside the same statement as the write, so
	// a concurrent scan can never be undone.
	query := `
		UPDATE attendances
		SET status = 'confirmed', checked_in_at = NULL, checkin_origin = NULL, checkin_admin_id = NULL, updated_at = NOW()
		WHERE id = $1 AND status IN ('present', 'absent') AND checkin_origin = 'manual'
	`
	return r.applyGuarded(ctx, query, id)
}

func (r *attendanceRepository) MarkAbsentManual(ctx context.Context, id, adminID string) (bool, error) {
	query := `
		UPDATE attendances
		SET status = 'absent', checkin_origin = 'manual', checkin_admin_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'
	`
	return r.applyGuarded(ctx, query, id, adminID)
}

func (r *attendanceRepository) applyGuarded(ctx context.Context, query string, args ...any) (bool, error) {
	result, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, mapUniqueViolation(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *attendanceRepository) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM attendances
		WHERE event_id = $1 AND confirmed_at IS NOT NULL
	`
	var count int
	if err := r.DB.QueryRowContext(ctx, query, eventID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *attendanceRepository) Stats(ctx context.Context, eventID string) (*domain.AttendeeStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'confirmed'),
			COUNT(*) FILTER (WHERE status = 'present'),
			COUNT(*) FILTER (WHERE status = 'absent')
		FROM attendances
		WHERE event_id = $1
	`
	stats := &domain.AttendeeStats{}
	err := r.DB.QueryRowContext(ctx, query, eventID).
		Scan(&stats.Total, &stats.Pending, &stats.Confirmed, &stats.Present, &stats.Absent)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *attendanceRepository) ListByEventID(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.AttendanceWithAttendee, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendances WHERE event_id = $1`, eventID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT
			a.id, a.event_id, a.attendee_id, a.status, a.qr_code, a.companions,
			a.confirmed_at, a.checked_in_at, a.checkin_origin, a.checkin_admin_id,
			a.created_at, a.updated_at,
			t.id, t.event_id, t.account_id, t.guest_email, t.display_name, t.whatsapp,
			t.created_at, t.updated_at
		FROM attendances a
		JOIN attendees t ON t.id = a.attendee_id
		WHERE a.event_id = $1
		ORDER BY a.created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := make([]*domain.AttendanceWithAttendee, 0)
	for rows.Next() {
		a := &domain.Attendance{}
		t := &domain.Attendee{}
		var codeNull, originNull, adminNull sql.NullString
		var confirmedNull, checkedInNull sql.NullTime
		var accountNull, emailNull, whatsappNull sql.NullString
		err := rows.Scan(
			&a.ID, &a.EventID, &a.AttendeeID, &a.Status, &codeNull, &a.Companions,
			&confirmedNull, &checkedInNull, &originNull, &adminNull,
			&a.CreatedAt, &a.UpdatedAt,
			&t.ID, &t.EventID, &accountNull, &emailNull, &t.DisplayName, &whatsappNull,
			&t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		if codeNull.Valid {
			a.QRCode = &codeNull.String
		}
		if confirmedNull.Valid {
			a.ConfirmedAt = &confirmedNull.Time
		}
		if checkedInNull.Valid {
			a.CheckedInAt = &checkedInNull.Time
		}
		if originNull.Valid {
			origin := domain.CheckInOrigin(originNull.String)
			a.CheckInOrigin = &origin
		}
		if adminNull.Valid {
			a.CheckInAdminID = &adminNull.String
		}
		if accountNull.Valid {
			t.AccountID = &accountNull.String
		}
		if emailNull.Valid {
			t.GuestEmail = &emailNull.String
		}
		if whatsappNull.Valid {
			t.WhatsApp = whatsappNull.String
		}
		list = append(list, &domain.AttendanceWithAttendee{Attendance: a, Attendee: t})
	}
	return list, total, rows.Err()
}
