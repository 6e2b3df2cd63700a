package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestgallery/internal/domain"
)

func newMockDB(t *testing.T) (sqlmock.Sqlmock, domain.AttendanceRepository) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return mock, NewAttendanceRepository(db)
}

func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func attendanceRows(att *domain.Attendance) *sqlmock.Rows {
	var origin any
	if att.CheckInOrigin != nil {
		origin = string(*att.CheckInOrigin)
	}
	return sqlmock.NewRows([]string{
		"id", "event_id", "attendee_id", "status", "qr_code", "companions",
		"confirmed_at", "checked_in_at", "checkin_origin", "checkin_admin_id",
		"created_at", "updated_at",
	}).AddRow(
		att.ID, att.EventID, att.AttendeeID, string(att.Status), nullable(att.QRCode), att.Companions,
		nullable(att.ConfirmedAt), nullable(att.CheckedInAt), origin, nullable(att.CheckInAdminID),
		att.CreatedAt, att.UpdatedAt,
	)
}

func TestAttendanceRepository_CreateConfirmed(t *testing.T) {
	now := time.Now()
	code := "MARI-ABC234"
	att := &domain.Attendance{
		EventID:     "event-1",
		AttendeeID:  "attendee-1",
		Status:      domain.StatusConfirmed,
		QRCode:      &code,
		Companions:  2,
		ConfirmedAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	t.Run("inserts and backfills the id", func(t *testing.T) {
		mock, repo := newMockDB(t)
		mock.ExpectQuery(`INSERT INTO attendances`).
			WithArgs("event-1", "attendee-1", "confirmed", code, 2, att.ConfirmedAt, now, now).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("att-1"))

		require.NoError(t, repo.CreateConfirmed(context.Background(), att))
		assert.Equal(t, "att-1", att.ID)
	})

	t.Run("qr code collision", func(t *testing.T) {
		mock, repo := newMockDB(t)
		mock.ExpectQuery(`INSERT INTO attendances`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "attendances_qr_code_key"})

		err := repo.CreateConfirmed(context.Background(), att)
		assert.ErrorIs(t, err, domain.ErrQRCodeTaken)
	})

	t.Run("duplicate identity", func(t *testing.T) {
		mock, repo := newMockDB(t)
		mock.ExpectQuery(`INSERT INTO attendances`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "attendances_event_id_attendee_id_key"})

		err := repo.CreateConfirmed(context.Background(), att)
		assert.ErrorIs(t, err, domain.ErrDuplicateAttendance)
	})
}

func TestAttendanceRepository_GetByQRCode(t *testing.T) {
	now := time.Now()
	code := "MARI-ABC234"

	t.Run("found", func(t *testing.T) {
		mock, repo := newMockDB(t)
		stored := &domain.Attendance{
			ID: "att-1", EventID: "event-1", AttendeeID: "attendee-1",
			Status: domain.StatusConfirmed, QRCode: &code,
			CreatedAt: now, UpdatedAt: now,
		}
		mock.ExpectQuery(`SELECT .+ FROM attendances WHERE qr_code = \$1`).
			WithArgs(code).
			WillReturnRows(attendanceRows(stored))

		att, err := repo.GetByQRCode(context.Background(), code)
		require.NoError(t, err)
		assert.Equal(t, "att-1", att.ID)
		require.NotNil(t, att.QRCode)
		assert.Equal(t, code, *att.QRCode)
		assert.Nil(t, att.CheckInOrigin)
	})

	t.Run("missing", func(t *testing.T) {
		mock, repo := newMockDB(t)
		mock.ExpectQuery(`SELECT .+ FROM attendances WHERE qr_code = \$1`).
			WithArgs("ZZZZ-ZZZZZZ").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetByQRCode(context.Background(), "ZZZZ-ZZZZZZ")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestAttendanceRepository_guardedTransitions(t *testing.T) {
	t.Run("scan applies on a confirmed row", func(t *testing.T) {
		mock, repo := newMockDB(t)
		mock.ExpectExec(`UPDATE attendances\s+SET status = 'present'.+checkin_origin = 'scan'`).
			WithArgs("att-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		applied, err := repo.MarkPresentByScan(context.Background(), "att-1")
		require.NoError(t, err)
		assert.True(t, applied)
	})

	t.Run("scan does not apply when the guard fails", func(t *testing.T) {
		mock, repo := newMockDB(t)
		mock.ExpectExec(`UPDATE attendances\s+SET status = 'present'.+checkin_origin = 'scan'`).
			WithArgs("att-1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		applied, err := repo.MarkPresentByScan(context.Background(), "att-1")
		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("manual mark records the admin", func(t *testing.T) {
		mock, repo := newMockDB(t)
		mock.ExpectExec(`UPDATE attendances\s+SET status = 'present'.+checkin_origin = 'manual'`).
			WithArgs("att-1", "owner-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		applied, err := repo.MarkPresentManual(context.Background(), "att-1", "owner-1")
		require.NoError(t, err)
		assert.True(t, applied)
	})

	t.Run("revert only touches manual provenance", func(t *testing.T) {
		mock, repo := newMockDB(t)
		mock.ExpectExec(`UPDATE attendances\s+SET status = 'confirmed'.+checkin_origin = 'manual'`).
			WithArgs("att-1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		applied, err := repo.RevertManual(context.Background(), "att-1")
		require.NoError(t, err)
		assert.False(t, applied, "scan-verified rows never match the guard")
	})

	t.Run("replace qr code maps collisions", func(t *testing.T) {
		mock, repo := newMockDB(t)
		mock.ExpectExec(`UPDATE attendances\s+SET qr_code = \$2`).
			WithArgs("att-1", "MARI-NEW234").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "attendances_qr_code_key"})

		_, err := repo.ReplaceQRCode(context.Background(), "att-1", "MARI-NEW234")
		assert.ErrorIs(t, err, domain.ErrQRCodeTaken)
	})
}

func TestAttendanceRepository_CountConfirmed(t *testing.T) {
	mock, repo := newMockDB(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM attendances\s+WHERE event_id = \$1 AND confirmed_at IS NOT NULL`).
		WithArgs("event-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.CountConfirmed(context.Background(), "event-1")
	require.NoError(t, err)
	assert.Equal(t, 42, count)
}

func TestAttendanceRepository_Stats(t *testing.T) {
	mock, repo := newMockDB(t)
	mock.ExpectQuery(`SELECT\s+COUNT\(\*\),`).
		WithArgs("event-1").
		WillReturnRows(sqlmock.NewRows([]string{"total", "pending", "confirmed", "present", "absent"}).
			AddRow(10, 1, 4, 3, 2))

	stats, err := repo.Stats(context.Background(), "event-1")
	require.NoError(t, err)
	assert.Equal(t, &domain.AttendeeStats{Total: 10, Pending: 1, Confirmed: 4, Present: 3, Absent: 2}, stats)
}
