package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestgallery/internal/domain"
)

func newEventMockDB(t *testing.T) (sqlmock.Sqlmock, domain.EventRepository) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return mock, NewEventRepository(db)
}

func eventRows(events ...*domain.Event) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "owner_id", "title", "date", "timezone", "redirect_enabled", "created_at", "updated_at",
	})
	for _, e := range events {
		rows.AddRow(e.ID, nullable(e.OwnerID), e.Title, nullable(e.Date), e.Timezone, e.RedirectEnabled, e.CreatedAt, e.UpdatedAt)
	}
	return rows
}

func TestEventRepository_GetByID(t *testing.T) {
	now := time.Now()
	ownerID := "owner-1"

	t.Run("found", func(t *testing.T) {
		mock, repo := newEventMockDB(t)
		mock.ExpectQuery(`SELECT .+ FROM events WHERE id = \$1`).
			WithArgs("event-1").
			WillReturnRows(eventRows(&domain.Event{
				ID: "event-1", OwnerID: &ownerID, Title: "Festa",
				Timezone: "America/Sao_Paulo", CreatedAt: now, UpdatedAt: now,
			}))

		event, err := repo.GetByID(context.Background(), "event-1")
		require.NoError(t, err)
		require.NotNil(t, event.OwnerID)
		assert.Equal(t, "owner-1", *event.OwnerID)
		assert.Nil(t, event.Date)
	})

	t.Run("orphan row scans with nil owner", func(t *testing.T) {
		mock, repo := newEventMockDB(t)
		mock.ExpectQuery(`SELECT .+ FROM events WHERE id = \$1`).
			WithArgs("orphan-1").
			WillReturnRows(eventRows(&domain.Event{ID: "orphan-1", Title: "Festa", CreatedAt: now, UpdatedAt: now}))

		event, err := repo.GetByID(context.Background(), "orphan-1")
		require.NoError(t, err)
		assert.Nil(t, event.OwnerID)
	})

	t.Run("missing", func(t *testing.T) {
		mock, repo := newEventMockDB(t)
		mock.ExpectQuery(`SELECT .+ FROM events WHERE id = \$1`).
			WithArgs("ghost").
			WillReturnRows(eventRows())

		_, err := repo.GetByID(context.Background(), "ghost")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestEventRepository_ListOrphansByTitle(t *testing.T) {
	now := time.Now()
	mock, repo := newEventMockDB(t)
	mock.ExpectQuery(`WHERE owner_id IS NULL AND title ILIKE`).
		WithArgs("Maria Silva").
		WillReturnRows(eventRows(
			&domain.Event{ID: "orphan-1", Title: "Festa da Maria Silva", CreatedAt: now, UpdatedAt: now},
			&domain.Event{ID: "orphan-2", Title: "maria silva", CreatedAt: now, UpdatedAt: now},
		))

	orphans, err := repo.ListOrphansByTitle(context.Background(), "Maria Silva")
	require.NoError(t, err)
	require.Len(t, orphans, 2)
	assert.Nil(t, orphans[0].OwnerID)
}

func TestEventRepository_Update(t *testing.T) {
	now := time.Now()
	ownerID := "owner-1"

	t.Run("updates only the provided fields", func(t *testing.T) {
		mock, repo := newEventMockDB(t)
		tz := "America/Sao_Paulo"
		mock.ExpectQuery(`UPDATE events SET updated_at = NOW\(\), timezone = \$1\s+WHERE id = \$2`).
			WithArgs(tz, "event-1").
			WillReturnRows(eventRows(&domain.Event{
				ID: "event-1", OwnerID: &ownerID, Title: "Festa",
				Timezone: tz, CreatedAt: now, UpdatedAt: now,
			}))

		event, err := repo.Update(context.Background(), "event-1", nil, &tz, nil)
		require.NoError(t, err)
		assert.Equal(t, tz, event.Timezone)
	})

	t.Run("no fields falls back to a plain read", func(t *testing.T) {
		mock, repo := newEventMockDB(t)
		mock.ExpectQuery(`SELECT .+ FROM events WHERE id = \$1`).
			WithArgs("event-1").
			WillReturnRows(eventRows(&domain.Event{ID: "event-1", OwnerID: &ownerID, Title: "Festa", CreatedAt: now, UpdatedAt: now}))

		_, err := repo.Update(context.Background(), "event-1", nil, nil, nil)
		require.NoError(t, err)
	})
}

func TestEventRepository_MergeInto(t *testing.T) {
	t.Run("migrates content before deleting the duplicate", func(t *testing.T) {
		mock, repo := newEventMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE photos SET event_id = \$1 WHERE event_id = \$2`).
			WithArgs("survivor", "duplicate").
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec(`UPDATE text_posts SET event_id = \$1 WHERE event_id = \$2`).
			WithArgs("survivor", "duplicate").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM events WHERE id = \$1`).
			WithArgs("duplicate").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.MergeInto(context.Background(), "duplicate", "survivor"))
	})

	t.Run("vanished duplicate rolls back", func(t *testing.T) {
		mock, repo := newEventMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE photos`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`UPDATE text_posts`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM events`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.MergeInto(context.Background(), "duplicate", "survivor")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("a failed migration aborts the whole merge", func(t *testing.T) {
		mock, repo := newEventMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE photos`).WillReturnError(errors.New("deadlock detected"))
		mock.ExpectRollback()

		err := repo.MergeInto(context.Background(), "duplicate", "survivor")
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
	})
}
