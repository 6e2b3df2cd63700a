package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestgallery/internal/domain"
)

func settingsRepoWith(settings *domain.NotificationSettings) *stubSettingsRepo {
	return &stubSettingsRepo{
		get: func(_ context.Context, eventID string) (*domain.NotificationSettings, error) {
			if settings == nil || settings.EventID != eventID {
				return nil, domain.ErrNotFound
			}
			return settings, nil
		},
	}
}

func enabledSettings(eventID string, threshold, lastNotified int) *domain.NotificationSettings {
	return &domain.NotificationSettings{
		EventID:           eventID,
		Threshold:         threshold,
		Enabled:           true,
		AdminEmail:        "organizer@example.com",
		LastNotifiedCount: lastNotified,
	}
}

func countingAttendanceRepo(count int) *stubAttendanceRepo {
	return &stubAttendanceRepo{
		countConfirmed: func(_ context.Context, _ string) (int, error) {
			return count, nil
		},
	}
}

func TestThresholdNotifier_OnConfirmation(t *testing.T) {
	t.Run("unconfigured event evaluates to no dispatch", func(t *testing.T) {
		counted := false
		attRepo := &stubAttendanceRepo{
			countConfirmed: func(_ context.Context, _ string) (int, error) {
				counted = true
				return 0, nil
			},
		}
		svc := NewThresholdNotifier(&stubEventRepo{}, attRepo, settingsRepoWith(nil), &stubNotifier{}, testLogger())

		decision, err := svc.OnConfirmation(context.Background(), "event-1")
		require.NoError(t, err)
		assert.False(t, decision.Dispatch)
		assert.False(t, counted, "defaults are disabled, so the count query is skipped")
	})

	t.Run("disabled settings skip evaluation", func(t *testing.T) {
		settings := enabledSettings("event-1", 5, 0)
		settings.Enabled = false
		svc := NewThresholdNotifier(&stubEventRepo{}, countingAttendanceRepo(100), settingsRepoWith(settings), &stubNotifier{}, testLogger())

		decision, err := svc.OnConfirmation(context.Background(), "event-1")
		require.NoError(t, err)
		assert.False(t, decision.Dispatch)
	})

	t.Run("below the next boundary nothing happens", func(t *testing.T) {
		casCalled := false
		settingsRepo := settingsRepoWith(enabledSettings("event-1", 5, 5))
		settingsRepo.compareAndSet = func(_ context.Context, _ string, _, _ int) (bool, error) {
			casCalled = true
			return true, nil
		}
		svc := NewThresholdNotifier(&stubEventRepo{}, countingAttendanceRepo(9), settingsRepo, &stubNotifier{}, testLogger())

		decision, err := svc.OnConfirmation(context.Background(), "event-1")
		require.NoError(t, err)
		assert.False(t, decision.Dispatch)
		assert.Equal(t, 9, decision.TotalConfirmed)
		assert.False(t, casCalled)
	})

	t.Run("crossing a boundary dispatches once", func(t *testing.T) {
		var casExpected, casNext int
		settingsRepo := settingsRepoWith(enabledSettings("event-1", 5, 3))
		settingsRepo.compareAndSet = func(_ context.Context, _ string, expected, next int) (bool, error) {
			casExpected, casNext = expected, next
			return true, nil
		}
		eventRepo := &stubEventRepo{
			getByID: func(_ context.Context, id string) (*domain.Event, error) {
				return &domain.Event{ID: id, Title: "Casamento Ana & Bruno"}, nil
			},
		}
		var digest *domain.OrganizerDigest
		notifier := &stubNotifier{
			notify: func(_ context.Context, d *domain.OrganizerDigest) error {
				digest = d
				return nil
			},
		}
		svc := NewThresholdNotifier(eventRepo, countingAttendanceRepo(6), settingsRepo, notifier, testLogger())

		decision, err := svc.OnConfirmation(context.Background(), "event-1")
		require.NoError(t, err)
		assert.True(t, decision.Dispatch)
		assert.Equal(t, 3, decision.NewConfirmations)
		assert.Equal(t, 6, decision.TotalConfirmed)
		assert.Equal(t, 3, casExpected)
		assert.Equal(t, 6, casNext)

		require.NotNil(t, digest)
		assert.Equal(t, "organizer@example.com", digest.AdminEmail)
		assert.Equal(t, "Casamento Ana & Bruno", digest.EventTitle)
		assert.Equal(t, 3, digest.NewConfirmations)
		assert.Equal(t, 6, digest.TotalConfirmed)
	})

	t.Run("skipping several boundaries still dispatches one digest", func(t *testing.T) {
		settingsRepo := settingsRepoWith(enabledSettings("event-1", 5, 0))
		var dispatched int
		notifier := &stubNotifier{
			notify: func(_ context.Context, d *domain.OrganizerDigest) error {
				dispatched++
				assert.Equal(t, 17, d.NewConfirmations)
				return nil
			},
		}
		svc := NewThresholdNotifier(&stubEventRepo{}, countingAttendanceRepo(17), settingsRepo, notifier, testLogger())

		decision, err := svc.OnConfirmation(context.Background(), "event-1")
		require.NoError(t, err)
		assert.True(t, decision.Dispatch)
		assert.Equal(t, 17, decision.NewConfirmations)
		assert.Equal(t, 1, dispatched)
	})

	t.Run("losing the compare-and-set suppresses the dispatch", func(t *testing.T) {
		settingsRepo := settingsRepoWith(enabledSettings("event-1", 5, 0))
		settingsRepo.compareAndSet = func(_ context.Context, _ string, _, _ int) (bool, error) {
			return false, nil
		}
		notifier := &stubNotifier{
			notify: func(_ context.Context, _ *domain.OrganizerDigest) error {
				t.Fatal("loser of the boundary race must not notify")
				return nil
			},
		}
		svc := NewThresholdNotifier(&stubEventRepo{}, countingAttendanceRepo(6), settingsRepo, notifier, testLogger())

		decision, err := svc.OnConfirmation(context.Background(), "event-1")
		require.NoError(t, err)
		assert.False(t, decision.Dispatch)
		assert.Equal(t, 6, decision.TotalConfirmed)
	})

	t.Run("notifier failure does not fail the evaluation", func(t *testing.T) {
		settingsRepo := settingsRepoWith(enabledSettings("event-1", 5, 0))
		notifier := &stubNotifier{
			notify: func(_ context.Context, _ *domain.OrganizerDigest) error {
				return errors.New("smtp down")
			},
		}
		svc := NewThresholdNotifier(&stubEventRepo{}, countingAttendanceRepo(5), settingsRepo, notifier, testLogger())

		decision, err := svc.OnConfirmation(context.Background(), "event-1")
		require.NoError(t, err)
		assert.True(t, decision.Dispatch)
	})
}

func TestThresholdNotifier_Settings(t *testing.T) {
	ownerID := "owner-1"
	eventRepo := &stubEventRepo{
		getByID: func(_ context.Context, id string) (*domain.Event, error) {
			if id != "event-1" {
				return nil, domain.ErrNotFound
			}
			return &domain.Event{ID: id, OwnerID: &ownerID}, nil
		},
	}

	t.Run("get falls back to defaults", func(t *testing.T) {
		svc := NewThresholdNotifier(eventRepo, &stubAttendanceRepo{}, settingsRepoWith(nil), &stubNotifier{}, testLogger())

		settings, err := svc.GetSettings(context.Background(), "event-1", ownerID)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultNotificationThreshold, settings.Threshold)
		assert.False(t, settings.Enabled)
	})

	t.Run("get is owner gated", func(t *testing.T) {
		svc := NewThresholdNotifier(eventRepo, &stubAttendanceRepo{}, settingsRepoWith(nil), &stubNotifier{}, testLogger())

		_, err := svc.GetSettings(context.Background(), "event-1", "intruder")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("update writes and re-reads", func(t *testing.T) {
		var written *domain.NotificationSettings
		settingsRepo := settingsRepoWith(nil)
		settingsRepo.upsertSettings = func(_ context.Context, s *domain.NotificationSettings) error {
			written = s
			settingsRepo.get = func(_ context.Context, _ string) (*domain.NotificationSettings, error) {
				return s, nil
			}
			return nil
		}
		svc := NewThresholdNotifier(eventRepo, &stubAttendanceRepo{}, settingsRepo, &stubNotifier{}, testLogger())

		settings, err := svc.UpdateSettings(context.Background(), "event-1", ownerID, 10, true, "organizer@example.com")
		require.NoError(t, err)
		require.NotNil(t, written)
		assert.Equal(t, 10, written.Threshold)
		assert.Equal(t, 10, settings.Threshold)
		assert.True(t, settings.Enabled)
	})

	t.Run("update validation", func(t *testing.T) {
		svc := NewThresholdNotifier(eventRepo, &stubAttendanceRepo{}, settingsRepoWith(nil), &stubNotifier{}, testLogger())

		_, err := svc.UpdateSettings(context.Background(), "event-1", ownerID, 0, true, "organizer@example.com")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = svc.UpdateSettings(context.Background(), "event-1", ownerID, 5, true, "not-an-email")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		// Disabling does not require a usable email.
		_, err = svc.UpdateSettings(context.Background(), "event-1", ownerID, 5, false, "")
		assert.NoError(t, err)
	})
}
