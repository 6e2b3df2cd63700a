package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestgallery/internal/domain"
)

func ownedEvent(id, ownerID string, createdAt time.Time) *domain.Event {
	return &domain.Event{ID: id, OwnerID: &ownerID, Title: "Maria Silva", CreatedAt: createdAt}
}

func reconcilerFixture(owned, orphans []*domain.Event) (*stubEventRepo, *stubUserRepo) {
	eventRepo := &stubEventRepo{
		listByOwnerID: func(_ context.Context, _ string) ([]*domain.Event, error) {
			return owned, nil
		},
		listOrphansByTitle: func(_ context.Context, _ string) ([]*domain.Event, error) {
			return orphans, nil
		},
	}
	userRepo := &stubUserRepo{
		getByID: func(_ context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, Email: "maria@example.com", Name: "Maria Silva"}, nil
		},
	}
	return eventRepo, userRepo
}

func TestEventReconciler_Reconcile(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("nothing owned is a no-op", func(t *testing.T) {
		eventRepo, userRepo := reconcilerFixture(nil, []*domain.Event{{ID: "orphan-1"}})
		eventRepo.mergeInto = func(_ context.Context, _, _ string) error {
			t.Fatal("no merge may run without a survivor")
			return nil
		}
		svc := NewEventReconciler(eventRepo, &stubContentRepo{}, userRepo, testLogger(), time.Second)

		result, err := svc.Reconcile(context.Background(), "owner-1")
		require.NoError(t, err)
		assert.Empty(t, result.SurvivorID)
		assert.Zero(t, result.RemovedCount)
	})

	t.Run("most recently created owned event survives", func(t *testing.T) {
		owned := []*domain.Event{
			ownedEvent("event-old", "owner-1", base),
			ownedEvent("event-new", "owner-1", base.Add(48*time.Hour)),
			ownedEvent("event-mid", "owner-1", base.Add(24*time.Hour)),
		}
		orphans := []*domain.Event{{ID: "orphan-1", Title: "Maria Silva"}}
		eventRepo, userRepo := reconcilerFixture(owned, orphans)
		var merged []string
		eventRepo.mergeInto = func(_ context.Context, duplicateID, survivorID string) error {
			require.Equal(t, "event-new", survivorID)
			merged = append(merged, duplicateID)
			return nil
		}
		svc := NewEventReconciler(eventRepo, &stubContentRepo{}, userRepo, testLogger(), time.Second)

		result, err := svc.Reconcile(context.Background(), "owner-1")
		require.NoError(t, err)
		assert.Equal(t, "event-new", result.SurvivorID)
		assert.Equal(t, 3, result.RemovedCount)
		assert.ElementsMatch(t, []string{"event-old", "event-mid", "orphan-1"}, merged)
		assert.Empty(t, result.FailedEventIDs)
	})

	t.Run("a failed merge is reported and the run continues", func(t *testing.T) {
		owned := []*domain.Event{
			ownedEvent("event-a", "owner-1", base),
			ownedEvent("event-b", "owner-1", base.Add(time.Hour)),
			ownedEvent("event-survivor", "owner-1", base.Add(2*time.Hour)),
		}
		eventRepo, userRepo := reconcilerFixture(owned, nil)
		eventRepo.mergeInto = func(_ context.Context, duplicateID, _ string) error {
			if duplicateID == "event-a" {
				return errors.New("deadlock detected")
			}
			return nil
		}
		svc := NewEventReconciler(eventRepo, &stubContentRepo{}, userRepo, testLogger(), time.Second)

		result, err := svc.Reconcile(context.Background(), "owner-1")
		require.NoError(t, err)
		assert.Equal(t, 1, result.RemovedCount)
		assert.Equal(t, []string{"event-a"}, result.FailedEventIDs)
	})

	t.Run("owner without a name skips orphan matching", func(t *testing.T) {
		owned := []*domain.Event{ownedEvent("event-1", "owner-1", base)}
		eventRepo, _ := reconcilerFixture(owned, nil)
		eventRepo.listOrphansByTitle = func(_ context.Context, _ string) ([]*domain.Event, error) {
			t.Fatal("blank owner name must not query orphans")
			return nil, nil
		}
		userRepo := &stubUserRepo{
			getByID: func(_ context.Context, id string) (*domain.User, error) {
				return &domain.User{ID: id, Email: "maria@example.com", Name: "   "}, nil
			},
		}
		svc := NewEventReconciler(eventRepo, &stubContentRepo{}, userRepo, testLogger(), time.Second)

		result, err := svc.Reconcile(context.Background(), "owner-1")
		require.NoError(t, err)
		assert.Equal(t, "event-1", result.SurvivorID)
		assert.Zero(t, result.RemovedCount)
	})
}

func TestEventReconciler_ListDuplicateCandidates(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	owned := []*domain.Event{
		ownedEvent("event-old", "owner-1", base),
		ownedEvent("event-new", "owner-1", base.Add(time.Hour)),
	}
	orphans := []*domain.Event{{ID: "orphan-1", Title: "Maria Silva"}}
	eventRepo, userRepo := reconcilerFixture(owned, orphans)
	contentRepo := &stubContentRepo{
		countByEventID: func(_ context.Context, eventID string) (int, int, error) {
			if eventID == "orphan-1" {
				return 7, 2, nil
			}
			return 0, 0, nil
		},
	}
	svc := NewEventReconciler(eventRepo, contentRepo, userRepo, testLogger(), time.Second)

	candidates, err := svc.ListDuplicateCandidates(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	byID := map[string]*domain.DuplicateCandidate{}
	for _, c := range candidates {
		byID[c.Event.ID] = c
	}
	assert.True(t, byID["event-new"].Survivor)
	assert.False(t, byID["event-old"].Survivor)
	assert.False(t, byID["event-new"].Orphan)
	assert.True(t, byID["orphan-1"].Orphan)
	assert.False(t, byID["orphan-1"].Survivor, "orphans are never survivor")
	assert.Equal(t, 7, byID["orphan-1"].PhotoCount)
	assert.Equal(t, 2, byID["orphan-1"].PostCount)
}
