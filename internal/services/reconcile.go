package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"guestgallery/internal/domain"
)

type eventReconciler struct {
	eventRepo      domain.EventRepository
	contentRepo    domain.ContentRepository
	userRepo       domain.UserRepository
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewEventReconciler creates the EventReconciler that merges duplicate events
// for one owner into a single survivor.
func NewEventReconciler(
	eventRepo domain.EventRepository,
	contentRepo domain.ContentRepository,
	userRepo domain.UserRepository,
	logger *slog.Logger,
	timeout time.Duration,
) domain.EventReconciler {
	return &eventReconciler{
		eventRepo:      eventRepo,
		contentRepo:    contentRepo,
		userRepo:       userRepo,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func (s *eventReconciler) ListDuplicateCandidates(ctx context.Context, ownerID string) ([]*domain.DuplicateCandidate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	owned, orphans, survivor, err := s.gather(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	candidates := make([]*domain.DuplicateCandidate, 0, len(owned)+len(orphans))
	appendCandidate := func(event *domain.Event, orphan bool) error {
		photos, posts, err := s.contentRepo.CountByEventID(ctx, event.ID)
		if err != nil {
			return fmt.Errorf("count content for event %s: %w", event.ID, err)
		}
		candidates = append(candidates, &domain.DuplicateCandidate{
			Event:      event,
			PhotoCount: photos,
			PostCount:  posts,
			Orphan:     orphan,
			Survivor:   survivor != nil && event.ID == survivor.ID,
		})
		return nil
	}
	for _, e := range owned {
		if err := appendCandidate(e, false); err != nil {
			return nil, err
		}
	}
	for _, e := range orphans {
		if err := appendCandidate(e, true); err != nil {
			return nil, err
		}
	}
	return candidates, nil
}

func (s *eventReconciler) Reconcile(ctx context.Context, ownerID string) (*domain.ReconcileResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	owned, orphans, survivor, err := s.gather(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if survivor == nil {
		// Nothing owned: no survivor can be chosen, reconciliation is a no-op.
		return &domain.ReconcileResult{}, nil
	}

	duplicates := make([]*domain.Event, 0, len(owned)+len(orphans)-1)
	for _, e := range owned {
		if e.ID != survivor.ID {
			duplicates = append(duplicates, e)
		}
	}
	duplicates = append(duplicates, orphans...)

	result := &domain.ReconcileResult{SurvivorID: survivor.ID}
	for _, dup := range duplicates {
		// MergeInto migrates content before deleting the duplicate, inside
		// one transaction. A failed merge leaves that duplicate and its
		// content untouched; the run continues with the rest.
		if err := s.eventRepo.MergeInto(ctx, dup.ID, survivor.ID); err != nil {
			s.logger.WarnContext(ctx, "duplicate merge failed",
				"owner_id", ownerID,
				"duplicate_id", dup.ID,
				"survivor_id", survivor.ID,
				"err", err,
			)
			result.FailedEventIDs = append(result.FailedEventIDs, dup.ID)
			continue
		}
		result.RemovedCount++
	}
	return result, nil
}

// gather collects the owner's events plus orphan events whose title suggests
// they belong to the owner, and picks the survivor: the most recently created
// owned event. Orphan matching is a best-effort heuristic; orphans are never
// chosen as survivor.
func (s *eventReconciler) gather(ctx context.Context, ownerID string) (owned, orphans []*domain.Event, survivor *domain.Event, err error) {
	owned, err = s.eventRepo.ListByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list events by owner: %w", err)
	}

	owner, err := s.userRepo.GetByID(ctx, ownerID)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, nil, nil, fmt.Errorf("get owner: %w", err)
	}
	if owner != nil {
		if name := strings.TrimSpace(owner.Name); name != "" {
			orphans, err = s.eventRepo.ListOrphansByTitle(ctx, name)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("list orphan events: %w", err)
			}
		}
	}

	if len(owned) > 0 {
		sorted := make([]*domain.Event, len(owned))
		copy(sorted, owned)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		})
		survivor = sorted[0]
	}
	return owned, orphans, survivor, nil
}
