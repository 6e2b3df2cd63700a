package domain

import (
	"context"
	"time"
)

// Event represents an organizer's gallery instance. OwnerID is nil for orphan
// events (created before the owner finished signing up); the reconciler folds
// those back into the owner's canonical event.
// swagger:model Event
type Event struct {
	ID              string     `json:"id"`
	OwnerID         *string    `json:"owner_id"`
	Title           string     `json:"title"`
	Date            *time.Time `json:"date"`
	Timezone        string     `json:"timezone"`
	RedirectEnabled bool       `json:"redirect_enabled"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewEvent returns a new Event owned by ownerID. ID is set by the repository on create.
func NewEvent(ownerID, title string, createdAt, updatedAt time.Time) *Event {
	return &Event{
		OwnerID:   &ownerID,
		Title:     title,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// EventRepository defines the interface for event storage.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	ListByOwnerID(ctx context.Context, ownerID string) ([]*Event, error)
	// ListOrphansByTitle returns events with no owner whose title matches the
	// given substring (case-insensitive). Best-effort duplicate detection.
	ListOrphansByTitle(ctx context.Context, titleLike string) ([]*Event, error)
	Update(ctx context.Context, eventID string, date *time.Time, timezone *string, redirectEnabled *bool) (*Event, error)
	// MergeInto re-parents all photos and text posts of duplicateID onto
	// survivorID and deletes the duplicate, all in one transaction. The
	// duplicate is never deleted before its content has been migrated.
	MergeInto(ctx context.Context, duplicateID, survivorID string) error
}

// DuplicateCandidate is one event considered for merging, with enough context
// for a human to review before reconciliation runs.
// swagger:model DuplicateCandidate
type DuplicateCandidate struct {
	Event      *Event `json:"event"`
	PhotoCount int    `json:"photo_count"`
	PostCount  int    `json:"post_count"`
	Orphan     bool   `json:"orphan"`
	Survivor   bool   `json:"survivor"`
}

// ReconcileResult reports the outcome of a reconciliation run. FailedEventIDs
// lists duplicates whose content migration failed; those events and their
// content are left intact.
// swagger:model ReconcileResult
type ReconcileResult struct {
	RemovedCount   int      `json:"removed_count"`
	SurvivorID     string   `json:"survivor_id"`
	FailedEventIDs []string `json:"failed_event_ids,omitempty"`
}

// EventService defines organizer-facing event operations.
type EventService interface {
	// EnsureEventForOwner returns the owner's most recent event, creating one
	// on first access.
	EnsureEventForOwner(ctx context.Context, ownerID string) (*Event, error)
	GetEventByID(ctx context.Context, eventID string) (*Event, error)
	UpdateEvent(ctx context.Context, eventID, ownerID string, date *time.Time, timezone *string, redirectEnabled *bool) (*Event, error)
}

// EventReconciler merges duplicate events for one owner into a single
// survivor while preserving all attached content.
type EventReconciler interface {
	ListDuplicateCandidates(ctx context.Context, ownerID string) ([]*DuplicateCandidate, error)
	Reconcile(ctx context.Context, ownerID string) (*ReconcileResult, error)
}
