package domain

import (
	"context"
	"time"
)

// IdentityHint is the tagged union of ways a request can identify an
// attendee: a registered account reference, or a free-form guest tuple.
// The resolver branches exhaustively on the concrete type.
type IdentityHint interface {
	identityHint()
}

// RegisteredHint identifies an attendee by their account.
type RegisteredHint struct {
	AccountID string
}

// GuestHint identifies an attendee by email, carrying display name and
// contact channel. Email and Name are required.
type GuestHint struct {
	Email    string
	Name     string
	WhatsApp string
}

func (RegisteredHint) identityHint() {}
func (GuestHint) identityHint()      {}

// Attendee is the canonical identity of a person on one event's guest list.
// Exactly one of AccountID and GuestEmail is set.
// swagger:model Attendee
type Attendee struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	AccountID   *string   `json:"account_id,omitempty"`
	GuestEmail  *string   `json:"guest_email,omitempty"`
	DisplayName string    `json:"display_name"`
	WhatsApp    string    `json:"whatsapp,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Registered reports whether the attendee is backed by an account.
func (a *Attendee) Registered() bool {
	return a.AccountID != nil
}

// AttendeeRepository defines storage operations for attendee identities.
// Upserts are atomic (insert-or-update keyed on the identity), so concurrent
// resolves of the same identity converge on one row.
type AttendeeRepository interface {
	UpsertRegistered(ctx context.Context, eventID, accountID, displayName string) (*Attendee, error)
	UpsertGuest(ctx context.Context, eventID, email, displayName, whatsapp string) (*Attendee, error)
	GetByID(ctx context.Context, id string) (*Attendee, error)
}

// IdentityResolver resolves or creates the canonical attendee identity for a
// request's identity hint. It never creates an Attendance record.
type IdentityResolver interface {
	Resolve(ctx context.Context, eventID string, hint IdentityHint) (*Attendee, error)
}
