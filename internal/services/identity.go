package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"guestgallery/internal/domain"
)

var guestEmailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type identityResolver struct {
	attendeeRepo domain.AttendeeRepository
	userRepo     domain.UserRepository
}

// NewIdentityResolver creates an IdentityResolver backed by the given repositories.
func NewIdentityResolver(attendeeRepo domain.AttendeeRepository, userRepo domain.UserRepository) domain.IdentityResolver {
	return &identityResolver{
		attendeeRepo: attendeeRepo,
		userRepo:     userRepo,
	}
}

func (r *identityResolver) Resolve(ctx context.Context, eventID string, hint domain.IdentityHint) (*domain.Attendee, error) {
	switch h := hint.(type) {
	case domain.RegisteredHint:
		return r.resolveRegistered(ctx, eventID, h)
	case domain.GuestHint:
		return r.resolveGuest(ctx, eventID, h)
	default:
		return nil, fmt.Errorf("%w: missing identity hint", domain.ErrInvalidInput)
	}
}

func (r *identityResolver) resolveRegistered(ctx context.Context, eventID string, hint domain.RegisteredHint) (*domain.Attendee, error) {
	if hint.AccountID == "" {
		return nil, fmt.Errorf("%w: account id is required", domain.ErrInvalidInput)
	}
	user, err := r.userRepo.GetByID(ctx, hint.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	displayName := strings.TrimSpace(user.Name)
	if displayName == "" {
		displayName = user.Email
	}
	attendee, err := r.attendeeRepo.UpsertRegistered(ctx, eventID, user.ID, displayName)
	if err != nil {
		return nil, fmt.Errorf("upsert registered attendee: %w", err)
	}
	return attendee, nil
}

func (r *identityResolver) resolveGuest(ctx context.Context, eventID string, hint domain.GuestHint) (*domain.Attendee, error) {
	email := strings.ToLower(strings.TrimSpace(hint.Email))
	name := strings.TrimSpace(hint.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: guest name is required", domain.ErrInvalidInput)
	}
	if !guestEmailRegexp.MatchString(email) {
		return nil, fmt.Errorf("%w: guest email is not usable", domain.ErrInvalidInput)
	}
	attendee, err := r.attendeeRepo.UpsertGuest(ctx, eventID, email, name, strings.TrimSpace(hint.WhatsApp))
	if err != nil {
		return nil, fmt.Errorf("upsert guest attendee: %w", err)
	}
	return attendee, nil
}
