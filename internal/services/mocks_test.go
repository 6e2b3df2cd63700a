package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"guestgallery/internal/domain"
)

// Hand-rolled stubs with function fields: tests set only the hooks a path
// exercises, unset hooks fall back to an inert default.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

type stubEventRepo struct {
	create            func(ctx context.Context, event *domain.Event) error
	getByID           func(ctx context.Context, id string) (*domain.Event, error)
	listByOwnerID     func(ctx context.Context, ownerID string) ([]*domain.Event, error)
	listOrphansByTitle func(ctx context.Context, titleLike string) ([]*domain.Event, error)
	update            func(ctx context.Context, eventID string, date *time.Time, timezone *string, redirectEnabled *bool) (*domain.Event, error)
	mergeInto         func(ctx context.Context, duplicateID, survivorID string) error
}

func (s *stubEventRepo) Create(ctx context.Context, event *domain.Event) error {
	if s.create == nil {
		event.ID = "event-new"
		return nil
	}
	return s.create(ctx, event)
}

func (s *stubEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if s.getByID == nil {
		return nil, domain.ErrNotFound
	}
	return s.getByID(ctx, id)
}

func (s *stubEventRepo) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Event, error) {
	if s.listByOwnerID == nil {
		return nil, nil
	}
	return s.listByOwnerID(ctx, ownerID)
}

func (s *stubEventRepo) ListOrphansByTitle(ctx context.Context, titleLike string) ([]*domain.Event, error) {
	if s.listOrphansByTitle == nil {
		return nil, nil
	}
	return s.listOrphansByTitle(ctx, titleLike)
}

func (s *stubEventRepo) Update(ctx context.Context, eventID string, date *time.Time, timezone *string, redirectEnabled *bool) (*domain.Event, error) {
	if s.update == nil {
		return nil, domain.ErrNotFound
	}
	return s.update(ctx, eventID, date, timezone, redirectEnabled)
}

func (s *stubEventRepo) MergeInto(ctx context.Context, duplicateID, survivorID string) error {
	if s.mergeInto == nil {
		return nil
	}
	return s.mergeInto(ctx, duplicateID, survivorID)
}

type stubAttendeeRepo struct {
	upsertRegistered func(ctx context.Context, eventID, accountID, displayName string) (*domain.Attendee, error)
	upsertGuest      func(ctx context.Context, eventID, email, displayName, whatsapp string) (*domain.Attendee, error)
	getByID          func(ctx context.Context, id string) (*domain.Attendee, error)
}

func (s *stubAttendeeRepo) UpsertRegistered(ctx context.Context, eventID, accountID, displayName string) (*domain.Attendee, error) {
	if s.upsertRegistered == nil {
		return &domain.Attendee{ID: "attendee-1", EventID: eventID, AccountID: &accountID, DisplayName: displayName}, nil
	}
	return s.upsertRegistered(ctx, eventID, accountID, displayName)
}

func (s *stubAttendeeRepo) UpsertGuest(ctx context.Context, eventID, email, displayName, whatsapp string) (*domain.Attendee, error) {
	if s.upsertGuest == nil {
		return &domain.Attendee{ID: "attendee-1", EventID: eventID, GuestEmail: &email, DisplayName: displayName, WhatsApp: whatsapp}, nil
	}
	return s.upsertGuest(ctx, eventID, email, displayName, whatsapp)
}

func (s *stubAttendeeRepo) GetByID(ctx context.Context, id string) (*domain.Attendee, error) {
	if s.getByID == nil {
		return nil, domain.ErrNotFound
	}
	return s.getByID(ctx, id)
}

type stubAttendanceRepo struct {
	createConfirmed       func(ctx context.Context, att *domain.Attendance) error
	getByID               func(ctx context.Context, id string) (*domain.Attendance, error)
	getByEventAndAttendee func(ctx context.Context, eventID, attendeeID string) (*domain.Attendance, error)
	getByQRCode           func(ctx context.Context, code string) (*domain.Attendance, error)
	updateCompanions      func(ctx context.Context, id string, companions int) error
	promoteToConfirmed    func(ctx context.Context, id, qrCode string, companions int) (bool, error)
	replaceQRCode         func(ctx context.Context, id, newCode string) (bool, error)
	markPresentByScan     func(ctx context.Context, id string) (bool, error)
	markPresentManual     func(ctx context.Context, id, adminID string) (bool, error)
	revertManual          func(ctx context.Context, id string) (bool, error)
	markAbsentManual      func(ctx context.Context, id, adminID string) (bool, error)
	countConfirmed        func(ctx context.Context, eventID string) (int, error)
	stats                 func(ctx context.Context, eventID string) (*domain.AttendeeStats, error)
	listByEventID         func(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.AttendanceWithAttendee, int, error)
}

func (s *stubAttendanceRepo) CreateConfirmed(ctx context.Context, att *domain.Attendance) error {
	if s.createConfirmed == nil {
		att.ID = "attendance-new"
		return nil
	}
	return s.createConfirmed(ctx, att)
}

func (s *stubAttendanceRepo) GetByID(ctx context.Context, id string) (*domain.Attendance, error) {
	if s.getByID == nil {
		return nil, domain.ErrNotFound
	}
	return s.getByID(ctx, id)
}

func (s *stubAttendanceRepo) GetByEventAndAttendee(ctx context.Context, eventID, attendeeID string) (*domain.Attendance, error) {
	if s.getByEventAndAttendee == nil {
		return nil, domain.ErrNotFound
	}
	return s.getByEventAndAttendee(ctx, eventID, attendeeID)
}

func (s *stubAttendanceRepo) GetByQRCode(ctx context.Context, code string) (*domain.Attendance, error) {
	if s.getByQRCode == nil {
		return nil, domain.ErrNotFound
	}
	return s.getByQRCode(ctx, code)
}

func (s *stubAttendanceRepo) UpdateCompanions(ctx context.Context, id string, companions int) error {
	if s.updateCompanions == nil {
		return nil
	}
	return s.updateCompanions(ctx, id, companions)
}

func (s *stubAttendanceRepo) PromoteToConfirmed(ctx context.Context, id, qrCode string, companions int) (bool, error) {
	if s.promoteToConfirmed == nil {
		return true, nil
	}
	return s.promoteToConfirmed(ctx, id, qrCode, companions)
}

func (s *stubAttendanceRepo) ReplaceQRCode(ctx context.Context, id, newCode string) (bool, error) {
	if s.replaceQRCode == nil {
		return true, nil
	}
	return s.replaceQRCode(ctx, id, newCode)
}

func (s *stubAttendanceRepo) MarkPresentByScan(ctx context.Context, id string) (bool, error) {
	if s.markPresentByScan == nil {
		return true, nil
	}
	return s.markPresentByScan(ctx, id)
}

func (s *stubAttendanceRepo) MarkPresentManual(ctx context.Context, id, adminID string) (bool, error) {
	if s.markPresentManual == nil {
		return true, nil
	}
	return s.markPresentManual(ctx, id, adminID)
}

func (s *stubAttendanceRepo) RevertManual(ctx context.Context, id string) (bool, error) {
	if s.revertManual == nil {
		return true, nil
	}
	return s.revertManual(ctx, id)
}

func (s *stubAttendanceRepo) MarkAbsentManual(ctx context.Context, id, adminID string) (bool, error) {
	if s.markAbsentManual == nil {
		return true, nil
	}
	return s.markAbsentManual(ctx, id, adminID)
}

func (s *stubAttendanceRepo) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	if s.countConfirmed == nil {
		return 0, nil
	}
	return s.countConfirmed(ctx, eventID)
}

func (s *stubAttendanceRepo) Stats(ctx context.Context, eventID string) (*domain.AttendeeStats, error) {
	if s.stats == nil {
		return &domain.AttendeeStats{}, nil
	}
	return s.stats(ctx, eventID)
}

func (s *stubAttendanceRepo) ListByEventID(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.AttendanceWithAttendee, int, error) {
	if s.listByEventID == nil {
		return nil, 0, nil
	}
	return s.listByEventID(ctx, eventID, params)
}

type stubUserRepo struct {
	create     func(ctx context.Context, user *domain.User) error
	getByEmail func(ctx context.Context, email string) (*domain.User, error)
	getByID    func(ctx context.Context, id string) (*domain.User, error)
}

func (s *stubUserRepo) Create(ctx context.Context, user *domain.User) error {
	if s.create == nil {
		user.ID = "user-new"
		return nil
	}
	return s.create(ctx, user)
}

func (s *stubUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if s.getByEmail == nil {
		return nil, domain.ErrUserNotFound
	}
	return s.getByEmail(ctx, email)
}

func (s *stubUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if s.getByID == nil {
		return nil, domain.ErrUserNotFound
	}
	return s.getByID(ctx, id)
}

type stubSettingsRepo struct {
	get            func(ctx context.Context, eventID string) (*domain.NotificationSettings, error)
	upsertSettings func(ctx context.Context, settings *domain.NotificationSettings) error
	compareAndSet  func(ctx context.Context, eventID string, expected, next int) (bool, error)
}

func (s *stubSettingsRepo) Get(ctx context.Context, eventID string) (*domain.NotificationSettings, error) {
	if s.get == nil {
		return nil, domain.ErrNotFound
	}
	return s.get(ctx, eventID)
}

func (s *stubSettingsRepo) UpsertSettings(ctx context.Context, settings *domain.NotificationSettings) error {
	if s.upsertSettings == nil {
		return nil
	}
	return s.upsertSettings(ctx, settings)
}

func (s *stubSettingsRepo) CompareAndSetLastNotified(ctx context.Context, eventID string, expected, next int) (bool, error) {
	if s.compareAndSet == nil {
		return true, nil
	}
	return s.compareAndSet(ctx, eventID, expected, next)
}

type stubContentRepo struct {
	createPhoto    func(ctx context.Context, photo *domain.Photo) error
	createTextPost func(ctx context.Context, post *domain.TextPost) error
	listPhotos     func(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.Photo, int, error)
	listTextPosts  func(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.TextPost, int, error)
	countByEventID func(ctx context.Context, eventID string) (int, int, error)
}

func (s *stubContentRepo) CreatePhoto(ctx context.Context, photo *domain.Photo) error {
	if s.createPhoto == nil {
		photo.ID = "photo-new"
		return nil
	}
	return s.createPhoto(ctx, photo)
}

func (s *stubContentRepo) CreateTextPost(ctx context.Context, post *domain.TextPost) error {
	if s.createTextPost == nil {
		post.ID = "post-new"
		return nil
	}
	return s.createTextPost(ctx, post)
}

func (s *stubContentRepo) ListPhotosByEventID(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.Photo, int, error) {
	if s.listPhotos == nil {
		return nil, 0, nil
	}
	return s.listPhotos(ctx, eventID, params)
}

func (s *stubContentRepo) ListTextPostsByEventID(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.TextPost, int, error) {
	if s.listTextPosts == nil {
		return nil, 0, nil
	}
	return s.listTextPosts(ctx, eventID, params)
}

func (s *stubContentRepo) CountByEventID(ctx context.Context, eventID string) (int, int, error) {
	if s.countByEventID == nil {
		return 0, 0, nil
	}
	return s.countByEventID(ctx, eventID)
}

type stubNotifier struct {
	notify func(ctx context.Context, digest *domain.OrganizerDigest) error
}

func (s *stubNotifier) NotifyOrganizer(ctx context.Context, digest *domain.OrganizerDigest) error {
	if s.notify == nil {
		return nil
	}
	return s.notify(ctx, digest)
}

type stubResolver struct {
	resolve func(ctx context.Context, eventID string, hint domain.IdentityHint) (*domain.Attendee, error)
}

func (s *stubResolver) Resolve(ctx context.Context, eventID string, hint domain.IdentityHint) (*domain.Attendee, error) {
	return s.resolve(ctx, eventID, hint)
}

type stubThreshold struct {
	onConfirmation func(ctx context.Context, eventID string) (*domain.NotificationDecision, error)
}

func (s *stubThreshold) OnConfirmation(ctx context.Context, eventID string) (*domain.NotificationDecision, error) {
	if s.onConfirmation == nil {
		return &domain.NotificationDecision{}, nil
	}
	return s.onConfirmation(ctx, eventID)
}

func (s *stubThreshold) GetSettings(ctx context.Context, eventID, callerID string) (*domain.NotificationSettings, error) {
	return domain.DefaultNotificationSettings(eventID), nil
}

func (s *stubThreshold) UpdateSettings(ctx context.Context, eventID, callerID string, threshold int, enabled bool, adminEmail string) (*domain.NotificationSettings, error) {
	return domain.DefaultNotificationSettings(eventID), nil
}
