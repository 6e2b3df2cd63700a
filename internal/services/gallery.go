package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"guestgallery/internal/domain"
)

const maxTextPostLength = 2000

type galleryService struct {
	eventRepo      domain.EventRepository
	contentRepo    domain.ContentRepository
	mediaStore     domain.MediaStore
	contextTimeout time.Duration
}

// NewGalleryService creates the guest-facing GalleryService. Binaries go to
// the media store; only the resulting URL and object key are persisted.
func NewGalleryService(eventRepo domain.EventRepository, contentRepo domain.ContentRepository, mediaStore domain.MediaStore, timeout time.Duration) domain.GalleryService {
	return &galleryService{
		eventRepo:      eventRepo,
		contentRepo:    contentRepo,
		mediaStore:     mediaStore,
		contextTimeout: timeout,
	}
}

func (s *galleryService) UploadPhoto(ctx context.Context, eventID, authorName, caption, contentType string, body io.Reader, size int64) (*domain.Photo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	authorName = strings.TrimSpace(authorName)
	if authorName == "" {
		return nil, fmt.Errorf("%w: author name is required", domain.ErrInvalidInput)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: empty upload", domain.ErrInvalidInput)
	}
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	key := path.Join(eventID, uuid.NewString())
	url, err := s.mediaStore.Upload(ctx, key, body, size, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload photo: %w", err)
	}

	now := time.Now()
	photo := &domain.Photo{
		EventID:    eventID,
		URL:        url,
		ObjectKey:  key,
		Caption:    strings.TrimSpace(caption),
		AuthorName: authorName,
		CreatedAt:  now,
	}
	if err := s.contentRepo.CreatePhoto(ctx, photo); err != nil {
		// The DB row is the source of truth; drop the unreferenced object.
		if derr := s.mediaStore.Delete(ctx, key); derr != nil {
			return nil, fmt.Errorf("create photo row: %w (orphaned object %s: %v)", err, key, derr)
		}
		return nil, fmt.Errorf("create photo row: %w", err)
	}
	return photo, nil
}

func (s *galleryService) CreateTextPost(ctx context.Context, eventID, authorName, body string) (*domain.TextPost, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	authorName = strings.TrimSpace(authorName)
	body = strings.TrimSpace(body)
	if authorName == "" || body == "" {
		return nil, fmt.Errorf("%w: author name and body are required", domain.ErrInvalidInput)
	}
	if len(body) > maxTextPostLength {
		return nil, fmt.Errorf("%w: body exceeds %d characters", domain.ErrInvalidInput, maxTextPostLength)
	}
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	post := &domain.TextPost{
		EventID:    eventID,
		AuthorName: authorName,
		Body:       body,
		CreatedAt:  time.Now(),
	}
	if err := s.contentRepo.CreateTextPost(ctx, post); err != nil {
		return nil, fmt.Errorf("create text post: %w", err)
	}
	return post, nil
}

func (s *galleryService) ListPhotos(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.Photo, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	photos, total, err := s.contentRepo.ListPhotosByEventID(ctx, eventID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list photos: %w", err)
	}
	if photos == nil {
		photos = []*domain.Photo{}
	}
	return photos, total, nil
}

func (s *galleryService) ListTextPosts(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.TextPost, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	posts, total, err := s.contentRepo.ListTextPostsByEventID(ctx, eventID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list text posts: %w", err)
	}
	if posts == nil {
		posts = []*domain.TextPost{}
	}
	return posts, total, nil
}
