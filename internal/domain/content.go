package domain

import (
	"context"
	"io"
	"time"
)

// Photo is one uploaded image in an event's gallery. ObjectKey locates the
// binary in the media store; URL is what clients render.
// swagger:model Photo
type Photo struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	URL        string    `json:"url"`
	ObjectKey  string    `json:"object_key"`
	Caption    string    `json:"caption,omitempty"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// TextPost is a short written message in an event's gallery.
// swagger:model TextPost
type TextPost struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// ContentRepository defines storage for gallery content. Re-parenting on
// event merge goes through EventRepository.MergeInto, not through here.
type ContentRepository interface {
	CreatePhoto(ctx context.Context, photo *Photo) error
	CreateTextPost(ctx context.Context, post *TextPost) error
	ListPhotosByEventID(ctx context.Context, eventID string, params PaginationParams) ([]*Photo, int, error)
	ListTextPostsByEventID(ctx context.Context, eventID string, params PaginationParams) ([]*TextPost, int, error)
	// CountByEventID returns the photo and text post counts for one event.
	CountByEventID(ctx context.Context, eventID string) (photos, posts int, err error)
}

// MediaStore is the opaque binary storage: accepts a blob, returns a URL.
type MediaStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (url string, err error)
	Delete(ctx context.Context, key string) error
}

// GalleryService defines guest-facing gallery operations.
type GalleryService interface {
	UploadPhoto(ctx context.Context, eventID, authorName, caption, contentType string, body io.Reader, size int64) (*Photo, error)
	CreateTextPost(ctx context.Context, eventID, authorName, body string) (*TextPost, error)
	ListPhotos(ctx context.Context, eventID string, params PaginationParams) ([]*Photo, int, error)
	ListTextPosts(ctx context.Context, eventID string, params PaginationParams) ([]*TextPost, int, error)
}
