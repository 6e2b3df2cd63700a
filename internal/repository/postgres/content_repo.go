package postgres

import (
	"context"
	"database/sql"

	"guestgallery/internal/domain"
)

type contentRepository struct {
	DB *sql.DB
}

// NewContentRepository returns a domain.ContentRepository implemented with Postgres.
func NewContentRepository(db *sql.DB) domain.ContentRepository {
	return &contentRepository{
		DB: db,
	}
}

func (r *contentRepository) CreatePhoto(ctx context.Context, photo *domain.Photo) error {
	query := `
		INSERT INTO photos (event_id, url, object_key, caption, author_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		photo.EventID, photo.URL, photo.ObjectKey, photo.Caption, photo.AuthorName, photo.CreatedAt,
	).Scan(&photo.ID)
}

func (r *contentRepository) CreateTextPost(ctx context.Context, post *domain.TextPost) error {
	query := `
		INSERT INTO text_posts (event_id, author_name, body, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		post.EventID, post.AuthorName, post.Body, post.CreatedAt,
	).Scan(&post.ID)
}

func (r *contentRepository) ListPhotosByEventID(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.Photo, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM photos WHERE event_id = $1`, eventID).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `
		SELECT id, event_id, url, object_key, caption, author_name, created_at
		FROM photos
		WHERE event_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	photos := make([]*domain.Photo, 0)
	for rows.Next() {
		p := &domain.Photo{}
		var captionNull sql.NullString
		if err := rows.Scan(&p.ID, &p.EventID, &p.URL, &p.ObjectKey, &captionNull, &p.AuthorName, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		if captionNull.Valid {
			p.Caption = captionNull.String
		}
		photos = append(photos, p)
	}
	return photos, total, rows.Err()
}

func (r *contentRepository) ListTextPostsByEventID(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.TextPost, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM text_posts WHERE event_id = $1`, eventID).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `
		SELECT id, event_id, author_name, body, created_at
		FROM text_posts
		WHERE event_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	posts := make([]*domain.TextPost, 0)
	for rows.Next() {
		p := &domain.TextPost{}
		if err := rows.Scan(&p.ID, &p.EventID, &p.AuthorName, &p.Body, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		posts = append(posts, p)
	}
	return posts, total, rows.Err()
}

func (r *contentRepository) CountByEventID(ctx context.Context, eventID string) (int, int, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM photos WHERE event_id = $1),
			(SELECT COUNT(*) FROM text_posts WHERE event_id = $1)
	`
	var photos, posts int
	if err := r.DB.QueryRowContext(ctx, query, eventID).Scan(&photos, &posts); err != nil {
		return 0, 0, err
	}
	return photos, posts, nil
}
