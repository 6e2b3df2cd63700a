package controllers

import (
	"log/slog"
	"net/http"

	h "guestgallery/internal/delivery/http/helpers"
	"guestgallery/internal/domain"
)

// maxPhotoBytes caps a single gallery upload.
const maxPhotoBytes = 25 << 20

// CreateTextPostRequest is the request body for POST /events/{eventID}/posts.
type CreateTextPostRequest struct {
	AuthorName string `json:"author_name" validate:"required,max=120"`
	Body       string `json:"body" validate:"required,max=2000"`
}

// PhotoListResponse is the paginated photo listing.
type PhotoListResponse struct {
	Photos     []*domain.Photo  `json:"photos"`
	Pagination h.PaginationMeta `json:"pagination"`
}

// TextPostListResponse is the paginated text post listing.
type TextPostListResponse struct {
	Posts      []*domain.TextPost `json:"posts"`
	Pagination h.PaginationMeta   `json:"pagination"`
}

type GalleryController struct {
	Logger  *slog.Logger
	Service domain.GalleryService
}

func NewGalleryController(logger *slog.Logger, svc domain.GalleryService) *GalleryController {
	return &GalleryController{
		Logger:  logger,
		Service: svc,
	}
}

// UploadPhoto godoc
// @Summary Upload a photo to an event gallery
// @Description Accepts a multipart form with a "photo" file plus author_name and optional caption fields.
// @Tags gallery
// @Accept mpfd
// @Produce json
// @Param eventID path string true "Event ID"
// @Param photo formData file true "Image file"
// @Param author_name formData string true "Display name of the uploader"
// @Param caption formData string false "Caption"
// @Success 201 {object} helpers.APIResponse "data contains the created photo"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/photos [post]
func (c *GalleryController) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes)
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "photo file is required")
		return
	}
	defer file.Close()

	authorName := r.FormValue("author_name")
	if authorName == "" {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "author_name is required")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	photo, err := c.Service.UploadPhoto(r.Context(), r.PathValue("eventID"), authorName, r.FormValue("caption"), contentType, file, header.Size)
	if err != nil {
		c.logIfInternal(r, err)
		h.WriteDomainError(w, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, photo)
}

// CreateTextPost godoc
// @Summary Post a text message to an event gallery
// @Tags gallery
// @Accept json
// @Produce json
// @Param eventID path string true "Event ID"
// @Param body body CreateTextPostRequest true "Post data"
// @Success 201 {object} helpers.APIResponse "data contains the created post"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/posts [post]
func (c *GalleryController) CreateTextPost(w http.ResponseWriter, r *http.Request) {
	var req CreateTextPostRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	post, err := c.Service.CreateTextPost(r.Context(), r.PathValue("eventID"), req.AuthorName, req.Body)
	if err != nil {
		c.logIfInternal(r, err)
		h.WriteDomainError(w, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, post)
}

// ListPhotos godoc
// @Summary List an event's photos
// @Tags gallery
// @Produce json
// @Param eventID path string true "Event ID"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} helpers.APIResponse "data contains photos and pagination"
// @Router /events/{eventID}/photos [get]
func (c *GalleryController) ListPhotos(w http.ResponseWriter, r *http.Request) {
	params := h.ParsePagination(r)
	photos, total, err := c.Service.ListPhotos(r.Context(), r.PathValue("eventID"), params)
	if err != nil {
		c.logIfInternal(r, err)
		h.WriteDomainError(w, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, PhotoListResponse{
		Photos:     photos,
		Pagination: h.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

// ListTextPosts godoc
// @Summary List an event's text posts
// @Tags gallery
// @Produce json
// @Param eventID path string true "Event ID"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} helpers.APIResponse "data contains posts and pagination"
// @Router /events/{eventID}/posts [get]
func (c *GalleryController) ListTextPosts(w http.ResponseWriter, r *http.Request) {
	params := h.ParsePagination(r)
	posts, total, err := c.Service.ListTextPosts(r.Context(), r.PathValue("eventID"), params)
	if err != nil {
		c.logIfInternal(r, err)
		h.WriteDomainError(w, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, TextPostListResponse{
		Posts:      posts,
		Pagination: h.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

func (c *GalleryController) logIfInternal(r *http.Request, err error) {
	if !domain.IsClientError(err) {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
	}
}
