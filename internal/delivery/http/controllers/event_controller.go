package controllers

import (
	"log/slog"
	"net/http"
	"time"

	h "guestgallery/internal/delivery/http/helpers"
	"guestgallery/internal/delivery/http/middleware"
	"guestgallery/internal/domain"
)

// UpdateEventRequest is the request body for PATCH /events/{eventID}.
// All fields are optional; absent fields are left unchanged.
type UpdateEventRequest struct {
	Date            *time.Time `json:"date"`
	Timezone        *string    `json:"timezone" validate:"omitempty,timezone_name"`
	RedirectEnabled *bool      `json:"redirect_enabled"`
}

type EventController struct {
	Logger     *slog.Logger
	Events     domain.EventService
	Reconciler domain.EventReconciler
}

func NewEventController(logger *slog.Logger, events domain.EventService, reconciler domain.EventReconciler) *EventController {
	return &EventController{
		Logger:     logger,
		Events:     events,
		Reconciler: reconciler,
	}
}

// GetMyEvent godoc
// @Summary Get the authenticated organizer's event
// @Description Returns the organizer's most recent event, creating one on first access.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains the event"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/me [get]
func (c *EventController) GetMyEvent(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	event, err := c.Events.EnsureEventForOwner(r.Context(), userID)
	if err != nil {
		c.logIfInternal(r, err)
		h.WriteDomainError(w, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// Get godoc
// @Summary Get an event by ID
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the event"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [get]
func (c *EventController) Get(w http.ResponseWriter, r *http.Request) {
	event, err := c.Events.GetEventByID(r.Context(), r.PathValue("eventID"))
	if err != nil {
		c.logIfInternal(r, err)
		h.WriteDomainError(w, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// Update godoc
// @Summary Update event settings
// @Description Partially update date, timezone, or the post-event redirect flag. Only the owner may update.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body UpdateEventRequest true "Fields to update"
// @Success 200 {object} helpers.APIResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [patch]
func (c *EventController) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateEventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, _ := middleware.UserIDFromContext(r.Context())
	event, err := c.Events.UpdateEvent(r.Context(), r.PathValue("eventID"), userID, req.Date, req.Timezone, req.RedirectEnabled)
	if err != nil {
		c.logIfInternal(r, err)
		h.WriteDomainError(w, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// ListDuplicates godoc
// @Summary List duplicate event candidates
// @Description Returns the organizer's events plus unowned events with a matching title, each with content counts, flagging the survivor a reconcile run would keep.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains the candidate list"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /events/duplicates [get]
func (c *EventController) ListDuplicates(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	candidates, err := c.Reconciler.ListDuplicateCandidates(r.Context(), userID)
	if err != nil {
		c.logIfInternal(r, err)
		h.WriteDomainError(w, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, candidates)
}

// Reconcile godoc
// @Summary Merge duplicate events
// @Description Folds the organizer's duplicate and orphan events into the most recent owned event, preserving all photos and posts. Failed merges are reported and left intact.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains the reconcile result"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/reconcile [post]
func (c *EventController) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	result, err := c.Reconciler.Reconcile(r.Context(), userID)
	if err != nil {
		c.logIfInternal(r, err)
		h.WriteDomainError(w, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, result)
}

func (c *EventController) logIfInternal(r *http.Request, err error) {
	if !domain.IsClientError(err) {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
	}
}
