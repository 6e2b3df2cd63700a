package controllers

import (
	"log/slog"
	"net/http"

	h "guestgallery/internal/delivery/http/helpers"
	"guestgallery/internal/delivery/http/middleware"
	"guestgallery/internal/domain"
)

// UpdateNotificationSettingsRequest is the request body for
// PUT /events/{eventID}/notifications.
type UpdateNotificationSettingsRequest struct {
	Threshold  int    `json:"threshold" validate:"gte=1,lte=1000"`
	Enabled    bool   `json:"enabled"`
	AdminEmail string `json:"admin_email" validate:"omitempty,email"`
}

type NotificationController struct {
	Logger  *slog.Logger
	Service domain.ThresholdNotifier
}

func NewNotificationController(logger *slog.Logger, svc domain.ThresholdNotifier) *NotificationController {
	return &NotificationController{
		Logger:  logger,
		Service: svc,
	}
}

// GetSettings godoc
// @Summary Get notification settings for an event
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the settings"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/notifications [get]
func (c *NotificationController) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	settings, err := c.Service.GetSettings(r.Context(), r.PathValue("eventID"), userID)
	if err != nil {
		c.logIfInternal(r, err)
		h.WriteDomainError(w, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, settings)
}

// UpdateSettings godoc
// @Summary Update notification settings for an event
// @Description Set the confirmation digest threshold, toggle, and recipient. Only the event owner may update.
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body UpdateNotificationSettingsRequest true "Settings"
// @Success 200 {object} helpers.APIResponse "data contains the stored settings"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/notifications [put]
func (c *NotificationController) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateNotificationSettingsRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, _ := middleware.UserIDFromContext(r.Context())
	settings, err := c.Service.UpdateSettings(r.Context(), r.PathValue("eventID"), userID, req.Threshold, req.Enabled, req.AdminEmail)
	if err != nil {
		c.logIfInternal(r, err)
		h.WriteDomainError(w, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, settings)
}

func (c *NotificationController) logIfInternal(r *http.Request, err error) {
	if !domain.IsClientError(err) {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
	}
}
