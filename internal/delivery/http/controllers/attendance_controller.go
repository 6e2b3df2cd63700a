package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	h "guestgallery/internal/delivery/http/helpers"
	"guestgallery/internal/delivery/http/middleware"
	"guestgallery/internal/domain"
)

// GuestIdentity carries the free-form identity of an unregistered guest.
type GuestIdentity struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=120"`
	WhatsApp string `json:"whatsapp" validate:"omitempty,whatsapp"`
}

// ConfirmRequest is the request body for POST /events/{eventID}/attendances.
// Authenticated callers confirm as themselves and omit Guest; anonymous
// callers must provide Guest.
type ConfirmRequest struct {
	Companions int            `json:"companions" validate:"gte=0,lte=20"`
	Guest      *GuestIdentity `json:"guest"`
}

// CheckInRequest is the request body for POST /events/{eventID}/checkin.
type CheckInRequest struct {
	QRCode string `json:"qr_code" validate:"required"`
}

// ManualActionRequest is the request body for POST /attendances/{attendanceID}/manual.
type ManualActionRequest struct {
	Action string `json:"action" validate:"required,oneof=checkin undo absent"`
}

// ReissueResponse is the response body for a QR code reissue.
type ReissueResponse struct {
	QRCode string `json:"qr_code"`
}

// AttendeeListResponse is the paginated attendee listing.
type AttendeeListResponse struct {
	Attendees  []*domain.AttendanceWithAttendee `json:"attendees"`
	Pagination h.PaginationMeta                 `json:"pagination"`
}

type AttendanceController struct {
	Logger  *slog.Logger
	Service domain.AttendanceService
}

func NewAttendanceController(logger *slog.Logger, svc domain.AttendanceService) *AttendanceController {
	return &AttendanceController{
		Logger:  logger,
		Service: svc,
	}
}

// Confirm godoc
// @Summary Confirm attendance
// @Description Confirm attendance on an event and receive a check-in QR code. Logged-in callers confirm under their account; anonymous callers provide guest identity. Repeating the call for the same identity returns the existing code.
// @Tags attendances
// @Accept json
// @Produce json
// @Param eventID path string true "Event ID"
// @Param body body ConfirmRequest true "Confirmation data"
// @Success 201 {object} helpers.APIResponse "data contains the confirmation result"
// @Success 200 {object} helpers.APIResponse "data contains the existing confirmation"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/attendances [post]
func (c *AttendanceController) Confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}

	var hint domain.IdentityHint
	if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
		hint = domain.RegisteredHint{AccountID: userID}
	} else if req.Guest != nil {
		hint = domain.GuestHint{
			Email:    req.Guest.Email,
			Name:     req.Guest.Name,
			WhatsApp: req.Guest.WhatsApp,
		}
	} else {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "guest identity is required when not logged in")
		return
	}

	result, err := c.Service.Confirm(r.Context(), r.PathValue("eventID"), hint, req.Companions)
	if err != nil {
		c.logIfInternal(r, err)
		h.WriteDomainError(w, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	h.WriteJSONSuccess(w, status, result)
}

// CheckIn godoc
// @Summary Check in a guest by QR code
// @Description Mark the attendance behind the scanned code as present. Re-scanning an already present code is a no-op.
// @Tags attendances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body CheckInRequest true "Scanned code"
// @Success 200 {object} helpers.APIResponse "data contains the check-in result"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (code belongs to another event)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (unknown code)"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (not in a check-in-able state)"
// @Router /events/{eventID}/checkin [post]
func (c *AttendanceController) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req CheckInRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	result, err := c.Service.CheckIn(r.Context(), r.PathValue("eventID"), req.QRCode)
	if err != nil {
		c.logIfInternal(r, err)
		h.WriteDomainError(w, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, result)
}

// ManualAction godoc
// @Summary Apply a manual attendance action
// @Description Event owner actions on one attendance: "checkin" marks present, "absent" marks absent, "undo" reverts a manual mark back to confirmed. Scan-verified presence cannot be changed.
// @Tags attendances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param attendanceID path string true "Attendance ID"
// @Param body body ManualActionRequest true "Action"
// @Success 200 {object} helpers.APIResponse "data contains the resulting state"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (protected state or invalid transition)"
// @Router /attendances/{attendanceID}/manual [post]
func (c *AttendanceController) ManualAction(w http.ResponseWriter, r *http.Request) {
	var req ManualActionRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, _ := middleware.UserIDFromContext(r.Context())
	action := domain.ManualAction(strings.ToLower(strings.TrimSpace(req.Action)))
	result, err := c.Service.ManualCheckIn(r.Context(), r.PathValue("attendanceID"), action, userID)
	if err != nil {
		c.logIfInternal(r, err)
		h.WriteDomainError(w, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, result)
}

// Reissue godoc
// @Summary Reissue a QR code
// @Description Invalidate the attendance's current code and activate a fresh one. Only the event owner may reissue.
// @Tags attendances
// @Produce json
// @Security BearerAuth
// @Param attendanceID path string true "Attendance ID"
// @Success 200 {object} helpers.APIResponse "data contains the new code"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /attendances/{attendanceID}/qr-code [post]
func (c *AttendanceController) Reissue(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	code, err := c.Service.ReissueQRCode(r.Context(), r.PathValue("attendanceID"), userID)
	if err != nil {
		c.logIfInternal(r, err)
		h.WriteDomainError(w, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, ReissueResponse{QRCode: code})
}

// Stats godoc
// @Summary Get attendance stats for an event
// @Tags attendances
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains per-status counts"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/stats [get]
func (c *AttendanceController) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.Service.Stats(r.Context(), r.PathValue("eventID"))
	if err != nil {
		c.logIfInternal(r, err)
		h.WriteDomainError(w, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, stats)
}

// ListAttendees godoc
// @Summary List attendees of an event
// @Description Returns the event's attendance records with identities, paginated. Only the event owner may list.
// @Tags attendances
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} helpers.APIResponse "data contains attendees and pagination"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/attendees [get]
func (c *AttendanceController) ListAttendees(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	params := h.ParsePagination(r)
	attendees, total, err := c.Service.ListAttendees(r.Context(), r.PathValue("eventID"), userID, params)
	if err != nil {
		c.logIfInternal(r, err)
		h.WriteDomainError(w, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, AttendeeListResponse{
		Attendees:  attendees,
		Pagination: h.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

func (c *AttendanceController) logIfInternal(r *http.Request, err error) {
	if !domain.IsClientError(err) {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
	}
}
