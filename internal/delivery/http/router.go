package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"guestgallery/internal/delivery/http/controllers"
	"guestgallery/internal/delivery/http/middleware"
	"guestgallery/internal/domain"
)

// RouterDeps bundles everything the router needs.
type RouterDeps struct {
	Logger        *slog.Logger
	TokenVerifier domain.TokenVerifier

	Auth          *controllers.AuthController
	Events        *controllers.EventController
	Attendances   *controllers.AttendanceController
	Gallery       *controllers.GalleryController
	Notifications *controllers.NotificationController
}

// NewRouter initializes the HTTP router with all application routes.
func NewRouter(deps RouterDeps) *http.ServeMux {
	mux := http.NewServeMux()

	requireAuth := middleware.RequireAuth(deps.TokenVerifier, deps.Logger)
	optionalAuth := middleware.OptionalAuth(deps.TokenVerifier)

	// Auth
	mux.HandleFunc("POST /auth/signup", deps.Auth.SignUp)
	mux.HandleFunc("POST /auth/login", deps.Auth.Login)
	mux.HandleFunc("GET /users/me", requireAuth(deps.Auth.Me))

	// Events. /events/me, /events/duplicates and /events/reconcile must be
	// registered before the {eventID} wildcard would shadow them; the 1.22
	// mux prefers the more specific literal pattern either way.
	mux.HandleFunc("GET /events/me", requireAuth(deps.Events.GetMyEvent))
	mux.HandleFunc("GET /events/duplicates", requireAuth(deps.Events.ListDuplicates))
	mux.HandleFunc("POST /events/reconcile", requireAuth(deps.Events.Reconcile))
	mux.HandleFunc("GET /events/{eventID}", deps.Events.Get)
	mux.HandleFunc("PATCH /events/{eventID}", requireAuth(deps.Events.Update))

	// Attendance
	mux.HandleFunc("POST /events/{eventID}/attendances", optionalAuth(deps.Attendances.Confirm))
	mux.HandleFunc("POST /events/{eventID}/checkin", requireAuth(deps.Attendances.CheckIn))
	mux.HandleFunc("GET /events/{eventID}/stats", deps.Attendances.Stats)
	mux.HandleFunc("GET /events/{eventID}/attendees", requireAuth(deps.Attendances.ListAttendees))
	mux.HandleFunc("POST /attendances/{attendanceID}/manual", requireAuth(deps.Attendances.ManualAction))
	mux.HandleFunc("POST /attendances/{attendanceID}/qr-code", requireAuth(deps.Attendances.Reissue))

	// Gallery (guest-facing, no auth)
	mux.HandleFunc("POST /events/{eventID}/photos", deps.Gallery.UploadPhoto)
	mux.HandleFunc("GET /events/{eventID}/photos", deps.Gallery.ListPhotos)
	mux.HandleFunc("POST /events/{eventID}/posts", deps.Gallery.CreateTextPost)
	mux.HandleFunc("GET /events/{eventID}/posts", deps.Gallery.ListTextPosts)

	// Notifications
	mux.HandleFunc("GET /events/{eventID}/notifications", requireAuth(deps.Notifications.GetSettings))
	mux.HandleFunc("PUT /events/{eventID}/notifications", requireAuth(deps.Notifications.UpdateSettings))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
