package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"guestgallery/config"
	_ "guestgallery/docs"
	"guestgallery/internal/adapters/auth"
	"guestgallery/internal/adapters/email"
	"guestgallery/internal/adapters/media"
	"guestgallery/internal/adapters/notify"
	httpdelivery "guestgallery/internal/delivery/http"
	"guestgallery/internal/delivery/http/controllers"
	"guestgallery/internal/delivery/http/middleware"
	"guestgallery/internal/domain"
	"guestgallery/internal/repository/postgres"
	"guestgallery/internal/services"
)

// @title GuestGallery API
// @version 1.0
// @description Event photo sharing with attendance confirmation, QR check-in, and organizer notifications.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "err", err)
		os.Exit(1)
	}

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	attendeeRepo := postgres.NewAttendeeRepository(db)
	attendanceRepo := postgres.NewAttendanceRepository(db)
	notificationRepo := postgres.NewNotificationSettingsRepository(db)
	contentRepo := postgres.NewContentRepository(db)

	// Adapters
	hasher := auth.NewBcryptHasher(12)
	jwt := auth.NewJWTIssuer(cfg.JWTSecret)
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.SESRegion,
			AccessKeyID:        cfg.Email.SESAccessKeyID,
			SecretAccessKey:    cfg.Email.SESSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureTLS,
		},
	})
	if err != nil {
		logger.Error("failed to create mailer", "err", err)
		os.Exit(1)
	}
	emails := services.NewEmailService(mailer, email.NewTemplateRenderer())
	mediaStore := media.NewS3Store(media.S3Config{
		Region:          cfg.Media.Region,
		AccessKeyID:     cfg.Media.AccessKeyID,
		SecretAccessKey: cfg.Media.SecretAccessKey,
		Bucket:          cfg.Media.Bucket,
		Endpoint:        cfg.Media.Endpoint,
		PublicBaseURL:   cfg.Media.PublicBaseURL,
	}, logger)

	// Digest delivery: through the broker when one is configured, otherwise
	// in-process.
	var notifier domain.Notifier
	var digestWorker *notify.DigestWorker
	if cfg.Queue.URL != "" {
		queueClient, err := notify.NewClient(cfg.Queue.URL, cfg.Queue.Exchange, cfg.Queue.Queue)
		if err != nil {
			logger.Error("failed to connect digest queue", "err", err)
			os.Exit(1)
		}
		defer queueClient.Close()
		notifier = notify.NewQueueNotifier(queueClient)
		digestWorker = notify.NewDigestWorker(queueClient, emails, logger)
	} else {
		notifier = notify.NewDirectNotifier(emails)
	}

	// Services
	const serviceTimeout = 10 * time.Second
	resolver := services.NewIdentityResolver(attendeeRepo, userRepo)
	issuer := services.NewQRCodeIssuer(attendanceRepo, attendeeRepo)
	threshold := services.NewThresholdNotifier(eventRepo, attendanceRepo, notificationRepo, notifier, logger)
	attendanceSvc := services.NewAttendanceService(eventRepo, attendanceRepo, attendeeRepo, resolver, issuer, threshold, logger, serviceTimeout)
	eventSvc := services.NewEventService(eventRepo, userRepo, serviceTimeout)
	reconciler := services.NewEventReconciler(eventRepo, contentRepo, userRepo, logger, serviceTimeout)
	gallerySvc := services.NewGalleryService(eventRepo, contentRepo, mediaStore, serviceTimeout)
	authSvc := services.NewAuthService(userRepo, hasher, jwt, cfg.JWTExpiry, emails, logger)

	// HTTP delivery
	mux := httpdelivery.NewRouter(httpdelivery.RouterDeps{
		Logger:        logger,
		TokenVerifier: jwt,
		Auth:          controllers.NewAuthController(logger, authSvc),
		Events:        controllers.NewEventController(logger, eventSvc, reconciler),
		Attendances:   controllers.NewAttendanceController(logger, attendanceSvc),
		Gallery:       controllers.NewGalleryController(logger, gallerySvc),
		Notifications: controllers.NewNotificationController(logger, threshold),
	})
	handler := middleware.RequestID(
		middleware.LoggingMiddleware(logger,
			middleware.CORS(cfg.CORSAllowedOrigins, mux)))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if digestWorker != nil {
		if err := digestWorker.Start(ctx); err != nil {
			logger.Error("failed to start digest worker", "err", err)
			os.Exit(1)
		}
		defer digestWorker.Stop()
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}
