package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"guestgallery/internal/domain"
)

// DigestWorker drains the digest queue and delivers each message through the
// email service.
type DigestWorker struct {
	client *Client
	emails domain.EmailService
	logger *slog.Logger
	done   chan struct{}
	cancel context.CancelFunc
}

// NewDigestWorker returns a worker bound to the given queue client.
func NewDigestWorker(client *Client, emails domain.EmailService, logger *slog.Logger) *DigestWorker {
	return &DigestWorker{
		client: client,
		emails: emails,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start begins consuming. Malformed messages are dropped rather than
// requeued; delivery failures are requeued by the client.
func (w *DigestWorker) Start(ctx context.Context) error {
	cctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	handler := func(body []byte) error {
		var digest domain.OrganizerDigest
		if err := json.Unmarshal(body, &digest); err != nil {
			w.logger.ErrorContext(cctx, "dropping malformed digest message", "error", err)
			return nil
		}
		if err := w.emails.SendOrganizerDigest(cctx, &domain.OrganizerDigestEmailData{
			AdminEmail:       digest.AdminEmail,
			EventTitle:       digest.EventTitle,
			NewConfirmations: digest.NewConfirmations,
			TotalConfirmed:   digest.TotalConfirmed,
		}); err != nil {
			return err
		}
		w.logger.InfoContext(cctx, "organizer digest delivered",
			"event_id", digest.EventID,
			"admin_email", digest.AdminEmail,
			"new_confirmations", digest.NewConfirmations,
		)
		return nil
	}

	if err := w.client.Consume(handler); err != nil {
		cancel()
		close(w.done)
		return err
	}

	go func() {
		defer close(w.done)
		<-cctx.Done()
	}()

	w.logger.Info("digest worker started")
	return nil
}

// Stop cancels the worker and waits for it to wind down.
func (w *DigestWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
}
