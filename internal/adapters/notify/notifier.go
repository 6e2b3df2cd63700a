package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"guestgallery/internal/domain"
)

// queueNotifier implements domain.Notifier by enqueueing digests for the
// background worker instead of sending inline.
type queueNotifier struct {
	client *Client
}

// NewQueueNotifier returns a Notifier that publishes organizer digests to
// the broker.
func NewQueueNotifier(client *Client) domain.Notifier {
	return &queueNotifier{client: client}
}

func (n *queueNotifier) NotifyOrganizer(ctx context.Context, digest *domain.OrganizerDigest) error {
	body, err := json.Marshal(digest)
	if err != nil {
		return fmt.Errorf("failed to marshal digest: %w", err)
	}
	if err := n.client.Publish(body); err != nil {
		return fmt.Errorf("failed to enqueue digest: %w", err)
	}
	return nil
}

// directNotifier sends digests in-process through the email service. Used
// when no broker is configured.
type directNotifier struct {
	emails domain.EmailService
}

// NewDirectNotifier returns a Notifier that sends digests synchronously.
func NewDirectNotifier(emails domain.EmailService) domain.Notifier {
	return &directNotifier{emails: emails}
}

func (n *directNotifier) NotifyOrganizer(ctx context.Context, digest *domain.OrganizerDigest) error {
	return n.emails.SendOrganizerDigest(ctx, &domain.OrganizerDigestEmailData{
		AdminEmail:       digest.AdminEmail,
		EventTitle:       digest.EventTitle,
		NewConfirmations: digest.NewConfirmations,
		TotalConfirmed:   digest.TotalConfirmed,
	})
}
