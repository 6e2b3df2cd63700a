package services

import (
	"context"
	"fmt"
	"log"

	"guestgallery/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer}
}

// SendWelcomeMessage sends the organizer welcome email using the "welcome" template.
func (s *emailService) SendWelcomeMessage(ctx context.Context, data *domain.WelcomeMessageEmailData) error {
	if data == nil {
		return fmt.Errorf("welcome message data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("welcome", data)
	if err != nil {
		return fmt.Errorf("failed to render welcome template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	log.Printf("[EMAIL] Welcome email sent to %s", data.Email)
	return nil
}

// SendOrganizerDigest sends the confirmation digest using the "organizer_digest" template.
func (s *emailService) SendOrganizerDigest(ctx context.Context, data *domain.OrganizerDigestEmailData) error {
	if data == nil {
		return fmt.Errorf("organizer digest data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("organizer_digest", data)
	if err != nil {
		return fmt.Errorf("failed to render organizer_digest template: %w", err)
	}
	if err := s.mailer.Send(data.AdminEmail, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send organizer digest: %w", err)
	}
	log.Printf("[EMAIL] Organizer digest sent to %s", data.AdminEmail)
	return nil
}
