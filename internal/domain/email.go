package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// WelcomeMessageEmailData holds data for the organizer welcome email.
type WelcomeMessageEmailData struct {
	Email     string
	FirstName string
}

// OrganizerDigestEmailData holds data for the confirmation digest email.
type OrganizerDigestEmailData struct {
	AdminEmail       string
	EventTitle       string
	NewConfirmations int
	TotalConfirmed   int
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendWelcomeMessage(ctx context.Context, data *WelcomeMessageEmailData) error
	SendOrganizerDigest(ctx context.Context, data *OrganizerDigestEmailData) error
}
