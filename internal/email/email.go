// Package email sends delivered artifacts to users by email.
//
// Dispatcher is the collaborator the email service talks to. SMTPDispatcher
// implements it over plain SMTP (Mailhog in development, any relay in
// production) and attaches the artifact as a base64 MIME part.
package email

import (
	"context"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Dispatcher sends a rendered artifact to a recipient.
type Dispatcher interface {
	// SendArtifact emails the artifact to msg.To. The payload is already
	// base64 encoded.
	SendArtifact(ctx context.Context, msg ArtifactEmail) error
}

// =============================================================================
// Email Data Types
// =============================================================================

// ArtifactEmail is one artifact addressed to one recipient.
type ArtifactEmail struct {
	To          string // Recipient email address
	Name        string // Recipient name for the greeting; may be empty
	Filename    string // Attachment filename, already sanitized
	ContentType string // Attachment MIME type
	Base64Data  string // Standard base64 of the artifact bytes
}

// Email represents a single email message.
type Email struct {
	To          string
	Subject     string
	HTMLBody    string
	TextBody    string
	Attachments []Attachment
}

// Attachment is a base64 encoded file part.
type Attachment struct {
	Filename    string
	ContentType string
	Base64Data  string
}

// =============================================================================
// Configuration Types
// =============================================================================

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string // SMTP server hostname (e.g., "localhost" for Mailhog)
	Port     int    // SMTP server port (e.g., 1025 for Mailhog)
	Username string // SMTP authentication username (empty for Mailhog)
	Password string // SMTP authentication password (empty for Mailhog)
	From     string // Default sender email address
	FromName string // Default sender display name
}

const (
	// DefaultFromEmail is the default sender email.
	DefaultFromEmail = "noreply@folio.app"

	// DefaultFromName is the default sender display name.
	DefaultFromName = "Folio"
)
