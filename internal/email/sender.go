// Package email delivers verification and password reset codes. Delivery is
// fire-and-forget from the auth core's perspective: a failed send never rolls
// back the state transition that produced the code.
package email

import (
	"context"
	"log/slog"
	"time"
)

// Sender delivers one-time codes to an email address.
type Sender interface {
	SendVerificationCode(ctx context.Context, to, code string, expiresAt time.Time) error
	SendResetCode(ctx context.Context, to, code string, expiresAt time.Time) error
}

// LogSender writes codes to the structured log instead of sending mail.
// Used in development when no SMTP host is configured.
type LogSender struct{}

// NewLogSender creates a Sender that only logs.
func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) SendVerificationCode(_ context.Context, to, code string, expiresAt time.Time) error {
	slog.Info("verification code issued", "to", to, "code", code, "expires_at", expiresAt)
	return nil
}

func (s *LogSender) SendResetCode(_ context.Context, to, code string, expiresAt time.Time) error {
	slog.Info("reset code issued", "to", to, "code", code, "expires_at", expiresAt)
	return nil
}
