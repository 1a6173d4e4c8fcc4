// Package notify defines the outbound notification port. Delivery transport
// (email, SMS) lives outside this service; the default implementation writes
// to the structured log so local and test runs stay self-contained.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Notifier delivers a message to a contact address. Callers treat failures
// as best-effort: they are logged, never propagated.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

var _ Notifier = (*LogNotifier)(nil)

// LogNotifier records notifications in the application log instead of
// delivering them.
type LogNotifier struct {
	lg *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(lg *zap.Logger) *LogNotifier {
	return &LogNotifier{lg: lg}
}

// Send logs the notification.
func (n *LogNotifier) Send(_ context.Context, to, subject, body string) error {
	n.lg.Info("notification",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
