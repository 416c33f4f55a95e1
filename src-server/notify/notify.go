package notify

import (
	"log/slog"
)

// Notifier delivers an outbound notification. Delivery is best effort; the
// scheduler records an attempt whether or not Send succeeds.
type Notifier interface {
	Send(to string, subject string, body string) error
}

// LogNotifier writes notifications to the log instead of delivering them.
// Used when no real mail transport is wired in.
type LogNotifier struct{}

func (LogNotifier) Send(to string, subject string, body string) error {
	slog.Info("outbound notification", "to", to, "subject", subject, "body", body)
	return nil
}
