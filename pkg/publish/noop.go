package publish

import (
	"context"
	"log/slog"
)

// NoopNotifier is used when no alert channel credential is configured.
// It records the skipped alert in the local log only.
type NoopNotifier struct {
	logger *slog.Logger
}

// NewNoopNotifier creates a notifier that drops every alert
func NewNoopNotifier(logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopNotifier{logger: logger}
}

// Notify logs and discards the alert
func (n *NoopNotifier) Notify(ctx context.Context, message string, fields map[string]string) {
	n.logger.WarnContext(ctx, "Notification credential not configured, skipping notification", "message", message)
}
