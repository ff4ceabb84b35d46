package notify

import (
	"context"
	"log/slog"
)

// NoOpNotifier implements Notifier by logging discarded alerts. It is used
// when neither Telegram nor Discord is configured.
type NoOpNotifier struct {
	log *slog.Logger
}

// NewNoOpNotifier creates a notifier that discards alerts with a log message.
func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	return &NoOpNotifier{log: log}
}

// SendDeal logs and discards the alert.
func (n *NoOpNotifier) SendDeal(_ context.Context, alert *DealAlert) error {
	n.log.Debug("notification discarded (no backend configured)",
		"identity", alert.Listing.Identity,
		"title", alert.Listing.Title,
		"confidence", alert.Assessment.Confidence,
	)
	return nil
}
