package notify

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fieldops/workorder-service/internal/config"
)

// Notifier delivers a message to one recipient. Implementations report a
// per-recipient error; they never retry on their own.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// EmailNotifier is the default delivery channel. Emission is gated on the
// configured sender address; webhook mirroring is gated on the webhook URL.
type EmailNotifier struct {
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NewEmailNotifier creates the notifier.
func NewEmailNotifier(logger *zap.Logger, cfg config.NotificationConfig) *EmailNotifier {
	return &EmailNotifier{logger: logger, cfg: cfg}
}

// Send emits the notification through the configured channels.
func (n *EmailNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(n.cfg.EmailFrom) != "" {
		n.logger.Info("email notification",
			zap.String("from", n.cfg.EmailFrom),
			zap.String("to", recipient),
			zap.String("subject", subject),
			zap.Int("body_bytes", len(body)))
	}
	if strings.TrimSpace(n.cfg.WebhookURL) != "" {
		n.logger.Debug("webhook notification",
			zap.String("url", n.cfg.WebhookURL),
			zap.String("to", recipient),
			zap.String("subject", subject))
	}
	return nil
}
