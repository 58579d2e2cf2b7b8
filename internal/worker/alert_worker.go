package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fieldops/workorder-service/internal/config"
	"github.com/fieldops/workorder-service/internal/service"
)

// StartNotificationHandlers registers event-driven notification handlers.
func StartNotificationHandlers(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartAlertWorker runs the weekly alert dispatcher on the configured
// interval until ctx is cancelled. Disabled unless ALERTS_ENABLED is set.
func StartAlertWorker(ctx context.Context, alerts *service.AlertService, logger *zap.Logger, cfg config.AlertsConfig) {
	if alerts == nil || !cfg.Enabled {
		logger.Info("alert worker disabled")
		return
	}

	go func() {
		ticker := time.NewTicker(cfg.Interval())
		defer ticker.Stop()

		logger.Info("alert worker started", zap.Duration("interval", cfg.Interval()))
		for {
			select {
			case <-ctx.Done():
				logger.Info("alert worker stopped")
				return
			case <-ticker.C:
				if _, err := alerts.ExecuteWeeklyAlerts(ctx, false); err != nil {
					logger.Error("scheduled alert run failed", zap.Error(err))
				}
			}
		}
	}()
}
