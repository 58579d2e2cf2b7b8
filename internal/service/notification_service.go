package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fieldops/workorder-service/internal/config"
	"github.com/fieldops/workorder-service/internal/events"
	"github.com/fieldops/workorder-service/internal/notify"
	"github.com/fieldops/workorder-service/internal/observability"
)

// NotificationService reacts to lifecycle events with ad hoc notifications,
// separate from the weekly batch.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   notify.Notifier
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.AlertsConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifier notify.Notifier, logger *zap.Logger, metrics *observability.Metrics, cfg config.AlertsConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventWorkOrderTransitioned, n.handleTransitioned)
	n.dispatcher.Subscribe(events.EventWorkOrderSigned, n.handleSigned)
	n.dispatcher.Subscribe(events.EventAlertRunCompleted, n.handleAlertRun)
}

func (n *NotificationService) handleTransitioned(ctx context.Context, event events.Event) error {
	n.logger.Info("WorkOrderTransitioned",
		zap.Int64("work_order_id", event.WorkOrderID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleSigned(ctx context.Context, event events.Event) error {
	n.logger.Info("WorkOrderSigned",
		zap.Int64("work_order_id", event.WorkOrderID),
		zap.Any("payload", event.Payload))
	payload, ok := event.Payload.(events.WorkOrderSignedPayload)
	if !ok || n.notifier == nil {
		return nil
	}
	subject := fmt.Sprintf("OT %d completada", event.WorkOrderID)
	body := fmt.Sprintf("Orden de trabajo %d cerrada con firma, registro %s.",
		event.WorkOrderID, payload.NumeroRegistro)
	if err := n.notifier.Send(ctx, n.cfg.AdminEmail, subject, body); err != nil {
		n.logger.Warn("signature notification failed", zap.Error(err))
	}
	return nil
}

func (n *NotificationService) handleAlertRun(ctx context.Context, event events.Event) error {
	n.logger.Info("AlertRunCompleted", zap.Any("payload", event.Payload))
	if payload, ok := event.Payload.(events.AlertRunCompletedPayload); ok {
		n.metrics.RecordAlertRun(payload.Success)
	}
	return nil
}
