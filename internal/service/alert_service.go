package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldops/workorder-service/internal/config"
	"github.com/fieldops/workorder-service/internal/domain"
	"github.com/fieldops/workorder-service/internal/events"
	"github.com/fieldops/workorder-service/internal/notify"
	apperrors "github.com/fieldops/workorder-service/pkg/util"
)

const alertRunLockKey = "workorders:alerts:run-lock"

// Locker serializes alert runs across instances. Implementations must be safe
// to call with a nil receiver absent.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// ExecutionResult reports the outcome of one alert run. Per-technician
// delivery failures are surfaced as a warning count and never flip Success;
// only a fatal digest failure does.
type ExecutionResult struct {
	TecnicosAlertados    int     `json:"tecnicos_alertados"`
	TecnicosFallidos     int     `json:"tecnicos_fallidos"`
	TotalOTs             int     `json:"total_ots"`
	ResumenEnviado       bool    `json:"resumen_enviado"`
	ExecutionTimeSeconds float64 `json:"execution_time_seconds"`
	Success              bool    `json:"success"`
	DryRun               bool    `json:"dry_run"`
}

// AlertService orchestrates the weekly pending-work alert batch.
type AlertService struct {
	digests  *DigestService
	notifier notify.Notifier
	locker   Locker
	logger   *zap.Logger
	cfg      config.AlertsConfig

	dispatcher events.Dispatcher
	now        func() time.Time
}

// NewAlertService constructs the dispatcher. locker and dispatcher may be nil.
func NewAlertService(digests *DigestService, notifier notify.Notifier, locker Locker, dispatcher events.Dispatcher, logger *zap.Logger, cfg config.AlertsConfig) *AlertService {
	return &AlertService{
		digests:    digests,
		notifier:   notifier,
		locker:     locker,
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// ExecuteWeeklyAlerts runs the batch: build digest, deliver one notification
// per technician with open work, then send the consolidated summary to the
// administrative recipient. A delivery failure for one technician is counted
// and logged but never aborts the remaining deliveries. In dry-run mode the
// digest and statistics are computed without touching the Notifier.
func (s *AlertService) ExecuteWeeklyAlerts(ctx context.Context, dryRun bool) (*ExecutionResult, error) {
	started := s.now()
	result := &ExecutionResult{DryRun: dryRun}
	finish := func() *ExecutionResult {
		result.ExecutionTimeSeconds = s.now().Sub(started).Seconds()
		return result
	}

	if !dryRun && s.locker != nil {
		acquired, err := s.locker.Acquire(ctx, alertRunLockKey, s.cfg.Budget())
		if err != nil {
			s.logger.Warn("alert run lock unavailable, continuing without it", zap.Error(err))
		} else if !acquired {
			return finish(), apperrors.NewConflict("alert run already in progress", nil)
		} else {
			defer func() {
				if err := s.locker.Release(context.Background(), alertRunLockKey); err != nil {
					s.logger.Warn("failed to release alert run lock", zap.Error(err))
				}
			}()
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Budget())
	defer cancel()

	digest, err := s.digests.BuildDigest(runCtx, started)
	if err != nil {
		s.logger.Error("digest build failed, aborting alert run", zap.Error(err))
		return finish(), apperrors.NewFatalRunError(err)
	}
	result.TotalOTs = digest.TotalAbiertas
	result.Success = true

	if dryRun {
		result.TecnicosAlertados = len(digest.PorTecnico)
		s.logger.Info("dry run complete",
			zap.Int("tecnicos", len(digest.PorTecnico)),
			zap.Int("total_ots", digest.TotalAbiertas),
			zap.Int("urgentes", digest.TotalUrgentes))
		return finish(), nil
	}

	for _, td := range digest.PorTecnico {
		if err := runCtx.Err(); err != nil {
			s.logger.Warn("alert budget exhausted, reporting partial completion",
				zap.Int("alertados", result.TecnicosAlertados),
				zap.Int("fallidos", result.TecnicosFallidos))
			break
		}
		subject, body := technicianMessage(td, digest.GeneratedAt)
		if err := s.notifier.Send(runCtx, td.Technician.Email, subject, body); err != nil {
			delivery := apperrors.NewDeliveryFailure(td.Technician.Email, err)
			s.logger.Warn("technician alert failed", zap.String("technician_id", td.Technician.ID), zap.Error(delivery))
			result.TecnicosFallidos++
			continue
		}
		result.TecnicosAlertados++
	}

	subject, body := summaryMessage(digest, result)
	if err := s.notifier.Send(runCtx, s.cfg.AdminEmail, subject, body); err != nil {
		s.logger.Warn("consolidated summary failed", zap.Error(err))
	} else {
		result.ResumenEnviado = true
	}

	finish()
	s.publishRunEvent(ctx, result)
	s.logger.Info("weekly alert run finished",
		zap.Int("tecnicos_alertados", result.TecnicosAlertados),
		zap.Int("tecnicos_fallidos", result.TecnicosFallidos),
		zap.Int("total_ots", result.TotalOTs),
		zap.Bool("resumen_enviado", result.ResumenEnviado),
		zap.Float64("execution_time_seconds", result.ExecutionTimeSeconds))
	return result, nil
}

func technicianMessage(td domain.TechnicianDigest, generatedAt time.Time) (string, string) {
	subject := fmt.Sprintf("Tienes %d OT(s) pendientes", len(td.Entries))
	var b strings.Builder
	fmt.Fprintf(&b, "Hola %s,\n\nÓrdenes de trabajo pendientes al %s:\n\n",
		td.Technician.Nombre, generatedAt.Format("2006-01-02"))
	for _, entry := range td.Entries {
		marker := " "
		if entry.Urgente {
			marker = "!"
		}
		fmt.Fprintf(&b, "%s %s — %s (%s, creada %s)\n",
			marker,
			entry.WorkOrder.Folio(),
			entry.WorkOrder.Titulo,
			entry.WorkOrder.Prioridad,
			entry.Antiguedad)
	}
	if td.Urgentes > 0 {
		fmt.Fprintf(&b, "\n%d de estas órdenes requieren atención urgente.\n", td.Urgentes)
	}
	return subject, b.String()
}

func summaryMessage(digest *domain.Digest, result *ExecutionResult) (string, string) {
	subject := fmt.Sprintf("Resumen semanal: %d OTs abiertas", digest.TotalAbiertas)
	var b strings.Builder
	fmt.Fprintf(&b, "Resumen de alertas del %s\n\n", digest.GeneratedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "Técnicos con trabajo pendiente: %d\n", len(digest.PorTecnico))
	fmt.Fprintf(&b, "OTs abiertas: %d\n", digest.TotalAbiertas)
	fmt.Fprintf(&b, "OTs urgentes: %d\n", digest.TotalUrgentes)
	fmt.Fprintf(&b, "OTs sin asignar: %d\n", digest.SinAsignar)
	fmt.Fprintf(&b, "Alertas enviadas: %d, fallidas: %d\n", result.TecnicosAlertados, result.TecnicosFallidos)
	if len(digest.PorTecnico) > 0 {
		b.WriteString("\nTécnicos con mayor carga:\n")
		top := digest.PorTecnico
		if len(top) > 3 {
			top = top[:3]
		}
		for _, td := range top {
			fmt.Fprintf(&b, "- %s: %d OT(s), %d urgente(s)\n", td.Technician.Nombre, len(td.Entries), td.Urgentes)
		}
	}
	return subject, b.String()
}

func (s *AlertService) publishRunEvent(ctx context.Context, result *ExecutionResult) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventAlertRunCompleted,
		Timestamp: s.now(),
		Payload: events.AlertRunCompletedPayload{
			TecnicosAlertados: result.TecnicosAlertados,
			TecnicosFallidos:  result.TecnicosFallidos,
			TotalOTs:          result.TotalOTs,
			Success:           result.Success,
			DurationSeconds:   result.ExecutionTimeSeconds,
		},
	})
}
