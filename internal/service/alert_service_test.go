package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldops/workorder-service/internal/config"
	"github.com/fieldops/workorder-service/internal/domain"
	apperrors "github.com/fieldops/workorder-service/pkg/util"
)

const adminEmail = "operaciones@example.com"

func alertFixture() (*AlertService, *fakeWorkOrders, *fakeNotifier) {
	workOrders := newFakeWorkOrders()
	technicians := newFakeTechnicians(
		domain.Technician{ID: "tech-1", Nombre: "Tito Técnico", Email: "tito@example.com", Role: domain.RoleTecnico, Activo: true},
		domain.Technician{ID: "tech-2", Nombre: "Tina Técnica", Email: "tina@example.com", Role: domain.RoleTecnico, Activo: true},
		domain.Technician{ID: "tech-3", Nombre: "Toño Técnico", Email: "tono@example.com", Role: domain.RoleTecnico, Activo: true},
	)
	digests := NewDigestService(workOrders, technicians, domain.UrgencyPolicy{Threshold: 72 * time.Hour})
	notifier := newFakeNotifier()
	cfg := config.AlertsConfig{
		UrgencyThresholdHours: 72,
		BudgetSeconds:         60,
		AdminEmail:            adminEmail,
	}
	svc := NewAlertService(digests, notifier, nil, nil, zap.NewNop(), cfg)
	return svc, workOrders, notifier
}

func seedOpenFor(store *fakeWorkOrders, techID string, count int) {
	base := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		id := techID
		store.seed(domain.WorkOrder{
			TipoSolicitud: domain.RequestTypeB2B,
			Titulo:        "pendiente",
			Etapa:         domain.EtapaAsignada,
			Prioridad:     domain.PrioridadMedia,
			TechnicianID:  &id,
			CreatedAt:     base.Add(time.Duration(i) * time.Hour),
			UpdatedAt:     base.Add(time.Duration(i) * time.Hour),
		})
	}
}

func TestExecuteWeeklyAlerts(t *testing.T) {
	ctx := context.Background()

	t.Run("three technicians with 2, 0 and 5 open orders", func(t *testing.T) {
		svc, store, notifier := alertFixture()
		seedOpenFor(store, "tech-1", 2)
		seedOpenFor(store, "tech-3", 5)
		// tech-2 has nothing open and would fail if contacted
		notifier.failFor["tina@example.com"] = errors.New("mailbox unavailable")

		result, err := svc.ExecuteWeeklyAlerts(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 2, result.TecnicosAlertados)
		assert.Equal(t, 0, result.TecnicosFallidos)
		assert.Equal(t, 7, result.TotalOTs)
		assert.True(t, result.Success)
		assert.True(t, result.ResumenEnviado)
		assert.Empty(t, notifier.sentTo("tina@example.com"))
		assert.Len(t, notifier.sentTo("tito@example.com"), 1)
		assert.Len(t, notifier.sentTo("tono@example.com"), 1)
	})

	t.Run("delivery failure is isolated and does not flip success", func(t *testing.T) {
		svc, store, notifier := alertFixture()
		seedOpenFor(store, "tech-1", 1)
		seedOpenFor(store, "tech-2", 3)
		notifier.failFor["tina@example.com"] = errors.New("smtp 550")

		result, err := svc.ExecuteWeeklyAlerts(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 1, result.TecnicosAlertados)
		assert.Equal(t, 1, result.TecnicosFallidos)
		assert.True(t, result.Success)
		assert.True(t, result.ResumenEnviado, "summary still goes out after a failed delivery")
		assert.Len(t, notifier.sentTo(adminEmail), 1)
	})

	t.Run("summary failure recorded without touching delivery counts", func(t *testing.T) {
		svc, store, notifier := alertFixture()
		seedOpenFor(store, "tech-1", 2)
		notifier.failFor[adminEmail] = errors.New("unreachable")

		result, err := svc.ExecuteWeeklyAlerts(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 1, result.TecnicosAlertados)
		assert.Equal(t, 0, result.TecnicosFallidos)
		assert.False(t, result.ResumenEnviado)
		assert.True(t, result.Success)
	})

	t.Run("dry run never touches the notifier", func(t *testing.T) {
		svc, store, notifier := alertFixture()
		seedOpenFor(store, "tech-1", 4)

		result, err := svc.ExecuteWeeklyAlerts(ctx, true)
		require.NoError(t, err)
		assert.True(t, result.DryRun)
		assert.True(t, result.Success)
		assert.Equal(t, 4, result.TotalOTs)
		assert.Equal(t, 1, result.TecnicosAlertados)
		assert.Empty(t, notifier.sent)
		assert.False(t, result.ResumenEnviado)
	})

	t.Run("digest failure aborts as fatal with no notifications", func(t *testing.T) {
		svc, store, notifier := alertFixture()
		seedOpenFor(store, "tech-1", 2)
		store.failListOpen = errors.New("store unavailable")

		result, err := svc.ExecuteWeeklyAlerts(ctx, false)
		require.Error(t, err)
		assert.Equal(t, "FATAL_RUN", apperrors.CodeOf(err))
		assert.False(t, result.Success)
		assert.Empty(t, notifier.sent)
	})

	t.Run("reports execution duration", func(t *testing.T) {
		svc, store, _ := alertFixture()
		seedOpenFor(store, "tech-1", 1)

		result, err := svc.ExecuteWeeklyAlerts(ctx, false)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.ExecutionTimeSeconds, 0.0)
	})

	t.Run("urgent orders marked in technician message", func(t *testing.T) {
		svc, store, notifier := alertFixture()
		id := "tech-1"
		old := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
		store.seed(domain.WorkOrder{
			TipoSolicitud: domain.RequestTypeB2C,
			Titulo:        "fuga de agua",
			Etapa:         domain.EtapaEnProceso,
			Prioridad:     domain.PrioridadUrgente,
			TechnicianID:  &id,
			CreatedAt:     old,
			UpdatedAt:     old,
		})

		_, err := svc.ExecuteWeeklyAlerts(ctx, false)
		require.NoError(t, err)
		msgs := notifier.sentTo("tito@example.com")
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0].Body, "fuga de agua")
		assert.Contains(t, msgs[0].Body, "atención urgente")
	})
}
