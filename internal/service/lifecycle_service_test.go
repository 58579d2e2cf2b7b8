package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/workorder-service/internal/domain"
	"github.com/fieldops/workorder-service/internal/repository"
	apperrors "github.com/fieldops/workorder-service/pkg/util"
)

var (
	admin    = domain.Actor{ID: "admin-1", Nombre: "Ana Admin", Role: domain.RoleAdmin}
	tecnico  = domain.Actor{ID: "tech-1", Nombre: "Tito Técnico", Role: domain.RoleTecnico}
	intruder = domain.Actor{ID: "tech-9", Nombre: "Otro Técnico", Role: domain.RoleTecnico}
)

func newLifecycleFixture() (*LifecycleService, *fakeWorkOrders, *fakeNotes, *fakeTechnicians) {
	workOrders := newFakeWorkOrders()
	notes := newFakeNotes()
	technicians := newFakeTechnicians(
		domain.Technician{ID: "tech-1", Nombre: "Tito Técnico", Email: "tito@example.com", Role: domain.RoleTecnico, Activo: true},
		domain.Technician{ID: "tech-2", Nombre: "Tina Técnica", Email: "tina@example.com", Role: domain.RoleTecnico, Activo: true},
		domain.Technician{ID: "tech-off", Nombre: "Baja Técnico", Email: "baja@example.com", Role: domain.RoleTecnico, Activo: false},
	)
	svc := NewLifecycleService(LifecycleDependencies{
		WorkOrderRepo:  workOrders,
		NoteRepo:       notes,
		SignatureRepo:  workOrders,
		TechnicianRepo: technicians,
	})
	return svc, workOrders, notes, technicians
}

func seedOrderAt(store *fakeWorkOrders, etapa domain.Etapa, technicianID *string) domain.WorkOrder {
	return store.seed(domain.WorkOrder{
		TipoSolicitud: domain.RequestTypeB2B,
		Titulo:        "Revisión de equipo",
		Etapa:         etapa,
		Prioridad:     domain.PrioridadMedia,
		TechnicianID:  technicianID,
	})
}

func TestCreateWorkOrder(t *testing.T) {
	svc, _, _, _ := newLifecycleFixture()
	ctx := context.Background()

	t.Run("creates in pendiente with defaults", func(t *testing.T) {
		wo, err := svc.CreateWorkOrder(ctx, admin, IntakeInput{
			TipoSolicitud: domain.RequestTypeB2C,
			Titulo:        "  Sin internet  ",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.EtapaPendiente, wo.Etapa)
		assert.Equal(t, domain.EstadoAbierta, wo.Estado)
		assert.Equal(t, domain.PrioridadMedia, wo.Prioridad)
		assert.Equal(t, "Sin internet", wo.Titulo)
		assert.Nil(t, wo.TechnicianID)
	})

	t.Run("rejects unknown request type", func(t *testing.T) {
		_, err := svc.CreateWorkOrder(ctx, admin, IntakeInput{TipoSolicitud: "B2X", Titulo: "x"})
		assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))
	})

	t.Run("rejects blank title", func(t *testing.T) {
		_, err := svc.CreateWorkOrder(ctx, admin, IntakeInput{TipoSolicitud: domain.RequestTypeB2B, Titulo: "  "})
		assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))
	})
}

func TestTransition(t *testing.T) {
	ctx := context.Background()

	t.Run("full walk to completada writes contiguous history", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		wo := seedOrderAt(store, domain.EtapaPendiente, nil)

		techID := "tech-1"
		steps := []TransitionInput{
			{TargetEtapa: domain.EtapaAsignada, TechnicianID: &techID},
			{TargetEtapa: domain.EtapaEnProceso},
			{TargetEtapa: domain.EtapaEnEsperaFirma},
			{TargetEtapa: domain.EtapaCompletada},
		}
		for _, step := range steps {
			updated, err := svc.Transition(ctx, admin, wo.ID, step)
			require.NoError(t, err)
			assert.Equal(t, step.TargetEtapa, updated.Etapa)
			assert.Equal(t, domain.EstadoFor(step.TargetEtapa), updated.Estado)
		}

		history, err := svc.ListHistory(ctx, wo.ID)
		require.NoError(t, err)
		require.Len(t, history, len(steps))
		expected := domain.EtapaPendiente
		for i, entry := range history {
			assert.Equal(t, expected, entry.EtapaAnterior)
			assert.Equal(t, steps[i].TargetEtapa, entry.EtapaNueva)
			assert.True(t, domain.CanTransition(entry.EtapaAnterior, entry.EtapaNueva))
			if i > 0 {
				assert.False(t, entry.CreatedAt.Before(history[i-1].CreatedAt))
			}
			expected = entry.EtapaNueva
		}
	})

	t.Run("assignment records technician and keeps it afterwards", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		wo := seedOrderAt(store, domain.EtapaPendiente, nil)

		techID := "tech-2"
		updated, err := svc.Transition(ctx, admin, wo.ID, TransitionInput{TargetEtapa: domain.EtapaAsignada, TechnicianID: &techID})
		require.NoError(t, err)
		require.NotNil(t, updated.TechnicianID)
		assert.Equal(t, "tech-2", *updated.TechnicianID)

		updated, err = svc.Transition(ctx, admin, wo.ID, TransitionInput{TargetEtapa: domain.EtapaEnProceso})
		require.NoError(t, err)
		require.NotNil(t, updated.TechnicianID)
		assert.Equal(t, "tech-2", *updated.TechnicianID)
	})

	t.Run("invalid transition leaves no side effects", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		wo := seedOrderAt(store, domain.EtapaPendiente, nil)

		_, err := svc.Transition(ctx, admin, wo.ID, TransitionInput{TargetEtapa: domain.EtapaEnProceso})
		assert.Equal(t, "INVALID_TRANSITION", apperrors.CodeOf(err))

		current, err := svc.GetWorkOrder(ctx, wo.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.EtapaPendiente, current.Etapa)
		history, _ := svc.ListHistory(ctx, wo.ID)
		assert.Empty(t, history)
	})

	t.Run("assignment requires technician id", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		wo := seedOrderAt(store, domain.EtapaPendiente, nil)

		_, err := svc.Transition(ctx, admin, wo.ID, TransitionInput{TargetEtapa: domain.EtapaAsignada})
		assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))
	})

	t.Run("assignment rejects inactive technician", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		wo := seedOrderAt(store, domain.EtapaPendiente, nil)

		off := "tech-off"
		_, err := svc.Transition(ctx, admin, wo.ID, TransitionInput{TargetEtapa: domain.EtapaAsignada, TechnicianID: &off})
		assert.Equal(t, "CONFLICT", apperrors.CodeOf(err))
	})

	t.Run("unassigned technician may not operate", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		techID := "tech-1"
		wo := seedOrderAt(store, domain.EtapaAsignada, &techID)

		_, err := svc.Transition(ctx, intruder, wo.ID, TransitionInput{TargetEtapa: domain.EtapaEnProceso})
		assert.Equal(t, "UNAUTHORIZED", apperrors.CodeOf(err))
	})

	t.Run("assigned technician may operate", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		techID := "tech-1"
		wo := seedOrderAt(store, domain.EtapaAsignada, &techID)

		updated, err := svc.Transition(ctx, tecnico, wo.ID, TransitionInput{TargetEtapa: domain.EtapaEnProceso})
		require.NoError(t, err)
		assert.Equal(t, domain.EtapaEnProceso, updated.Etapa)
	})

	t.Run("cancelada from any non-terminal stage", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		for _, etapa := range []domain.Etapa{domain.EtapaPendiente, domain.EtapaAsignada, domain.EtapaEnProceso, domain.EtapaEnEsperaFirma} {
			wo := seedOrderAt(store, etapa, nil)
			updated, err := svc.Transition(ctx, admin, wo.ID, TransitionInput{TargetEtapa: domain.EtapaCancelada, Nota: "cliente desistió"})
			require.NoError(t, err, "from %s", etapa)
			assert.Equal(t, domain.EstadoCancelada, updated.Estado)
		}
	})

	t.Run("missing work order", func(t *testing.T) {
		svc, _, _, _ := newLifecycleFixture()
		_, err := svc.Transition(ctx, admin, 999, TransitionInput{TargetEtapa: domain.EtapaCancelada})
		assert.Equal(t, "NOT_FOUND", apperrors.CodeOf(err))
	})

	t.Run("atomicity: failed save leaves stage and history untouched", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		techID := "tech-1"
		wo := seedOrderAt(store, domain.EtapaAsignada, &techID)

		store.failSave = errors.New("connection reset mid-write")
		_, err := svc.Transition(ctx, admin, wo.ID, TransitionInput{TargetEtapa: domain.EtapaEnProceso})
		require.Error(t, err)
		store.failSave = nil

		current, err := svc.GetWorkOrder(ctx, wo.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.EtapaAsignada, current.Etapa)
		assert.Equal(t, wo.UpdatedAt, current.UpdatedAt)
		history, _ := svc.ListHistory(ctx, wo.ID)
		assert.Empty(t, history)
	})

	t.Run("concurrent mutation surfaces as retryable conflict", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		wo := seedOrderAt(store, domain.EtapaPendiente, nil)
		store.failSave = repository.ErrRowLocked

		techID := "tech-1"
		_, err := svc.Transition(ctx, admin, wo.ID, TransitionInput{TargetEtapa: domain.EtapaAsignada, TechnicianID: &techID})
		assert.Equal(t, "CONFLICT", apperrors.CodeOf(err))
	})
}

func TestAddNote(t *testing.T) {
	ctx := context.Background()

	t.Run("notes round-trip in insertion order", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		techID := "tech-1"
		wo := seedOrderAt(store, domain.EtapaEnProceso, &techID)

		texts := []string{"primera revisión", "falta repuesto", "repuesto instalado"}
		for _, text := range texts {
			_, err := svc.AddNote(ctx, tecnico, wo.ID, text)
			require.NoError(t, err)
		}

		notes, err := svc.ListNotes(ctx, wo.ID)
		require.NoError(t, err)
		require.Len(t, notes, len(texts))
		for i, note := range notes {
			assert.Equal(t, texts[i], note.Texto)
			assert.Equal(t, tecnico.ID, note.AutorID)
			if i > 0 {
				assert.True(t, notes[i-1].CreatedAt.Before(note.CreatedAt) || notes[i-1].CreatedAt.Equal(note.CreatedAt))
			}
		}
	})

	t.Run("rejects empty text", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		wo := seedOrderAt(store, domain.EtapaEnProceso, nil)

		_, err := svc.AddNote(ctx, admin, wo.ID, "   ")
		assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))
	})

	t.Run("rejects unauthorized author", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		techID := "tech-1"
		wo := seedOrderAt(store, domain.EtapaEnProceso, &techID)

		_, err := svc.AddNote(ctx, intruder, wo.ID, "no debería entrar")
		assert.Equal(t, "UNAUTHORIZED", apperrors.CodeOf(err))
	})
}

func TestCloseWithSignature(t *testing.T) {
	ctx := context.Background()

	t.Run("signs, assigns registration number and completes", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		techID := "tech-1"
		wo := seedOrderAt(store, domain.EtapaEnEsperaFirma, &techID)

		sig, err := svc.CloseWithSignature(ctx, tecnico, wo.ID, SignatureInput{Payload: "firma-base64"})
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultRegistrationNumber(wo.ID), sig.NumeroRegistro)
		assert.Equal(t, tecnico.ID, sig.FirmanteID)

		current, err := svc.GetWorkOrder(ctx, wo.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.EtapaCompletada, current.Etapa)
		assert.Equal(t, domain.EstadoCerrada, current.Estado)

		history, _ := svc.ListHistory(ctx, wo.ID)
		require.Len(t, history, 1)
		assert.Equal(t, domain.EtapaEnEsperaFirma, history[0].EtapaAnterior)
		assert.Equal(t, domain.EtapaCompletada, history[0].EtapaNueva)
	})

	t.Run("keeps client-supplied registration number", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		wo := seedOrderAt(store, domain.EtapaEnEsperaFirma, nil)

		sig, err := svc.CloseWithSignature(ctx, admin, wo.ID, SignatureInput{Payload: "p", NumeroRegistro: "REG-CUSTOM"})
		require.NoError(t, err)
		assert.Equal(t, "REG-CUSTOM", sig.NumeroRegistro)
	})

	t.Run("second signature always fails without creating another", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		wo := seedOrderAt(store, domain.EtapaEnEsperaFirma, nil)

		_, err := svc.CloseWithSignature(ctx, admin, wo.ID, SignatureInput{Payload: "p"})
		require.NoError(t, err)

		_, err = svc.CloseWithSignature(ctx, admin, wo.ID, SignatureInput{Payload: "p2"})
		assert.Equal(t, "INVALID_STATE", apperrors.CodeOf(err))

		// force the race path: order still awaiting signature but row exists
		store.seed(domain.WorkOrder{ID: wo.ID, TipoSolicitud: domain.RequestTypeB2B, Titulo: wo.Titulo, Etapa: domain.EtapaEnEsperaFirma})
		_, err = svc.CloseWithSignature(ctx, admin, wo.ID, SignatureInput{Payload: "p3"})
		assert.Equal(t, "DUPLICATE_SIGNATURE", apperrors.CodeOf(err))

		sig, err := svc.GetSignature(ctx, wo.ID)
		require.NoError(t, err)
		assert.Equal(t, "p", sig.Payload)
	})

	t.Run("rejected outside en espera de firma", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		wo := seedOrderAt(store, domain.EtapaEnProceso, nil)

		_, err := svc.CloseWithSignature(ctx, admin, wo.ID, SignatureInput{Payload: "p"})
		assert.Equal(t, "INVALID_STATE", apperrors.CodeOf(err))
	})

	t.Run("rejects empty payload", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		wo := seedOrderAt(store, domain.EtapaEnEsperaFirma, nil)

		_, err := svc.CloseWithSignature(ctx, admin, wo.ID, SignatureInput{Payload: " "})
		assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))
	})
}
