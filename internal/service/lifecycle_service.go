package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-service/internal/domain"
	"github.com/fieldops/workorder-service/internal/events"
	"github.com/fieldops/workorder-service/internal/repository"
	apperrors "github.com/fieldops/workorder-service/pkg/util"
)

// LifecycleService coordinates the stage state machine and the annotation log.
type LifecycleService struct {
	workOrders  repository.WorkOrderRepository
	notes       repository.NoteRepository
	signatures  repository.SignatureRepository
	technicians repository.TechnicianRepository
	dispatcher  events.Dispatcher
}

// LifecycleDependencies bundles repositories for the service.
type LifecycleDependencies struct {
	WorkOrderRepo  repository.WorkOrderRepository
	NoteRepo       repository.NoteRepository
	SignatureRepo  repository.SignatureRepository
	TechnicianRepo repository.TechnicianRepository
	Dispatcher     events.Dispatcher
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	return &LifecycleService{
		workOrders:  deps.WorkOrderRepo,
		notes:       deps.NoteRepo,
		signatures:  deps.SignatureRepo,
		technicians: deps.TechnicianRepo,
		dispatcher:  deps.Dispatcher,
	}
}

// IntakeInput describes work-order creation payload.
type IntakeInput struct {
	TipoSolicitud domain.RequestType
	Titulo        string
	Descripcion   string
	Prioridad     domain.Prioridad
}

// CreateWorkOrder registers a new request in stage Pendiente.
func (s *LifecycleService) CreateWorkOrder(ctx context.Context, actor domain.Actor, input IntakeInput) (*domain.WorkOrder, error) {
	if !input.TipoSolicitud.Valid() {
		return nil, apperrors.NewValidationError("tipo_solicitud must be B2B or B2C", nil)
	}
	if strings.TrimSpace(input.Titulo) == "" {
		return nil, apperrors.NewValidationError("titulo required", nil)
	}
	if input.Prioridad == "" {
		input.Prioridad = domain.PrioridadMedia
	}
	if !input.Prioridad.Valid() {
		return nil, apperrors.NewValidationError("unknown prioridad", map[string]any{"prioridad": input.Prioridad})
	}

	wo := &domain.WorkOrder{
		TipoSolicitud: input.TipoSolicitud,
		Titulo:        strings.TrimSpace(input.Titulo),
		Descripcion:   strings.TrimSpace(input.Descripcion),
		Etapa:         domain.EtapaPendiente,
		Estado:        domain.EstadoFor(domain.EtapaPendiente),
		Prioridad:     input.Prioridad,
	}
	if err := s.workOrders.Create(ctx, wo); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventWorkOrderCreated,
		WorkOrderID: wo.ID,
		Actor:       eventActor(actor),
		Payload: events.WorkOrderCreatedPayload{
			TipoSolicitud: wo.TipoSolicitud,
			Prioridad:     wo.Prioridad,
			Folio:         wo.Folio(),
		},
	})
	return wo, nil
}

// TransitionInput describes a stage-change request.
type TransitionInput struct {
	TargetEtapa  domain.Etapa
	TechnicianID *string
	Nota         string
}

// Transition validates and applies a stage change, appending the history entry
// in the same atomic unit. No side effect survives a failure.
func (s *LifecycleService) Transition(ctx context.Context, actor domain.Actor, workOrderID int64, input TransitionInput) (*domain.WorkOrder, error) {
	wo, err := s.getWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanOperate(wo) {
		return nil, apperrors.NewUnauthorized("actor not allowed to operate on this work order")
	}
	if !domain.CanTransition(wo.Etapa, input.TargetEtapa) {
		return nil, apperrors.NewInvalidTransition(string(wo.Etapa), string(input.TargetEtapa))
	}

	updated := *wo
	if wo.Etapa == domain.EtapaPendiente && input.TargetEtapa == domain.EtapaAsignada {
		if input.TechnicianID == nil {
			return nil, apperrors.NewValidationError("technician_id required when assigning", nil)
		}
		if !actor.IsStaff() {
			return nil, apperrors.NewForbidden("only supervisors may assign work orders")
		}
		tech, err := s.technicians.GetByID(ctx, *input.TechnicianID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("technician", map[string]any{"technician_id": *input.TechnicianID})
			}
			return nil, apperrors.MapError(err)
		}
		if !tech.Activo {
			return nil, apperrors.NewConflict("technician inactive", map[string]any{"technician_id": tech.ID})
		}
		updated.TechnicianID = &tech.ID
	}
	updated.Etapa = input.TargetEtapa
	updated.Estado = domain.EstadoFor(input.TargetEtapa)

	entry := &domain.StageHistoryEntry{
		WorkOrderID:   wo.ID,
		EtapaAnterior: wo.Etapa,
		EtapaNueva:    input.TargetEtapa,
		ActorID:       actor.ID,
		ActorNombre:   actor.Nombre,
		Nota:          optionalText(input.Nota),
	}
	if err := s.workOrders.SaveTransition(ctx, &updated, entry); err != nil {
		return nil, mapTransitionError(err, wo.ID)
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventWorkOrderTransitioned,
		WorkOrderID: wo.ID,
		Actor:       eventActor(actor),
		Payload: events.WorkOrderTransitionedPayload{
			EtapaAnterior: entry.EtapaAnterior,
			EtapaNueva:    entry.EtapaNueva,
			TechnicianID:  updated.TechnicianID,
			Nota:          entry.Nota,
		},
	})
	return &updated, nil
}

// AddNote appends a traceable annotation to a work order.
func (s *LifecycleService) AddNote(ctx context.Context, actor domain.Actor, workOrderID int64, text string) (*domain.TraceableNote, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewValidationError("note text required", nil)
	}
	wo, err := s.getWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanOperate(wo) {
		return nil, apperrors.NewUnauthorized("actor not allowed to annotate this work order")
	}

	note := &domain.TraceableNote{
		WorkOrderID: wo.ID,
		AutorID:     actor.ID,
		AutorNombre: actor.Nombre,
		Texto:       strings.TrimSpace(text),
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventWorkOrderNoteAdded,
		WorkOrderID: wo.ID,
		Actor:       eventActor(actor),
		Payload: events.WorkOrderNoteAddedPayload{
			NoteID:      note.ID,
			TextPreview: textPreview(note.Texto, 120),
		},
	})
	return note, nil
}

// SignatureInput describes a closing-signature request.
type SignatureInput struct {
	Payload        string
	NumeroRegistro string
}

// CloseWithSignature captures the compliance signature and completes the work
// order in one atomic unit. Valid only in stage EnEsperaFirma; at most one
// signature ever exists per work order.
func (s *LifecycleService) CloseWithSignature(ctx context.Context, actor domain.Actor, workOrderID int64, input SignatureInput) (*domain.ComplianceSignature, error) {
	if strings.TrimSpace(input.Payload) == "" {
		return nil, apperrors.NewValidationError("signature payload required", nil)
	}
	wo, err := s.getWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanOperate(wo) {
		return nil, apperrors.NewUnauthorized("actor not allowed to sign this work order")
	}
	if wo.Etapa != domain.EtapaEnEsperaFirma {
		return nil, apperrors.NewInvalidState("work order is not awaiting signature",
			map[string]any{"etapa": wo.Etapa})
	}

	regNumber := strings.TrimSpace(input.NumeroRegistro)
	if regNumber == "" {
		regNumber = domain.DefaultRegistrationNumber(wo.ID)
	}
	sig := &domain.ComplianceSignature{
		WorkOrderID:    wo.ID,
		FirmanteID:     actor.ID,
		FirmanteNombre: actor.Nombre,
		Payload:        input.Payload,
		NumeroRegistro: regNumber,
	}

	updated := *wo
	updated.Etapa = domain.EtapaCompletada
	updated.Estado = domain.EstadoFor(domain.EtapaCompletada)
	entry := &domain.StageHistoryEntry{
		WorkOrderID:   wo.ID,
		EtapaAnterior: wo.Etapa,
		EtapaNueva:    domain.EtapaCompletada,
		ActorID:       actor.ID,
		ActorNombre:   actor.Nombre,
	}

	if err := s.workOrders.SaveClosure(ctx, &updated, entry, sig); err != nil {
		if errors.Is(err, repository.ErrDuplicateSignature) {
			return nil, apperrors.NewDuplicateSignature(wo.ID)
		}
		return nil, mapTransitionError(err, wo.ID)
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventWorkOrderSigned,
		WorkOrderID: wo.ID,
		Actor:       eventActor(actor),
		Payload: events.WorkOrderSignedPayload{
			SignatureID:    sig.ID,
			NumeroRegistro: sig.NumeroRegistro,
		},
	})
	return sig, nil
}

// GetWorkOrder fetches one work order.
func (s *LifecycleService) GetWorkOrder(ctx context.Context, workOrderID int64) (*domain.WorkOrder, error) {
	return s.getWorkOrder(ctx, workOrderID)
}

// ListWorkOrders returns filtered work orders.
func (s *LifecycleService) ListWorkOrders(ctx context.Context, filter repository.WorkOrderFilter) ([]domain.WorkOrder, error) {
	result, err := s.workOrders.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// ListHistory returns the transition trail, oldest first.
func (s *LifecycleService) ListHistory(ctx context.Context, workOrderID int64) ([]domain.StageHistoryEntry, error) {
	if _, err := s.getWorkOrder(ctx, workOrderID); err != nil {
		return nil, err
	}
	history, err := s.workOrders.ListHistory(ctx, workOrderID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return history, nil
}

// ListNotes returns annotations, oldest first.
func (s *LifecycleService) ListNotes(ctx context.Context, workOrderID int64) ([]domain.TraceableNote, error) {
	if _, err := s.getWorkOrder(ctx, workOrderID); err != nil {
		return nil, err
	}
	notes, err := s.notes.ListByWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return notes, nil
}

// GetSignature returns the closing signature when present.
func (s *LifecycleService) GetSignature(ctx context.Context, workOrderID int64) (*domain.ComplianceSignature, error) {
	sig, err := s.signatures.GetByWorkOrder(ctx, workOrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("signature", map[string]any{"work_order_id": workOrderID})
		}
		return nil, apperrors.MapError(err)
	}
	return sig, nil
}

func (s *LifecycleService) getWorkOrder(ctx context.Context, id int64) (*domain.WorkOrder, error) {
	wo, err := s.workOrders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("work order", map[string]any{"work_order_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return wo, nil
}

func mapTransitionError(err error, workOrderID int64) error {
	switch {
	case errors.Is(err, repository.ErrRowLocked), errors.Is(err, repository.ErrStaleStage):
		return apperrors.NewConflict("work order mutated concurrently, retry",
			map[string]any{"work_order_id": workOrderID})
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NewNotFound("work order", map[string]any{"work_order_id": workOrderID})
	default:
		return apperrors.MapError(err)
	}
}

func (s *LifecycleService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func eventActor(actor domain.Actor) *events.Actor {
	return &events.Actor{ID: actor.ID, Nombre: actor.Nombre, Role: actor.Role}
}

func optionalText(text string) *string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func textPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
