package events

import (
	"time"

	"github.com/fieldops/workorder-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventWorkOrderCreated      EventType = "workorder_created"
	EventWorkOrderTransitioned EventType = "workorder_transitioned"
	EventWorkOrderNoteAdded    EventType = "workorder_note_added"
	EventWorkOrderSigned       EventType = "workorder_signed"
	EventAlertRunCompleted     EventType = "alert_run_completed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	WorkOrderID int64       `json:"work_order_id,omitempty"`
	Actor       *Actor      `json:"actor,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID     string      `json:"id"`
	Nombre string      `json:"nombre"`
	Role   domain.Role `json:"role"`
}

// WorkOrderCreatedPayload payload.
type WorkOrderCreatedPayload struct {
	TipoSolicitud domain.RequestType `json:"tipo_solicitud"`
	Prioridad     domain.Prioridad   `json:"prioridad"`
	Folio         string             `json:"folio"`
}

// WorkOrderTransitionedPayload payload.
type WorkOrderTransitionedPayload struct {
	EtapaAnterior domain.Etapa `json:"etapa_anterior"`
	EtapaNueva    domain.Etapa `json:"etapa_nueva"`
	TechnicianID  *string      `json:"technician_id,omitempty"`
	Nota          *string      `json:"nota,omitempty"`
}

// WorkOrderNoteAddedPayload payload.
type WorkOrderNoteAddedPayload struct {
	NoteID      int64  `json:"note_id"`
	TextPreview string `json:"text_preview"`
}

// WorkOrderSignedPayload payload.
type WorkOrderSignedPayload struct {
	SignatureID    int64  `json:"signature_id"`
	NumeroRegistro string `json:"numero_registro"`
}

// AlertRunCompletedPayload payload.
type AlertRunCompletedPayload struct {
	TecnicosAlertados int     `json:"tecnicos_alertados"`
	TecnicosFallidos  int     `json:"tecnicos_fallidos"`
	TotalOTs          int     `json:"total_ots"`
	Success           bool    `json:"success"`
	DurationSeconds   float64 `json:"duration_seconds"`
}
