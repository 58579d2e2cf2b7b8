package dto

import (
	"time"

	"github.com/fieldops/workorder-service/internal/domain"
)

// CreateWorkOrderRequest payload.
type CreateWorkOrderRequest struct {
	TipoSolicitud domain.RequestType `json:"tipo_solicitud"`
	Titulo        string             `json:"titulo"`
	Descripcion   string             `json:"descripcion"`
	Prioridad     domain.Prioridad   `json:"prioridad"`
}

// TransitionRequest payload.
type TransitionRequest struct {
	Etapa        domain.Etapa `json:"etapa"`
	TechnicianID *string      `json:"technician_id"`
	Nota         string       `json:"nota"`
}

// NoteRequest payload.
type NoteRequest struct {
	Texto string `json:"texto"`
}

// SignatureRequest payload.
type SignatureRequest struct {
	Payload        string `json:"payload"`
	NumeroRegistro string `json:"numero_registro"`
}

// WorkOrderResponse represents one work order.
type WorkOrderResponse struct {
	ID            int64              `json:"id"`
	Folio         string             `json:"folio"`
	TipoSolicitud domain.RequestType `json:"tipo_solicitud"`
	Titulo        string             `json:"titulo"`
	Descripcion   string             `json:"descripcion"`
	Etapa         domain.Etapa       `json:"etapa"`
	Estado        domain.Estado      `json:"estado"`
	Prioridad     domain.Prioridad   `json:"prioridad"`
	TechnicianID  *string            `json:"technician_id"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// HistoryEntryResponse represents one transition record.
type HistoryEntryResponse struct {
	ID            int64        `json:"id"`
	EtapaAnterior domain.Etapa `json:"etapa_anterior"`
	EtapaNueva    domain.Etapa `json:"etapa_nueva"`
	ActorID       string       `json:"actor_id"`
	ActorNombre   string       `json:"actor_nombre"`
	Nota          *string      `json:"nota,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// NoteResponse represents one annotation.
type NoteResponse struct {
	ID          int64     `json:"id"`
	AutorID     string    `json:"autor_id"`
	AutorNombre string    `json:"autor_nombre"`
	Texto       string    `json:"texto"`
	CreatedAt   time.Time `json:"created_at"`
}

// SignatureResponse represents the closing signature.
type SignatureResponse struct {
	ID             int64     `json:"id"`
	FirmanteID     string    `json:"firmante_id"`
	FirmanteNombre string    `json:"firmante_nombre"`
	NumeroRegistro string    `json:"numero_registro"`
	CreatedAt      time.Time `json:"created_at"`
}

// FromWorkOrder maps the domain aggregate.
func FromWorkOrder(wo *domain.WorkOrder) WorkOrderResponse {
	return WorkOrderResponse{
		ID:            wo.ID,
		Folio:         wo.Folio(),
		TipoSolicitud: wo.TipoSolicitud,
		Titulo:        wo.Titulo,
		Descripcion:   wo.Descripcion,
		Etapa:         wo.Etapa,
		Estado:        wo.Estado,
		Prioridad:     wo.Prioridad,
		TechnicianID:  wo.TechnicianID,
		CreatedAt:     wo.CreatedAt,
		UpdatedAt:     wo.UpdatedAt,
	}
}

// FromHistory maps a history entry.
func FromHistory(entry *domain.StageHistoryEntry) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:            entry.ID,
		EtapaAnterior: entry.EtapaAnterior,
		EtapaNueva:    entry.EtapaNueva,
		ActorID:       entry.ActorID,
		ActorNombre:   entry.ActorNombre,
		Nota:          entry.Nota,
		CreatedAt:     entry.CreatedAt,
	}
}

// FromNote maps an annotation.
func FromNote(note *domain.TraceableNote) NoteResponse {
	return NoteResponse{
		ID:          note.ID,
		AutorID:     note.AutorID,
		AutorNombre: note.AutorNombre,
		Texto:       note.Texto,
		CreatedAt:   note.CreatedAt,
	}
}

// FromSignature maps the closing signature.
func FromSignature(sig *domain.ComplianceSignature) SignatureResponse {
	return SignatureResponse{
		ID:             sig.ID,
		FirmanteID:     sig.FirmanteID,
		FirmanteNombre: sig.FirmanteNombre,
		NumeroRegistro: sig.NumeroRegistro,
		CreatedAt:      sig.CreatedAt,
	}
}
