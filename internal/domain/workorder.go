package domain

import (
	"fmt"
	"time"
)

// RequestType distinguishes business and consumer requests.
type RequestType string

const (
	RequestTypeB2B RequestType = "B2B"
	RequestTypeB2C RequestType = "B2C"
)

// Valid reports whether the request type is a known value.
func (t RequestType) Valid() bool {
	return t == RequestTypeB2B || t == RequestTypeB2C
}

// Etapa enumerates lifecycle stages for work orders.
type Etapa string

const (
	EtapaPendiente     Etapa = "Pendiente"
	EtapaAsignada      Etapa = "Asignada"
	EtapaEnProceso     Etapa = "EnProceso"
	EtapaEnEsperaFirma Etapa = "EnEsperaFirma"
	EtapaCompletada    Etapa = "Completada"
	EtapaCancelada     Etapa = "Cancelada"
)

// Estado is the coarse display status projected from the stage.
type Estado string

const (
	EstadoAbierta   Estado = "Abierta"
	EstadoAtencion  Estado = "En Atención"
	EstadoCerrada   Estado = "Cerrada"
	EstadoCancelada Estado = "Cancelada"
)

// Prioridad enumerates escalation urgency.
type Prioridad string

const (
	PrioridadBaja    Prioridad = "Baja"
	PrioridadMedia   Prioridad = "Media"
	PrioridadAlta    Prioridad = "Alta"
	PrioridadUrgente Prioridad = "Urgente"
)

// Valid reports whether the priority is a known value.
func (p Prioridad) Valid() bool {
	switch p {
	case PrioridadBaja, PrioridadMedia, PrioridadAlta, PrioridadUrgente:
		return true
	}
	return false
}

// WorkOrder is the aggregate for service requests (OTs).
type WorkOrder struct {
	ID            int64
	TipoSolicitud RequestType
	Titulo        string
	Descripcion   string
	Etapa         Etapa
	Estado        Estado
	Prioridad     Prioridad
	TechnicianID  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Folio derives the human-readable display identifier from id, type and creation date.
func (w *WorkOrder) Folio() string {
	return fmt.Sprintf("OT-%s-%s-%06d", w.TipoSolicitud, w.CreatedAt.Format("20060102"), w.ID)
}

// IsOpen reports whether the work order has not reached a terminal stage.
func (w *WorkOrder) IsOpen() bool {
	return !IsTerminal(w.Etapa)
}

var successorStages = map[Etapa][]Etapa{
	EtapaPendiente:     {EtapaAsignada},
	EtapaAsignada:      {EtapaEnProceso},
	EtapaEnProceso:     {EtapaEnEsperaFirma},
	EtapaEnEsperaFirma: {EtapaCompletada},
	EtapaCompletada:    {},
	EtapaCancelada:     {},
}

// IsTerminal reports whether the stage admits no further transitions.
func IsTerminal(e Etapa) bool {
	return e == EtapaCompletada || e == EtapaCancelada
}

// KnownEtapa reports whether the stage is part of the state machine.
func KnownEtapa(e Etapa) bool {
	_, ok := successorStages[e]
	return ok
}

// CanTransition reports whether moving from current to next is a legal step.
// Cancelada is reachable from any non-terminal stage.
func CanTransition(current, next Etapa) bool {
	if !KnownEtapa(current) || !KnownEtapa(next) {
		return false
	}
	if next == EtapaCancelada {
		return !IsTerminal(current)
	}
	for _, candidate := range successorStages[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// EstadoFor projects the display status from a stage.
func EstadoFor(e Etapa) Estado {
	switch e {
	case EtapaPendiente, EtapaAsignada:
		return EstadoAbierta
	case EtapaEnProceso, EtapaEnEsperaFirma:
		return EstadoAtencion
	case EtapaCompletada:
		return EstadoCerrada
	default:
		return EstadoCancelada
	}
}
