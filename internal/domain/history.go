package domain

import "time"

// StageHistoryEntry is an immutable audit record of one stage transition.
// Entries for a work order are append-only and ordered by creation time.
type StageHistoryEntry struct {
	ID            int64
	WorkOrderID   int64
	EtapaAnterior Etapa
	EtapaNueva    Etapa
	ActorID       string
	ActorNombre   string
	Nota          *string
	CreatedAt     time.Time
}
