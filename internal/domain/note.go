package domain

import "time"

// TraceableNote is a free-form annotation attached to a work order.
type TraceableNote struct {
	ID          int64
	WorkOrderID int64
	AutorID     string
	AutorNombre string
	Texto       string
	CreatedAt   time.Time
}
