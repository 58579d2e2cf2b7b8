package domain

import (
	"fmt"
	"time"
)

// ComplianceSignature formally closes a work order. At most one per work order.
type ComplianceSignature struct {
	ID             int64
	WorkOrderID    int64
	FirmanteID     string
	FirmanteNombre string
	Payload        string
	NumeroRegistro string
	CreatedAt      time.Time
}

// DefaultRegistrationNumber derives the registration number used when the
// caller does not supply one.
func DefaultRegistrationNumber(workOrderID int64) string {
	return fmt.Sprintf("REG-%d", workOrderID)
}
