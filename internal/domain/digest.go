package domain

import "time"

// DigestEntry annotates one open work order for the weekly digest.
type DigestEntry struct {
	WorkOrder  WorkOrder
	Urgente    bool
	Antiguedad string
}

// TechnicianDigest groups a technician's open work, oldest first.
type TechnicianDigest struct {
	Technician Technician
	Entries    []DigestEntry
	Urgentes   int
}

// Digest is the derived per-technician view driving weekly alerts.
// It is computed from a single consistent snapshot and never persisted.
type Digest struct {
	PorTecnico    []TechnicianDigest
	SinAsignar    int
	TotalAbiertas int
	TotalUrgentes int
	GeneratedAt   time.Time
}
