package domain

import "time"

// Role enumerates operator roles.
type Role string

const (
	RoleTecnico    Role = "TECNICO"
	RoleSupervisor Role = "SUPERVISOR"
	RoleAdmin      Role = "ADMIN"
)

// Technician models a field technician or administrator.
type Technician struct {
	ID           string
	Nombre       string
	Email        string
	PasswordHash string
	Role         Role
	Activo       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor identifies who performs a lifecycle operation.
type Actor struct {
	ID     string
	Nombre string
	Role   Role
}

// IsStaff reports whether the actor holds an administrative role.
func (a Actor) IsStaff() bool {
	return a.Role == RoleSupervisor || a.Role == RoleAdmin
}

// CanOperate reports whether the actor may mutate the given work order:
// administrative roles always, technicians only when assigned to it.
func (a Actor) CanOperate(w *WorkOrder) bool {
	if a.IsStaff() {
		return true
	}
	return w.TechnicianID != nil && *w.TechnicianID == a.ID
}
