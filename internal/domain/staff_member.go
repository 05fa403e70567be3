package domain

import "time"

// StaffRole enumerates internal operator roles.
type StaffRole string

const (
	StaffRoleAdmin      StaffRole = "admin"
	StaffRoleCallCentre StaffRole = "callcentre"
)

// Valid reports whether r is a known role.
func (r StaffRole) Valid() bool {
	return r == StaffRoleAdmin || r == StaffRoleCallCentre
}

// StaffStatus marks whether a staff member may act or be assigned.
type StaffStatus string

const (
	StaffStatusActive   StaffStatus = "active"
	StaffStatusInactive StaffStatus = "inactive"
)

// Valid reports whether s is a known status.
func (s StaffStatus) Valid() bool {
	return s == StaffStatusActive || s == StaffStatusInactive
}

// UnknownStaffName is displayed when a referenced staff row no longer exists.
const UnknownStaffName = "Unknown"

// StaffMember models an admin or call-centre operator.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	EmployeeID   string
	PasswordHash string
	Role         StaffRole
	Status       StaffStatus
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// Active reports whether the member is active.
func (s *StaffMember) Active() bool {
	return s != nil && s.Status == StaffStatusActive
}

// Assignable reports whether tickets may be assigned to the member.
func (s *StaffMember) Assignable() bool {
	return s.Active() && s.Role.Valid()
}
