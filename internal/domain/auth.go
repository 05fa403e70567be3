package domain

// Actor is the already-authenticated staff identity performing an action. Its id and role
// are trusted as supplied by the authentication layer.
type Actor struct {
	ID   string
	Role StaffRole
}

// IsStaff reports whether the actor carries a staff role.
func (a Actor) IsStaff() bool {
	return a.ID != "" && a.Role.Valid()
}

// IsAdmin reports whether the actor is an administrator.
func (a Actor) IsAdmin() bool {
	return a.ID != "" && a.Role == StaffRoleAdmin
}
