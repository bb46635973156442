package domain

// Principal is the identity resolved from a valid bearer token for the
// duration of one request. It is a value: handlers receive copies.
type Principal struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// NewPrincipal builds the request principal for u.
func NewPrincipal(u *User) Principal {
	return Principal{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
