package core

// Roles
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Identity is the authenticated caller of a core operation.
// It is established from verified token claims at the boundary and passed explicitly to services.
type Identity struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

func (id Identity) IsTeacher() bool { return id.ID != "" && id.Role == RoleTeacher }

func (id Identity) IsStudent() bool { return id.ID != "" && id.Role == RoleStudent }

// Require fails with ErrNotAuthenticated for an empty identity and with ErrForbidden when the role does not match.
func (id Identity) Require(role string) error {
	if id.ID == "" || (id.Role != RoleTeacher && id.Role != RoleStudent) {
		return ErrNotAuthenticated
	}
	if role != "" && id.Role != role {
		return ErrForbidden
	}
	return nil
}
