package shared

// Role is the kind of account acting on the portal.
type Role string

const (
	RoleStudent Role = "student"
	RoleAlumni  Role = "alumni"
	RoleAdmin   Role = "admin"
)

// IsValid checks if the role is known.
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleAlumni, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// Actor identifies who is calling an operation. It is built per request by
// the presentation layer from a verified token and passed explicitly into
// every command and query.
type Actor struct {
	UserID string
	Role   Role
}

// NewActor builds an Actor, rejecting empty ids and unknown roles.
func NewActor(userID string, role Role) (Actor, error) {
	if userID == "" || !role.IsValid() {
		return Actor{}, NewDomainError("shared", "NewActor", ErrUnauthorized, "invalid actor")
	}
	return Actor{UserID: userID, Role: role}, nil
}

// IsStudent reports whether the actor is a student.
func (a Actor) IsStudent() bool { return a.Role == RoleStudent }

// IsAlumni reports whether the actor is an alumnus.
func (a Actor) IsAlumni() bool { return a.Role == RoleAlumni }

// IsAdmin reports whether the actor is an administrator.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Is reports whether the actor is exactly this user in this role.
func (a Actor) Is(userID string, role Role) bool {
	return a.UserID == userID && a.Role == role
}
