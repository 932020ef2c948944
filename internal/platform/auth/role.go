package auth

import "fmt"

// Role is the closed set of account roles. The string values are the ones
// stored in the users table and carried in tokens.
type Role string

const (
	RolePatient Role = "Patient"
	RoleDoctor  Role = "Doctor"
)

// ParseRole accepts only the exact role names; anything else is rejected.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePatient:
		return RolePatient, nil
	case RoleDoctor:
		return RoleDoctor, nil
	default:
		return "", fmt.Errorf("invalid role %q", s)
	}
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// PublicIDPrefix is the tag put in front of a role's public identifier.
func (r Role) PublicIDPrefix() string {
	switch r {
	case RolePatient:
		return "P-"
	case RoleDoctor:
		return "DR-"
	default:
		return ""
	}
}

func (r Role) String() string { return string(r) }
