package account

import (
	"time"

	"github.com/google/uuid"

	"github.com/healthhistory/healthhistory/internal/platform/auth"
)

// User is a credential record. Exactly one of UniquePatientID and
// VerifiedID is set, matching Role.
type User struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	Role            auth.Role `json:"role"`
	UniquePatientID *string   `json:"unique_patient_id,omitempty"`
	VerifiedID      *string   `json:"verified_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// PublicID returns the role-scoped external identifier.
func (u *User) PublicID() string {
	switch u.Role {
	case auth.RolePatient:
		if u.UniquePatientID != nil {
			return *u.UniquePatientID
		}
	case auth.RoleDoctor:
		if u.VerifiedID != nil {
			return *u.VerifiedID
		}
	}
	return ""
}

func (u *User) setPublicID(id string) {
	switch u.Role {
	case auth.RolePatient:
		u.UniquePatientID = &id
		u.VerifiedID = nil
	case auth.RoleDoctor:
		u.VerifiedID = &id
		u.UniquePatientID = nil
	}
}

// Identity is the snapshot copied into an access token at login.
func (u *User) Identity() auth.Identity {
	return auth.Identity{
		InternalID: u.ID.String(),
		Role:       u.Role,
		PublicID:   u.PublicID(),
	}
}

// publicIDTokenLength is how many trailing hex digits of the internal id
// make up the public id.
const publicIDTokenLength = 6

// newPublicID derives "P-xxxxxx" / "DR-xxxxxx" from the internal id.
func newPublicID(role auth.Role, id uuid.UUID) string {
	hex := id.String()
	return role.PublicIDPrefix() + hex[len(hex)-publicIDTokenLength:]
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type RegisterResult struct {
	Role     auth.Role
	PublicID string
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token    string
	Role     auth.Role
	PublicID string
}
