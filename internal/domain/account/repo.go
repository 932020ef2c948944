package account

import (
	"context"
	"errors"

	"github.com/healthhistory/healthhistory/internal/platform/auth"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicatePublicID = errors.New("public id already taken")
)

// UserRepository is the credential store. Create must report uniqueness
// violations as ErrDuplicateEmail or ErrDuplicatePublicID.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	ExistsByPublicID(ctx context.Context, role auth.Role, publicID string) (bool, error)
}
