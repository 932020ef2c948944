package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthhistory/healthhistory/internal/platform/auth"
	"github.com/healthhistory/healthhistory/internal/platform/db"
)

const pgUniqueViolation = "23505"

type userRepoPG struct {
	q querier
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepoPG{q: pool}
}

const userCols = `id, email, password_hash, role, unique_patient_id, verified_id, created_at`

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, role, unique_patient_id, verified_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		u.ID, u.Email, u.PasswordHash, string(u.Role), u.UniquePatientID, u.VerifiedID,
	).Scan(&u.CreatedAt)
	if err != nil {
		return translateInsertError(err)
	}
	return nil
}

func translateInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		switch pgErr.ConstraintName {
		case db.ConstraintUsersEmail:
			return ErrDuplicateEmail
		case db.ConstraintUsersPatientID, db.ConstraintUsersDoctorID:
			return ErrDuplicatePublicID
		}
	}
	return fmt.Errorf("insert user: %w", err)
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *userRepoPG) ExistsByPublicID(ctx context.Context, role auth.Role, publicID string) (bool, error) {
	var column string
	switch role {
	case auth.RolePatient:
		column = "unique_patient_id"
	case auth.RoleDoctor:
		column = "verified_id"
	default:
		return false, fmt.Errorf("exists by public id: invalid role %q", role)
	}

	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE role = $1 AND `+column+` = $2)`,
		string(role), publicID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists by public id: %w", err)
	}
	return exists, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.UniquePatientID, &u.VerifiedID, &u.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := auth.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("scan user %s: %w", u.ID, err)
	}
	u.Role = parsed
	return &u, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
