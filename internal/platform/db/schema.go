package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Constraint names referenced by repositories when translating unique
// violations.
const (
	ConstraintUsersEmail     = "users_email_key"
	ConstraintUsersPatientID = "users_unique_patient_id_key"
	ConstraintUsersDoctorID  = "users_verified_id_key"
)

// SchemaDDL creates the two collections. Every statement is idempotent so
// it is safe to run on each start.
const SchemaDDL = `
CREATE TABLE IF NOT EXISTS users (
    id                UUID PRIMARY KEY,
    email             TEXT NOT NULL,
    password_hash     TEXT NOT NULL,
    role              TEXT NOT NULL CHECK (role IN ('Patient', 'Doctor')),
    unique_patient_id TEXT,
    verified_id       TEXT,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT users_email_key UNIQUE (email),
    CONSTRAINT users_unique_patient_id_key UNIQUE (unique_patient_id),
    CONSTRAINT users_verified_id_key UNIQUE (verified_id),
    CONSTRAINT users_public_id_matches_role CHECK (
        (role = 'Patient' AND unique_patient_id IS NOT NULL AND verified_id IS NULL) OR
        (role = 'Doctor' AND verified_id IS NOT NULL AND unique_patient_id IS NULL)
    )
);

CREATE TABLE IF NOT EXISTS records (
    id              UUID PRIMARY KEY,
    patient_id_ref  TEXT NOT NULL,
    doctor_id_ref   TEXT NOT NULL,
    date            TIMESTAMPTZ NOT NULL,
    problem_summary TEXT NOT NULL,
    report_url      TEXT
);

CREATE INDEX IF NOT EXISTS idx_records_patient_date
    ON records (patient_id_ref, date DESC);
`

// Tables lists the tables owned by this service, in creation order.
var Tables = []string{"users", "records"}

type execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// EnsureSchema applies SchemaDDL.
func EnsureSchema(ctx context.Context, conn execer) error {
	if _, err := conn.Exec(ctx, SchemaDDL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// TableStatus reports whether a service table exists in the current schema.
type TableStatus struct {
	Name   string
	Exists bool
}

// SchemaStatus checks each of Tables against the catalog.
func SchemaStatus(ctx context.Context, conn rowQuerier) ([]TableStatus, error) {
	statuses := make([]TableStatus, 0, len(Tables))
	for _, name := range Tables {
		var exists bool
		err := conn.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, name).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check table %s: %w", name, err)
		}
		statuses = append(statuses, TableStatus{Name: name, Exists: exists})
	}
	return statuses, nil
}
