package records

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthhistory/healthhistory/internal/platform/hipaa"
)

type recordRepoPG struct {
	q   querier
	enc *hipaa.EncryptionService
}

// NewRecordRepo returns a Postgres-backed repository. problem_summary is
// sealed with enc before it is written and opened after it is read.
func NewRecordRepo(pool *pgxpool.Pool, enc *hipaa.EncryptionService) RecordRepository {
	return &recordRepoPG{q: pool, enc: enc}
}

const recordCols = `id, patient_id_ref, doctor_id_ref, date, problem_summary, report_url`

func (r *recordRepoPG) Create(ctx context.Context, rec *Record) error {
	summary, err := r.enc.Encrypt(rec.ProblemSummary)
	if err != nil {
		return fmt.Errorf("encrypt problem summary: %w", err)
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO records (`+recordCols+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.PatientIDRef, rec.DoctorIDRef, rec.Date, summary, rec.ReportURL,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (r *recordRepoPG) ListByPatient(ctx context.Context, patientID string) ([]*Record, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+recordCols+` FROM records
		WHERE patient_id_ref = $1
		ORDER BY date DESC, id DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var items []*Record
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return items, nil
}

func (r *recordRepoPG) scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	if err := row.Scan(&rec.ID, &rec.PatientIDRef, &rec.DoctorIDRef, &rec.Date, &rec.ProblemSummary, &rec.ReportURL); err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}
	rec.ProblemSummary = openSummary(r.enc, rec.ProblemSummary)
	rec.Date = rec.Date.UTC()
	return &rec, nil
}

// openSummary decrypts a stored summary. Rows written before encryption
// was enabled may carry text that only looks sealed; those are returned as
// stored rather than failing the whole history.
func openSummary(enc *hipaa.EncryptionService, stored string) string {
	plain, err := enc.Decrypt(stored)
	if err != nil {
		return stored
	}
	return plain
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
