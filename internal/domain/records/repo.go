package records

import "context"

// RecordRepository is append-only: records are never updated or deleted.
type RecordRepository interface {
	Create(ctx context.Context, r *Record) error
	// ListByPatient returns every record for patientID, most recent first.
	ListByPatient(ctx context.Context, patientID string) ([]*Record, error)
}
