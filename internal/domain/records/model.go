package records

import (
	"time"

	"github.com/google/uuid"
)

// Record is an immutable clinical entry authored by a Doctor against a
// Patient's public id.
type Record struct {
	ID             uuid.UUID `json:"_id"`
	PatientIDRef   string    `json:"patient_id_ref"`
	DoctorIDRef    string    `json:"doctor_id_ref"`
	Date           time.Time `json:"date"`
	ProblemSummary string    `json:"problem_summary"`
	ReportURL      *string   `json:"report_url"`
}

type UploadRequest struct {
	PatientID      string  `json:"patient_id"`
	ProblemSummary string  `json:"problem_summary"`
	ReportURL      *string `json:"report_url,omitempty"`
}
