package records

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthhistory/healthhistory/internal/platform/apperr"
	"github.com/healthhistory/healthhistory/internal/platform/auth"
	"github.com/healthhistory/healthhistory/internal/platform/db"
)

// PatientDirectory answers whether a patient public id is registered.
type PatientDirectory interface {
	PatientExists(ctx context.Context, publicID string) (bool, error)
}

// Service enforces the role rules over the record store.
type Service struct {
	records      RecordRepository
	patients     PatientDirectory
	storeTimeout time.Duration
	logger       zerolog.Logger

	now   func() time.Time
	newID func() uuid.UUID
}

// NewService builds the record access service. When patients is nil,
// uploads accept any patient id without checking it exists.
func NewService(records RecordRepository, patients PatientDirectory, storeTimeout time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		records:      records,
		patients:     patients,
		storeTimeout: storeTimeout,
		logger:       logger.With().Str("component", "records").Logger(),
		now:          time.Now,
		newID:        uuid.New,
	}
}

// Upload stores a new record authored by the doctor named in claims.
func (s *Service) Upload(ctx context.Context, claims *auth.Claims, req UploadRequest) (*Record, error) {
	if err := auth.Authorize(claims, auth.RoleDoctor); err != nil {
		return nil, err
	}

	patientID := strings.TrimSpace(req.PatientID)
	if patientID == "" || strings.TrimSpace(req.ProblemSummary) == "" {
		return nil, apperr.Validation("Missing patient ID or problem summary")
	}

	doctorID := claims.PublicID()
	if doctorID == "" {
		return nil, apperr.Internal("Verified doctor ID not found in token")
	}

	if s.patients != nil {
		ok, err := s.patients.PatientExists(ctx, patientID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Validation("Unknown patient ID")
		}
	}

	rec := &Record{
		ID:             s.newID(),
		PatientIDRef:   patientID,
		DoctorIDRef:    doctorID,
		Date:           s.now().UTC().Truncate(time.Microsecond),
		ProblemSummary: req.ProblemSummary,
		ReportURL:      normalizeURL(req.ReportURL),
	}

	qctx, cancel := db.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.records.Create(qctx, rec); err != nil {
		s.logger.Error().Err(err).Str("doctor_id", doctorID).Msg("upload record")
		return nil, apperr.Storage(err)
	}

	s.logger.Info().
		Str("record_id", rec.ID.String()).
		Str("doctor_id", doctorID).
		Str("patient_id", patientID).
		Msg("record uploaded")
	return rec, nil
}

// OwnHistory returns the calling patient's records. An empty history is
// an empty slice, not an error.
func (s *Service) OwnHistory(ctx context.Context, claims *auth.Claims) ([]*Record, error) {
	if err := auth.Authorize(claims, auth.RolePatient); err != nil {
		return nil, err
	}

	patientID := claims.PublicID()
	if patientID == "" {
		return nil, apperr.Internal("Unique patient ID not found in token")
	}

	items, err := s.list(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Record{}
	}
	return items, nil
}

// PatientHistory returns any patient's records for a doctor. Unlike
// OwnHistory, an empty result is reported as not found.
func (s *Service) PatientHistory(ctx context.Context, claims *auth.Claims, patientID string) ([]*Record, error) {
	if err := auth.Authorize(claims, auth.RoleDoctor); err != nil {
		return nil, err
	}

	items, err := s.list(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperr.NotFound(fmt.Sprintf("No records found for Patient ID: %s", patientID))
	}
	return items, nil
}

func (s *Service) list(ctx context.Context, patientID string) ([]*Record, error) {
	ctx, cancel := db.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	items, err := s.records.ListByPatient(ctx, patientID)
	if err != nil {
		s.logger.Error().Err(err).Str("patient_id", patientID).Msg("list records")
		return nil, apperr.Storage(err)
	}
	return items, nil
}

func normalizeURL(u *string) *string {
	if u == nil || strings.TrimSpace(*u) == "" {
		return nil
	}
	v := strings.TrimSpace(*u)
	return &v
}
