package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthhistory/healthhistory/internal/config"
	"github.com/healthhistory/healthhistory/internal/domain/account"
	"github.com/healthhistory/healthhistory/internal/domain/records"
	"github.com/healthhistory/healthhistory/internal/platform/auth"
	"github.com/healthhistory/healthhistory/internal/platform/db"
)

// ---------------------------------------------------------------------------
// In-memory stores
// ---------------------------------------------------------------------------

type memUsers struct {
	mu    sync.Mutex
	users []*account.User
}

func (m *memUsers) Create(_ context.Context, u *account.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return account.ErrDuplicateEmail
		}
		if existing.PublicID() == u.PublicID() {
			return account.ErrDuplicatePublicID
		}
	}
	cp := *u
	m.users = append(m.users, &cp)
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*account.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, account.ErrUserNotFound
}

func (m *memUsers) ExistsByPublicID(_ context.Context, role auth.Role, publicID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Role == role && u.PublicID() == publicID {
			return true, nil
		}
	}
	return false, nil
}

type memRecords struct {
	mu   sync.Mutex
	recs []*records.Record
}

func (m *memRecords) Create(_ context.Context, r *records.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.recs = append(m.recs, &cp)
	return nil
}

func (m *memRecords) ListByPatient(_ context.Context, patientID string) ([]*records.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*records.Record
	for _, r := range m.recs {
		if r.PatientIDRef == patientID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func testConfig() *config.Config {
	return &config.Config{
		Env:              "development",
		CORSOrigins:      []string{"http://localhost:3000"},
		StoreTimeout:     time.Second,
		RequestBodyLimit: "1M",
	}
}

func newTestRouter(t *testing.T, pinger db.Pinger) http.Handler {
	t.Helper()
	issuer := auth.NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"))
	logger := zerolog.Nop()
	accountSvc := account.NewService(&memUsers{}, issuer, time.Second, logger)
	recordSvc := records.NewService(&memRecords{}, nil, time.Second, logger)

	return newRouter(testConfig(), logger, services{
		accounts: accountSvc,
		records:  recordSvc,
		issuer:   issuer,
		pinger:   pinger,
	})
}

func call(t *testing.T, h http.Handler, method, path, token, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

// ---------------------------------------------------------------------------
// End-to-end scenario
// ---------------------------------------------------------------------------

func TestRouter_PatientDoctorScenario(t *testing.T) {
	h := newTestRouter(t, stubPinger{})

	code, body := call(t, h, http.MethodPost, "/auth/register", "", `{"email":"a@x.com","password":"pw1","role":"Patient"}`)
	require.Equal(t, http.StatusCreated, code)
	patientID, _ := body["id"].(string)
	assert.Regexp(t, `^P-`, patientID)

	code, body = call(t, h, http.MethodPost, "/auth/register", "", `{"email":"b@x.com","password":"pw2","role":"Doctor"}`)
	require.Equal(t, http.StatusCreated, code)
	doctorID, _ := body["id"].(string)
	assert.Regexp(t, `^DR-`, doctorID)

	code, body = call(t, h, http.MethodPost, "/auth/login", "", `{"email":"b@x.com","password":"pw2"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Doctor", body["role"])
	doctorToken, _ := body["token"].(string)

	code, body = call(t, h, http.MethodPost, "/records/upload", doctorToken,
		`{"patient_id":"`+patientID+`","problem_summary":"Sprained ankle"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, patientID, body["patient"])

	code, body = call(t, h, http.MethodPost, "/auth/login", "", `{"email":"a@x.com","password":"pw1"}`)
	require.Equal(t, http.StatusOK, code)
	patientToken, _ := body["token"].(string)

	code, body = call(t, h, http.MethodGet, "/records/my-history", patientToken, "")
	require.Equal(t, http.StatusOK, code)
	history, _ := body["history"].([]interface{})
	require.Len(t, history, 1)
	item, _ := history[0].(map[string]interface{})
	assert.Equal(t, doctorID, item["doctor_id_ref"])
	assert.Equal(t, "Sprained ankle", item["problem_summary"])

	code, _ = call(t, h, http.MethodGet, "/records/patient-history/P-000000", doctorToken, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = call(t, h, http.MethodPost, "/records/upload", patientToken,
		`{"patient_id":"`+patientID+`","problem_summary":"x"}`)
	assert.Equal(t, http.StatusForbidden, code)
}

// ---------------------------------------------------------------------------
// Service endpoints
// ---------------------------------------------------------------------------

func TestRouter_Root(t *testing.T) {
	h := newTestRouter(t, stubPinger{})
	code, body := call(t, h, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Health History API is running and connected to DB!", body["message"])
}

func TestRouter_Health(t *testing.T) {
	h := newTestRouter(t, stubPinger{})
	code, body := call(t, h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_HealthDB(t *testing.T) {
	code, body := call(t, newTestRouter(t, stubPinger{}), http.MethodGet, "/health/db", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])

	code, body = call(t, newTestRouter(t, stubPinger{err: errors.New("down")}), http.MethodGet, "/health/db", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body["status"])
}

func TestRouter_SetsRequestIDAndSecurityHeaders(t *testing.T) {
	h := newTestRouter(t, stubPinger{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func TestResolveJWTSecret(t *testing.T) {
	secret, generated, err := resolveJWTSecret("configured-secret", false)
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Equal(t, []byte("configured-secret"), secret)

	secret, generated, err = resolveJWTSecret("", true)
	require.NoError(t, err)
	assert.True(t, generated)
	assert.Len(t, secret, config.MinSecretLength)

	other, _, err := resolveJWTSecret("", true)
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)

	_, _, err = resolveJWTSecret("", false)
	assert.Error(t, err)
}

func TestPrintSchemaStatus(t *testing.T) {
	var buf bytes.Buffer
	printSchemaStatus(&buf, []db.TableStatus{{Name: "users", Exists: true}, {Name: "records", Exists: false}})

	out := buf.String()
	assert.Contains(t, out, "users")
	assert.Contains(t, out, "present")
	assert.Contains(t, out, "records")
	assert.Contains(t, out, "missing")
}

func TestRouter_StreamedBodyOverLimit(t *testing.T) {
	h := newTestRouter(t, stubPinger{})
	body := `{"email":"big@x.com","password":"` + strings.Repeat("p", 2<<20) + `","role":"Patient"}`

	for _, path := range []string{"/auth/register", "/auth/login"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.ContentLength = -1
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, path)
	}
}

func TestRouter_MalformedJSONStillBadRequest(t *testing.T) {
	h := newTestRouter(t, stubPinger{})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"email":`))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"msg":"Invalid JSON body"}`, rec.Body.String())
}
