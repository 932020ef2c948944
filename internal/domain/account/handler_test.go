package account

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthhistory/healthhistory/internal/platform/apperr"
)

func newTestServer() *echo.Echo {
	svc, _ := newTestService()
	e := echo.New()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(zerolog.Nop())
	NewHandler(svc).RegisterRoutes(e.Group("/auth"))
	return e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestHandler_Register(t *testing.T) {
	e := newTestServer()

	rec := doJSON(e, http.MethodPost, "/auth/register", `{"email":"a@x.com","password":"pw1","role":"Patient"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Patient registered successfully!", body["msg"])
	assert.True(t, strings.HasPrefix(body["id"], "P-"))
	assert.NotContains(t, rec.Body.String(), "pw1")
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestHandler_Register_Errors(t *testing.T) {
	e := newTestServer()
	doJSON(e, http.MethodPost, "/auth/register", `{"email":"a@x.com","password":"pw1","role":"Patient"}`)

	cases := []struct {
		name string
		body string
		code int
		msg  string
	}{
		{"missing role", `{"email":"b@x.com","password":"pw"}`, http.StatusBadRequest, "Missing email, password, or role"},
		{"invalid role", `{"email":"b@x.com","password":"pw","role":"Nurse"}`, http.StatusBadRequest, "Invalid role specified"},
		{"malformed json", `{"email":`, http.StatusBadRequest, "Invalid JSON body"},
		{"duplicate", `{"email":"a@x.com","password":"pw","role":"Doctor"}`, http.StatusConflict, "User already exists"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(e, http.MethodPost, "/auth/register", tc.body)
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.msg, decode(t, rec)["msg"])
		})
	}
}

func TestHandler_Login(t *testing.T) {
	e := newTestServer()
	reg := decode(t, doJSON(e, http.MethodPost, "/auth/register", `{"email":"b@x.com","password":"pw2","role":"Doctor"}`))

	rec := doJSON(e, http.MethodPost, "/auth/login", `{"email":"b@x.com","password":"pw2"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Login Successful", body["msg"])
	assert.Equal(t, "Doctor", body["role"])
	assert.Equal(t, reg["id"], body["user_identity"])
	assert.NotEmpty(t, body["token"])
}

func TestHandler_Login_Errors(t *testing.T) {
	e := newTestServer()
	doJSON(e, http.MethodPost, "/auth/register", `{"email":"b@x.com","password":"pw2","role":"Doctor"}`)

	rec := doJSON(e, http.MethodPost, "/auth/login", `{"email":"b@x.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	wrong := doJSON(e, http.MethodPost, "/auth/login", `{"email":"b@x.com","password":"bad"}`)
	unknown := doJSON(e, http.MethodPost, "/auth/login", `{"email":"nobody@x.com","password":"pw2"}`)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
	assert.Equal(t, "Bad email or password", decode(t, wrong)["msg"])
}
