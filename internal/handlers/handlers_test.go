package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthtracker/internal/logging"
	"healthtracker/internal/models"
	"healthtracker/internal/services"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{services.ErrDuplicateEmail, http.StatusConflict},
		{services.ErrNotFound, http.StatusNotFound},
		{services.ErrNotVerified, http.StatusBadRequest},
		{services.ErrAlreadyConfirmed, http.StatusBadRequest},
		{services.ErrAuthenticationFailed, http.StatusUnauthorized},
		{services.ErrInvalidToken, http.StatusBadRequest},
		{services.ErrInvalidRefreshToken, http.StatusBadRequest},
		{services.ErrInvalidVerificationCode, http.StatusBadRequest},
		{services.ErrThrottled, http.StatusTooManyRequests},
		{services.ErrNothingToUpdate, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", services.ErrInvalidMeasurement), http.StatusBadRequest},
		{errors.New("pq: connection refused"), 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.status, statusOf(tc.err), tc.err.Error())
	}
}

// stubFlow fails every call with err.
type stubFlow struct{ err error }

func (s stubFlow) Register(context.Context, string, string) (*models.User, error) { return nil, s.err }
func (s stubFlow) SendConfirmation(context.Context, string) error { return s.err }
func (s stubFlow) Confirm(context.Context, string) error { return s.err }
func (s stubFlow) Login(context.Context, string, string) (*models.TokenPair, error) {
	return nil, s.err
}
func (s stubFlow) Refresh(context.Context, string) (*models.TokenPair, error) { return nil, s.err }
func (s stubFlow) Logout(context.Context, uuid.UUID, string) error { return s.err }
func (s stubFlow) UpdateCredentials(context.Context, uuid.UUID, string, string, string) (*models.User, error) {
	return nil, s.err
}
func (s stubFlow) RequestReset(context.Context, string) error { return s.err }
func (s stubFlow) ConfirmReset(context.Context, string, string, string) error { return s.err }
func (s stubFlow) Sessions(context.Context, uuid.UUID) ([]*models.RefreshToken, error) {
	return nil, s.err
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func authRouter(flow AuthFlow) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(flow, logging.Discard())
	r := gin.New()
	r.POST("/users", h.Register)
	r.POST("/auth", h.Login)
	r.POST("/auth/resend-confirmation", h.ResendConfirmation)
	r.PATCH("/auth/reset-password-confirm", h.ConfirmReset)
	return r
}

func TestAuthHandler_InternalErrorsAreHidden(t *testing.T) {
	r := authRouter(stubFlow{err: errors.New("pq: password authentication failed for user postgres")})

	w := serve(r, http.MethodPost, "/auth", `{"email":"a@x.com","password":"Qwert12345!"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
}

func TestAuthHandler_BindErrors(t *testing.T) {
	r := authRouter(stubFlow{})

	tests := []struct {
		name, method, path, body string
	}{
		{"bad json", http.MethodPost, "/users", `{`},
		{"bad email", http.MethodPost, "/users", `{"email":"nope","password":"Qwert12345!"}`},
		{"short password", http.MethodPost, "/users", `{"email":"a@x.com","password":"short"}`},
		{"missing password", http.MethodPost, "/auth", `{"email":"a@x.com"}`},
		{"code not numeric", http.MethodPatch, "/auth/reset-password-confirm", `{"email":"a@x.com","code":"abcdef","password":"Qwert12345!"}`},
		{"code too short", http.MethodPatch, "/auth/reset-password-confirm", `{"email":"a@x.com","code":"123","password":"Qwert12345!"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(r, tc.method, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestAuthHandler_ResendAlreadyConfirmedIsNotFound(t *testing.T) {
	r := authRouter(stubFlow{err: services.ErrAlreadyConfirmed})
	w := serve(r, http.MethodPost, "/auth/resend-confirmation", `{"email":"a@x.com"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	r = authRouter(stubFlow{err: services.ErrThrottled})
	w = serve(r, http.MethodPost, "/auth/resend-confirmation", `{"email":"a@x.com"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestProtectedHandlersWithoutPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(stubFlow{}, logging.Discard())
	r := gin.New()
	r.PATCH("/auth", h.Logout)

	w := serve(r, http.MethodPatch, "/auth", `{"refreshToken":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestParseFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	parse := func(query string) (models.MeasurementFilter, error) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/measurements?"+query, nil)
		return parseFilter(c)
	}

	f, err := parse("kind=steps&from=2024-01-01T00:00:00Z&limit=5&offset=10")
	require.NoError(t, err)
	assert.Equal(t, models.KindSteps, f.Kind)
	require.NotNil(t, f.From)
	assert.Equal(t, 2024, f.From.Year())
	assert.Nil(t, f.To)
	assert.Equal(t, 5, f.Limit)
	assert.Equal(t, 10, f.Offset)

	for _, bad := range []string{"from=yesterday", "to=2024-13-01", "limit=x", "offset=-1"} {
		_, err := parse(bad)
		assert.Error(t, err, bad)
	}
}

type pingerFunc func(context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, tc := range []struct {
		db     Pinger
		status int
	}{
		{nil, http.StatusOK},
		{pingerFunc(func(context.Context) error { return nil }), http.StatusOK},
		{pingerFunc(func(context.Context) error { return errors.New("down") }), http.StatusServiceUnavailable},
	} {
		r := gin.New()
		r.GET("/healthz", Healthz(tc.db))
		w := serve(r, http.MethodGet, "/healthz", "")
		assert.Equal(t, tc.status, w.Code)
	}
}

type reportsFunc func(w io.Writer) error

func (f reportsFunc) WriteReport(_ context.Context, _ uuid.UUID, _ models.MeasurementFilter, w io.Writer) error {
	return f(w)
}

func reportRouter(reports Reports) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewReportHandler(reports, logging.Discard())
	r := gin.New()
	r.GET("/measurements/report", func(c *gin.Context) { c.Set("user_id", uuid.New()) }, h.Measurements)
	return r
}

func TestReportHandler(t *testing.T) {
	r := reportRouter(reportsFunc(func(w io.Writer) error {
		_, err := io.WriteString(w, "%PDF-1.3")
		return err
	}))
	w := serve(r, http.MethodGet, "/measurements/report", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "health-report.pdf")
	assert.Equal(t, "%PDF-1.3", w.Body.String())

	w = serve(r, http.MethodGet, "/measurements/report?from=soon", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandler_RenderFailure(t *testing.T) {
	r := reportRouter(reportsFunc(func(w io.Writer) error {
		_, _ = io.WriteString(w, "%PDF-partial")
		return errors.New("font missing")
	}))
	w := serve(r, http.MethodGet, "/measurements/report", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
}
