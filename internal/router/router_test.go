package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalapp/clinic-api/internal/app"
	"github.com/vitalapp/clinic-api/internal/config"
	appointmentHandler "github.com/vitalapp/clinic-api/internal/handler/appointment"
	authHandler "github.com/vitalapp/clinic-api/internal/handler/auth"
	"github.com/vitalapp/clinic-api/internal/handler/health"
	notificationHandler "github.com/vitalapp/clinic-api/internal/handler/notification"
	patientHandler "github.com/vitalapp/clinic-api/internal/handler/patient"
	"github.com/vitalapp/clinic-api/internal/handler/prometheus"
	triageHandler "github.com/vitalapp/clinic-api/internal/handler/triage"
	userHandler "github.com/vitalapp/clinic-api/internal/handler/user"
	"github.com/vitalapp/clinic-api/internal/middleware"
	"github.com/vitalapp/clinic-api/internal/router"
	"github.com/vitalapp/clinic-api/pkg/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := middleware.RegisterValidators(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	status int
}

func (r apiResponse) decode(t *testing.T, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, v))
}

type testServer struct {
	engine *gin.Engine
	app    *app.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		Server:   config.ServerConfig{RequestTimeout: 5 * time.Second, MaxBodyBytes: 1 << 20},
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		JWT: config.JWTConfig{
			Secret: "test-secret", RefreshSecret: "test-refresh", Issuer: "clinic-api",
			ExpiryHours: 1, RefreshExpiryHours: 2,
		},
		Events:        config.EventsConfig{QueueSize: 16, DrainTimeout: 5 * time.Second},
		Notifications: config.NotificationsConfig{ActiveUsersTTL: time.Second, ChannelPrefix: "notifications"},
		Metrics:       config.MetricsConfig{Enabled: true, Namespace: "test"},
	}

	a, err := app.New(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	metrics := prometheus.New(cfg.Metrics.Namespace, a.Registry)
	r := router.NewRouter(
		middleware.NewAuthMiddleware(a.JWT),
		router.Handlers{
			Health: health.NewHandler(a.Checks(), metrics.Handler()),
			Public: []router.Handler{authHandler.NewHandler(a.Auth)},
			Protected: []router.Handler{
				userHandler.NewHandler(a.Users),
				patientHandler.NewHandler(a.Patients),
				triageHandler.NewHandler(a.Triages),
				appointmentHandler.NewHandler(a.Appointments),
				notificationHandler.NewHandler(a.Notifications),
			},
		},
		metrics,
		logger.Nop(),
		router.RouterConfig{
			CORSConfig:     middleware.DefaultCORSConfig(nil),
			RequestTimeout: cfg.Server.RequestTimeout,
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		},
	)
	r.Setup()
	return &testServer{engine: r.Engine(), app: a}
}

func (s *testServer) makeRequest(t *testing.T, method, path string, body interface{}, token string) apiResponse {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	resp.status = w.Code
	return resp
}

func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()
	resp := s.makeRequest(t, http.MethodPost, "/auth/register", map[string]interface{}{
		"username": username,
		"email":    username + "@clinic.test",
		"password": "secret1",
	}, "")
	require.Equal(t, http.StatusCreated, resp.status)

	var auth struct {
		Token string `json:"token"`
	}
	resp.decode(t, &auth)
	require.NotEmpty(t, auth.Token)
	return auth.Token
}

func (s *testServer) createPatient(t *testing.T, token, name, document string) string {
	t.Helper()
	resp := s.makeRequest(t, http.MethodPost, "/patients", map[string]interface{}{
		"fullName":       name,
		"documentNumber": document,
		"birthDate":      "1990-05-17",
		"gender":         "FEMALE",
		"phone":          "3001234567",
	}, token)
	require.Equal(t, http.StatusCreated, resp.status, resp.Error)

	var p struct {
		ID string `json:"id"`
	}
	resp.decode(t, &p)
	return p.ID
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	resp := s.makeRequest(t, http.MethodGet, "/patients", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)

	resp = s.makeRequest(t, http.MethodGet, "/patients", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, resp.status)
}

func TestHealthEndpointsArePublic(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.makeRequest(t, http.MethodGet, "/health/live", nil, "").status)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"UP"`)
	assert.Contains(t, w.Body.String(), `"broker":"UP"`)
}

func TestPatientPageFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "recepcion")

	s.createPatient(t, token, "Carlos Ruiz", "10000001")
	s.createPatient(t, token, "Ana Gómez", "10000002")
	s.createPatient(t, token, "Beatriz Ana Díaz", "10000003")

	resp := s.makeRequest(t, http.MethodGet, "/patients?fullName=ana&sortBy=fullName&size=1", nil, token)
	require.Equal(t, http.StatusOK, resp.status, resp.Error)

	var page struct {
		Content []struct {
			FullName string `json:"fullName"`
			Age      int    `json:"age"`
		} `json:"content"`
		TotalElements int64 `json:"totalElements"`
		TotalPages    int   `json:"totalPages"`
		First         bool  `json:"first"`
		Last          bool  `json:"last"`
	}
	resp.decode(t, &page)
	assert.Equal(t, int64(2), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.First)
	assert.False(t, page.Last)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "Ana Gómez", page.Content[0].FullName)
	assert.Positive(t, page.Content[0].Age)
}

func TestPatientPageRejectsBadPaging(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "recepcion")

	for _, query := range []string{"?size=101", "?size=0", "?page=-1"} {
		resp := s.makeRequest(t, http.MethodGet, "/patients"+query, nil, token)
		assert.Equal(t, http.StatusBadRequest, resp.status, query)
		if assert.NotNil(t, resp.Error, query) {
			assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code, query)
		}
	}
}

func TestCreatePatientDuplicateDocument(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "recepcion")
	s.createPatient(t, token, "Carlos Ruiz", "10000001")

	resp := s.makeRequest(t, http.MethodPost, "/patients", map[string]interface{}{
		"fullName":       "Otro Nombre",
		"documentNumber": "10000001",
		"birthDate":      "1985-01-01",
		"gender":         "MALE",
	}, token)
	assert.Equal(t, http.StatusConflict, resp.status)
}

func TestHighSeverityTriageNotifiesStaff(t *testing.T) {
	s := newTestServer(t)
	nurse := s.register(t, "enfermera")
	doctor := s.register(t, "medico")
	patientID := s.createPatient(t, nurse, "Carlos Ruiz", "10000001")

	resp := s.makeRequest(t, http.MethodPost, "/triages", map[string]interface{}{
		"patientId":         patientID,
		"symptoms":          "dolor torácico",
		"bloodPressure":     "150/95",
		"severityLevel":     5,
		"recommendedAction": "valoración inmediata",
	}, nurse)
	require.Equal(t, http.StatusCreated, resp.status, resp.Error)

	assert.Eventually(t, func() bool {
		resp := s.makeRequest(t, http.MethodGet, "/notifications/mine/count", nil, doctor)
		var unread struct {
			Count int64 `json:"count"`
		}
		if resp.status != http.StatusOK || json.Unmarshal(resp.Data, &unread) != nil {
			return false
		}
		return unread.Count == 1
	}, 2*time.Second, 20*time.Millisecond)

	resp = s.makeRequest(t, http.MethodGet, "/notifications/mine", nil, doctor)
	require.Equal(t, http.StatusOK, resp.status)
	var mine []struct {
		Priority string `json:"priority"`
		Type     string `json:"type"`
		Read     bool   `json:"read"`
	}
	resp.decode(t, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, "URGENT", mine[0].Priority)
	assert.Equal(t, "ALERT", mine[0].Type)

	resp = s.makeRequest(t, http.MethodPatch, "/notifications/mine/read-all", nil, doctor)
	require.Equal(t, http.StatusOK, resp.status)

	resp = s.makeRequest(t, http.MethodGet, "/notifications/mine", nil, doctor)
	resp.decode(t, &mine)
	assert.Empty(t, mine)
}

func TestLowSeverityTriageIsSilent(t *testing.T) {
	s := newTestServer(t)
	nurse := s.register(t, "enfermera")
	patientID := s.createPatient(t, nurse, "Carlos Ruiz", "10000001")

	resp := s.makeRequest(t, http.MethodPost, "/triages", map[string]interface{}{
		"patientId":         patientID,
		"symptoms":          "tos",
		"severityLevel":     2,
		"recommendedAction": "control",
	}, nurse)
	require.Equal(t, http.StatusCreated, resp.status, resp.Error)

	require.NoError(t, s.app.Bus.Close(context.Background()))
	resp = s.makeRequest(t, http.MethodGet, "/notifications/mine/count", nil, nurse)
	var unread struct {
		Count int64 `json:"count"`
	}
	resp.decode(t, &unread)
	assert.Zero(t, unread.Count)
}

func TestUnknownRoutesAreCounted(t *testing.T) {
	s := newTestServer(t)
	resp := s.makeRequest(t, http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health/metrics", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `test_http_requests_total{method="GET",path="unmatched",status="404"} 1`)
}
