package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	"solar_collector/internal/models"
	"solar_collector/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	registerID    int
	registerErr   error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastInvitedBy    int
	lastRegisterName string
	lastGenUsername  string
	lastGenPassword  string
	lastParseToken   string
}

func (m *mockAuth) Register(invitedBy int, username, password string) (int, error) {
	m.lastInvitedBy = invitedBy
	m.lastRegisterName = username
	return m.registerID, m.registerErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockMonitoring struct {
	state models.ControllerState
	err   error
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.ControllerState, error) {
	return m.state, m.err
}

type mockEventLog struct {
	resp     []models.ControllerEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.ControllerEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

type mockSettings struct {
	view service.SettingsView
}

func (m *mockSettings) Settings() service.SettingsView { return m.view }

type mockTelemetry struct {
	points []service.TelemetryPoint
	err    error
	calls  int
}

func (m *mockTelemetry) Entries(ctx context.Context) ([]service.TelemetryPoint, error) {
	m.calls++
	return m.points, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authedRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
