package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/arcane-autoheal/autoheal/internal/control"
	"github.com/arcane-autoheal/autoheal/internal/model"
	"github.com/arcane-autoheal/autoheal/internal/runtimeadapter"
	"github.com/arcane-autoheal/autoheal/internal/store"
)

type fakeAdapter struct{}

func (fakeAdapter) ListContainers(ctx context.Context, all bool) ([]model.Observation, error) {
	return []model.Observation{{Name: "/web", RuntimeID: "r1", ShortID: "r1s", State: model.StateRunning}}, nil
}
func (fakeAdapter) Inspect(ctx context.Context, idOrName string) (model.Observation, error) {
	return model.Observation{Name: "/web", RuntimeID: "r1", ShortID: "r1s"}, nil
}
func (fakeAdapter) Restart(ctx context.Context, idOrName string, timeout time.Duration) runtimeadapter.RestartResult {
	return runtimeadapter.RestartResult{Ok: true}
}
func (fakeAdapter) StreamStartEvents(ctx context.Context) <-chan model.StartEvent {
	ch := make(chan model.StartEvent)
	close(ch)
	return ch
}
func (fakeAdapter) ProbeHTTP(ctx context.Context, endpoint string, expectedStatus int, timeout time.Duration) error {
	return nil
}
func (fakeAdapter) ProbeTCP(ctx context.Context, host string, port int, timeout time.Duration) error {
	return nil
}
func (fakeAdapter) ProbeExec(ctx context.Context, containerID string, argv []string, timeout time.Duration) error {
	return nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	core := control.New(st, fakeAdapter{})
	return NewRouter(core, false)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req, _ := http.NewRequest(http.MethodGet, "/api/health", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
}

func TestStatusEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req, _ := http.NewRequest(http.MethodGet, "/api/status", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"total":1`)
}

func TestContainerSelectAndList(t *testing.T) {
	router := newTestRouter(t)

	req, _ := http.NewRequest(http.MethodPost, "/api/containers/web/select", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	req, _ = http.NewRequest(http.MethodGet, "/api/containers", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"monitored":true`)
}

func TestMaintenanceEnableDisable(t *testing.T) {
	router := newTestRouter(t)

	req, _ := http.NewRequest(http.MethodPost, "/api/maintenance/enable", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"maintenance":true`)

	req, _ = http.NewRequest(http.MethodPost, "/api/maintenance/disable", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Contains(t, resp.Body.String(), `"maintenance":false`)
}

func TestEventsListAndClear(t *testing.T) {
	router := newTestRouter(t)

	req, _ := http.NewRequest(http.MethodPost, "/api/containers/web/restart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	req, _ = http.NewRequest(http.MethodGet, "/api/events", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Contains(t, resp.Body.String(), "manual_restart")

	req, _ = http.NewRequest(http.MethodDelete, "/api/events", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
}
