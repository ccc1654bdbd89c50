package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
	"github.com/couchcryptid/hazard-alert-service/internal/notify"
	"github.com/couchcryptid/hazard-alert-service/internal/observability"
)

type stubService struct {
	ready    error
	alerts   []domain.Alert
	lastRun  time.Time
	checkOK  bool
	clearErr error
	cleared  bool
}

func (s *stubService) CheckReadiness(context.Context) error { return s.ready }
func (s *stubService) Alerts() []domain.Alert               { return s.alerts }
func (s *stubService) LastRun() (time.Time, int)            { return s.lastRun, len(s.alerts) }
func (s *stubService) Check(context.Context) bool           { return s.checkOK }

func (s *stubService) ClearAlerts(context.Context) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	s.cleared = true
	s.alerts = nil
	return nil
}

func newTestServer(svc *stubService, badge *notify.BadgeKeeper) *Server {
	if badge == nil {
		badge = &notify.BadgeKeeper{}
	}
	return NewServer(":0", svc, badge, observability.NewTestLogger())
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestServer_Health(t *testing.T) {
	rec := doRequest(t, newTestServer(&stubService{}, nil), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestServer_Ready_NotReady(t *testing.T) {
	svc := &stubService{ready: errors.New("no aggregation run has completed yet")}
	rec := doRequest(t, newTestServer(svc, nil), http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_Ready_Ready(t *testing.T) {
	rec := doRequest(t, newTestServer(&stubService{}, nil), http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_GetAlerts(t *testing.T) {
	svc := &stubService{
		alerts: []domain.Alert{
			{ID: "us100", Type: domain.HazardEarthquake, Level: domain.LevelCritical, LocationName: "Wellington"},
		},
		lastRun: time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
	}
	rec := doRequest(t, newTestServer(svc, nil), http.MethodGet, "/v1/alerts")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Alerts []domain.Alert `json:"alerts"`
		Count  int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Alerts, 1)
	assert.Equal(t, "us100", resp.Alerts[0].ID)
}

func TestServer_ClearAlerts(t *testing.T) {
	svc := &stubService{alerts: []domain.Alert{{ID: "us100"}}}
	rec := doRequest(t, newTestServer(svc, nil), http.MethodDelete, "/v1/alerts")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.cleared)
}

func TestServer_ClearAlerts_Error(t *testing.T) {
	svc := &stubService{clearErr: errors.New("store unavailable")}
	rec := doRequest(t, newTestServer(svc, nil), http.MethodDelete, "/v1/alerts")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_Check_Completed(t *testing.T) {
	svc := &stubService{checkOK: true}
	rec := doRequest(t, newTestServer(svc, nil), http.MethodPost, "/v1/check")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "completed")
}

func TestServer_Check_AlreadyInFlight(t *testing.T) {
	svc := &stubService{checkOK: false}
	rec := doRequest(t, newTestServer(svc, nil), http.MethodPost, "/v1/check")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_Badge(t *testing.T) {
	badge := &notify.BadgeKeeper{}
	badge.Set(notify.Badge{Text: "!", Color: "#EF4444"})

	rec := doRequest(t, newTestServer(&stubService{}, badge), http.MethodGet, "/v1/badge")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"text":"!","color":"#EF4444"}`, rec.Body.String())
}

func TestServer_Metrics(t *testing.T) {
	rec := doRequest(t, newTestServer(&stubService{}, nil), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}
