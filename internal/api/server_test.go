// internal/api/server_test.go
package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pagehound/pagehound/internal/bus"
	"github.com/pagehound/pagehound/internal/config"
	"github.com/pagehound/pagehound/internal/monitoring"
	"github.com/pagehound/pagehound/internal/store"
)

func newTestServer(t *testing.T, metrics *monitoring.Metrics) *Server {
	t.Helper()
	st, err := store.Open(":memory:", nil)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	b := bus.New(st, nil, nil, nil, nil, config.Default(), nil)
	return NewServer(":0", b, metrics, nil)
}

func TestHandleMessage(t *testing.T) {
	s := newTestServer(t, nil)

	body := `{"action": "capture", "dataType": "links", "value": "https://a.test"}`
	req := httptest.NewRequest(http.MethodPost, "/api/message", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type: %s", ct)
	}
}

func TestHandleMessageBadJSON(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/message", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleMessageFailureResponse(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/message", strings.NewReader(`{"action": "teleport"}`))
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for a failed action, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unknown action") {
		t.Errorf("expected the bus error in the body: %s", rec.Body)
	}
}

func TestHandleData(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Errorf("expected a success envelope: %s", rec.Body)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, monitoring.NewMetrics())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetricsEndpointDisabled(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	if rec.Code == http.StatusOK {
		t.Error("expected /metrics absent without a metrics registry")
	}
}
