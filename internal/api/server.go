// internal/api/server.go
//
// Package api exposes the message bus over HTTP: a single message endpoint
// mirroring the bus contract, a convenience data endpoint, health, and
// Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/pagehound/pagehound/internal/bus"
	"github.com/pagehound/pagehound/internal/monitoring"
	"github.com/pagehound/pagehound/internal/utils"
)

// Server is the HTTP front of the message bus.
type Server struct {
	bus     *bus.Bus
	metrics *monitoring.Metrics
	logger  utils.Logger
	http    *http.Server
}

// NewServer builds the server on addr. metrics may be nil, which disables
// the /metrics endpoint.
func NewServer(addr string, b *bus.Bus, metrics *monitoring.Metrics, logger utils.Logger) *Server {
	if logger == nil {
		logger = utils.NewLogger()
	}
	s := &Server{bus: b, metrics: metrics, logger: logger}

	router := mux.NewRouter()
	router.HandleFunc("/api/message", s.handleMessage).Methods(http.MethodPost)
	router.HandleFunc("/api/data", s.handleData).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if metrics != nil {
		router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}

	s.http = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // bulk-triggering messages respond fast, exports may not
	}
	return s
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.WithField("addr", s.http.Addr).Info("HTTP server listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg bus.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, bus.Response{Success: false, Error: "invalid message: " + err.Error()})
		return
	}
	resp := s.bus.Handle(r.Context(), msg)
	status := http.StatusOK
	if !resp.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	resp := s.bus.Handle(r.Context(), bus.Message{Action: bus.ActionGetScrapedData})
	status := http.StatusOK
	if !resp.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
