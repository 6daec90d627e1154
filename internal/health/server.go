package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/governor/internal/infra/storage"
)

// Status of the credential pool.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// CredentialStatus is one credential's health as exposed over HTTP.
// It carries the name only, never the secret.
type CredentialStatus struct {
	Name           string     `json:"name"`
	Enabled        bool       `json:"enabled"`
	ExhaustedUntil *time.Time `json:"exhausted_until,omitempty"`
	Eligible       bool       `json:"eligible"`
}

// Server provides HTTP endpoints for health monitoring and metrics.
type Server struct {
	store  storage.CredentialRepository
	server *http.Server
}

// NewServer creates a new health server.
func NewServer(store storage.CredentialRepository, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		store: store,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) check(ctx context.Context) ([]CredentialStatus, Status, error) {
	creds, err := s.store.List(ctx)
	if err != nil {
		return nil, StatusCritical, err
	}

	now := time.Now()
	var statuses []CredentialStatus
	eligible := 0
	for _, c := range creds {
		cs := CredentialStatus{
			Name:           c.Name,
			Enabled:        c.Enabled,
			ExhaustedUntil: c.ExhaustedUntil,
			Eligible:       c.Eligible(now),
		}
		if cs.Eligible {
			eligible++
		}
		statuses = append(statuses, cs)
	}

	status := StatusHealthy
	if eligible == 0 {
		status = StatusCritical
	} else if eligible < len(creds) {
		status = StatusDegraded
	}
	return statuses, status, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, status, err := s.check(r.Context())
	w.Header().Set("Content-Type", "application/json")

	if err != nil || status == StatusCritical {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(map[string]string{"status": string(status)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	statuses, status, err := s.check(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"status":      status,
		"credentials": statuses,
	})
}
