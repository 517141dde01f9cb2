// Package statusd serves the current fleet snapshot as JSON, so scripts and
// dashboards can read the same data the live table shows.
package statusd

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mkoppen/gpuwatch/internal/fleet"
	"github.com/mkoppen/gpuwatch/internal/logger"
)

// Server exposes GET /status and GET /healthz over HTTP.
type Server struct {
	snapshot *fleet.Snapshot
	log      logger.Logger
	http     *http.Server
}

// hostStatus is the wire shape of one fleet entry.
type hostStatus struct {
	Host       string      `json:"host"`
	Status     string      `json:"status"`
	Detail     string      `json:"detail,omitempty"`
	Phase      string      `json:"phase,omitempty"`
	GPUs       []gpuStatus `json:"gpus,omitempty"`
	DurationMS int64       `json:"duration_ms,omitempty"`
	Completed  *time.Time  `json:"completed,omitempty"`
}

type gpuStatus struct {
	Index          int    `json:"index"`
	Name           string `json:"name"`
	Utilization    int    `json:"utilization_percent"`
	MemoryUsedMiB  int64  `json:"memory_used_mib"`
	MemoryTotalMiB int64  `json:"memory_total_mib"`
	Processes      int    `json:"processes"`
	Free           bool   `json:"free"`
}

// New builds a server over the shared snapshot, listening on addr.
func New(addr string, snapshot *fleet.Snapshot, log logger.Logger) *Server {
	s := &Server{snapshot: snapshot, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves in a background goroutine. Listen failures are logged, not
// fatal: the live table keeps working without the endpoint.
func (s *Server) Start() {
	go func() {
		s.log.Info("status endpoint listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("status endpoint failed: %v", err)
		}
	}()
}

// Shutdown drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	results := s.snapshot.Results()

	out := make([]hostStatus, 0, len(results))
	for _, res := range results {
		out = append(out, toWire(res))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"hosts": out}); err != nil {
		s.log.Error("encoding status response: %v", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func toWire(r fleet.ProbeResult) hostStatus {
	h := hostStatus{
		Host:   r.Host,
		Status: r.Status.String(),
		Detail: r.Detail,
		Phase:  string(r.Phase),
	}
	if r.Duration > 0 {
		h.DurationMS = r.Duration.Milliseconds()
	}
	if !r.Completed.IsZero() {
		t := r.Completed
		h.Completed = &t
	}
	for _, d := range r.Devices {
		h.GPUs = append(h.GPUs, gpuStatus{
			Index:          d.Index,
			Name:           d.Name,
			Utilization:    d.UtilizationPercent,
			MemoryUsedMiB:  d.MemoryUsedMiB,
			MemoryTotalMiB: d.MemoryTotalMiB,
			Processes:      d.ProcessCount,
			Free:           d.Free(),
		})
	}
	return h
}
