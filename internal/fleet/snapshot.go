package fleet

import (
	"sync"

	"github.com/mkoppen/gpuwatch/internal/config"
)

// Snapshot holds the latest known result per target. The scheduler is the
// only writer; the TUI and the status endpoint read concurrently.
type Snapshot struct {
	mu      sync.RWMutex
	order   []config.Target
	results map[string]ProbeResult
}

// NewSnapshot seeds every target as Pending so the display can render the
// full fleet before any probe completes.
func NewSnapshot(targets []config.Target) *Snapshot {
	results := make(map[string]ProbeResult, len(targets))
	for _, t := range targets {
		results[t.ID()] = PendingResult(t.Host)
	}
	return &Snapshot{
		order:   targets,
		results: results,
	}
}

// Set records the latest result for a host. Unknown hosts are ignored; the
// fleet is fixed for the lifetime of a run.
func (s *Snapshot) Set(r ProbeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[r.Host]; !ok {
		return
	}
	s.results[r.Host] = r
}

// Get returns the latest result for a host.
func (s *Snapshot) Get(host string) (ProbeResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[host]
	return r, ok
}

// Targets returns the fleet in display order.
func (s *Snapshot) Targets() []config.Target {
	return s.order
}

// Results returns the fleet's results in display order.
func (s *Snapshot) Results() []ProbeResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ProbeResult, 0, len(s.order))
	for _, t := range s.order {
		out = append(out, s.results[t.ID()])
	}
	return out
}

// Complete reports whether every target has a terminal result, used by the
// one-shot plain mode to know when to print and exit.
func (s *Snapshot) Complete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if !r.Status.Terminal() {
			return false
		}
	}
	return true
}
