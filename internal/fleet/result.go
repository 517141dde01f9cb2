// Package fleet polls a set of SSH targets for GPU status on a fixed cadence
// with bounded concurrency, publishing per-host results as they complete.
package fleet

import (
	"time"

	"github.com/mkoppen/gpuwatch/internal/gpu"
)

// Status classifies the outcome of the most recent probe of a host.
type Status int

const (
	// StatusPending means no probe has completed yet.
	StatusPending Status = iota
	// StatusSuccess means the probe returned parseable GPU data.
	StatusSuccess
	// StatusConnectFailure means the host was unreachable.
	StatusConnectFailure
	// StatusAuthFailure means the host rejected our credentials.
	StatusAuthFailure
	// StatusTimeout means connecting or the remote command exceeded its
	// deadline; Phase says which.
	StatusTimeout
	// StatusParseFailure means nvidia-smi output could not be understood.
	StatusParseFailure
)

// String returns the operator-facing status label.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Connecting"
	case StatusSuccess:
		return "OK"
	case StatusConnectFailure:
		return "Unreachable"
	case StatusAuthFailure:
		return "Auth failed"
	case StatusTimeout:
		return "Timeout"
	case StatusParseFailure:
		return "Bad output"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the status is the result of a completed probe.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// Phase identifies which stage of a probe timed out.
type Phase string

const (
	// PhaseConnect covers dialing and the SSH handshake.
	PhaseConnect Phase = "connect"
	// PhaseCommand covers remote command execution.
	PhaseCommand Phase = "command"
)

// ProbeResult is the complete outcome of probing one host. Exactly one of
// Devices (on success) or Detail (on failure) carries information; Status
// discriminates.
type ProbeResult struct {
	Host      string
	Status    Status
	Devices   []gpu.Device
	Detail    string
	Phase     Phase
	Duration  time.Duration
	Completed time.Time
}

// PendingResult seeds the snapshot before the first probe finishes.
func PendingResult(host string) ProbeResult {
	return ProbeResult{Host: host, Status: StatusPending}
}
