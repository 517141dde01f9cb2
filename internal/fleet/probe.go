package fleet

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/mkoppen/gpuwatch/internal/config"
	"github.com/mkoppen/gpuwatch/internal/errors"
	"github.com/mkoppen/gpuwatch/internal/gpu"
	"github.com/mkoppen/gpuwatch/pkg/sshutil"
)

// Prober probes one target and always returns a result: all failures are
// folded into the result's status, never returned as errors.
type Prober interface {
	Probe(ctx context.Context, target config.Target) ProbeResult
}

// SSHProber probes targets by running nvidia-smi over SSH. Each probe opens
// a fresh connection; stale sessions to flaky fleet machines are worth less
// than the reconnect cost.
type SSHProber struct {
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	StrictHostKey  bool

	// dial is swapped in tests.
	dial func(ctx context.Context, t config.Target, opts sshutil.Options) (*sshutil.Client, error)
}

// NewSSHProber builds a prober from the fleet-wide SSH settings.
func NewSSHProber(ssh config.SSHConfig) *SSHProber {
	return &SSHProber{
		ConnectTimeout: ssh.ConnectTimeout,
		CommandTimeout: ssh.CommandTimeout,
		StrictHostKey:  ssh.StrictHostKey,
		dial:           sshutil.Dial,
	}
}

// Probe connects, runs the GPU query, and parses the output. The two phases
// carry independent deadlines so a fast connect followed by a hung command
// is reported as a command timeout, not a connect one.
func (p *SSHProber) Probe(ctx context.Context, target config.Target) ProbeResult {
	start := time.Now()

	connectCtx, cancelConnect := context.WithTimeout(ctx, p.ConnectTimeout)
	client, err := p.dial(connectCtx, target, sshutil.Options{
		ConnectTimeout: p.ConnectTimeout,
		StrictHostKey:  p.StrictHostKey,
	})
	cancelConnect()
	if err != nil {
		return p.finish(start, failureResult(target.ID(), err, PhaseConnect))
	}
	defer client.Close()

	cmdCtx, cancelCmd := context.WithTimeout(ctx, p.CommandTimeout)
	defer cancelCmd()
	raw, err := client.Output(cmdCtx, gpu.ProbeCommand())
	if err != nil {
		return p.finish(start, failureResult(target.ID(), err, PhaseCommand))
	}

	devices, err := gpu.ParseProbeOutput(raw)
	if err != nil {
		r := failureResult(target.ID(), err, PhaseCommand)
		// Keep the raw output: it is the only way to debug a fleet machine
		// running an unexpected driver or nvidia-smi version.
		r.Detail = shortDetail(err) + " | raw: " + truncate(raw, 300)
		return p.finish(start, r)
	}

	return p.finish(start, ProbeResult{
		Host:    target.ID(),
		Status:  StatusSuccess,
		Devices: devices,
	})
}

func (p *SSHProber) finish(start time.Time, r ProbeResult) ProbeResult {
	r.Duration = time.Since(start)
	r.Completed = time.Now()
	return r
}

// failureResult maps a classified error onto a probe status.
func failureResult(host string, err error, phase Phase) ProbeResult {
	r := ProbeResult{
		Host:   host,
		Detail: shortDetail(err),
	}
	switch errors.Code(err) {
	case errors.ErrAuth:
		r.Status = StatusAuthFailure
	case errors.ErrTimeout:
		r.Status = StatusTimeout
		r.Phase = phase
	case errors.ErrParse, errors.ErrExec:
		// The host answered but produced no usable data (nvidia-smi
		// missing, driver wedged, garbage output).
		r.Status = StatusParseFailure
	default:
		r.Status = StatusConnectFailure
	}
	return r
}

func shortDetail(err error) string {
	var gwErr *errors.Error
	if stderrors.As(err, &gwErr) {
		return gwErr.Short()
	}
	return err.Error()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
