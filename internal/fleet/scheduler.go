package fleet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mkoppen/gpuwatch/internal/config"
	"github.com/mkoppen/gpuwatch/internal/logger"
)

// updateBuffer sizes the updates channel so probe goroutines never block on
// a slow consumer for a full fleet round.
const updateBuffer = 256

// Scheduler launches probe rounds on a fixed cadence with bounded
// concurrency. Results land in the snapshot and are streamed on Updates in
// completion order.
type Scheduler struct {
	targets  []config.Target
	prober   Prober
	snapshot *Snapshot
	log      logger.Logger

	refreshRate time.Duration
	maxInFlight int

	updates chan ProbeResult
	slots   chan struct{}

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewScheduler builds a scheduler over the resolved fleet. maxInFlight <= 0
// grants every target its own slot.
func NewScheduler(targets []config.Target, prober Prober, snapshot *Snapshot, cfg config.Config, log logger.Logger) *Scheduler {
	maxInFlight := cfg.Scheduler.MaxInFlight
	if maxInFlight <= 0 || maxInFlight > len(targets) {
		maxInFlight = len(targets)
	}
	return &Scheduler{
		targets:     targets,
		prober:      prober,
		snapshot:    snapshot,
		log:         log,
		refreshRate: cfg.Display.RefreshRate,
		maxInFlight: maxInFlight,
		updates:     make(chan ProbeResult, updateBuffer),
		slots:       make(chan struct{}, maxInFlight),
		inFlight:    make(map[string]bool),
	}
}

// Updates streams results as probes complete. The channel closes after Run
// returns and all in-flight probes have drained.
func (s *Scheduler) Updates() <-chan ProbeResult {
	return s.updates
}

// Snapshot returns the shared result store.
func (s *Scheduler) Snapshot() *Snapshot {
	return s.snapshot
}

// Run polls until ctx is cancelled: one round immediately, then one per
// refresh interval. On cancellation it waits for in-flight probes to wind
// down (each bounded by its own probe deadline), then closes Updates.
// No results are published after cancellation.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup

	ticker := time.NewTicker(s.refreshRate)
	defer ticker.Stop()

	s.runRound(ctx, &wg)

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			close(s.updates)
			return
		case <-ticker.C:
			s.runRound(ctx, &wg)
		}
	}
}

// Once runs a single round and waits for it to finish, for non-TTY one-shot
// output. Updates is closed afterwards.
func (s *Scheduler) Once(ctx context.Context) {
	var wg sync.WaitGroup
	s.runRound(ctx, &wg)
	wg.Wait()
	close(s.updates)
}

// runRound dispatches one probe per target in fleet order. Slots are
// acquired here, in the dispatch loop, so targets start in list order even
// though they finish in any order. The slot pool is shared across rounds, so
// leftover slow probes from earlier rounds still count against the bound. A
// target still being probed from an earlier round is skipped and logged,
// never probed twice concurrently.
func (s *Scheduler) runRound(ctx context.Context, wg *sync.WaitGroup) {
	for _, target := range s.targets {
		if ctx.Err() != nil {
			return
		}
		if !s.markInFlight(target.ID()) {
			s.log.Warn("skipping %s: previous probe still running", target.ID())
			continue
		}

		select {
		case s.slots <- struct{}{}:
		case <-ctx.Done():
			s.clearInFlight(target.ID())
			return
		}

		wg.Add(1)
		go func(t config.Target) {
			defer wg.Done()
			defer func() { <-s.slots }()
			defer s.clearInFlight(t.ID())
			s.runProbe(ctx, t)
		}(target)
	}
}

// runProbe executes one probe and publishes its result. A panicking prober
// is reported as a parse failure rather than taking down the whole watch.
func (s *Scheduler) runProbe(ctx context.Context, target config.Target) {
	var result ProbeResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("probe of %s panicked: %v", target.ID(), r)
				result = ProbeResult{
					Host:      target.ID(),
					Status:    StatusParseFailure,
					Detail:    fmt.Sprintf("internal error: %v", r),
					Completed: time.Now(),
				}
			}
		}()
		result = s.prober.Probe(ctx, target)
	}()

	// Cancellation means shutdown: the display is gone, so the result is
	// dropped rather than published.
	if ctx.Err() != nil {
		return
	}

	s.snapshot.Set(result)
	s.publish(ctx, result)

	s.log.Debug("probe %s: %s in %s", target.ID(), result.Status, result.Duration.Round(time.Millisecond))
}

func (s *Scheduler) publish(ctx context.Context, r ProbeResult) {
	select {
	case s.updates <- r:
	case <-ctx.Done():
	}
}

func (s *Scheduler) markInFlight(host string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[host] {
		return false
	}
	s.inFlight[host] = true
	return true
}

func (s *Scheduler) clearInFlight(host string) {
	s.mu.Lock()
	delete(s.inFlight, host)
	s.mu.Unlock()
}
