package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mkoppen/gpuwatch/internal/config"
	"github.com/mkoppen/gpuwatch/internal/errors"
	"github.com/mkoppen/gpuwatch/internal/fleet"
	"github.com/mkoppen/gpuwatch/internal/logger"
	"github.com/mkoppen/gpuwatch/internal/statusd"
	"github.com/mkoppen/gpuwatch/internal/tui"
)

// shutdownGrace bounds how long we wait for the status endpoint to drain.
const shutdownGrace = 2 * time.Second

// watchCommand loads config, resolves the fleet, and runs either the live
// table or a one-shot plain round when stdout is not a terminal.
func watchCommand(cmd *cobra.Command) error {
	path, err := config.Find(configFlag)
	if err != nil {
		return err
	}

	cfg, err := config.Load(path, buildOverrides(cmd))
	if err != nil {
		return err
	}

	targets, err := config.ResolveTargets(cfg)
	if err != nil {
		return err
	}

	log, closeLog, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	snapshot := fleet.NewSnapshot(targets)
	prober := fleet.NewSSHProber(cfg.SSH)
	scheduler := fleet.NewScheduler(targets, prober, snapshot, *cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.HTTP.Listen != "" {
		srv := statusd.New(cfg.HTTP.Listen, snapshot, log)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	log.Info("watching %d targets every %s", len(targets), cfg.Display.RefreshRate)

	if plainFlag || !term.IsTerminal(int(os.Stdout.Fd())) {
		return runPlain(ctx, scheduler)
	}
	return runTUI(ctx, stop, scheduler, snapshot)
}

// runPlain probes the fleet once and prints the table, for pipes and cron.
func runPlain(ctx context.Context, scheduler *fleet.Scheduler) error {
	done := make(chan struct{})
	go func() {
		scheduler.Once(ctx)
		close(done)
	}()

	for range scheduler.Updates() {
	}
	<-done

	fmt.Print(tui.RenderSnapshot(scheduler.Snapshot()))
	return nil
}

// runTUI runs the scheduler and the live table until the user quits or a
// signal arrives.
func runTUI(ctx context.Context, stop context.CancelFunc, scheduler *fleet.Scheduler, snapshot *fleet.Snapshot) error {
	schedulerDone := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(schedulerDone)
	}()

	model := tui.NewModel(snapshot, scheduler.Updates())
	p := tea.NewProgram(model, tea.WithAltScreen())

	// A signal quits the program the same way the q key does.
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, err := p.Run()

	// Stop the scheduler and let in-flight probes wind down, each bounded
	// by its own probe deadline.
	stop()
	for range scheduler.Updates() {
	}
	<-schedulerDone

	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Display failed",
			"Try --plain for non-interactive output")
	}

	fmt.Println("gpuwatch stopped. Goodbye!")
	return nil
}

// buildLogger returns the debug file logger when enabled, otherwise a noop.
// The TUI owns the terminal, so there is no stderr logging path here.
func buildLogger(cfg *config.Config) (logger.Logger, func(), error) {
	if !cfg.Debug.Enabled {
		return logger.Noop(), func() {}, nil
	}

	maxSize := cfg.Debug.LogMaxSize
	if maxSize <= 0 {
		maxSize = logger.DefaultLogMaxSize
	}

	fl, err := logger.NewFileLogger(cfg.Debug.LogDir, cfg.Debug.LogFile, maxSize)
	if err != nil {
		return nil, nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot open debug log",
			"Check debug.log_dir is writable, or disable debug logging")
	}
	return fl, func() { _ = fl.Close() }, nil
}

// printConfigPath prints where the global config lives, creating nothing.
func printConfigPath() error {
	path := config.DefaultConfigPath()
	if path == "" {
		return errors.New(errors.ErrConfig,
			"Cannot determine the config path",
			"Set $HOME and try again")
	}
	fmt.Println(path)
	return nil
}
