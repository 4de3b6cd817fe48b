package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/splitcore/internal/config"
	"github.com/roach88/splitcore/internal/metrics"
	"github.com/roach88/splitcore/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config      string
	Database    string
	MetricsAddr string
	Frames      int
	Trap        bool // trap into the debugger at breakpoints instead of logging

	// Store options, for deterministic session ids in tests.
	StoreOptions []trace.Option
}

// RunStats summarizes a run.
type RunStats struct {
	Frames         int    `json:"frames"`
	Producers      int    `json:"producers"`
	Policy         string `json:"policy"`
	Commands       int64  `json:"commands"`
	Notifications  int64  `json:"notifications"`
	RenderCalls    int    `json:"render_calls"`
	Synced         int    `json:"synced"`
	Resources      int    `json:"resources"`
	ReadBack       int    `json:"read_back_bytes"`
	BreakpointHits int64  `json:"breakpoint_hits"`
	Session        string `json:"session,omitempty"`
	Records        int    `json:"records"`
	ElapsedMS      int64  `json:"elapsed_ms"`
}

// WriteText implements TextWriter.
func (s RunStats) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Ran %d frames with %d %s producers in %dms\n", s.Frames, s.Producers, s.Policy, s.ElapsedMS)
	fmt.Fprintf(w, "  commands:      %d\n", s.Commands)
	fmt.Fprintf(w, "  notifications: %d\n", s.Notifications)
	fmt.Fprintf(w, "  render calls:  %d\n", s.RenderCalls)
	fmt.Fprintf(w, "  objects:       %d created, %d syncs\n", s.Resources, s.Synced)
	if s.BreakpointHits > 0 {
		fmt.Fprintf(w, "  breakpoints:   %d hits\n", s.BreakpointHits)
	}
	if s.Session != "" {
		fmt.Fprintf(w, "  trace:         session %s, %d records\n", s.Session, s.Records)
	}
	return nil
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive a core thread from producer goroutines",
		Long: `Start a core thread and drive it for a number of frames.

Producer goroutines each own a command queue and submit draw work every
frame. The main goroutine creates textures, meshes and cameras, mutates
them, and runs the dirty sync pass once per frame.

With --db every executed command is recorded to a SQLite trace; use
"splitcore trace" to find the queue/index pair of a command and add it to
the configuration's breakpoints.

Examples:
  splitcore run
  splitcore run --config run.cue --db ./trace.db
  splitcore run --frames 600 --metrics-addr :9090 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "path to CUE run configuration")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record a trace to this SQLite database")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().IntVar(&opts.Frames, "frames", 0, "override the configured frame count")
	cmd.Flags().BoolVar(&opts.Trap, "trap", false, "trap into an attached debugger at breakpoints")

	return cmd
}

func runSimulation(opts *RunOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := loadRunConfig(opts)
	if err != nil {
		var cfgErr *config.Error
		if errors.As(err, &cfgErr) {
			_ = formatter.Error(ErrCodeConfig, cfgErr.Error(), config.Errors(err))
			return WrapExitError(ExitFailure, "invalid config", err)
		}
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to register metrics", err)
	}
	if cfg.Metrics.Addr != "" {
		_, stop, err := serveMetrics(cfg.Metrics.Addr, reg)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start metrics server", err)
		}
		defer stop()
	}

	var rec *trace.Recorder
	if cfg.Trace.DB != "" {
		st, err := trace.Open(cfg.Trace.DB, opts.StoreOptions...)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open trace database", err)
		}
		defer func() {
			if err := st.Close(); err != nil {
				slog.Error("error closing trace database", "error", err)
			}
		}()
		sess, err := st.CreateSession(ctx, cfg.Trace.Session, cfg.Meta())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create trace session", err)
		}
		rec = trace.NewRecorder(st, sess.ID)
		slog.Info("recording trace", "db", cfg.Trace.DB, "session", sess.ID)
	}

	sim := newSimulation(cfg, m, rec, opts.Trap)
	stats, err := sim.run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("run interrupted", "frames", stats.Frames)
		} else {
			return WrapExitError(ExitFailure, "run failed", err)
		}
	}

	return formatter.Success(stats)
}

func loadRunConfig(opts *RunOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		var err error
		if cfg, err = config.Load(opts.Config); err != nil {
			return config.Config{}, err
		}
	}
	if opts.Database != "" {
		cfg.Trace.DB = opts.Database
	}
	if opts.MetricsAddr != "" {
		cfg.Metrics.Addr = opts.MetricsAddr
	}
	if opts.Frames > 0 {
		cfg.Frames = opts.Frames
	}
	return cfg, nil
}

// serveMetrics exposes reg on /metrics until the returned stop func runs.
// It returns the bound address.
func serveMetrics(addr string, reg *prometheus.Registry) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	bound := ln.Addr().String()
	slog.Info("serving metrics", "addr", bound)

	return bound, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
