package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/ledgerflow/internal/config"
	"github.com/roach88/ledgerflow/internal/engine"
	"github.com/roach88/ledgerflow/internal/ledger"
	"github.com/roach88/ledgerflow/internal/metrics"
	"github.com/roach88/ledgerflow/internal/store"
)

// app is the wired workflow for one command invocation.
type app struct {
	engine   *engine.Engine
	closer   io.Closer
	registry *prometheus.Registry
}

func (a *app) Close() error {
	return a.closer.Close()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// loadConfig reads the config file (if any) and applies flag overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if opts.Driver != "" {
		cfg.Ledger.Driver = opts.Driver
	}
	if opts.LedgerPath != "" {
		cfg.Ledger.Path = opts.LedgerPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configureLogging installs the default slog handler. --verbose forces
// debug level regardless of the configured level.
func configureLogging(opts *RootOptions, cfg *config.Config, w io.Writer) error {
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
	return nil
}

// openApp wires config, ledger, store and engine.
func openApp(ctx context.Context, opts *RootOptions, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if err := configureLogging(opts, cfg, logOut); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to configure logging", err)
	}

	var (
		client ledger.Client
		closer io.Closer
	)
	if opts.Ledger != nil {
		client, closer = opts.Ledger, nopCloser{}
	} else {
		slog.Debug("opening ledger", "driver", cfg.Ledger.Driver, "path", cfg.Ledger.Path)
		client, closer, err = ledger.Open(ctx, cfg.LedgerOptions())
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open ledger", err)
		}
	}

	backend := opts.Backend
	if backend == nil {
		backend, err = cfg.Backend()
		if err != nil {
			closer.Close()
			return nil, WrapExitError(ExitCommandError, "failed to configure compute backend", err)
		}
	}

	reg := prometheus.NewRegistry()
	m := metrics.New()
	if err := m.Register(reg); err != nil {
		closer.Close()
		return nil, WrapExitError(ExitCommandError, "failed to register metrics", err)
	}

	storeOpts := append(cfg.StoreOptions(), store.WithMetrics(m))
	if opts.IDs != nil {
		storeOpts = append(storeOpts, store.WithIDGenerator(opts.IDs))
	}
	if opts.Clock != nil {
		storeOpts = append(storeOpts, store.WithClock(opts.Clock))
	}

	st := store.New(client, storeOpts...)
	return &app{
		engine:   engine.New(st, backend, engine.WithMetrics(m)),
		closer:   closer,
		registry: reg,
	}, nil
}

// withApp opens the app, runs fn and closes the app.
func withApp(ctx context.Context, opts *RootOptions, logOut io.Writer, fn func(*app) error) error {
	a, err := openApp(ctx, opts, logOut)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			slog.Warn("failed to close ledger", "error", cerr)
		}
	}()

	err = fn(a)
	if opts.Verbose {
		logMetrics(a.registry)
	}
	return err
}

// logMetrics writes every collected sample as a debug line.
func logMetrics(g prometheus.Gatherer) {
	families, err := g.Gather()
	if err != nil {
		slog.Debug("failed to gather metrics", "error", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			attrs := []any{"metric", mf.GetName()}
			for _, lp := range m.GetLabel() {
				attrs = append(attrs, lp.GetName(), lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				attrs = append(attrs, "value", m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				attrs = append(attrs,
					"count", m.GetHistogram().GetSampleCount(),
					"sum", m.GetHistogram().GetSampleSum(),
				)
			}
			slog.Debug("metric", attrs...)
		}
	}
}

func newFormatter(opts *RootOptions, out, errOut io.Writer) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    out,
		ErrWriter: errOut, // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// fail reports err through the formatter and returns the matching ExitError.
func fail(f *OutputFormatter, message string, err error) error {
	code := errorCode(err)
	if ferr := f.Error(code, fmt.Sprintf("%s: %v", message, err), nil); ferr != nil {
		return ferr
	}
	return WrapExitError(ExitFailure, message, err)
}
