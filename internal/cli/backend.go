package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/docrow/internal/config"
	"github.com/roach88/docrow/internal/instrument"
	"github.com/roach88/docrow/internal/memstore"
	"github.com/roach88/docrow/internal/pgstore"
	"github.com/roach88/docrow/internal/record"
	"github.com/roach88/docrow/internal/store"
)

// tracerName names the spans the CLI emits.
const tracerName = "github.com/roach88/docrow/cli"

// newLogger builds the slog logger described by cfg, writing to w.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level, err := cfg.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// openExecutor opens the configured store and wraps it with tracing and
// statement logging. The returned close function must be called.
func openExecutor(ctx context.Context, cfg *config.Config, logger *slog.Logger) (record.Executor, func(), error) {
	var (
		exec    record.Executor
		closeFn func()
	)

	switch cfg.Backend {
	case config.BackendMemory:
		exec, closeFn = memstore.New(), func() {}

	case config.BackendSQLite:
		logger.Debug("opening database", "path", cfg.Database, "driver", cfg.Driver)
		st, err := store.Open(cfg.Database, store.WithDriver(cfg.Driver))
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		exec = st
		closeFn = func() {
			if err := st.Close(); err != nil {
				logger.Error("error closing database", "error", err)
			}
		}

	case config.BackendPostgres:
		logger.Debug("connecting to postgres")
		st, err := pgstore.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		exec, closeFn = st, st.Close

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	exec = instrument.Logged(instrument.Traced(exec, tracerName), logger)
	return exec, closeFn, nil
}
