package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/strrl/health-sessions/internal/config"
	"github.com/strrl/health-sessions/internal/healthdata"
	"github.com/strrl/health-sessions/internal/notify"
	"github.com/strrl/health-sessions/internal/sessions"
	"github.com/strrl/health-sessions/internal/telemetry"
	"github.com/strrl/health-sessions/pkg/models"
)

// app wires configuration, the data store and the controller for one run
type app struct {
	cfg        *config.Config
	store      healthdata.Service
	guard      *healthdata.GuardedService
	controller *sessions.Controller
	tokens     notify.TokenStore
	metrics    *telemetry.Metrics

	closers    []io.Closer
	metricsSrv *http.Server
}

func newApp(cmd *cobra.Command, console io.Writer) (*app, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logCloser, err := telemetry.InitLogger(cfg.Debug, cfg.LogFile, console)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	store, storeCloser, err := healthdata.Open(cfg.Store, cfg.DSN)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}

	granted := healthdata.AllPermissions
	if cfg.ReadOnly {
		granted = healthdata.PermissionRead
	}
	guard := healthdata.NewGuardedService(store, granted)

	a := &app{
		cfg:     cfg,
		store:   store,
		guard:   guard,
		metrics: telemetry.NewMetrics(),
		closers: []io.Closer{storeCloser, logCloser},
	}

	if cfg.Checkpoint != "" {
		a.tokens = notify.NewFileTokenStore(cfg.Checkpoint)
	} else {
		a.tokens = notify.NewMemoryTokenStore()
	}

	if cfg.MetricsAddr != "" {
		a.metricsSrv = a.metrics.StartMetricsServer(cfg.MetricsAddr)
	}

	a.controller = sessions.NewController(guard,
		sessions.WithTimeout(cfg.ServiceTimeout),
		sessions.WithQueueSize(cfg.QueueSize),
		sessions.WithSample(cfg.Sample.Name, cfg.Sample.Duration),
		sessions.WithMetrics(a.metrics),
		sessions.WithLogger(slog.Default()),
	)
	a.controller.Start()

	slog.Debug("health sessions started",
		"store", cfg.Store,
		"dsn", cfg.DSN,
		"read_only", cfg.ReadOnly)
	return a, nil
}

// Close tears down the controller before the store it uses
func (a *app) Close() {
	a.controller.Close()

	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.metricsSrv.Shutdown(ctx)
		cancel()
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
}

// cliNotifier prints each new failure to w, logs it, and re-requests
// permissions when they were the cause
func (a *app) cliNotifier(w io.Writer) notify.Notifier {
	printer := notify.NotifierFunc(func(_ context.Context, err error) {
		fmt.Fprintf(w, "Error: %v\n", err)
		if healthdata.KindOf(err) == healthdata.KindPermission {
			fmt.Fprintln(w, "Permissions have been requested again; retry the command.")
		}
	})
	return notify.RecoveryNotifier{
		Requester: a.guard,
		Next:      notify.Multi(notify.LogNotifier{Metrics: a.metrics}, printer),
	}
}

// runSteps issues each step, waits for it, and notifies any new failure.
// It returns the final state and the first failure.
func (a *app) runSteps(ctx context.Context, steps ...func() error) (models.ListState, error) {
	ack, err := notify.NewAcknowledger(a.tokens, a.cliNotifier(os.Stderr))
	if err != nil {
		return models.ListState{}, err
	}

	var firstErr error
	for _, step := range steps {
		if err := step(); err != nil {
			return a.controller.State(), err
		}
		if err := a.controller.Flush(ctx); err != nil {
			return a.controller.State(), err
		}

		outcome := a.controller.State().Outcome
		if _, err := ack.Observe(ctx, outcome); err != nil {
			slog.Warn("failed to persist acknowledged failure", "error", err)
		}
		if outcome.IsFailure() && firstErr == nil {
			firstErr = outcome.Err
		}
	}
	return a.controller.State(), firstErr
}
