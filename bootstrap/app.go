package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"launchseq/config"
	"launchseq/extensions"
	"launchseq/host"
	"launchseq/journal"
	"launchseq/mapping"
	"launchseq/metrics"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// App represents the launch-time wiring of the application.
type App struct {
	// Configuration
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	// Collaborators
	Credentials config.CredentialSource
	Mapping     *mapping.Services
	Host        *host.Application
	Extensions  *extensions.Registry
	Journal     journal.Journal

	Sequencer *Sequencer

	recordOnce sync.Once
}

// NewApp loads configuration from configPath (or the default search path)
// and wires every component.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	logger, sugar, err := InitLogger("info")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := InitConfig(configPath, sugar)
	if err != nil {
		return nil, err
	}

	if cfg.LogLevel != "info" {
		if logger, _, err = InitLogger(cfg.LogLevel); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	return NewAppWithConfig(ctx, cfg, logger)
}

// NewAppWithConfig wires the application from an already loaded config.
func NewAppWithConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sugar := logger.Sugar()

	app := &App{
		Config: cfg,
		Logger: logger,
		Sugar:  sugar,
	}

	creds, err := config.NewCredentialSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential source: %w", err)
	}
	app.Credentials = creds

	svc, err := mapping.NewServices(cfg.Mapping.KeyPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mapping service: %w", err)
	}
	app.Mapping = svc

	statusAddr := ""
	if cfg.Status.Enabled {
		statusAddr = cfg.Status.Addr
	}
	app.Host = host.NewApplication(cfg.App.Name, statusAddr, sugar)
	if rps := cfg.Status.RateLimit.RequestsPerSecond; rps > 0 {
		app.Host.Use(host.RateLimit(rps, cfg.Status.RateLimit.Burst))
	}

	app.Extensions = extensions.NewRegistry(sugar, cfg.Extensions.Disabled)
	if err := extensions.RegisterBuiltins(app.Extensions, extensions.Deps{Mapping: svc, Logger: sugar}); err != nil {
		return nil, fmt.Errorf("failed to register built-in extensions: %w", err)
	}

	var schema *host.OptionsSchema
	if cfg.Launch.OptionsSchema != "" {
		if schema, err = host.LoadOptionsSchema(cfg.Launch.OptionsSchema); err != nil {
			return nil, err
		}
	}

	j, err := journal.New(ctx, JournalOptions(cfg), sugar)
	if err != nil {
		if !cfg.IsGracefulMode() {
			return nil, fmt.Errorf("failed to open launch journal: %w", err)
		}
		sugar.Warnw("Launch journal unavailable, continuing without it", "error", err)
		j = journal.Nop{}
	}
	app.Journal = j

	steps, err := LaunchSteps(Collaborators{
		Credentials:       creds,
		Mapping:           mapping.NewProvider(svc),
		Extensions:        app.Extensions,
		App:               app.Host,
		Base:              app.Host,
		MappingBestEffort: cfg.IsGracefulMode(),
	})
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithLogger(sugar),
		WithTracer(otel.Tracer("launchseq/bootstrap")),
		WithStepTimeout(cfg.StepTimeout),
	}
	if schema != nil {
		opts = append(opts, WithContextCheck(schema.Validate))
	}

	app.Sequencer, err = NewSequencer(steps, opts...)
	if err != nil {
		return nil, err
	}

	return app, nil
}

// JournalOptions maps the journal section of cfg onto journal.Options.
func JournalOptions(cfg *config.Config) journal.Options {
	return journal.Options{
		Backend:    cfg.Journal.Backend,
		SQLitePath: cfg.Journal.SQLitePath,
		Redis: journal.RedisOptions{
			Addr:       cfg.Journal.Redis.Addr,
			Password:   cfg.Journal.Redis.Password,
			DB:         cfg.Journal.Redis.DB,
			Key:        cfg.Journal.Redis.Key,
			MaxEntries: cfg.Journal.Redis.MaxEntries,
		},
	}
}

// Launch runs the bootstrap sequence and records its outcome in the journal.
func (a *App) Launch(ctx context.Context, lc *host.LaunchContext) Result {
	result := a.Sequencer.Run(ctx, lc)

	// Rejected contexts are separate attempts; the real run is recorded once.
	if errors.Is(result.Err, ErrInvalidContext) {
		a.record(ctx, lc, result)
		return result
	}
	a.recordOnce.Do(func() { a.record(ctx, lc, result) })

	return result
}

func (a *App) record(ctx context.Context, lc *host.LaunchContext, result Result) {
	entry := EntryFromResult(lc, result)
	if err := a.Journal.Record(ctx, entry); err != nil {
		metrics.JournalWriteFailures.Inc()
		a.Sugar.Warnw("Failed to record launch", "launch_id", entry.LaunchID, "error", err)
	}
}

// EntryFromResult converts a bootstrap result into a journal entry.
func EntryFromResult(lc *host.LaunchContext, result Result) journal.Entry {
	entry := journal.Entry{
		Status:     string(result.Status),
		Duration:   result.Duration,
		FailedStep: result.FailedStep(),
	}
	if lc != nil {
		entry.LaunchID = lc.LaunchID
		entry.StartedAt = lc.StartedAt
	}
	if result.Err != nil {
		entry.Error = result.Err.Error()
	}
	for _, nf := range result.NonFatal {
		entry.NonFatal = append(entry.NonFatal, nf.Step)
	}
	return entry
}

// WaitForShutdown blocks until a shutdown signal is received or ctx ends.
func (a *App) WaitForShutdown(ctx context.Context) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case <-c:
	case <-ctx.Done():
	}
}

// Shutdown stops the status listener and closes the journal.
func (a *App) Shutdown(ctx context.Context) {
	a.Sugar.Info("Shutting down...")

	if a.Host != nil {
		if err := a.Host.Shutdown(ctx); err != nil {
			a.Sugar.Errorw("Failed to stop status listener", "error", err)
		}
	}
	if a.Journal != nil {
		if err := a.Journal.Close(); err != nil {
			a.Sugar.Errorw("Failed to close launch journal", "error", err)
		}
	}

	a.Sugar.Info("Shutdown complete")
	_ = a.Logger.Sync()
}
