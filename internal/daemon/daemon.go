package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"pillcheck/internal/composition"
	"pillcheck/internal/config"
	"pillcheck/internal/ledger"
	"pillcheck/internal/logging"
	"pillcheck/internal/references"
	"pillcheck/internal/services/embedding"
	"pillcheck/internal/services/vlm"
	"pillcheck/internal/verify"
)

// Daemon owns the engine, the attempt store, and the API server.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *ledger.Store
	engine *verify.Engine
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *ledger.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}

	engine, err := BuildEngine(cfg, store, logger)
	if err != nil {
		return nil, err
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "pillcheckd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		engine:   engine,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, engine, logger)
	return d, nil
}

// BuildEngine wires a verification engine from configuration. Backends
// without credentials are left out; the engine degrades accordingly.
func BuildEngine(cfg *config.Config, store *ledger.Store, logger *slog.Logger) (*verify.Engine, error) {
	hints, err := composition.LoadHints(cfg.Composition.HintsPath, cfg.Composition.Hints)
	if err != nil {
		return nil, fmt.Errorf("load composition hints: %w", err)
	}

	params := verify.Params{
		Thresholds: verify.Thresholds{
			ApprovalScore:     cfg.Scoring.ApprovalScoreThreshold,
			TextScoreMin:      cfg.Scoring.TextScoreMinThreshold,
			CompositionWeight: cfg.Scoring.CompositionWeight,
			MaxAttempts:       cfg.Scoring.MaxAttempts,
		},
		Fetcher: references.NewDownloader(cfg.References.TimeoutSeconds),
		Ledger:  store,
		Hints:   hints,
		Logger:  logger,
	}
	if cfg.ReferencesEnabled() {
		params.References = references.NewClient(references.Config{
			BaseURL:             cfg.References.BaseURL,
			ServiceKey:          cfg.References.ServiceKey,
			Bucket:              cfg.References.Bucket,
			MaxImages:           cfg.References.MaxImages,
			SignedURLTTLSeconds: cfg.References.SignedURLTTLSeconds,
			TimeoutSeconds:      cfg.References.TimeoutSeconds,
		}, references.WithLogger(logger))
	}
	if cfg.EmbeddingEnabled() {
		params.Embedding = embedding.NewClient(embedding.Config{
			BaseURL:        cfg.Embedding.BaseURL,
			APIKey:         cfg.Embedding.APIKey,
			TimeoutSeconds: cfg.Embedding.TimeoutSeconds,
		})
	}
	if cfg.VLMEnabled() {
		params.Judge = vlm.NewClient(vlm.Config{
			BaseURL:        cfg.VLM.BaseURL,
			APIKey:         cfg.VLM.APIKey,
			TimeoutSeconds: cfg.VLM.TimeoutSeconds,
		})
	}
	return verify.NewEngine(params), nil
}

// Start acquires the run lock and brings up the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another pillcheck daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("pillcheck daemon started",
		logging.String("lock", d.lockPath),
		logging.String("bind", d.cfg.Paths.APIBind))
	return nil
}

// Stop shuts down the API server and releases the run lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("pillcheck daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon has been started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}
