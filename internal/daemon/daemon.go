// Package daemon runs the sitelog background process: it owns the store, the
// capture manager, and the HTTP API, and guarantees a single instance per
// data directory via a file lock.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"sitelog/internal/api"
	"sitelog/internal/capture"
	"sitelog/internal/config"
	"sitelog/internal/destinations/drive"
	"sitelog/internal/destinations/notion"
	"sitelog/internal/logging"
	"sitelog/internal/notifications"
	"sitelog/internal/services/llm"
	"sitelog/internal/store"
	"sitelog/internal/structuring"
	logsync "sitelog/internal/sync"
	"sitelog/internal/transcription"
)

// ErrAlreadyRunning indicates another daemon holds the instance lock.
var ErrAlreadyRunning = errors.New("sitelogd is already running")

// Daemon wires the subsystems together and serves the API.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	lock    *flock.Flock
	store   *store.Store
	manager *capture.Manager
	server  *http.Server

	destinations []logsync.Destination
	sweepCancel  context.CancelFunc
}

// New builds a daemon from configuration. Nothing is started yet.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	notifier := notifications.NewService(cfg)

	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	engine := structuring.NewEngine(llmClient, structuring.Strictness(cfg.Structuring.ScopeStrictness))
	transcriber := transcription.NewService(cfg.Transcriber)

	dests := []logsync.Destination{
		notion.New(cfg.Notion),
		drive.New(cfg.Drive),
	}
	orchestrator := logsync.NewOrchestrator(dests, st, notifier, logger)

	manager := capture.NewManager(st, transcriber, engine, orchestrator, notifier, logger, cfg.SessionTTL())

	d := &Daemon{
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "daemon"),
		lock:         flock.New(filepath.Join(cfg.Paths.DataDir, "sitelogd.lock")),
		store:        st,
		manager:      manager,
		destinations: dests,
	}

	apiServer := api.NewServer(st, manager, notifier, dests, logger, cfg.Paths.APIToken)
	d.server = &http.Server{
		Addr:              cfg.Paths.APIBind,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return d, nil
}

// Start acquires the instance lock and begins serving. It returns once the
// listener is up; Serve errors after that are reported through errCh.
func (d *Daemon) Start(ctx context.Context) (<-chan error, error) {
	locked, err := d.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}

	listener, err := net.Listen("tcp", d.server.Addr)
	if err != nil {
		_ = d.lock.Unlock()
		return nil, fmt.Errorf("listen on %s: %w", d.server.Addr, err)
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	d.sweepCancel = cancel
	go d.manager.RunSweeper(sweepCtx, d.cfg.SessionSweepInterval())

	errCh := make(chan error, 1)
	go func() {
		d.logger.Info("api listening", logging.String("addr", listener.Addr().String()))
		if serveErr := d.server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
		close(errCh)
	}()
	return errCh, nil
}

// Stop shuts the daemon down in dependency order: HTTP first, then the
// sweeper, then the store, releasing the lock last.
func (d *Daemon) Stop(ctx context.Context) error {
	var firstErr error

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		firstErr = err
	}

	if d.sweepCancel != nil {
		d.sweepCancel()
	}

	if err := d.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := d.lock.Unlock(); err != nil && firstErr == nil {
		firstErr = err
	}

	d.logger.Info("daemon stopped")
	return firstErr
}

// Addr returns the configured API bind address.
func (d *Daemon) Addr() string { return d.server.Addr }
