package server

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"CropVol/pkg/config"
	xhttp "CropVol/pkg/http"
	applogger "CropVol/pkg/logger"
)

// App encapsulates the HTTP service lifecycle. Resources behind the handler
// are released by the cleanup function returned alongside the App.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
}

// New creates a new App serving handler with the configured server options.
func New(cfg *config.Config, log *applogger.Logger, handler xhttp.Handler) *App {
	srv := xhttp.NewServer(handler, log,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(true, cfg.Server.AllowOrigins...),
		xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Server.SlowThreshold),
	)
	return &App{cfg: cfg, log: log, httpServer: srv}
}

// Run starts the HTTP server and blocks until ctx is done, SIGINT/SIGTERM
// arrives or the listener fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.log.Info("starting cropvol",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Int("datasets", len(a.cfg.Datasets)),
	)
	errCh, err := a.httpServer.Start()
	if err != nil {
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err, ok := <-errCh:
		if ok && err != nil {
			a.log.Error("http server error", applogger.Error(err))
			runErr = err
		}
	}

	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		runErr = errors.Join(runErr, err)
	}
	a.log.Info("shutdown complete")
	return runErr
}
