package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// baseContext is cancelled when the server begins shutting down
func (app *application) baseContext() context.Context {
	if app.ctx == nil {
		return context.Background()
	}

	return app.ctx
}

// serve starts the http server and handles graceful shutdown
func (app *application) serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	app.ctx = ctx

	app.Server = &http.Server{
		Addr:        app.Config.Addr(),
		Handler:     app.routes(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		// no WriteTimeout: websocket writes set their own deadlines
	}

	hubDone := make(chan struct{})
	go func() {
		app.Hub.Run(ctx)
		close(hubDone)
	}()
	go app.runJanitor(ctx)

	shutdownError := make(chan error, 1)

	go func() {
		// Wait for shutdown signal
		<-ctx.Done()
		app.Logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		err := app.Server.Shutdown(shutdownCtx)
		if err != nil {
			app.Logger.Error("Server forced to shutdown", zap.Error(err))
		}

		<-hubDone

		// Shut down components
		app.Shutdown()
		shutdownError <- err
	}()

	app.Logger.Info("Starting server", zap.String("address", app.Server.Addr))

	if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdownError; err != nil {
		return err
	}

	app.Logger.Info("Server stopped gracefully")
	return nil
}

// runJanitor drops ended matches once their retention has passed
func (app *application) runJanitor(ctx context.Context) {
	ticker := time.NewTicker(app.Config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.Registry.Sweep(app.Config.MatchRetention)
		}
	}
}
