package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/locvowork/employee_records/apigateway/internal/bootstrap"
	"github.com/locvowork/employee_records/apigateway/internal/config"
	"github.com/locvowork/employee_records/apigateway/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := bootstrap.NewApp()
	if err := app.Initialize(ctx); err != nil {
		logger.ErrorLog(ctx, "Failed to initialize application: %v", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.ErrorLog(ctx, "Server stopped: %v", err)
		}
	case <-ctx.Done():
		logger.InfoLog(context.Background(), "Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.DefaultEnvConfig.SHUTDOWN_TIMEOUT)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.ErrorLog(shutdownCtx, "Shutdown failed: %v", err)
		os.Exit(1)
	}
}
