package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type drainer interface {
	Close(ctx context.Context) error
}

// runServer serves until ctx is done or the listener fails, then shuts the
// server down and drains the sink. The listener error, if any, is returned
// only after both have finished.
func runServer(ctx context.Context, srv *http.Server, sink drainer, grace time.Duration, logger *zap.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var err error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-serverErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("failed to shut down http server", zap.Error(shutdownErr))
	}
	if drainErr := sink.Close(shutdownCtx); drainErr != nil {
		logger.Warn("log sink did not drain", zap.Error(drainErr))
	}
	return err
}
