package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"carbonatlas/internal/adapters/httpapi"
	"carbonatlas/internal/config"
	"carbonatlas/internal/logging"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the datasets once and serve them over HTTP",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), *cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.HTTP.Addr, "http", cfg.HTTP.Addr, "address on which to listen for HTTP traffic")
	cmd.Flags().BoolVar(&cfg.Metrics.Enabled, "metrics", cfg.Metrics.Enabled, "expose Prometheus metrics on /metrics")
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := logging.FromContext(ctx)
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close components", zap.Error(err))
		}
	}()

	// A failed start-up load still serves whatever did load.
	if _, err := a.store.LoadData(ctx); err != nil {
		logger.Warn("initial load incomplete", zap.Error(err))
	}

	opts := []httpapi.Option{httpapi.WithLogger(logger)}
	if a.recorder != nil {
		opts = append(opts, httpapi.WithHistory(a.recorder))
	}
	if a.registry != nil {
		opts = append(opts, httpapi.WithGatherer(a.registry))
	}
	handler := httpapi.NewHandler(a.store, opts...)

	ln, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return err
	}
	return serveListener(ctx, ln, http.MaxBytesHandler(handler, maxBodyBytes))
}

// serveListener serves handler on ln until ctx is done, then shuts down gracefully.
func serveListener(ctx context.Context, ln net.Listener, handler http.Handler) error {
	logger := logging.FromContext(ctx)
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("protocol", "http"),
			zap.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("stopping gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
