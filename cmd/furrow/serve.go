package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/furrow"
	httpAdapter "github.com/aretw0/furrow/pkg/adapters/http"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the supervisor behind a JSON API:

  POST   /chat
  GET    /health
  GET    /workers
  GET    /conversations               (?user_id=&limit=&offset=)
  GET    /conversations/{id}
  DELETE /conversations/{id}
  GET    /conversations/{id}/events   (server-sent lifecycle events)
  GET    /metrics                     (Prometheus)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		var hooks []domain.LifecycleHooks
		var handlerOpts []httpAdapter.Option

		if cfg.Server.Metrics {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics, err := observability.NewMetrics(reg)
			if err != nil {
				return err
			}
			hooks = append(hooks, metrics.Hooks())
			handlerOpts = append(handlerOpts, httpAdapter.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
		}

		var streams *httpAdapter.StreamManager
		if cfg.Server.Events {
			streams = httpAdapter.NewStreamManager(nil)
			hooks = append(hooks, streams.Hooks())
			handlerOpts = append(handlerOpts, httpAdapter.WithStreams(streams))
		}

		a, err := buildApp(cfg, logger, furrow.WithLifecycleHooks(observability.Combine(hooks...)))
		if err != nil {
			return err
		}
		defer a.Close()
		handlerOpts = append(handlerOpts, httpAdapter.WithLogger(a.logger))

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           httpAdapter.NewHandler(a.supervisor, handlerOpts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return a.supervisor.Run(ctx)
		})
		g.Go(func() error {
			a.logger.Info("furrow server listening", "addr", srv.Addr, "workers", len(a.supervisor.Workers()))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("graceful shutdown did not complete in %v: %w", shutdownTimeout, err)
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}
		a.logger.Info("furrow server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (default from config, :8080)")
}
