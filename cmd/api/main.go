package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/storefront-assistant/internal/adapters/http"
	"github.com/kirillkom/storefront-assistant/internal/bootstrap"
	"github.com/kirillkom/storefront-assistant/internal/config"
	"github.com/kirillkom/storefront-assistant/internal/observability/logging"
	"github.com/kirillkom/storefront-assistant/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app, err := bootstrap.NewAPI(ctx, cfg, httpMetrics, httpMetrics.SetBreakerState)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(app.Assistant, app.Assistant, httpadapter.Options{
		RateLimitRPS:     cfg.APIRateLimitRPS,
		RateLimitBurst:   cfg.APIRateLimitBurst,
		MaxInFlight:      cfg.APIMaxInFlight,
		BackpressureWait: cfg.APIBackpressureWait,
		HealthChecks:     healthChecks(app),
		Breakers:         app.Executor,
		Metrics:          httpMetrics,
	}).Handler()

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.LLMTimeout*4 + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}

func healthChecks(app *bootstrap.App) []httpadapter.HealthCheck {
	checks := []httpadapter.HealthCheck{
		{Name: "qdrant", Check: app.Qdrant.Ping},
	}
	if app.Redis != nil {
		checks = append(checks, httpadapter.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return app.Redis.Ping(ctx).Err() },
		})
	}
	if app.Queue != nil {
		checks = append(checks, httpadapter.HealthCheck{
			Name: "nats",
			Check: func(context.Context) error {
				if !app.Queue.Connected() {
					return errors.New("not connected")
				}
				return nil
			},
		})
	}
	return checks
}
