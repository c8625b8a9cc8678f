package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/tendant/chi-demo/app"

	"github.com/tendant/summary-publish/pkg/publish/api"
	"github.com/tendant/summary-publish/pkg/publish/config"
	"github.com/tendant/summary-publish/pkg/publish/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if cfg.Publish.APIKey == "" {
		logger.Warn("PUBLISH_API_KEY is not set, every publish request will be rejected")
	}

	// Initialize storage backend
	ctx := context.Background()
	store, err := cfg.BuildStore(ctx)
	if err != nil {
		logger.Error("Failed to initialize storage backend", "err", err, "storage_type", cfg.Storage.Type)
		os.Exit(1)
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	notifier, err := cfg.BuildNotifier(logger)
	if err != nil {
		logger.Error("Failed to initialize notifier", "err", err)
		os.Exit(1)
	}

	publisher, err := cfg.BuildPublisher(store, logger)
	if err != nil {
		logger.Error("Failed to initialize publisher", "err", err)
		os.Exit(1)
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	publishHandler := api.NewPublishHandler(publisher, notifier, api.HandlerOptions{
		APIKey:       cfg.Publish.APIKey,
		MaxBodyBytes: cfg.Publish.MaxBodyBytes,
		Metrics:      m,
		Logger:       logger,
	})
	_, run := newServer(cfg.Publish.Path, publishHandler, m)

	logger.Info("Starting publish server",
		"storage_type", cfg.Storage.Type,
		"publish_path", cfg.Publish.Path,
		"cdn_base_url", cfg.Publish.CDNBaseURL,
		"conditional_write", cfg.Storage.ConditionalWrite,
	)

	// Start server
	run()
}

// newServer assembles the root router. The chi-demo CORS layer is left out:
// the publish routes answer preflight themselves, and its metrics listener is
// off because /metrics serves the service registry.
func newServer(publishPath string, publishHandler *api.PublishHandler, m *metrics.Metrics) (http.Handler, func()) {
	server := app.NewApp(
		app.WithAppConfig(app.DefaultAppConfig()),
		app.WithReqLogger(app.DefaultHttpLogger()),
		app.WithMetrics(false),
	)

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	server.R.Mount(publishPath, publishHandler.Routes())

	if m != nil {
		server.R.Handle("/metrics", m.Handler())
	}

	return server.R, func() { server.Run() }
}
