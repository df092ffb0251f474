package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/pokemnky/catalog-sync/internal/api"
	v1 "github.com/pokemnky/catalog-sync/internal/api/v1"
	"github.com/pokemnky/catalog-sync/internal/app/storage"
	"github.com/pokemnky/catalog-sync/internal/assets"
	"github.com/pokemnky/catalog-sync/internal/config"
	"github.com/pokemnky/catalog-sync/internal/httpclient"
	pkgsync "github.com/pokemnky/catalog-sync/internal/sync"
	"github.com/pokemnky/catalog-sync/internal/sync/coordinator"
	"github.com/pokemnky/catalog-sync/internal/telemetry"
)

const (
	defaultHTTPAddress = ":8080"
	// Runs are triggered synchronously, so the request timeout must outlast the largest run budget
	defaultRequestTimeout = 2 * time.Minute
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 2*time.Minute + 15*time.Second
	defaultIdleTimeout    = 60 * time.Second
)

// CatalogAppOptions is a function that configures the catalog app builder
type CatalogAppOptions func(*catalogAppConfig) error

// catalogAppConfig supports dependency injection for testing while providing sensible
// defaults for production
type catalogAppConfig struct {
	componentOptions

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	// Telemetry components
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

func baseConfig(opts ...CatalogAppOptions) (*catalogAppConfig, error) {
	cfg := &catalogAppConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// NewCatalogApp builds the server: storage, sync components, the coordinator and the
// HTTP API
func NewCatalogApp(ctx context.Context, opts ...CatalogAppOptions) (*CatalogApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	components, err := buildComponents(ctx, &cfg.componentOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to build sync components: %w", err)
	}

	coordOpts := []coordinator.Option{}
	if components.CatalogMetrics != nil {
		coordOpts = append(coordOpts, coordinator.WithCatalogMetrics(components.CatalogMetrics, components.Tracker))
	}
	syncCoordinator := coordinator.New(components.Manager, components.Jobs, cfg.config, coordOpts...)

	httpServer, err := buildHTTPServer(cfg, components)
	if err != nil {
		components.Close()
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)

	return &CatalogApp{
		config:      cfg.config,
		components:  components,
		coordinator: syncCoordinator,
		httpServer:  httpServer,
		ctx:         appCtx,
		cancelFunc: func() {
			cancel()
			components.Close()
		},
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) CatalogAppOptions {
	return func(cfg *catalogAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) CatalogAppOptions {
	return func(cfg *catalogAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) CatalogAppOptions {
	return func(cfg *catalogAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithStorageFactory allows injecting a custom storage factory (for testing)
func WithStorageFactory(f storage.Factory) CatalogAppOptions {
	return func(cfg *catalogAppConfig) error {
		cfg.storageFactory = f
		return nil
	}
}

// WithSyncManager allows injecting a custom sync manager (for testing)
func WithSyncManager(sm pkgsync.Manager) CatalogAppOptions {
	return func(cfg *catalogAppConfig) error {
		cfg.syncManager = sm
		return nil
	}
}

// WithUpstreamClient replaces the client built from the upstream configuration
func WithUpstreamClient(c httpclient.Client) CatalogAppOptions {
	return func(cfg *catalogAppConfig) error {
		cfg.upstream = c
		return nil
	}
}

// WithObjectStore replaces the MinIO store built from the sprites configuration
func WithObjectStore(s assets.ObjectStore) CatalogAppOptions {
	return func(cfg *catalogAppConfig) error {
		cfg.objectStore = s
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for HTTP and sync metrics
func WithMeterProvider(mp metric.MeterProvider) CatalogAppOptions {
	return func(cfg *catalogAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider for HTTP and database spans
func WithTracerProvider(tp trace.TracerProvider) CatalogAppOptions {
	return func(cfg *catalogAppConfig) error {
		cfg.tracerProvider = tp
		if tp != nil {
			cfg.tracer = tp.Tracer("github.com/pokemnky/catalog-sync/db")
		}
		return nil
	}
}

// WithMetricsHandler serves h at /metrics
func WithMetricsHandler(h http.Handler) CatalogAppOptions {
	return func(cfg *catalogAppConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

// buildHTTPServer builds the HTTP server with router and middleware
func buildHTTPServer(b *catalogAppConfig, c *AppComponents) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	if b.tracerProvider != nil {
		b.middlewares = append([]func(http.Handler) http.Handler{telemetry.TracingMiddleware(b.tracerProvider)}, b.middlewares...)
	}

	// Metrics go first so rejected requests are counted too
	if b.meterProvider != nil {
		metricsMiddleware, err := telemetry.MetricsMiddleware(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		if metricsMiddleware != nil {
			b.middlewares = append([]func(http.Handler) http.Handler{metricsMiddleware}, b.middlewares...)
			slog.Info("HTTP metrics middleware enabled")
		}
	}

	router := api.NewServer(v1.Services{
		Manager:   c.Manager,
		Jobs:      c.Jobs,
		Progress:  c.Tracker,
		Resources: c.Cache,
	},
		api.WithMiddlewares(b.middlewares...),
		api.WithReadinessCheck(c.Storage.CheckReadiness),
		api.WithMetricsHandler(b.metricsHandler),
	)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
