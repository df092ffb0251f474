// Package telemetry wires OpenTelemetry tracing and metrics for catalog-sync.
// Both signals are exported over OTLP/HTTP; metrics can additionally be
// scraped in Prometheus text format.
package telemetry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pokemnky/catalog-sync/internal/versions"
)

const (
	// DefaultServiceName is the service.name resource attribute used when none is configured
	DefaultServiceName = "catalog-sync"

	// DefaultEndpoint is the OTLP/HTTP collector address
	DefaultEndpoint = "localhost:4318"

	// DefaultSampling is the trace sampling ratio used when tracing is enabled without one
	DefaultSampling = 0.05

	// DefaultExportInterval is how often metrics are pushed to the collector
	DefaultExportInterval = 60 * time.Second
)

// Config is the telemetry section of the catalog-sync configuration file
type Config struct {
	// Enabled turns on telemetry. When false, no-op providers are used and
	// the remaining fields are ignored.
	Enabled bool `yaml:"enabled"`

	// ServiceName defaults to "catalog-sync"
	ServiceName string `yaml:"serviceName,omitempty"`

	// ServiceVersion defaults to the build version
	ServiceVersion string `yaml:"serviceVersion,omitempty"`

	// Endpoint is the collector "host:port"; the /v1/traces and /v1/metrics paths are implied
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure sends telemetry over plain HTTP
	Insecure bool `yaml:"insecure,omitempty"`

	Tracing *TracingConfig `yaml:"tracing,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig controls span export
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sampling is the ratio of traces kept, between 0 and 1. Unset means DefaultSampling;
	// an explicit 0 keeps no traces.
	Sampling *float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig controls metric export
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Prometheus additionally exposes metrics in Prometheus text format on /metrics
	Prometheus bool `yaml:"prometheus,omitempty"`

	// ExportInterval is the OTLP push period as a Go duration. Defaults to 60s.
	ExportInterval string `yaml:"exportInterval,omitempty"`
}

// GetServiceName returns the configured service name or DefaultServiceName
func (c *Config) GetServiceName() string {
	if c == nil || strings.TrimSpace(c.ServiceName) == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetServiceVersion returns the configured service version or the build version
func (c *Config) GetServiceVersion() string {
	if c == nil || c.ServiceVersion == "" {
		return versions.Version
	}
	return c.ServiceVersion
}

// GetEndpoint returns the configured collector endpoint or DefaultEndpoint
func (c *Config) GetEndpoint() string {
	if c == nil || c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

// TracingEnabled reports whether spans should be exported
func (c *Config) TracingEnabled() bool {
	return c != nil && c.Enabled && c.Tracing != nil && c.Tracing.Enabled
}

// MetricsEnabled reports whether metrics should be collected
func (c *Config) MetricsEnabled() bool {
	return c != nil && c.Enabled && c.Metrics != nil && c.Metrics.Enabled
}

// PrometheusEnabled reports whether a /metrics scrape endpoint should be served
func (c *Config) PrometheusEnabled() bool {
	return c.MetricsEnabled() && c.Metrics.Prometheus
}

// GetSampling returns the sampling ratio, DefaultSampling when unset
func (c *TracingConfig) GetSampling() float64 {
	if c == nil || c.Sampling == nil {
		return DefaultSampling
	}
	return *c.Sampling
}

// GetExportInterval returns the OTLP push period, DefaultExportInterval when unset or invalid
func (c *MetricsConfig) GetExportInterval() time.Duration {
	if c == nil || c.ExportInterval == "" {
		return DefaultExportInterval
	}
	d, err := time.ParseDuration(c.ExportInterval)
	if err != nil || d <= 0 {
		return DefaultExportInterval
	}
	return d
}

// Validate checks the enabled parts of the configuration. A nil or disabled
// configuration is always valid.
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error
	if strings.Contains(c.Endpoint, "://") {
		errs = append(errs, fmt.Errorf("endpoint must be host:port without a scheme, got %q", c.Endpoint))
	}
	if err := c.Tracing.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}
	if err := c.Metrics.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("metrics: %w", err))
	}
	return errors.Join(errs...)
}

// Validate checks the sampling ratio of an enabled tracing section
func (c *TracingConfig) Validate() error {
	if c == nil || !c.Enabled || c.Sampling == nil {
		return nil
	}
	if s := *c.Sampling; s < 0 || s > 1 {
		return fmt.Errorf("sampling must be between 0.0 and 1.0, got %g", s)
	}
	return nil
}

// Validate checks the export interval of an enabled metrics section
func (c *MetricsConfig) Validate() error {
	if c == nil || !c.Enabled || c.ExportInterval == "" {
		return nil
	}
	d, err := time.ParseDuration(c.ExportInterval)
	if err != nil {
		return fmt.Errorf("exportInterval must be a valid duration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("exportInterval must be positive, got %s", d)
	}
	return nil
}
