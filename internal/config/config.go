// Package config provides configuration loading and management for the catalog sync service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/telemetry"
)

const (
	// StorageTypeDatabase keeps cache, queue and job ledger in PostgreSQL
	StorageTypeDatabase = "database"

	// StorageTypeMemory keeps everything in process memory. Useful for local runs and tests.
	StorageTypeMemory = "memory"
)

// Sync modes accepted by schedules and the trigger interface
const (
	ModeSeed         = "seed"
	ModeWorker       = "worker"
	ModeDetect       = "incremental-detect"
	ModeSpriteMirror = "sprite-mirror"
)

// EnvPrefix is the prefix of environment variables read through viper
const EnvPrefix = "CATALOG_SYNC"

// PasswordEnvVar is the environment variable consulted for the database password
const PasswordEnvVar = "CATALOG_SYNC_DATABASE_PASSWORD"

// Defaults applied when a setting is omitted
const (
	DefaultBaseURL           = "https://pokeapi.co/api/v2"
	DefaultUserAgent         = "catalog-sync"
	DefaultUpstreamTimeout   = 30 * time.Second
	DefaultMaxRetries        = 3
	DefaultRetryBaseDelay    = time.Second
	DefaultBreakerFailures   = 5
	DefaultBreakerOpenFor    = 30 * time.Second
	DefaultPageSize          = 200
	DefaultMaxPages          = 500
	DefaultPageDelay         = 100 * time.Millisecond
	DefaultBatchSize         = 10
	DefaultConcurrency       = 1
	DefaultPerRequestDelay   = 250 * time.Millisecond
	DefaultVisibilityTimeout = 300 * time.Second
	DefaultBudget            = 50 * time.Second
	DefaultMaxBatches        = 1
	DefaultMaxAttempts       = 5
	DefaultProbeLimit        = 50
	DefaultRefreshLimit      = 100
	DefaultDetectDelay       = 100 * time.Millisecond
	DefaultStaleAfter        = 10 * time.Minute
	DefaultSpriteBucket      = "catalog-sprites"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Upstream  UpstreamConfig        `yaml:"upstream"`
	Storage   StorageConfig         `yaml:"storage"`
	Database  *DatabaseConfig       `yaml:"database,omitempty"`
	Queue     QueueConfig           `yaml:"queue"`
	Seed      SeedConfig            `yaml:"seed"`
	Worker    WorkerConfig          `yaml:"worker"`
	Detector  DetectorConfig        `yaml:"detector"`
	Sprites   *SpritesConfig        `yaml:"sprites,omitempty"`
	Kinds     map[string]KindConfig `yaml:"kinds,omitempty"`
	Schedules []ScheduleConfig      `yaml:"schedules,omitempty"`
	Telemetry *telemetry.Config     `yaml:"telemetry,omitempty"`
	Logging   LoggingConfig         `yaml:"logging"`
}

// UpstreamConfig describes the reference API being mirrored
type UpstreamConfig struct {
	// BaseURL is the API root, e.g. https://pokeapi.co/api/v2
	BaseURL string `yaml:"baseURL,omitempty"`

	// Timeout bounds a single HTTP request (e.g. "30s")
	Timeout string `yaml:"timeout,omitempty"`

	UserAgent string `yaml:"userAgent,omitempty"`

	// MaxRetries is the number of tries for transport errors and 5xx responses.
	// 404 is never retried.
	MaxRetries int `yaml:"maxRetries,omitempty"`

	// RetryBaseDelay is the first backoff interval
	RetryBaseDelay string `yaml:"retryBaseDelay,omitempty"`

	Breaker *BreakerConfig `yaml:"breaker,omitempty"`
}

// BreakerConfig tunes the upstream circuit breaker
type BreakerConfig struct {
	// ConsecutiveFailures opens the circuit
	ConsecutiveFailures uint32 `yaml:"consecutiveFailures,omitempty"`

	// OpenTimeout is how long the circuit stays open before probing again
	OpenTimeout string `yaml:"openTimeout,omitempty"`
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	// Type is "database" or "memory". Defaults to "database" when a database
	// section exists, otherwise "memory".
	Type string `yaml:"type,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password
	// This is the recommended approach for production deployments
	// The file should contain only the password with optional trailing whitespace
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int32 `yaml:"maxIdleConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// QueueConfig holds work queue settings shared by every consumer
type QueueConfig struct {
	// MaxAttempts is the number of deliveries before an item is dead-lettered
	MaxAttempts int `yaml:"maxAttempts,omitempty"`
}

// SeedConfig holds defaults for seed runs
type SeedConfig struct {
	PageSize  int    `yaml:"pageSize,omitempty"`
	MaxPages  int    `yaml:"maxPages,omitempty"`
	PageDelay string `yaml:"pageDelay,omitempty"`
}

// WorkerConfig holds defaults for worker runs
type WorkerConfig struct {
	BatchSize         int    `yaml:"batchSize,omitempty"`
	Concurrency       int    `yaml:"concurrency,omitempty"`
	PerRequestDelay   string `yaml:"perRequestDelay,omitempty"`
	VisibilityTimeout string `yaml:"visibilityTimeout,omitempty"`
	Budget            string `yaml:"budget,omitempty"`

	// MaxBatches is the number of lease cycles per run. Negative means until
	// the queue drains or the budget runs out.
	MaxBatches int `yaml:"maxBatches,omitempty"`
}

// DetectorConfig holds defaults for incremental detection runs
type DetectorConfig struct {
	// ProbeKinds lists the numerically keyed kinds probed for new ids
	ProbeKinds   []string `yaml:"probeKinds,omitempty"`
	ProbeLimit   int      `yaml:"probeLimit,omitempty"`
	RefreshLimit int      `yaml:"refreshLimit,omitempty"`
	Delay        string   `yaml:"delay,omitempty"`
	Budget       string   `yaml:"budget,omitempty"`

	// LockFile is used by the CLI to keep two probes from running at once
	LockFile string `yaml:"lockFile,omitempty"`
}

// SpritesConfig enables mirroring of sprite images into S3-compatible storage
type SpritesConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket,omitempty"`
	Region    string `yaml:"region,omitempty"`
	AccessKey string `yaml:"accessKey,omitempty"`
	SecretKey string `yaml:"secretKey,omitempty"`
	UseSSL    bool   `yaml:"useSSL,omitempty"`
	BatchSize int    `yaml:"batchSize,omitempty"`
}

// KindConfig carries per-kind tuning
type KindConfig struct {
	// RefreshAfter sets how long a stored record stays fresh (e.g. "720h").
	// Empty means records of this kind never expire.
	RefreshAfter string `yaml:"refreshAfter,omitempty"`

	// EstimatedTotal overrides the index count observed while seeding
	EstimatedTotal int64 `yaml:"estimatedTotal,omitempty"`
}

// ScheduleConfig runs a sync mode on a cron schedule
type ScheduleConfig struct {
	Name     string   `yaml:"name,omitempty"`
	Mode     string   `yaml:"mode"`
	Schedule string   `yaml:"schedule"`
	Kinds    []string `yaml:"kinds,omitempty"`
	Limit    int      `yaml:"limit,omitempty"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`

	// File receives a copy of every log record when set
	File string `yaml:"file,omitempty"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from CATALOG_SYNC_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		cleanPath := filepath.Clean(d.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}

		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(PasswordEnvVar); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s environment variable", PasswordEnvVar,
	)
}

// GetConnectionString builds a PostgreSQL connection string with proper password handling.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	)

	return connString, nil
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a configuration with every default applied and in-memory storage.
func Default() *Config {
	return &Config{Storage: StorageConfig{Type: StorageTypeMemory}}
}

// GetStorageType returns the effective storage backend
func (c *Config) GetStorageType() string {
	if c.Storage.Type != "" {
		return c.Storage.Type
	}
	if c.Database != nil {
		return StorageTypeDatabase
	}
	return StorageTypeMemory
}

// GetBaseURL returns the upstream API root without a trailing slash
func (u UpstreamConfig) GetBaseURL() string {
	if u.BaseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(u.BaseURL, "/")
}

// GetTimeout returns the per-request timeout
func (u UpstreamConfig) GetTimeout() time.Duration {
	return durationOr(u.Timeout, DefaultUpstreamTimeout)
}

// GetUserAgent returns the User-Agent header value
func (u UpstreamConfig) GetUserAgent() string {
	if u.UserAgent == "" {
		return DefaultUserAgent
	}
	return u.UserAgent
}

// GetMaxRetries returns the number of tries per request
func (u UpstreamConfig) GetMaxRetries() int {
	return intOr(u.MaxRetries, DefaultMaxRetries)
}

// GetRetryBaseDelay returns the first backoff interval
func (u UpstreamConfig) GetRetryBaseDelay() time.Duration {
	return durationOr(u.RetryBaseDelay, DefaultRetryBaseDelay)
}

// GetBreakerFailures returns the consecutive failures that open the circuit
func (u UpstreamConfig) GetBreakerFailures() uint32 {
	if u.Breaker == nil || u.Breaker.ConsecutiveFailures == 0 {
		return DefaultBreakerFailures
	}
	return u.Breaker.ConsecutiveFailures
}

// GetBreakerOpenTimeout returns how long the circuit stays open
func (u UpstreamConfig) GetBreakerOpenTimeout() time.Duration {
	if u.Breaker == nil {
		return DefaultBreakerOpenFor
	}
	return durationOr(u.Breaker.OpenTimeout, DefaultBreakerOpenFor)
}

// GetMaxAttempts returns the delivery limit before dead-lettering
func (q QueueConfig) GetMaxAttempts() int {
	return intOr(q.MaxAttempts, DefaultMaxAttempts)
}

// GetPageSize returns the index page size
func (s SeedConfig) GetPageSize() int {
	return intOr(s.PageSize, DefaultPageSize)
}

// GetMaxPages returns the page cap per kind
func (s SeedConfig) GetMaxPages() int {
	return intOr(s.MaxPages, DefaultMaxPages)
}

// GetPageDelay returns the pause between index pages
func (s SeedConfig) GetPageDelay() time.Duration {
	return durationOr(s.PageDelay, DefaultPageDelay)
}

// GetBatchSize returns the lease size
func (w WorkerConfig) GetBatchSize() int {
	return intOr(w.BatchSize, DefaultBatchSize)
}

// GetConcurrency returns the number of items processed at once
func (w WorkerConfig) GetConcurrency() int {
	return intOr(w.Concurrency, DefaultConcurrency)
}

// GetPerRequestDelay returns the pause between sequential fetches
func (w WorkerConfig) GetPerRequestDelay() time.Duration {
	return durationOr(w.PerRequestDelay, DefaultPerRequestDelay)
}

// GetVisibilityTimeout returns the lease duration
func (w WorkerConfig) GetVisibilityTimeout() time.Duration {
	return durationOr(w.VisibilityTimeout, DefaultVisibilityTimeout)
}

// GetBudget returns the wall-clock budget of one run
func (w WorkerConfig) GetBudget() time.Duration {
	return durationOr(w.Budget, DefaultBudget)
}

// GetMaxBatches returns the lease cycles per run, with 0 meaning unbounded
func (w WorkerConfig) GetMaxBatches() int {
	switch {
	case w.MaxBatches < 0:
		return 0
	case w.MaxBatches == 0:
		return DefaultMaxBatches
	default:
		return w.MaxBatches
	}
}

// GetProbeKinds returns the kinds probed for new numeric ids
func (d DetectorConfig) GetProbeKinds() []catalog.Kind {
	if len(d.ProbeKinds) == 0 {
		return []catalog.Kind{catalog.KindPokemon, catalog.KindPokemonSpecies, catalog.KindMove, catalog.KindAbility}
	}
	kinds, err := catalog.ParseAll(d.ProbeKinds)
	if err != nil {
		return nil
	}
	return kinds
}

// GetProbeLimit returns the maximum ids probed per kind
func (d DetectorConfig) GetProbeLimit() int {
	return intOr(d.ProbeLimit, DefaultProbeLimit)
}

// GetRefreshLimit returns the maximum expired rows refreshed per run
func (d DetectorConfig) GetRefreshLimit() int {
	return intOr(d.RefreshLimit, DefaultRefreshLimit)
}

// GetDelay returns the pause between detector fetches
func (d DetectorConfig) GetDelay() time.Duration {
	return durationOr(d.Delay, DefaultDetectDelay)
}

// GetBudget returns the wall-clock budget of one run
func (d DetectorConfig) GetBudget() time.Duration {
	return durationOr(d.Budget, DefaultBudget)
}

// GetBucket returns the sprite bucket name
func (s *SpritesConfig) GetBucket() string {
	if s == nil || s.Bucket == "" {
		return DefaultSpriteBucket
	}
	return s.Bucket
}

// SpritesEnabled reports whether sprite mirroring is configured
func (c *Config) SpritesEnabled() bool {
	return c.Sprites != nil && c.Sprites.Enabled
}

// RefreshAfter returns the freshness window for a kind, or 0 when records never expire
func (c *Config) RefreshAfter(kind catalog.Kind) time.Duration {
	kc, ok := c.Kinds[string(kind)]
	if !ok {
		return 0
	}
	return durationOr(kc.RefreshAfter, 0)
}

// EstimatedTotals returns the configured per-kind totals
func (c *Config) EstimatedTotals() map[catalog.Kind]int64 {
	out := make(map[catalog.Kind]int64)
	for name, kc := range c.Kinds {
		if kc.EstimatedTotal > 0 {
			out[catalog.Kind(name)] = kc.EstimatedTotal
		}
	}
	return out
}

// validate checks the whole configuration and reports every problem found
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	var errs []error

	if c.Upstream.BaseURL != "" {
		u, err := url.Parse(c.Upstream.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("upstream.baseURL must be an absolute URL, got %q", c.Upstream.BaseURL))
		}
	}
	errs = append(errs, validateDuration("upstream.timeout", c.Upstream.Timeout))
	errs = append(errs, validateDuration("upstream.retryBaseDelay", c.Upstream.RetryBaseDelay))
	if c.Upstream.Breaker != nil {
		errs = append(errs, validateDuration("upstream.breaker.openTimeout", c.Upstream.Breaker.OpenTimeout))
	}
	if c.Upstream.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("upstream.maxRetries cannot be negative"))
	}

	switch c.GetStorageType() {
	case StorageTypeDatabase:
		if c.Database == nil {
			errs = append(errs, fmt.Errorf("database configuration is required for storage type %s", StorageTypeDatabase))
		} else {
			errs = append(errs, c.Database.validate())
		}
	case StorageTypeMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.type must be %s or %s, got %q",
			StorageTypeDatabase, StorageTypeMemory, c.Storage.Type))
	}

	if c.Queue.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("queue.maxAttempts cannot be negative"))
	}

	errs = append(errs, validateDuration("seed.pageDelay", c.Seed.PageDelay))
	if c.Seed.PageSize < 0 || c.Seed.MaxPages < 0 {
		errs = append(errs, fmt.Errorf("seed.pageSize and seed.maxPages cannot be negative"))
	}

	errs = append(errs, validateDuration("worker.perRequestDelay", c.Worker.PerRequestDelay))
	errs = append(errs, validateDuration("worker.visibilityTimeout", c.Worker.VisibilityTimeout))
	errs = append(errs, validateDuration("worker.budget", c.Worker.Budget))
	if c.Worker.BatchSize < 0 || c.Worker.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("worker.batchSize and worker.concurrency cannot be negative"))
	}

	errs = append(errs, validateDuration("detector.delay", c.Detector.Delay))
	errs = append(errs, validateDuration("detector.budget", c.Detector.Budget))
	if _, err := catalog.ParseAll(c.Detector.ProbeKinds); err != nil {
		errs = append(errs, fmt.Errorf("detector.probeKinds: %w", err))
	}

	if c.SpritesEnabled() && c.Sprites.Endpoint == "" {
		errs = append(errs, fmt.Errorf("sprites.endpoint is required when sprites are enabled"))
	}

	for name, kc := range c.Kinds {
		if _, err := catalog.Parse(name); err != nil {
			errs = append(errs, fmt.Errorf("kinds: %w", err))
		}
		errs = append(errs, validateDuration(fmt.Sprintf("kinds.%s.refreshAfter", name), kc.RefreshAfter))
		if kc.EstimatedTotal < 0 {
			errs = append(errs, fmt.Errorf("kinds.%s.estimatedTotal cannot be negative", name))
		}
	}

	for i, s := range c.Schedules {
		errs = append(errs, s.validate(i))
	}

	errs = append(errs, c.Telemetry.Validate())

	return errors.Join(errs...)
}

func (d *DatabaseConfig) validate() error {
	var errs []error
	if d.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if d.Port == 0 {
		errs = append(errs, fmt.Errorf("database.port is required"))
	}
	if d.User == "" {
		errs = append(errs, fmt.Errorf("database.user is required"))
	}
	if d.Database == "" {
		errs = append(errs, fmt.Errorf("database.database is required"))
	}
	errs = append(errs, validateDuration("database.connMaxLifetime", d.ConnMaxLifetime))
	return errors.Join(errs...)
}

func (s ScheduleConfig) validate(index int) error {
	prefix := fmt.Sprintf("schedules[%d]", index)
	if s.Name != "" {
		prefix = fmt.Sprintf("schedules[%d] (%s)", index, s.Name)
	}

	var errs []error
	switch s.Mode {
	case ModeSeed, ModeWorker, ModeDetect, ModeSpriteMirror:
	default:
		errs = append(errs, fmt.Errorf("%s: unknown mode %q", prefix, s.Mode))
	}
	if _, err := cron.ParseStandard(s.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("%s: invalid schedule %q: %w", prefix, s.Schedule, err))
	}
	if _, err := catalog.ParseAll(s.Kinds); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", prefix, err))
	}
	if s.Limit < 0 {
		errs = append(errs, fmt.Errorf("%s: limit cannot be negative", prefix))
	}
	return errors.Join(errs...)
}

func validateDuration(field, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s must be a valid duration (e.g., '30s', '1h'): %w", field, err)
	}
	if d < 0 {
		return fmt.Errorf("%s cannot be negative", field)
	}
	return nil
}

// durationOr parses s, falling back to def when s is empty or invalid.
// LoadConfig has already rejected invalid values.
func durationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func intOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
