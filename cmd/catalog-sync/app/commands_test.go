package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/config"
	"github.com/pokemnky/catalog-sync/internal/queue"
	"github.com/pokemnky/catalog-sync/internal/status"
	"github.com/pokemnky/catalog-sync/internal/sync/state"
	"github.com/pokemnky/catalog-sync/internal/versions"
)

func TestVersionCommandJSON(t *testing.T) {
	t.Parallel()

	cmd := newVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--format", "json"})
	require.NoError(t, cmd.Execute())

	var info versions.VersionInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Equal(t, versions.GetVersionInfo().GoVersion, info.GoVersion)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "migrate", "run", "status", "requeue", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRequestFromFlags(t *testing.T) {
	t.Parallel()

	run := newRunCmd()
	seed, _, err := run.Find([]string{"seed"})
	require.NoError(t, err)
	require.NoError(t, seed.ParseFlags([]string{"--kinds", "pokemon,move", "--limit", "5", "--batch-size", "3"}))

	req, err := requestFromFlags(seed, state.ModeSeed)
	require.NoError(t, err)
	assert.Equal(t, state.ModeSeed, req.Mode)
	assert.Equal(t, []string{"pokemon", "move"}, req.Kinds)
	assert.Equal(t, 5, req.Limit)
	assert.Equal(t, 3, req.BatchSize)
	assert.Zero(t, req.Concurrency)
}

func newConfigCmd(t *testing.T, path string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "")
	require.NoError(t, cmd.Flags().Set("config", path))
	return cmd
}

func TestLoadConfigDefaultsToMemory(t *testing.T) {
	t.Parallel()

	cfg, err := loadConfig(newConfigCmd(t, ""))
	require.NoError(t, err)
	assert.Equal(t, config.StorageTypeMemory, cfg.GetStorageType())
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("upstream:\n  baseURL: https://a.example/api/v2\n"), 0o600))

	t.Setenv("CATALOG_SYNC_UPSTREAM_BASEURL", "http://localhost:9999/api/v2")
	t.Setenv("CATALOG_SYNC_LOGGING_FILE", "/tmp/catalog-sync.log")

	cfg, err := loadConfig(newConfigCmd(t, path))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999/api/v2", cfg.Upstream.GetBaseURL())
	assert.Equal(t, "/tmp/catalog-sync.log", cfg.Logging.File)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	_, err := loadConfig(newConfigCmd(t, filepath.Join(t.TempDir(), "missing.yaml")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestMigrationTargetRequiresDatabase(t *testing.T) {
	t.Parallel()

	_, _, err := migrationTarget(newConfigCmd(t, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database configuration is required")
}

func TestConfirm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		yes   bool
		input string
		want  bool
	}{
		{name: "yes flag skips prompt", yes: true, want: true},
		{name: "typed yes", input: "yes\n", want: true},
		{name: "typed y", input: "Y\n", want: true},
		{name: "typed no", input: "no\n", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := &cobra.Command{}
			cmd.Flags().Bool("yes", tt.yes, "")
			cmd.SetIn(bytes.NewBufferString(tt.input))
			cmd.SetOut(&bytes.Buffer{})

			got, err := confirm(cmd, "Proceed.")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAcquireDetectLock(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Detector.LockFile = filepath.Join(t.TempDir(), "detect.lock")

	unlock, err := acquireDetectLock(cfg)
	require.NoError(t, err)

	_, err = acquireDetectLock(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another incremental-detect run")

	unlock()
	unlockAgain, err := acquireDetectLock(cfg)
	require.NoError(t, err)
	unlockAgain()
}

func TestRenderStatus(t *testing.T) {
	t.Parallel()

	snapshot := status.Snapshot{
		Kinds: []status.KindProgress{
			{Kind: catalog.KindPokemon, Phase: catalog.PhaseOf(catalog.KindPokemon), Synced: 651,
				EstimatedTotal: 1302, TotalSource: status.TotalFromConfig, Percent: 50},
			{Kind: catalog.KindMove, Phase: catalog.PhaseOf(catalog.KindMove), TotalSource: status.TotalUnknown},
		},
		Queues: []status.QueueDepth{
			{Queue: queue.ResourcesQueue, Kinds: []queue.Depth{{Kind: catalog.KindPokemon, Visible: 12, Leased: 3}}},
		},
	}
	jobs := []state.SyncJob{{
		ID:        uuid.New(),
		Mode:      state.ModeWorker,
		Status:    state.StatusPartial,
		Succeeded: 9,
		Failed:    1,
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}

	var out bytes.Buffer
	require.NoError(t, renderStatus(&out, snapshot, jobs))

	text := out.String()
	assert.Contains(t, text, "pokemon")
	assert.Contains(t, text, "50.0%")
	assert.Contains(t, text, "1302")
	assert.Contains(t, text, queue.ResourcesQueue)
	assert.Contains(t, text, "partial")
	assert.Contains(t, text, "2026-01-02T03:04:05Z")
}

func TestSetupLoggingFansOutToFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var stderr, file bytes.Buffer
	SetupLogging(&stderr, slog.LevelInfo, &file)

	slog.Info("hello", "kind", "pokemon")
	slog.Debug("hidden")

	for _, buf := range []*bytes.Buffer{&stderr, &file} {
		assert.Contains(t, buf.String(), `"msg":"hello"`)
		assert.Contains(t, buf.String(), `"kind":"pokemon"`)
		assert.NotContains(t, buf.String(), "hidden")
	}
}

func TestLogLevel(t *testing.T) {
	t.Setenv("CATALOG_SYNC_LOG_LEVEL", "")
	t.Setenv("LOG_LEVEL", "")

	assert.Equal(t, slog.LevelInfo, LogLevel(""))
	assert.Equal(t, slog.LevelWarn, LogLevel("warn"))

	t.Setenv("LOG_LEVEL", "error")
	assert.Equal(t, slog.LevelError, LogLevel("warn"))

	t.Setenv("CATALOG_SYNC_LOG_LEVEL", "debug")
	assert.Equal(t, slog.LevelDebug, LogLevel("warn"))
}
