package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	catalogapp "github.com/pokemnky/catalog-sync/internal/app"
	"github.com/pokemnky/catalog-sync/internal/config"
	pkgsync "github.com/pokemnky/catalog-sync/internal/sync"
	"github.com/pokemnky/catalog-sync/internal/sync/state"
)

// defaultDetectLock is used when detector.lockFile is not configured
var defaultDetectLock = filepath.Join(os.TempDir(), "catalog-sync-detect.lock")

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one time-bounded sync pass and print its summary",
		Long: `Run one sync mode once, outside the server. The summary is printed to stdout as JSON.
The command exits non-zero when the run failed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}

	cmd.PersistentFlags().StringSlice("kinds", nil, "Restrict the run to these kinds")
	cmd.PersistentFlags().Int("limit", 0, "Cap entries per kind (seed) or probed ids per kind (detect)")
	cmd.PersistentFlags().Int("batch-size", 0, "Override the configured batch size")
	cmd.PersistentFlags().Int("concurrency", 0, "Override the configured worker concurrency")

	for _, sub := range []struct {
		use, short string
		mode       state.Mode
	}{
		{"seed", "Enumerate list indexes and enqueue detail URLs", state.ModeSeed},
		{"work", "Lease, fetch, validate and store a batch of queued URLs", state.ModeWorker},
		{"detect", "Probe for new ids and refresh stale resources", state.ModeDetect},
		{"sprites", "Mirror queued sprite images into object storage", state.ModeSpriteMirror},
	} {
		mode := sub.mode
		cmd.AddCommand(&cobra.Command{
			Use:   sub.use,
			Short: sub.short,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMode(cmd, mode)
			},
		})
	}

	return cmd
}

func requestFromFlags(cmd *cobra.Command, mode state.Mode) (pkgsync.Request, error) {
	req := pkgsync.Request{Mode: mode}
	var err error
	if req.Kinds, err = cmd.Flags().GetStringSlice("kinds"); err != nil {
		return req, fmt.Errorf("failed to get kinds flag: %w", err)
	}
	if req.Limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return req, fmt.Errorf("failed to get limit flag: %w", err)
	}
	if req.BatchSize, err = cmd.Flags().GetInt("batch-size"); err != nil {
		return req, fmt.Errorf("failed to get batch-size flag: %w", err)
	}
	if req.Concurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
		return req, fmt.Errorf("failed to get concurrency flag: %w", err)
	}
	return req, nil
}

// acquireDetectLock keeps two detect runs on the same host from probing at once
func acquireDetectLock(cfg *config.Config) (func(), error) {
	path := cfg.Detector.LockFile
	if path == "" {
		path = defaultDetectLock
	}

	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire detect lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("another incremental-detect run holds %s", path)
	}

	return func() {
		if err := lock.Unlock(); err != nil {
			slog.Error("Failed to release detect lock", "path", path, "error", err)
		}
	}, nil
}

func runMode(cmd *cobra.Command, mode state.Mode) error {
	req, err := requestFromFlags(cmd, mode)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	closeLog, err := configureLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	if mode == state.ModeDetect {
		unlock, err := acquireDetectLock(cfg)
		if err != nil {
			return err
		}
		defer unlock()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := catalogapp.BuildComponents(ctx, catalogapp.WithConfig(cfg))
	if err != nil {
		return err
	}
	defer components.Close()

	summary, runErr := components.Manager.Trigger(ctx, req)
	if summary.JobID != uuid.Nil {
		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format summary: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	}
	return runErr
}
