package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	catalogapp "github.com/pokemnky/catalog-sync/internal/app"
	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/status"
	"github.com/pokemnky/catalog-sync/internal/sync/state"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print per-kind progress, queue depth and recent jobs",
		RunE:  runStatus,
	}
	cmd.Flags().Int("jobs", 10, "Number of recent jobs to list")
	cmd.Flags().String("format", "table", "Output format (table or json)")
	return cmd
}

// statusReport is the JSON form of the status command
type statusReport struct {
	Progress status.Snapshot `json:"progress"`
	Jobs     []state.SyncJob `json:"jobs"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	jobLimit, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	components, err := catalogapp.BuildComponents(ctx, catalogapp.WithConfig(cfg))
	if err != nil {
		return err
	}
	defer components.Close()

	snapshot, err := components.Tracker.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read progress: %w", err)
	}
	jobs, err := components.Jobs.List(ctx, state.ListFilter{Limit: jobLimit})
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		data, err := json.MarshalIndent(statusReport{Progress: snapshot, Jobs: jobs}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format status: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	return renderStatus(out, snapshot, jobs)
}

func renderStatus(out io.Writer, snapshot status.Snapshot, jobs []state.SyncJob) error {
	progress := tablewriter.NewWriter(out)
	progress.Header("KIND", "PHASE", "SYNCED", "TOTAL", "SOURCE", "PERCENT")
	for _, p := range snapshot.Kinds {
		if err := progress.Append([]string{
			string(p.Kind),
			string(p.Phase),
			strconv.FormatInt(p.Synced, 10),
			formatTotal(p.EstimatedTotal),
			p.TotalSource,
			fmt.Sprintf("%.1f%%", p.Percent),
		}); err != nil {
			return fmt.Errorf("failed to render progress: %w", err)
		}
	}
	if err := progress.Render(); err != nil {
		return fmt.Errorf("failed to render progress: %w", err)
	}

	fmt.Fprintln(out)
	queues := tablewriter.NewWriter(out)
	queues.Header("QUEUE", "KIND", "VISIBLE", "LEASED", "DEAD-LETTERED")
	for _, q := range snapshot.Queues {
		for _, d := range q.Kinds {
			if err := queues.Append([]string{
				q.Queue,
				string(d.Kind),
				strconv.FormatInt(d.Visible, 10),
				strconv.FormatInt(d.Leased, 10),
				strconv.FormatInt(d.DeadLettered, 10),
			}); err != nil {
				return fmt.Errorf("failed to render queue depth: %w", err)
			}
		}
	}
	if err := queues.Render(); err != nil {
		return fmt.Errorf("failed to render queue depth: %w", err)
	}

	fmt.Fprintln(out)
	recent := tablewriter.NewWriter(out)
	recent.Header("JOB", "MODE", "STATUS", "SUCCEEDED", "FAILED", "REMAINING", "STARTED")
	for _, j := range jobs {
		if err := recent.Append([]string{
			j.ID.String(),
			string(j.Mode),
			string(j.Status),
			strconv.FormatInt(j.Succeeded, 10),
			strconv.FormatInt(j.Failed, 10),
			strconv.FormatInt(j.Remaining, 10),
			j.StartedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return fmt.Errorf("failed to render jobs: %w", err)
		}
	}
	if err := recent.Render(); err != nil {
		return fmt.Errorf("failed to render jobs: %w", err)
	}
	return nil
}

func formatTotal(total int64) string {
	if total <= 0 {
		return "-"
	}
	return strconv.FormatInt(total, 10)
}

func newRequeueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requeue",
		Short: "Move dead-lettered items back into their queue",
		RunE:  runRequeue,
	}
	cmd.Flags().StringSlice("kinds", nil, "Only requeue these kinds")
	cmd.Flags().Bool("sprites", false, "Requeue the sprites queue instead of the resources queue")
	return cmd
}

func runRequeue(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	rawKinds, err := cmd.Flags().GetStringSlice("kinds")
	if err != nil {
		return fmt.Errorf("failed to get kinds flag: %w", err)
	}
	sprites, err := cmd.Flags().GetBool("sprites")
	if err != nil {
		return fmt.Errorf("failed to get sprites flag: %w", err)
	}

	kinds, err := catalog.ParseAll(rawKinds)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	components, err := catalogapp.BuildComponents(ctx, catalogapp.WithConfig(cfg))
	if err != nil {
		return err
	}
	defer components.Close()

	q := components.Resources
	if sprites {
		if components.Sprites == nil {
			return fmt.Errorf("sprite mirroring is not enabled")
		}
		q = components.Sprites
	}

	n, err := q.RequeueDeadLetters(ctx, kinds)
	if err != nil {
		return fmt.Errorf("failed to requeue dead letters: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "requeued %d item(s)\n", n)
	return nil
}
