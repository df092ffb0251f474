// Package status reports catalog sync progress: how many records of each kind are cached
// against the expected total, and how much work is waiting in the queues.
package status

import (
	"context"
	"fmt"

	"github.com/pokemnky/catalog-sync/internal/cache"
	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/queue"
)

// Sources of an estimated total
const (
	TotalFromConfig = "config"
	TotalFromIndex  = "index"
	TotalUnknown    = "unknown"
)

// KindProgress is the progress of one kind
type KindProgress struct {
	Kind           catalog.Kind  `json:"kind"`
	Phase          catalog.Phase `json:"phase"`
	Synced         int64         `json:"synced"`
	EstimatedTotal int64         `json:"estimated_total"`
	TotalSource    string        `json:"total_source"`
	Percent        float64       `json:"percent"`
}

// QueueDepth is the depth breakdown of one named queue
type QueueDepth struct {
	Queue string        `json:"queue"`
	Kinds []queue.Depth `json:"kinds"`
}

// Snapshot combines per-kind progress with queue depth
type Snapshot struct {
	Kinds  []KindProgress `json:"kinds"`
	Queues []QueueDepth   `json:"queues"`
}

// DepthReader is the read side of a queue
type DepthReader interface {
	Depth(ctx context.Context) ([]queue.Depth, error)
}

// Tracker computes progress from read-only views of the cache and queues
type Tracker struct {
	cache  cache.Reader
	queues map[string]DepthReader
	totals map[catalog.Kind]int64
}

// NewTracker creates a tracker. totals holds configured per-kind totals, which take
// precedence over the index counts observed by the seeder.
func NewTracker(reader cache.Reader, queues map[string]DepthReader, totals map[catalog.Kind]int64) *Tracker {
	return &Tracker{cache: reader, queues: queues, totals: totals}
}

// Progress returns one entry per known kind in phase order
func (t *Tracker) Progress(ctx context.Context) ([]KindProgress, error) {
	counts, err := t.cache.CountByKind(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count cached resources: %w", err)
	}
	estimates, err := t.cache.Estimates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed estimates: %w", err)
	}

	kinds := catalog.OrderByPhase(catalog.All())
	out := make([]KindProgress, 0, len(kinds))
	for _, kind := range kinds {
		p := KindProgress{
			Kind:        kind,
			Phase:       catalog.PhaseOf(kind),
			Synced:      counts[kind],
			TotalSource: TotalUnknown,
		}
		switch {
		case t.totals[kind] > 0:
			p.EstimatedTotal, p.TotalSource = t.totals[kind], TotalFromConfig
		case estimates[kind] > 0:
			p.EstimatedTotal, p.TotalSource = estimates[kind], TotalFromIndex
		}
		p.Percent = Percent(p.Synced, p.EstimatedTotal)
		out = append(out, p)
	}
	return out, nil
}

// QueueDepth returns the depth of every queue, ordered by queue name
func (t *Tracker) QueueDepth(ctx context.Context) ([]QueueDepth, error) {
	out := make([]QueueDepth, 0, len(t.queues))
	for _, name := range []string{queue.ResourcesQueue, queue.SpritesQueue} {
		q, ok := t.queues[name]
		if !ok {
			continue
		}
		depth, err := q.Depth(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read depth of queue %s: %w", name, err)
		}
		out = append(out, QueueDepth{Queue: name, Kinds: depth})
	}
	return out, nil
}

// Snapshot returns progress and queue depth together
func (t *Tracker) Snapshot(ctx context.Context) (Snapshot, error) {
	kinds, err := t.Progress(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	queues, err := t.QueueDepth(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Kinds: kinds, Queues: queues}, nil
}

// Percent returns synced as a percentage of total, capped at 100 and 0 when total is unknown
func Percent(synced, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return min(float64(synced)*100/float64(total), 100)
}
