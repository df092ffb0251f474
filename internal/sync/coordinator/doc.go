// Package coordinator runs sync modes on a schedule.
//
// Each entry under schedules in the configuration becomes a cron entry that calls
// Manager.Trigger with the entry's mode, kinds and limit. Entries never overlap with
// themselves: a tick that fires while the previous run of the same entry is still going
// is skipped.
//
// Alongside the configured entries the coordinator keeps one housekeeping entry. On each
// of its ticks it fails ledger jobs whose heartbeat stopped (a process that died
// mid-run leaves its job running forever otherwise) and, when catalog metrics are
// configured, refreshes the resource and queue depth gauges.
//
// Usage:
//
//	c := coordinator.New(manager, jobs, cfg, coordinator.WithCatalogMetrics(m, tracker))
//	go c.Start(ctx)
//	...
//	c.Stop()
package coordinator
