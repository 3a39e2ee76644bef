package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/oktal/photon/internal/domain"
	"github.com/oktal/photon/internal/ports"
)

// CollectCycle runs every source once over the window, stamps each batch with
// its source name, and pushes the points through the WAL into the queue.
// A failing source is logged and skipped; the cycle only returns an error
// when the context is cancelled.
func CollectCycle(ctx context.Context, sources []ports.NamedSource, w domain.Window,
	wal ports.WAL, q ports.PointQueue, pol ports.Policy, obs ports.Observability) error {

	for _, src := range sources {
		batch, err := src.Source.Collect(ctx, w)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			obs.IncCounter("photon_collect_errors_total", 1)
			obs.LogError("collect_failed", err, ports.Field{Key: "source", Value: src.Name})
			continue
		}

		batch.TagAll("source", src.Name)
		obs.IncCounter("photon_points_collected_total", float64(batch.Len()))
		obs.LogInfo("source_collected",
			ports.Field{Key: "source", Value: src.Name},
			ports.Field{Key: "points", Value: batch.Len()})

		for _, p := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !waitForWALCapacity(ctx, wal, pol, obs) {
				obs.IncCounter("photon_points_dropped_total", 1)
				continue
			}

			id, err := wal.Append(p)
			if err != nil {
				obs.LogCritical("wal_append_failed", err)
				continue
			}

			if !enqueueWithPolicy(ctx, q, id, p, pol, obs) {
				obs.IncCounter("photon_points_dropped_total", 1)
			}
		}
	}

	return ctx.Err()
}

func waitForWALCapacity(ctx context.Context, wal ports.WAL, pol ports.Policy, obs ports.Observability) bool {
	if pol.MaxWALSizeBytes <= 0 {
		return true
	}
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		stats := wal.Stats()
		if stats.SizeBytes < pol.MaxWALSizeBytes {
			return true
		}

		switch pol.OnWALFull {
		case "block":
			select {
			case <-ctx.Done():
				return false
			case <-time.After(sleep):
			}
		case "drop":
			obs.LogError("wal_full_drop", fmt.Errorf("size=%d limit=%d", stats.SizeBytes, pol.MaxWALSizeBytes))
			return false
		default:
			obs.LogError("wal_policy_invalid", fmt.Errorf("policy=%s", pol.OnWALFull))
			return false
		}
	}
}

func enqueueWithPolicy(ctx context.Context, q ports.PointQueue, id ports.WALEntryID, p *domain.Point,
	pol ports.Policy, obs ports.Observability) bool {

	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		if ok := q.Enqueue(id, p); ok {
			return true
		}

		switch pol.OnQueueFull {
		case "block":
			select {
			case <-ctx.Done():
				return false
			case <-time.After(sleep):
			}
		case "drop", "reject":
			obs.LogError("queue_full_drop", fmt.Errorf("queue length exceeded capacity %d", pol.MaxQueueLen))
			return false
		default:
			obs.LogError("queue_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return false
		}
	}
}
