package pipeline

import (
	"context"
	"time"

	"github.com/oktal/photon/internal/domain"
	"github.com/oktal/photon/internal/ports"
)

// RunIngest drains the queue in batches, runs the transformer, fans each
// batch out to every sink, and commits the WAL once all sinks accepted it.
// Any sink failure skips the commit so the batch replays from the WAL after
// a restart. Returns when the context is cancelled.
func RunIngest(ctx context.Context, wal ports.WAL, q ports.PointQueue, tr ports.Transformer,
	sinks []ports.NamedSink, pol ports.Policy, obs ports.Observability) {

	idle := pol.IdleSleep
	if idle <= 0 {
		idle = 5 * time.Millisecond
	}

	for {
		if ctx.Err() != nil {
			return
		}

		batch := q.DequeueBatch(pol.MaxBatchSize)
		if len(batch) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idle):
			}
			continue
		}

		var (
			out   = make([]*domain.Point, 0, len(batch))
			maxID ports.WALEntryID
		)

		for _, item := range batch {
			p, err := tr.Transform(item.Point)
			if err != nil {
				obs.RecordDLQ(item.ID, item.Point, err)
				continue
			}
			out = append(out, p)
			if item.ID > maxID {
				maxID = item.ID
			}
		}

		if len(out) == 0 {
			commitAndReclaim(wal, maxID, obs)
			continue
		}

		if !writeToSinks(ctx, sinks, out, obs) {
			// keep WAL uncommitted; replays after restart
			continue
		}

		obs.IncCounter("photon_points_written_total", float64(len(out)))
		commitAndReclaim(wal, maxID, obs)
	}
}

// commitAndReclaim advances the committed mark and lets the WAL reclaim disk
// space. Without the reclaim step the log grows until OnWALFull kicks in and
// stalls collection for good.
func commitAndReclaim(wal ports.WAL, upto ports.WALEntryID, obs ports.Observability) {
	if err := wal.Commit(upto); err != nil {
		obs.LogError("wal_commit_failed", err)
		return
	}
	if err := wal.TruncateCommitted(); err != nil {
		obs.LogError("wal_truncate_failed", err)
	}
}

func writeToSinks(ctx context.Context, sinks []ports.NamedSink, out []*domain.Point, obs ports.Observability) bool {
	ok := true
	for _, snk := range sinks {
		start := time.Now()
		if err := snk.Sink.WriteBatch(ctx, out); err != nil {
			obs.IncCounter("photon_sink_errors_total", 1)
			obs.LogError("sink_write_failed", err, ports.Field{Key: "sink", Value: snk.Name})
			ok = false
			continue
		}
		obs.ObserveLatency("photon_sink_write_latency_seconds", time.Since(start).Seconds())
	}
	return ok
}
