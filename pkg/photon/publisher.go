package photon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/oktal/photon/internal/adapters/observability"
	"github.com/oktal/photon/internal/adapters/queue"
	"github.com/oktal/photon/internal/adapters/wal"
	"github.com/oktal/photon/internal/ports"
)

// ErrQueueFull indicates the in-memory queue rejected the point according to policy.
var ErrQueueFull = errors.New("photon: queue full")

// ErrWALFull indicates the WAL is at capacity and OnWALFull != "block".
var ErrWALFull = errors.New("photon: wal full")

// BatchSink is invoked with ordered batches dequeued from the pipeline.
type BatchSink func([]*Point) error

// PublisherConfig configures the WAL-backed publisher used by callers.
type PublisherConfig struct {
	Policy Policy
	WAL    WALConfig
}

func (c *PublisherConfig) applyDefaults() {
	if c.Policy.MaxWALSizeBytes == 0 {
		c.Policy.MaxWALSizeBytes = 10 << 30
	}
	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 100_000
	}
	if c.Policy.MaxBatchSize == 0 {
		c.Policy.MaxBatchSize = 5_000
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 5 * time.Millisecond
	}
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "block"
	}
	if c.Policy.OnWALFull == "" {
		c.Policy.OnWALFull = "block"
	}
	if c.WAL.Dir == "" {
		c.WAL.Dir = "./data/photon-wal"
	}
}

func (c *PublisherConfig) validate() error {
	if c.WAL.Dir == "" {
		return fmt.Errorf("wal.dir is required")
	}
	if c.Policy.MaxQueueLen <= 0 {
		return fmt.Errorf("policy.max_queue_len must be > 0")
	}
	if c.Policy.MaxBatchSize <= 0 {
		return fmt.Errorf("policy.max_batch_size must be > 0")
	}
	return nil
}

// Publisher exposes the WAL→queue→sink pipeline to external producers that
// build their own points instead of using the configured sources.
type Publisher struct {
	policy Policy
	wal    ports.WAL
	queue  ports.PointQueue
	obs    ports.Observability
	sink   BatchSink

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewPublisher wires a WAL + bounded queue + sink callback so callers can push
// arbitrary points while reusing the durability/backpressure policies.
func NewPublisher(cfg *PublisherConfig, sink BatchSink) (*Publisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink callback is required")
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	walAdapter, err := wal.NewFileWAL(cfg.WAL.Dir)
	if err != nil {
		return nil, err
	}
	q := queue.NewMemQueue(cfg.Policy.MaxQueueLen)
	obs := observability.New(zerolog.Nop())

	if err := replayWALIntoQueue(walAdapter, q, cfg.Policy, obs); err != nil {
		return nil, err
	}

	pub := &Publisher{
		policy: cfg.Policy,
		wal:    walAdapter,
		queue:  q,
		obs:    obs,
		sink:   sink,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go pub.runIngest()
	return pub, nil
}

// Publish appends the point to the WAL and enqueues it according to policy.
func (p *Publisher) Publish(point *Point) error {
	if point == nil {
		return fmt.Errorf("point is required")
	}

	if !p.waitForWALCapacity() {
		return ErrWALFull
	}

	id, err := p.wal.Append(point)
	if err != nil {
		return err
	}

	if !p.enqueue(id, point) {
		return ErrQueueFull
	}
	return nil
}

// Close waits for the ingest loop to exit, respecting the provided context.
func (p *Publisher) Close(ctx context.Context) error {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})

	select {
	case <-p.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) runIngest() {
	defer close(p.doneCh)
	idle := p.policy.IdleSleep
	if idle <= 0 {
		idle = 5 * time.Millisecond
	}

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		batch := p.queue.DequeueBatch(p.policy.MaxBatchSize)
		if len(batch) == 0 {
			time.Sleep(idle)
			continue
		}

		var (
			out   = make([]*Point, 0, len(batch))
			maxID ports.WALEntryID
		)
		for _, item := range batch {
			out = append(out, item.Point)
			if item.ID > maxID {
				maxID = item.ID
			}
		}

		if err := p.sink(out); err != nil {
			p.obs.LogError("publisher_sink_failed", err)
			time.Sleep(idle)
			continue
		}

		p.obs.IncCounter("photon_points_written_total", float64(len(out)))
		if err := p.wal.Commit(maxID); err != nil {
			p.obs.LogError("wal_commit_failed", err)
			continue
		}
		// reclaim disk so a long-lived publisher never wedges on OnWALFull
		if err := p.wal.TruncateCommitted(); err != nil {
			p.obs.LogError("wal_truncate_failed", err)
		}
	}
}

func (p *Publisher) waitForWALCapacity() bool {
	if p.policy.MaxWALSizeBytes <= 0 {
		return true
	}
	sleep := p.policy.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		stats := p.wal.Stats()
		if stats.SizeBytes < p.policy.MaxWALSizeBytes {
			return true
		}

		switch p.policy.OnWALFull {
		case "block":
			time.Sleep(sleep)
		default:
			return false
		}
	}
}

func (p *Publisher) enqueue(id ports.WALEntryID, point *Point) bool {
	sleep := p.policy.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		if ok := p.queue.Enqueue(id, point); ok {
			return true
		}
		switch p.policy.OnQueueFull {
		case "block":
			time.Sleep(sleep)
		default:
			return false
		}
	}
}
