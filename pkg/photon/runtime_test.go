package photon

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oktal/photon/internal/ports"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{
		FromDate: "today",
		ToDate:   "today",
		Metrics:  MetricsConfig{Addr: ":0"},
		WAL:      WALConfig{Dir: t.TempDir()},
		Log:      LogConfig{Level: "disabled"},
	}
	cfg.ApplyDefaults()
	cfg.Policy.IdleSleep = time.Millisecond
	return cfg
}

func TestNewRuntimeWithCustomAdapters(t *testing.T) {
	cfg := testConfig(t)

	srcStub := &stubSource{}
	sinkStub := &stubSink{}
	trStub := &stubTransformer{}
	walStub := &stubWAL{}
	queueStub := &stubQueue{}
	obsStub := &stubObservability{}

	rt, err := NewRuntime(
		cfg,
		WithSource("stub", srcStub),
		WithSink("stub", sinkStub),
		WithTransformer(trStub),
		WithWAL(walStub),
		WithQueue(queueStub),
		WithObservability(obsStub),
	)
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}

	if len(rt.sources) != 1 || rt.sources[0].Source != srcStub {
		t.Fatalf("expected custom source to be used")
	}
	if len(rt.sinks) != 1 || rt.sinks[0].Sink != sinkStub {
		t.Fatalf("expected custom sink to be used")
	}
	if rt.transformer != trStub {
		t.Fatalf("expected custom transformer to be used")
	}
	if rt.wal != walStub {
		t.Fatalf("expected custom WAL to be used")
	}
	if rt.queue != queueStub {
		t.Fatalf("expected custom queue to be used")
	}
	if rt.obs != obsStub {
		t.Fatalf("expected custom observability to be used")
	}
}

func TestNewRuntimeRequiresComponents(t *testing.T) {
	cfg := testConfig(t)

	if _, err := NewRuntime(cfg, WithSink("stub", &stubSink{})); err == nil {
		t.Fatalf("expected error without sources")
	}

	cfg2 := testConfig(t)
	if _, err := NewRuntime(cfg2, WithSource("stub", &stubSource{})); err == nil {
		t.Fatalf("expected error without sinks")
	}
}

func TestRunOnceEndToEnd(t *testing.T) {
	cfg := testConfig(t)

	src := &stubSource{points: 3}

	var mu sync.Mutex
	var received []*Point
	sink := NewCallbackSink("capture", func(batch []*Point) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, batch...)
		return nil
	})

	rt, err := NewRuntime(cfg,
		WithSource("stub", src),
		WithSink("capture", sink),
		WithObservability(&stubObservability{}),
	)
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 3 {
		t.Fatalf("expected 3 points delivered, got %d", len(received))
	}
	for _, p := range received {
		if p.Tags["source"] != "stub" {
			t.Fatalf("expected source tag, got %v", p.Tags)
		}
	}
}

func TestRunDrainsQueuedPointsOnShutdown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Interval = Duration(time.Hour)

	// slow enough that the batch is still in flight when Run is cancelled
	sink := &slowSink{delay: 200 * time.Millisecond}
	rt, err := NewRuntime(cfg,
		WithSource("stub", &stubSource{points: 3}),
		WithSink("slow", sink),
		WithObservability(&stubObservability{}),
	)
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	if err := rt.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := sink.Written(); got != 3 {
		t.Fatalf("expected 3 points written before shutdown, got %d", got)
	}
	stats := rt.wal.Stats()
	if stats.OldestUncommitted <= stats.LatestAppended {
		t.Fatalf("expected WAL fully committed after drain, stats=%+v", stats)
	}
}

func TestRunOnceReplaysUncommittedWAL(t *testing.T) {
	cfg := testConfig(t)

	// first run: the sink refuses everything, so nothing is committed
	failing := NewCallbackSink("failing", func([]*Point) error {
		return context.DeadlineExceeded
	})
	rt, err := NewRuntime(cfg,
		WithSource("stub", &stubSource{points: 2}),
		WithSink("failing", failing),
		WithObservability(&stubObservability{}),
	)
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := rt.RunOnce(ctx); err == nil {
		t.Fatalf("expected drain to time out while the sink fails")
	}

	// second run against the same WAL dir: replay delivers the stuck points
	var mu sync.Mutex
	var received []*Point
	capture := NewCallbackSink("capture", func(batch []*Point) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, batch...)
		return nil
	})
	rt2, err := NewRuntime(cfg,
		WithSource("stub", &stubSource{points: 0}),
		WithSink("capture", capture),
		WithObservability(&stubObservability{}),
	)
	if err != nil {
		t.Fatalf("NewRuntime (replay): %v", err)
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := rt2.RunOnce(ctx2); err != nil {
		t.Fatalf("RunOnce (replay): %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("expected 2 replayed points, got %d", len(received))
	}
}

type stubSource struct {
	points int
}

func (s *stubSource) Collect(_ context.Context, _ Window) (Batch, error) {
	var b Batch
	for i := 0; i < s.points; i++ {
		b.Add(NewPoint("stub").Field("value", Integer(int64(i))))
	}
	return b, nil
}

type slowSink struct {
	delay   time.Duration
	written int32
}

func (s *slowSink) Name() string { return "slow" }

func (s *slowSink) WriteBatch(ctx context.Context, points []*Point) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.delay):
	}
	atomic.AddInt32(&s.written, int32(len(points)))
	return nil
}

func (s *slowSink) Written() int { return int(atomic.LoadInt32(&s.written)) }

type stubSink struct{}

func (s *stubSink) WriteBatch(context.Context, []*Point) error { return nil }
func (s *stubSink) Name() string                               { return "stub" }

type stubTransformer struct{}

func (s *stubTransformer) Transform(p *Point) (*Point, error) { return p, nil }

type stubQueue struct{}

func (s *stubQueue) Enqueue(WALEntryID, *Point) bool { return true }
func (s *stubQueue) DequeueBatch(int) []QueuedPoint  { return nil }
func (s *stubQueue) Len() int                        { return 0 }

type stubWAL struct{}

func (s *stubWAL) Append(*Point) (WALEntryID, error) { return 0, nil }
func (s *stubWAL) Iterate(WALEntryID, func(WALEntryID, *Point) error) error {
	return nil
}
func (s *stubWAL) Commit(WALEntryID) error  { return nil }
func (s *stubWAL) TruncateCommitted() error { return nil }
func (s *stubWAL) Stats() WALStats          { return WALStats{} }

type stubObservability struct{}

func (s *stubObservability) LogInfo(string, ...Field)            {}
func (s *stubObservability) LogError(string, error, ...Field)    {}
func (s *stubObservability) LogCritical(string, error, ...Field) {}
func (s *stubObservability) IncCounter(string, float64)          {}
func (s *stubObservability) ObserveLatency(string, float64)      {}
func (s *stubObservability) SetGauge(string, float64)            {}
func (s *stubObservability) RecordDLQ(ports.WALEntryID, *Point, error) {}
