package photon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/oktal/photon/internal/adapters/observability"
	"github.com/oktal/photon/internal/adapters/queue"
	"github.com/oktal/photon/internal/adapters/wal"
	"github.com/oktal/photon/internal/app/pipeline"
	"github.com/oktal/photon/internal/app/topology"
	"github.com/oktal/photon/internal/domain"
	"github.com/oktal/photon/internal/ports"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	sources       []ports.NamedSource
	sinks         []ports.NamedSink
	transformer   ports.Transformer
	wal           ports.WAL
	queue         ports.PointQueue
	observability ports.Observability
	logger        *zerolog.Logger
}

// WithSource registers an extra source alongside the configured ones.
func WithSource(name string, src Source) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.sources = append(o.sources, ports.NamedSource{Name: name, Source: src})
	}
}

// WithSink registers an extra sink; every batch fans out to it as well.
func WithSink(name string, s Sink) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.sinks = append(o.sinks, ports.NamedSink{Name: name, Sink: s})
	}
}

// WithTransformer overrides the default no-op transformer.
func WithTransformer(t Transformer) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.transformer = t
	}
}

// WithWAL lets callers bring their own WAL implementation or reuse an existing instance.
func WithWAL(w WAL) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.wal = w
	}
}

// WithQueue injects a custom queue implementation.
func WithQueue(q PointQueue) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.queue = q
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithLogger replaces the logger built from the config's log section.
func WithLogger(log zerolog.Logger) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.logger = &log
	}
}

// Runtime wires up the sources → WAL → queue → sinks pipeline and exposes
// simple lifecycle hooks for embedding photon inside any Go service.
type Runtime struct {
	cfg         *Config
	log         zerolog.Logger
	policy      ports.Policy
	obs         ports.Observability
	wal         ports.WAL
	queue       ports.PointQueue
	transformer ports.Transformer
	sources     []ports.NamedSource
	sinks       []ports.NamedSink

	topo         *topology.Topology
	metricsSrv   *http.Server
	gaugeStopCh  chan struct{}
	ingestCancel context.CancelFunc
	ingestDoneCh chan struct{}
}

// NewRuntime bootstraps the default adapters (file WAL, in-memory queue,
// zerolog + Prometheus observability) and constructs every configured source
// and sink. RuntimeOption values add or override dependencies so callers can
// point photon at custom sources, sinks, or telemetry backends.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	var log zerolog.Logger
	if overrides.logger != nil {
		log = *overrides.logger
	} else {
		var err error
		log, err = NewLogger(cfg.Log)
		if err != nil {
			return nil, err
		}
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.New(log)
	}

	var (
		walAdapter ports.WAL
		err        error
	)
	if overrides.wal != nil {
		walAdapter = overrides.wal
	} else {
		walAdapter, err = wal.NewFileWAL(cfg.WAL.Dir)
		if err != nil {
			return nil, err
		}
	}

	q := overrides.queue
	if q == nil {
		q = queue.NewMemQueue(cfg.Policy.MaxQueueLen)
	}

	if err := replayWALIntoQueue(walAdapter, q, cfg.Policy, obs); err != nil {
		return nil, err
	}

	topo, err := topology.Build(cfg, log)
	if err != nil {
		return nil, err
	}

	sources := append(topo.Sources, overrides.sources...)
	sinks := append(topo.Sinks, overrides.sinks...)
	if len(sources) == 0 {
		topo.Close()
		return nil, fmt.Errorf("at least one source is required")
	}
	if len(sinks) == 0 {
		topo.Close()
		return nil, fmt.Errorf("at least one sink is required")
	}

	tr := overrides.transformer
	if tr == nil {
		tr = noopTransformer{}
	}

	return &Runtime{
		cfg:         cfg,
		log:         log,
		policy:      cfg.Policy,
		obs:         obs,
		wal:         walAdapter,
		queue:       q,
		transformer: tr,
		sources:     sources,
		sinks:       sinks,
		topo:        topo,
	}, nil
}

// NewLogger builds a zerolog logger from the config's log section.
func NewLogger(cfg LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var out = zerolog.New(os.Stderr)
	if cfg.Pretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return out.Level(level).With().Timestamp().Logger(), nil
}

// shutdownDrainTimeout bounds how long a cancelled Run keeps flushing what is
// already queued before the ingest loop is torn down.
const shutdownDrainTimeout = 10 * time.Second

// Run starts the metrics endpoint and the ingest loop, then collects on the
// configured interval until the context is cancelled. Cancellation stops
// collecting and drains the queued points before returning; whatever does not
// make it out in time stays in the WAL and replays on the next start. With no
// interval it performs a single cycle, drains, and returns.
func (r *Runtime) Run(ctx context.Context) error {
	r.start()
	defer r.stop()

	if err := r.cycle(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return r.shutdownDrain()
		}
		return err
	}

	interval := time.Duration(r.cfg.Interval)
	if interval <= 0 {
		return r.drain(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return r.shutdownDrain()
		case <-ticker.C:
			if err := r.cycle(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return r.shutdownDrain()
				}
				return err
			}
		}
	}
}

// shutdownDrain gives the still-running ingest loop a bounded window to write
// and commit the backlog before stop() cancels it.
func (r *Runtime) shutdownDrain() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownDrainTimeout)
	defer cancel()
	if err := r.drain(ctx); err != nil {
		r.log.Warn().Err(err).Msg("drain incomplete; uncommitted entries replay on next start")
	}
	return nil
}

// RunOnce performs a single collection cycle and blocks until every collected
// point has been written and committed.
func (r *Runtime) RunOnce(ctx context.Context) error {
	r.startIngest()
	defer r.stop()

	if err := r.cycle(ctx); err != nil {
		return err
	}
	return r.drain(ctx)
}

func (r *Runtime) cycle(ctx context.Context) error {
	w, err := domain.ResolveWindow(r.cfg.FromDate, r.cfg.ToDate, time.Now())
	if err != nil {
		return err
	}

	id := uuid.NewString()
	r.obs.LogInfo("cycle_start",
		ports.Field{Key: "cycle", Value: id},
		ports.Field{Key: "window", Value: w.String()})

	if err := pipeline.CollectCycle(ctx, r.sources, w, r.wal, r.queue, r.policy, r.obs); err != nil {
		return err
	}

	r.obs.LogInfo("cycle_done", ports.Field{Key: "cycle", Value: id})
	return nil
}

func (r *Runtime) start() {
	r.startIngest()
	r.startMetrics()
}

func (r *Runtime) startIngest() {
	if r.ingestDoneCh != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.ingestCancel = cancel
	r.ingestDoneCh = make(chan struct{})
	go func() {
		pipeline.RunIngest(ctx, r.wal, r.queue, r.transformer, r.sinks, r.policy, r.obs)
		close(r.ingestDoneCh)
	}()
}

func (r *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:    r.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.log.Error().Err(err).Msg("metrics server exited")
		}
	}()

	r.gaugeStopCh = make(chan struct{})
	go r.recordResourceGauges(r.gaugeStopCh, time.Second)
}

func (r *Runtime) recordResourceGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			stats := r.wal.Stats()
			r.obs.SetGauge("photon_wal_size_bytes", float64(stats.SizeBytes))
			r.obs.SetGauge("photon_queue_length", float64(r.queue.Len()))
		}
	}
}

// drain waits until the queue is empty and every WAL entry is committed.
func (r *Runtime) drain(ctx context.Context) error {
	idle := r.policy.IdleSleep
	if idle <= 0 {
		idle = 5 * time.Millisecond
	}

	for {
		stats := r.wal.Stats()
		if r.queue.Len() == 0 && stats.OldestUncommitted > stats.LatestAppended {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(idle):
		}
	}
}

func (r *Runtime) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Shutdown(shutdownCtx); err != nil {
		r.log.Error().Err(err).Msg("shutdown")
	}
}

// Shutdown stops the ingest loop, metrics server, and sink connections.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.gaugeStopCh != nil {
		close(r.gaugeStopCh)
		r.gaugeStopCh = nil
	}

	if r.ingestCancel != nil {
		r.ingestCancel()
		select {
		case <-r.ingestDoneCh:
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
		r.ingestCancel = nil
		r.ingestDoneCh = nil
	}

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
		r.metricsSrv = nil
	}

	if r.topo != nil {
		if err := r.topo.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func replayWALIntoQueue(walAdapter ports.WAL, q ports.PointQueue, pol ports.Policy, obs ports.Observability) error {
	stats := walAdapter.Stats()
	if stats.LatestAppended == 0 {
		return nil
	}
	start := stats.OldestUncommitted
	if start == 0 || start > stats.LatestAppended {
		return nil
	}

	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	var replayed int
	err := walAdapter.Iterate(start, func(id ports.WALEntryID, p *domain.Point) error {
		for {
			if q.Enqueue(id, p) {
				replayed++
				return nil
			}
			switch pol.OnQueueFull {
			case "drop", "reject":
				return fmt.Errorf("queue full during WAL replay")
			default:
				time.Sleep(sleep)
			}
		}
	})
	if err != nil {
		return err
	}
	if replayed > 0 {
		obs.LogInfo("wal_replay_complete",
			ports.Field{Key: "points", Value: replayed},
			ports.Field{Key: "from_id", Value: start})
	}
	return nil
}

type noopTransformer struct{}

func (noopTransformer) Transform(p *domain.Point) (*domain.Point, error) { return p, nil }
