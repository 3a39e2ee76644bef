package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/oktal/photon/internal/domain"
	"github.com/oktal/photon/internal/ports"
)

// Obs implements ports.Observability with zerolog structured logging and
// Prometheus metrics.
type Obs struct {
	log      zerolog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// register adds c to the default registry, reusing the collector already
// registered under the same name when the runtime and a publisher coexist in
// one process.
func register[C prometheus.Collector](c C) C {
	if err := prometheus.DefaultRegisterer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(C)
		}
		panic(err)
	}
	return c
}

func New(log zerolog.Logger) *Obs {
	collected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "photon_points_collected_total",
		Help: "Total points produced by all sources.",
	})
	written := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "photon_points_written_total",
		Help: "Total points successfully written to every sink.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "photon_points_dropped_total",
		Help: "Points lost to WAL/queue backpressure policies.",
	})
	collectErrs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "photon_collect_errors_total",
		Help: "Failed source collection attempts.",
	})
	sinkErrs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "photon_sink_errors_total",
		Help: "Failed sink writes.",
	})
	dlq := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "photon_dlq_total",
		Help: "Points discarded by transform failures.",
	})
	walGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "photon_wal_size_bytes",
		Help: "Size of the WAL on disk.",
	})
	queueGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "photon_queue_length",
		Help: "Points currently buffered in the in-memory queue.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "photon_sink_write_latency_seconds",
		Help:    "Latency of one batch write to one sink.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	return &Obs{
		log: log,
		counters: map[string]prometheus.Counter{
			"photon_points_collected_total": register(collected),
			"photon_points_written_total":   register(written),
			"photon_points_dropped_total":   register(dropped),
			"photon_collect_errors_total":   register(collectErrs),
			"photon_sink_errors_total":      register(sinkErrs),
			"photon_dlq_total":              register(dlq),
		},
		gauges: map[string]prometheus.Gauge{
			"photon_wal_size_bytes": register(walGauge),
			"photon_queue_length":   register(queueGauge),
		},
		histos: map[string]prometheus.Observer{
			"photon_sink_write_latency_seconds": register(latency),
		},
	}
}

func (o *Obs) LogInfo(msg string, fields ...ports.Field) {
	o.event(o.log.Info(), fields).Msg(msg)
}

func (o *Obs) LogError(msg string, err error, fields ...ports.Field) {
	o.event(o.log.Error().Err(err), fields).Msg(msg)
}

func (o *Obs) LogCritical(msg string, err error, fields ...ports.Field) {
	o.event(o.log.Error().Bool("critical", true).Err(err), fields).Msg(msg)
}

func (o *Obs) event(ev *zerolog.Event, fields []ports.Field) *zerolog.Event {
	for _, f := range fields {
		ev = ev.Interface(f.Key, f.Value)
	}
	return ev
}

func (o *Obs) IncCounter(name string, v float64) {
	if c, ok := o.counters[name]; ok {
		c.Add(v)
	}
}

func (o *Obs) ObserveLatency(name string, seconds float64) {
	if h, ok := o.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (o *Obs) SetGauge(name string, v float64) {
	if g, ok := o.gauges[name]; ok {
		g.Set(v)
	}
}

func (o *Obs) RecordDLQ(id ports.WALEntryID, p *domain.Point, err error) {
	o.IncCounter("photon_dlq_total", 1)
	name := ""
	if p != nil {
		name = p.Name
	}
	o.log.Error().Err(err).Uint64("wal_id", uint64(id)).Str("point", name).Msg("point sent to dlq")
}

var _ ports.Observability = (*Obs)(nil)
