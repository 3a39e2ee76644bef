package photon

import (
	base "github.com/oktal/photon/pkg/photon"
)

// Re-exported errors for convenience.
var (
	ErrQueueFull         = base.ErrQueueFull
	ErrWALFull           = base.ErrWALFull
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import github.com/oktal/photon directly.
type (
	Config          = base.Config
	ComponentConfig = base.ComponentConfig
	Duration        = base.Duration
	Policy          = base.Policy
	WALConfig       = base.WALConfig
	MetricsConfig   = base.MetricsConfig
	LogConfig       = base.LogConfig
	Runtime         = base.Runtime
	RuntimeOption   = base.RuntimeOption
	Point           = base.Point
	Value           = base.Value
	Batch           = base.Batch
	Window          = base.Window
	BatchSink       = base.BatchSink
	Source          = base.Source
	Sink            = base.Sink
	Transformer     = base.Transformer
	PointQueue      = base.PointQueue
	WAL             = base.WAL
	Observability   = base.Observability
	Field           = base.Field
	QueuedPoint     = base.QueuedPoint
	WALEntryID      = base.WALEntryID
	WALStats        = base.WALStats
	Publisher       = base.Publisher
	PublisherConfig = base.PublisherConfig
)

// Value constructors.
var (
	Integer = base.Integer
	Float   = base.Float
	Boolean = base.Boolean
	String  = base.String
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Point helpers.
func NewPoint(name string) *Point {
	return base.NewPoint(name)
}

func ResolveWindow(from, to string) (Window, error) {
	return base.ResolveWindow(from, to)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithSource(name string, src Source) RuntimeOption {
	return base.WithSource(name, src)
}

func WithSink(name string, s Sink) RuntimeOption {
	return base.WithSink(name, s)
}

func WithTransformer(tr Transformer) RuntimeOption {
	return base.WithTransformer(tr)
}

func WithWAL(w WAL) RuntimeOption {
	return base.WithWAL(w)
}

func WithQueue(q PointQueue) RuntimeOption {
	return base.WithQueue(q)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

// Sink adapters.
func NewCallbackSink(name string, fn BatchSink) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan []*Point, func()) {
	return base.NewChannelSink(name, buffer)
}

// Publisher.
func NewPublisher(cfg *PublisherConfig, sink BatchSink) (*Publisher, error) {
	return base.NewPublisher(cfg, sink)
}
