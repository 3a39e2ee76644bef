package photon

import (
	"time"

	"github.com/oktal/photon/internal/domain"
	"github.com/oktal/photon/internal/ports"
)

// Point is the measurement that flows through the collect→WAL→queue→sink
// pipeline. It is exported so custom sources and sinks can reference it.
type Point = domain.Point

// Value is one typed field value of a Point.
type Value = domain.Value

// Batch is an ordered collection of points produced by a source.
type Batch = domain.Batch

// Window is the inclusive day range a collection cycle covers.
type Window = domain.Window

// Source produces points for a collection window (RTE APIs, OPC UA, custom).
type Source = ports.Source

// Sink persists batches of points to a downstream system.
type Sink = ports.Sink

// Transformer lets callers mutate points (unit conversion, enrichment) before persistence.
type Transformer = ports.Transformer

// PointQueue is the bounded, in-memory queue that decouples collection and sinks.
type PointQueue = ports.PointQueue

// Observability emits metrics/logs about throughput, latency, and DLQ conditions.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// QueuedPoint represents an item buffered inside the bounded queue.
type QueuedPoint = ports.QueuedPoint

// WAL abstracts the write-ahead log used for durability and crash recovery.
type WAL = ports.WAL

// WALStats exposes WAL metadata for observability.
type WALStats = ports.WALStats

// WALEntryID uniquely identifies a WAL entry.
type WALEntryID = ports.WALEntryID

// Value constructors re-exported for building points by hand.
var (
	Integer = domain.Integer
	Float   = domain.Float
	Boolean = domain.Boolean
	String  = domain.String
)

// NewPoint starts a point builder for the given measurement name.
func NewPoint(name string) *Point {
	return domain.NewPoint(name)
}

// ResolveWindow parses "today", "yesterday", or ISO dates into a Window.
func ResolveWindow(from, to string) (Window, error) {
	return domain.ResolveWindow(from, to, time.Now())
}
