package ports

import (
	"context"

	"github.com/oktal/photon/internal/domain"
)

// Sink persists batches of points to a downstream system. Every configured
// sink receives every batch.
type Sink interface {
	WriteBatch(ctx context.Context, points []*domain.Point) error
	Name() string
}

// NamedSink pairs a sink with the component name it was configured under.
type NamedSink struct {
	Name string
	Sink Sink
}
