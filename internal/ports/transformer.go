package ports

import "github.com/oktal/photon/internal/domain"

// Transformer mutates points (unit conversion, enrichment) before they reach
// the sinks. A failed transform sends the point to the DLQ counter instead of
// the sinks.
type Transformer interface {
	Transform(*domain.Point) (*domain.Point, error)
}
