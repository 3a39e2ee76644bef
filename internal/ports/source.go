package ports

import (
	"context"

	"github.com/oktal/photon/internal/domain"
)

// Source produces a batch of points for the given collection window.
// Sources are pull-based; the pipeline invokes every configured source once
// per cycle.
type Source interface {
	Collect(ctx context.Context, w domain.Window) (domain.Batch, error)
}

// NamedSource pairs a source with the component name it was configured under.
type NamedSource struct {
	Name   string
	Source Source
}
