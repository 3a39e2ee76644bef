// Package console dumps batches as pretty-printed JSON, a debugging aid for
// new source configurations.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/oktal/photon/internal/domain"
	"github.com/oktal/photon/internal/ports"
)

type Sink struct {
	out io.Writer
}

// New writes to w, or stdout when w is nil.
func New(w io.Writer) *Sink {
	if w == nil {
		w = os.Stdout
	}
	return &Sink{out: w}
}

func (s *Sink) Name() string { return "console" }

func (s *Sink) WriteBatch(_ context.Context, points []*domain.Point) error {
	data, err := json.MarshalIndent(points, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal points: %w", err)
	}
	_, err = fmt.Fprintln(s.out, string(data))
	return err
}

var _ ports.Sink = (*Sink)(nil)
