package console

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/oktal/photon/internal/domain"
)

func TestWriteBatch(t *testing.T) {
	var buf bytes.Buffer
	sink := New(&buf)

	ts := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	points := []*domain.Point{
		domain.NewPoint("eco2mix").
			Tag("source", "rte").
			Field("nuclear", domain.Integer(38000)).
			At(ts),
	}

	if err := sink.WriteBatch(context.Background(), points); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	var decoded []*domain.Point
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected 1 point, got %d", len(decoded))
	}
	if decoded[0].Name != "eco2mix" {
		t.Fatalf("name = %q", decoded[0].Name)
	}
	if decoded[0].Fields["nuclear"] != domain.Integer(38000) {
		t.Fatalf("nuclear = %+v", decoded[0].Fields["nuclear"])
	}
}

func TestName(t *testing.T) {
	if sink := New(nil); sink.Name() != "console" {
		t.Fatalf("unexpected sink name %s", sink.Name())
	}
}
