package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/oktal/photon"
)

func main() {
	cfg, err := photon.LoadConfig("../../photon.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	sink, batches, closeBatches := photon.NewChannelSink("fanout", 32)
	defer closeBatches()

	go fanoutWorker("ingest", batches)

	rt, err := photon.NewRuntime(cfg, photon.WithSink("fanout", sink))
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, batches <-chan []*photon.Point) {
	for batch := range batches {
		fmt.Printf("[%s] forwarding %d points at %s\n", name, len(batch), time.Now().Format(time.RFC3339))
	}
}
