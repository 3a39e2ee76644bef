package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/oktal/photon/pkg/photon"
)

func main() {
	cfg, err := photon.LoadConfig("../../photon.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	callback := func(batch []*photon.Point) error {
		for _, p := range batch {
			fmt.Printf("%s %s tags=%v fields=%d\n",
				p.Timestamp.Format(time.RFC3339),
				p.Name,
				p.Tags,
				len(p.Fields),
			)
		}
		return nil
	}

	rt, err := photon.NewRuntime(cfg, photon.WithSink("stdout", photon.NewCallbackSink("stdout", callback)))
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
