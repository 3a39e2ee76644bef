package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/oktal/photon/internal/rte"
)

func main() {
	fs := flag.NewFlagSet("rte-refresh-token", flag.ExitOnError)
	clientID := fs.String("client-id", os.Getenv("RTE_CLIENT_ID"), "RTE API client id (defaults to RTE_CLIENT_ID)")
	clientSecret := fs.String("client-secret", os.Getenv("RTE_CLIENT_SECRET"), "RTE API client secret (defaults to RTE_CLIENT_SECRET)")
	endpoint := fs.String("endpoint", rte.DefaultAuthEndpoint, "OAuth token endpoint")
	output := fs.String("output", "console", "Where to write the token: console or file")
	path := fs.String("path", "./rte-token", "Token file path when -output=file")
	interval := fs.Duration("interval", 0, "Refresh on this interval instead of exiting (0 = fetch once)")
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatal(err)
	}

	if *clientID == "" || *clientSecret == "" {
		log.Fatal("rte-refresh-token: client id and secret are required (flags or RTE_CLIENT_ID/RTE_CLIENT_SECRET)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := rte.NewAuthClient(*endpoint)

	if err := refresh(ctx, client, *clientID, *clientSecret, *output, *path); err != nil {
		log.Fatalf("rte-refresh-token: %v", err)
	}
	if *interval <= 0 {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := refresh(ctx, client, *clientID, *clientSecret, *output, *path); err != nil {
				log.Printf("rte-refresh-token: %v", err)
			}
		}
	}
}

func refresh(ctx context.Context, client *rte.AuthClient, clientID, clientSecret, output, path string) error {
	token, err := client.FetchToken(ctx, clientID, clientSecret)
	if err != nil {
		return err
	}

	switch output {
	case "console":
		fmt.Println(token.AccessToken)
		return nil
	case "file":
		return writeTokenFile(path, token.AccessToken)
	default:
		return fmt.Errorf("unknown output %q (expected console or file)", output)
	}
}

// writeTokenFile writes the token atomically so readers never observe a
// partially written file.
func writeTokenFile(path, token string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".rte-token-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.WriteString(token); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
