package app

import (
	"context"
	"errors"
	"testing"

	"NewsDigest/internal/config"
	"NewsDigest/internal/logging"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Ledger.DSN = ":memory:"
	cfg.Sites = nil
	return cfg
}

func TestNewWiresAdapters(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Kafka.Brokers = []string{"127.0.0.1:9092"}

	a, err := New(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.kafka == nil || a.ledger == nil || a.pipeline == nil {
		t.Fatalf("application not fully wired: %+v", a)
	}
}

func TestNewRejectsUnknownScanner(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Sites = []config.SiteConfig{{Name: "Feed", Scanner: "rss"}}

	if _, err := New(context.Background(), cfg, logging.Discard()); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestPingWithoutAPIKey(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), testConfig(), logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if err := a.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping to fail without an API key")
	}
}
