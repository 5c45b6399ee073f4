package parser

import (
	"context"
	"errors"
	"testing"
	"time"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/scanner"
)

type stubScanner struct {
	name  string
	items []domain.NewsItem
	err   error
	got   []scanner.Request
}

func (s *stubScanner) Name() string { return s.name }

func (s *stubScanner) Scan(_ context.Context, req scanner.Request) ([]domain.NewsItem, error) {
	s.got = append(s.got, req)
	return s.items, s.err
}

func TestStrategySourceSkipsFailingSite(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	ok := &stubScanner{name: "ok", items: []domain.NewsItem{{ID: "a", Title: "A"}}}
	broken := &stubScanner{name: "broken", err: errors.New("boom")}

	reg := scanner.NewRegistry()
	reg.Register(ok)
	reg.Register(broken)

	src := NewStrategySource(reg, []config.SiteConfig{
		{Name: "Broken", Scanner: "broken"},
		{Name: "Good", Scanner: "ok", Options: map[string]string{"k": "v"}},
	}, 2, nil)

	items, err := src.FetchDaily(context.Background(), day)
	if err != nil {
		t.Fatalf("FetchDaily: %v", err)
	}
	if len(items) != 1 || items[0].Source != "Good" {
		t.Fatalf("expected the working site's item with its source filled, got %+v", items)
	}
	if len(ok.got) != 1 {
		t.Fatalf("expected one scan request, got %d", len(ok.got))
	}
	req := ok.got[0]
	if !req.Since.Equal(day.Add(-48*time.Hour)) || req.Options["k"] != "v" {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestStrategySourceAllSitesFail(t *testing.T) {
	t.Parallel()

	reg := scanner.NewRegistry()
	reg.Register(&stubScanner{name: "broken", err: errors.New("boom")})

	src := NewStrategySource(reg, []config.SiteConfig{
		{Name: "One", Scanner: "broken"},
		{Name: "Two", Scanner: "missing"},
	}, 1, nil)

	if _, err := src.FetchDaily(context.Background(), time.Now()); err == nil {
		t.Fatalf("expected error when every site fails")
	}
}

func TestStrategySourceCancelled(t *testing.T) {
	t.Parallel()

	reg := scanner.NewRegistry()
	reg.Register(&stubScanner{name: "broken", err: context.Canceled})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewStrategySource(reg, []config.SiteConfig{{Name: "One", Scanner: "broken"}, {Name: "Two", Scanner: "broken"}}, 1, nil)
	if _, err := src.FetchDaily(ctx, time.Now()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
