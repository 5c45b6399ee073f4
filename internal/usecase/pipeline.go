package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// PipelineDeps wires all driven adapters into the daily pipeline.
type PipelineDeps struct {
	Source     ports.NewsSource
	Ledger     ports.Ledger
	Analyzer   ports.Analyzer
	Publishers []ports.DigestPublisher
	MaxAgeDays int
	Logger     *slog.Logger
}

// Pipeline implements the daily digest workflow: fetch, dedup, age filter,
// analysis, delivery and ledger bookkeeping.
type Pipeline struct {
	source     ports.NewsSource
	ledger     ports.Ledger
	analyzer   ports.Analyzer
	publishers []ports.DigestPublisher
	maxAgeDays int
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		source:     deps.Source,
		ledger:     deps.Ledger,
		analyzer:   deps.Analyzer,
		publishers: deps.Publishers,
		maxAgeDays: deps.MaxAgeDays,
		logger:     logger,
		now:        time.Now,
	}
}

// ProcessDay runs the whole pipeline for day. Items are marked seen only
// after every publisher accepted the digest. An empty digest is returned
// without publishing when nothing new was found.
func (p *Pipeline) ProcessDay(ctx context.Context, day time.Time) (domain.Digest, error) {
	digest, fresh, err := p.analyse(ctx, day)
	if err != nil || len(fresh) == 0 {
		return digest, err
	}

	if err := p.publish(ctx, digest); err != nil {
		return digest, err
	}

	if p.ledger != nil {
		if err := p.ledger.MarkSeen(ctx, fresh, p.now()); err != nil {
			return digest, fmt.Errorf("mark seen: %w", err)
		}
	}
	p.logger.Info("day processed",
		"day", day.Format("2006-01-02"),
		"items", len(digest.Items),
		"mode", digest.Metadata.Mode,
		"publishers", len(p.publishers),
	)
	return digest, nil
}

// Preview runs fetch, dedup and analysis but neither publishes nor touches
// the ledger.
func (p *Pipeline) Preview(ctx context.Context, day time.Time) (domain.Digest, error) {
	digest, _, err := p.analyse(ctx, day)
	return digest, err
}

func (p *Pipeline) analyse(ctx context.Context, day time.Time) (domain.Digest, []string, error) {
	if p.source == nil {
		return domain.Digest{}, nil, errors.New("news source is not configured")
	}
	if p.analyzer == nil {
		return domain.Digest{}, nil, errors.New("analyzer is not configured")
	}

	fetched, err := p.source.FetchDaily(ctx, day)
	if err != nil {
		return domain.Digest{}, nil, fmt.Errorf("fetch daily: %w", err)
	}

	items, err := p.unseen(ctx, fetched)
	if err != nil {
		return domain.Digest{}, nil, err
	}
	items = p.recent(items, day)

	p.logger.Info("items collected", "fetched", len(fetched), "fresh", len(items))
	if len(items) == 0 {
		return domain.Digest{}, nil, nil
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	digest, err := p.analyzer.Run(ctx, items)
	if err != nil {
		return domain.Digest{}, nil, fmt.Errorf("analyse items: %w", err)
	}
	return digest, ids, nil
}

// unseen drops items already recorded in the ledger and duplicates within
// the fetched batch.
func (p *Pipeline) unseen(ctx context.Context, items []domain.NewsItem) ([]domain.NewsItem, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}

	seen := map[string]bool{}
	if p.ledger != nil && len(ids) > 0 {
		var err error
		seen, err = p.ledger.AlreadySeen(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load seen items: %w", err)
		}
	}

	out := make([]domain.NewsItem, 0, len(items))
	batch := make(map[string]struct{}, len(items))
	for _, item := range items {
		if seen[item.ID] {
			continue
		}
		if _, dup := batch[item.ID]; dup {
			continue
		}
		batch[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out, nil
}

// recent keeps items published on or after local midnight maxAgeDays before
// day, in day's location. Undated items are kept.
func (p *Pipeline) recent(items []domain.NewsItem, day time.Time) []domain.NewsItem {
	y, m, d := day.Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, day.Location()).AddDate(0, 0, -p.maxAgeDays)
	out := items[:0]
	for _, item := range items {
		if !item.PublishedAt.IsZero() && item.PublishedAt.Before(cutoff) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (p *Pipeline) publish(ctx context.Context, digest domain.Digest) error {
	var errs []error
	for _, pub := range p.publishers {
		if err := pub.Publish(ctx, digest); err != nil {
			p.logger.Warn("publish failed", "publisher", pub.Name(), "error", err)
			errs = append(errs, fmt.Errorf("publish %s: %w", pub.Name(), err))
			continue
		}
		p.logger.Debug("digest published", "publisher", pub.Name())
	}
	return errors.Join(errs...)
}
