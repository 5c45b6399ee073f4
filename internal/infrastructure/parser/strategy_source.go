package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/scanner"
)

// StrategySource implements NewsSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sites    []config.SiteConfig
	lookback time.Duration
	logger   *slog.Logger
}

var _ ports.NewsSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sites. Scanners
// are asked for items up to maxAgeDays before the requested day.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, maxAgeDays int, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sites:    sites,
		lookback: time.Duration(maxAgeDays) * 24 * time.Hour,
		logger:   log,
	}
}

// FetchDaily iterates over configured sites and executes their scanners. A
// failing site is logged and skipped; the call fails only when every site
// fails.
func (s *StrategySource) FetchDaily(ctx context.Context, day time.Time) ([]domain.NewsItem, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch daily", "sites", len(s.sites), "day", day.Format("2006-01-02"))

	var (
		aggregated []domain.NewsItem
		failures   []error
	)
	for _, site := range s.sites {
		s.debug("process site", "site", site.Name, "scanner", site.Scanner, "categories", len(site.Categories))
		results, err := s.scanSite(ctx, site, day)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures = append(failures, err)
			if s.logger != nil {
				s.logger.Warn("site scan failed", "site", site.Name, "error", err)
			}
			continue
		}
		s.debug("site produced items", "site", site.Name, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	if len(s.sites) > 0 && len(failures) == len(s.sites) {
		return nil, fmt.Errorf("all sites failed: %w", errors.Join(failures...))
	}
	s.debug("strategy source done", "total_items", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) scanSite(ctx context.Context, site config.SiteConfig, day time.Time) ([]domain.NewsItem, error) {
	strategy, err := s.registry.Resolve(site.Scanner)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}

	req := scanner.Request{
		Day:        day,
		Since:      day.Add(-s.lookback),
		SiteName:   site.Name,
		Options:    site.Options,
		Categories: toScannerCategories(site.Categories),
	}

	results, err := strategy.Scan(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scan site %s: %w", site.Name, err)
	}
	for i := range results {
		if results[i].Source == "" {
			results[i].Source = site.Name
		}
	}
	return results, nil
}

func toScannerCategories(cfg []config.CategoryConfig) []scanner.Category {
	categories := make([]scanner.Category, 0, len(cfg))
	for _, cat := range cfg {
		categories = append(categories, scanner.Category{
			Name: cat.Name,
			URL:  cat.URL,
		})
	}
	return categories
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
