package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/scanner"
)

// Option keys understood by the HTML listing scanner.
const (
	OptItem       = "item"
	OptTitle      = "title"
	OptLink       = "link"
	OptSummary    = "summary"
	OptDate       = "date"
	OptDateLayout = "dateLayout"
)

// HTMLScanner extracts news items from listing pages using CSS selectors
// taken from the site options.
type HTMLScanner struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTMLScanner wires an HTTP client.
func NewHTMLScanner(client *http.Client, logger *slog.Logger) *HTMLScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HTMLScanner{client: client, logger: logger}
}

// Name identifies the strategy inside the registry.
func (h *HTMLScanner) Name() string {
	return "html"
}

type selectors struct {
	item, title, link, summary, date, layout string
}

func selectorsFrom(opts map[string]string) (selectors, error) {
	s := selectors{
		item:    opts[OptItem],
		title:   opts[OptTitle],
		link:    opts[OptLink],
		summary: opts[OptSummary],
		date:    opts[OptDate],
		layout:  opts[OptDateLayout],
	}
	if s.item == "" {
		return s, fmt.Errorf("option %q is required", OptItem)
	}
	if s.title == "" {
		s.title = "a"
	}
	if s.link == "" {
		s.link = s.title
	}
	if s.layout == "" {
		s.layout = time.RFC3339
	}
	return s, nil
}

// Scan fetches every category page and keeps items dated inside the window.
// Undated items are attributed to req.Day.
func (h *HTMLScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.NewsItem, error) {
	sel, err := selectorsFrom(req.Options)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", req.SiteName, err)
	}
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no categories provided for site %s", req.SiteName)
	}

	var results []domain.NewsItem
	seen := map[string]struct{}{}
	for _, cat := range req.Categories {
		base, err := url.Parse(cat.URL)
		if err != nil {
			return nil, fmt.Errorf("category %s: invalid url: %w", cat.Name, err)
		}
		doc, err := fetchDocument(ctx, h.client, cat.URL)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", cat.Name, err)
		}

		var kept int
		doc.Find(sel.item).Each(func(_ int, s *goquery.Selection) {
			item, ok := h.parseItem(s, sel, base, req)
			if !ok || !inWindow(item.PublishedAt, req) {
				return
			}
			if _, dup := seen[item.ID]; dup {
				return
			}
			seen[item.ID] = struct{}{}
			results = append(results, item)
			kept++
		})
		h.logger.Debug("html listing scanned", "site", req.SiteName, "category", cat.Name, "items", kept)
	}
	return results, nil
}

func (h *HTMLScanner) parseItem(s *goquery.Selection, sel selectors, base *url.URL, req scanner.Request) (domain.NewsItem, bool) {
	title := CleanText(s.Find(sel.title).First().Text())
	href, _ := s.Find(sel.link).First().Attr("href")
	if title == "" || strings.TrimSpace(href) == "" {
		return domain.NewsItem{}, false
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return domain.NewsItem{}, false
	}
	link := base.ResolveReference(ref).String()

	var summary string
	if sel.summary != "" {
		if html, err := s.Find(sel.summary).First().Html(); err == nil {
			summary = CleanHTML(html)
		}
	}

	published := req.Day
	if sel.date != "" {
		node := s.Find(sel.date).First()
		raw, ok := node.Attr("datetime")
		if !ok {
			raw = node.Text()
		}
		if t, err := time.Parse(sel.layout, strings.TrimSpace(raw)); err == nil {
			published = t
		} else if raw != "" {
			h.logger.Debug("unparsed listing date", "value", raw, "layout", sel.layout)
		}
	}

	return domain.NewNewsItem(title, summary, link, req.SiteName, published), true
}

func inWindow(published time.Time, req scanner.Request) bool {
	if !req.Since.IsZero() && published.Before(req.Since) {
		return false
	}
	return req.Day.IsZero() || !published.After(req.Day.Add(24*time.Hour))
}
