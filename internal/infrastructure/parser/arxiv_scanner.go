package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/scanner"
)

const (
	arxivBaseURL = "https://arxiv.org"
	userAgent    = "NewsDigest/1.0"
)

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ArxivScanner crawls category listing pages and extracts papers announced
// inside the requested window.
type ArxivScanner struct {
	client   *http.Client
	logger   *slog.Logger
	pageSize int
}

// NewArxivScanner wires an HTTP client; pageSize defaults to 200.
func NewArxivScanner(client *http.Client, logger *slog.Logger) *ArxivScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ArxivScanner{client: client, logger: logger, pageSize: 200}
}

// Name identifies the strategy inside the registry.
func (a *ArxivScanner) Name() string {
	return "arxiv"
}

// Scan walks through each category URL and returns every paper dated between
// req.Since and req.Day.
func (a *ArxivScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.NewsItem, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no categories provided for site %s", req.SiteName)
	}

	lastDay := req.Day.UTC().Truncate(24 * time.Hour)
	firstDay := lastDay
	if !req.Since.IsZero() && req.Since.Before(req.Day) {
		firstDay = req.Since.UTC().Truncate(24 * time.Hour)
	}
	results := make([]domain.NewsItem, 0)
	seen := map[string]struct{}{}

	for _, cat := range req.Categories {
		skip := 0
		for {
			pageURL, err := buildPageURL(cat.URL, skip, a.pageSize)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat.Name, err)
			}

			doc, err := fetchDocument(ctx, a.client, pageURL)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat.Name, err)
			}

			page, shouldContinue := a.extractItems(doc, firstDay, lastDay, req.SiteName)
			for _, item := range page {
				if _, ok := seen[item.ID]; ok {
					continue
				}
				seen[item.ID] = struct{}{}
				results = append(results, item)
			}
			a.logger.Debug("arxiv page scanned", "category", cat.Name, "skip", skip, "items", len(page))

			if !shouldContinue {
				break
			}
			skip += a.pageSize
		}
	}

	return results, nil
}

func fetchDocument(ctx context.Context, client *http.Client, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func (a *ArxivScanner) extractItems(doc *goquery.Document, firstDay, lastDay time.Time, siteName string) ([]domain.NewsItem, bool) {
	var (
		collected    []domain.NewsItem
		continueScan = true
		processed    int
	)

	doc.Find("dl > dt").EachWithBreak(func(i int, dt *goquery.Selection) bool {
		dd := dt.Next()
		processed++

		item, err := parseEntry(dt, dd, siteName)
		if err != nil {
			return true
		}

		day := item.PublishedAt.UTC().Truncate(24 * time.Hour)
		if day.Before(firstDay) {
			continueScan = false
			return false
		}
		if !day.After(lastDay) {
			collected = append(collected, item)
		}
		return true
	})

	if processed < a.pageSize {
		continueScan = false
	}

	return collected, continueScan
}

func parseEntry(dt, dd *goquery.Selection, siteName string) (domain.NewsItem, error) {
	link := dt.Find("a[href*=\"/abs/\"]").First()
	href, ok := link.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return domain.NewsItem{}, fmt.Errorf("entry without abstract link")
	}
	if !strings.HasPrefix(href, "http") {
		href = strings.TrimSuffix(arxivBaseURL, "/") + href
	}

	title := CleanText(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))
	if title == "" {
		return domain.NewsItem{}, fmt.Errorf("entry %s without title", href)
	}

	summary := CleanText(dd.Find("p.mathjax").First().Text())
	summary = strings.TrimSpace(strings.TrimPrefix(summary, "Abstract:"))

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}

	publishedAt := time.Now().UTC()
	if match := dateExpr.FindString(dateText); match != "" {
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			publishedAt = parsed
		}
	}

	return domain.NewNewsItem(title, summary, href, siteName, publishedAt), nil
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid category url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
