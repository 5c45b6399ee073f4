package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/scanner"
)

const arxivListing = `
<dl>
  <dt>
    <span class="list-identifier"><a href="/abs/2501.00001">arXiv:2501.00001</a></span>
  </dt>
  <dd>
    <div class="list-date">Date: 8 Nov 2025</div>
    <div class="list-title mathjax">Title: Fresh
      Article</div>
    <p class="mathjax">Abstract: brand new.</p>
  </dd>
  <dt>
    <span class="list-identifier"><a href="/abs/2501.00002">arXiv:2501.00002</a></span>
  </dt>
  <dd>
    <div class="list-date">Date: 7 Nov 2025</div>
    <div class="list-title mathjax">Title: Yesterday Article</div>
    <p class="mathjax">Abstract: one day old.</p>
  </dd>
  <dt>
    <span class="list-identifier"><a href="/abs/2501.00003">arXiv:2501.00003</a></span>
  </dt>
  <dd>
    <div class="list-date">Date: 1 Nov 2025</div>
    <div class="list-title mathjax">Title: Old Article</div>
    <p class="mathjax">Abstract: older.</p>
  </dd>
</dl>`

func TestBuildPageURL(t *testing.T) {
	t.Parallel()

	base := "https://export.arxiv.org/list/cs.AI/pastweek"
	u, err := buildPageURL(base, 200, 100)
	if err != nil {
		t.Fatalf("buildPageURL returned error: %v", err)
	}

	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}

	if parsed.Scheme != "https" || parsed.Host != "export.arxiv.org" {
		t.Fatalf("unexpected host: %s", parsed.Host)
	}

	q := parsed.Query()
	if q.Get("skip") != "200" {
		t.Fatalf("expected skip=200, got %s", q.Get("skip"))
	}
	if q.Get("show") != "100" {
		t.Fatalf("expected show=100, got %s", q.Get("show"))
	}
}

func TestParseEntry(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(arxivListing))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	item, err := parseEntry(doc.Find("dt").First(), doc.Find("dd").First(), "arXiv cs.AI")
	if err != nil {
		t.Fatalf("parseEntry error: %v", err)
	}

	wantURL := "https://arxiv.org/abs/2501.00001"
	if item.URL != wantURL || item.ID != domain.Fingerprint(wantURL) {
		t.Fatalf("unexpected url/id: %s %s", item.URL, item.ID)
	}
	if item.Title != "Fresh Article" {
		t.Fatalf("unexpected title: %q", item.Title)
	}
	if item.Summary != "brand new." {
		t.Fatalf("unexpected summary: %q", item.Summary)
	}
	if item.Source != "arXiv cs.AI" {
		t.Fatalf("unexpected source: %s", item.Source)
	}
	if got := item.PublishedAt.Format("2006-01-02"); got != "2025-11-08" {
		t.Fatalf("unexpected published date: %v", got)
	}
}

func TestArxivScannerScanWindow(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(arxivListing))
	}))
	defer server.Close()

	sc := NewArxivScanner(server.Client(), nil)
	sc.pageSize = 10

	day := time.Date(2025, time.November, 8, 9, 0, 0, 0, time.UTC)
	req := scanner.Request{
		Day:      day,
		SiteName: "arXiv cs.AI",
		Categories: []scanner.Category{
			{Name: "cs.AI", URL: server.URL + "/list/cs.AI"},
		},
	}

	items, err := sc.Scan(context.Background(), req)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Fresh Article" {
		t.Fatalf("expected only the same-day paper, got %+v", items)
	}

	req.Since = day.Add(-24 * time.Hour)
	items, err = sc.Scan(context.Background(), req)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 papers inside the window, got %d", len(items))
	}
}
