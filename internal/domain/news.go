package domain

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// Category is the closed set of topics an item can be filed under.
type Category string

const (
	CategoryResearch       Category = "Research"
	CategoryProduct        Category = "Product"
	CategoryInfrastructure Category = "Infrastructure"
	CategoryIndustry       Category = "Industry"
	CategoryOther          Category = "Other"
)

// FallbackCategory is assigned when classification fails or is unknown.
const FallbackCategory = CategoryOther

// Categories lists every valid category in display order.
func Categories() []Category {
	return []Category{
		CategoryResearch,
		CategoryProduct,
		CategoryInfrastructure,
		CategoryIndustry,
		CategoryOther,
	}
}

// ParseCategory resolves a label case-insensitively; unknown labels report false.
func ParseCategory(label string) (Category, bool) {
	label = strings.TrimSpace(label)
	for _, c := range Categories() {
		if strings.EqualFold(string(c), label) {
			return c, true
		}
	}
	return "", false
}

const (
	MinScore = 1
	MaxScore = 10
)

// NewsItem is one ingested article flowing through the analysis workflow.
type NewsItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`

	Category  Category `json:"category,omitempty"`
	Score     int      `json:"ai_score,omitempty"`
	Reason    string   `json:"ai_reason,omitempty"`
	TitleZH   string   `json:"title_zh,omitempty"`
	SummaryZH string   `json:"summary_zh,omitempty"`
}

// NewNewsItem builds an item whose ID is the fingerprint of its URL.
func NewNewsItem(title, summary, url, source string, publishedAt time.Time) NewsItem {
	return NewsItem{
		ID:          Fingerprint(url),
		Title:       title,
		Summary:     summary,
		URL:         url,
		Source:      source,
		PublishedAt: publishedAt,
	}
}

// Fingerprint derives the stable item id from its URL.
func Fingerprint(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Scored reports whether an ai_score has been assigned.
func (n NewsItem) Scored() bool {
	return n.Score >= MinScore && n.Score <= MaxScore
}

// SetScore assigns score and reason; out of range scores are rejected.
func (n *NewsItem) SetScore(score int, reason string) bool {
	if score < MinScore || score > MaxScore {
		return false
	}
	n.Score = score
	n.Reason = reason
	return true
}

// Translated reports whether any translation field is present.
func (n NewsItem) Translated() bool {
	return n.TitleZH != "" || n.SummaryZH != ""
}

// DisplayTitle prefers the translated title when present.
func (n NewsItem) DisplayTitle() string {
	if n.TitleZH != "" {
		return n.TitleZH
	}
	return n.Title
}
