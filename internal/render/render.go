// Package render turns a digest into the text delivered to readers.
package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/format"
)

// MaxMessageLen keeps a rendered digest inside one Telegram message.
const MaxMessageLen = 4000

const passThroughListLen = 10

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "[", `\[`, "`", "\\`")

// Text renders a Markdown digest. Full runs show trends, bullets and the top
// selection; pass-through runs list the first items unranked.
func Text(d domain.Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Daily AI digest* (%d items)\n", len(d.Items))

	if d.Metadata.Mode == domain.ModePassThrough {
		fmt.Fprintf(&b, "_analysis skipped: %s_\n\n", strings.ReplaceAll(d.Metadata.ModeReason, "_", " "))
		for i, item := range d.Items {
			if i == passThroughListLen {
				fmt.Fprintf(&b, "…and %d more\n", len(d.Items)-i)
				break
			}
			fmt.Fprintf(&b, "%d. %s\n", i+1, link(item))
		}
		return clip(b.String())
	}

	if len(d.Trends) > 0 {
		fmt.Fprintf(&b, "Trends: %s\n", escape(strings.Join(d.Trends, " · ")))
	}
	if d.Summary != "" {
		b.WriteString("\n")
		b.WriteString(escape(d.Summary))
		b.WriteString("\n")
	}
	if len(d.TopSelection) > 0 {
		b.WriteString("\n*Top stories*\n")
		for i, item := range d.TopSelection {
			fmt.Fprintf(&b, "%d. %s", i+1, link(item))
			if item.Scored() {
				fmt.Fprintf(&b, " (%d/10, %s)", item.Score, item.Category)
			}
			b.WriteString("\n")
			if summary := displaySummary(item); summary != "" {
				fmt.Fprintf(&b, "   %s\n", escape(summary))
			}
		}
	}
	if d.Metadata.Partial {
		b.WriteString("\n_partial run: some steps were skipped_\n")
	}
	return clip(b.String())
}

// TopTable renders the top selection (or every item when there is none) as
// an ASCII or Markdown table.
func TopTable(d domain.Digest, mode format.Mode) string {
	items := d.TopSelection
	if len(items) == 0 {
		items = d.Items
	}
	tb := format.NewTable(mode)
	tb.Header("#", "Title", "Category", "Score", "Source")
	tb.Columns(
		format.ColumnConfig{Number: 2, MaxWidth: 60},
		format.ColumnConfig{Number: 4, AlignRight: true},
	)
	for i, item := range items {
		score := "-"
		if item.Scored() {
			score = fmt.Sprint(item.Score)
		}
		category := string(item.Category)
		if category == "" {
			category = "-"
		}
		tb.Row(i+1, item.DisplayTitle(), category, score, item.Source)
	}
	return tb.String()
}

// JSON renders the digest as indented JSON.
func JSON(d domain.Digest) ([]byte, error) {
	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal digest: %w", err)
	}
	return raw, nil
}

func link(item domain.NewsItem) string {
	title := escape(item.DisplayTitle())
	if item.URL == "" {
		return title
	}
	return fmt.Sprintf("[%s](%s)", title, item.URL)
}

func displaySummary(item domain.NewsItem) string {
	if item.SummaryZH != "" {
		return item.SummaryZH
	}
	return item.Summary
}

func escape(s string) string {
	return markdownEscaper.Replace(s)
}

func clip(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxMessageLen {
		return s
	}
	return string(runes[:MaxMessageLen-1]) + "…"
}
