package render

import (
	"encoding/json"
	"strings"
	"testing"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/format"
)

func sampleDigest() domain.Digest {
	top := domain.NewsItem{
		ID: "a", Title: "Open_model ships", URL: "https://example.com/a",
		Category: domain.CategoryProduct, Score: 9, Summary: "English summary", SummaryZH: "中文摘要",
	}
	other := domain.NewsItem{ID: "b", Title: "Minor update", Summary: "text"}
	return domain.Digest{
		Items:        []domain.NewsItem{top, other},
		Trends:       []string{"Agents", "Chips"},
		TopSelection: []domain.NewsItem{top, other},
		Summary:      "- First\n- Second",
		Metadata:     domain.RunMetadata{Mode: domain.ModeFull},
	}
}

func TestTextFullDigest(t *testing.T) {
	t.Parallel()

	out := Text(sampleDigest())
	for _, want := range []string{
		"(2 items)",
		"Trends: Agents · Chips",
		"- First\n- Second",
		`1. [Open\_model ships](https://example.com/a) (9/10, Product)`,
		"   中文摘要",
		"2. Minor update\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestTextPassThrough(t *testing.T) {
	t.Parallel()

	d := domain.Digest{Metadata: domain.RunMetadata{Mode: domain.ModePassThrough, ModeReason: "below_threshold"}}
	for i := 0; i < 12; i++ {
		d.Items = append(d.Items, domain.NewsItem{Title: "Item"})
	}
	out := Text(d)
	if !strings.Contains(out, "analysis skipped: below threshold") || !strings.Contains(out, "…and 2 more") {
		t.Fatalf("unexpected pass-through text:\n%s", out)
	}
}

func TestTextClipsLongDigest(t *testing.T) {
	t.Parallel()

	d := sampleDigest()
	d.Summary = strings.Repeat("x", MaxMessageLen*2)
	if n := len([]rune(Text(d))); n > MaxMessageLen {
		t.Fatalf("rendered %d runes, limit %d", n, MaxMessageLen)
	}
}

func TestTopTable(t *testing.T) {
	t.Parallel()

	out := TopTable(sampleDigest(), format.ASCII)
	if !strings.Contains(out, "Open_model ships") || !strings.Contains(out, "Minor update") {
		t.Fatalf("table misses rows:\n%s", out)
	}
}

func TestJSONUsesWireNames(t *testing.T) {
	t.Parallel()

	raw, err := JSON(sampleDigest())
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"items", "trends", "top_selection", "digest_summary", "run_metadata"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
}
