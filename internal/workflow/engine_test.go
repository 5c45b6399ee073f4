package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/textgen"
)

func newEngine(t *testing.T, gen textgen.Generator, cfg config.AnalysisConfig) *Engine {
	t.Helper()
	e, err := New(cfg, textgen.NewInvoker(gen, textgen.WithRetry(1, 0)), discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestRunBelowThresholdPassesThrough(t *testing.T) {
	t.Parallel()

	gen := newScripted(nil)
	items := englishItems(3)
	d, err := newEngine(t, gen, testConfig()).Run(context.Background(), items)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff(items, d.Items); diff != "" {
		t.Fatalf("pass-through changed items (-want +got):\n%s", diff)
	}
	for _, item := range d.Items {
		if item.Scored() || item.Translated() {
			t.Fatalf("pass-through item enriched: %+v", item)
		}
	}
	if d.Metadata.Mode != domain.ModePassThrough || d.Metadata.ModeReason != ReasonBelowThreshold {
		t.Fatalf("mode = %s/%s", d.Metadata.Mode, d.Metadata.ModeReason)
	}
	if len(gen.calls) != 0 {
		t.Fatalf("capability called in pass-through mode")
	}
}

func TestRunDisabledPassesThrough(t *testing.T) {
	t.Parallel()

	gen := newScripted(nil)
	cfg := testConfig(func(c *config.AnalysisConfig) { c.Enabled = false })
	d, err := newEngine(t, gen, cfg).Run(context.Background(), englishItems(8))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d.Metadata.ModeReason != ReasonDisabled || len(gen.calls) != 0 {
		t.Fatalf("disabled run enriched items: %+v", d.Metadata)
	}
}

func TestRunFullPipeline(t *testing.T) {
	t.Parallel()

	gen := newScripted(map[NodeName]handler{
		NodeFilter: func(textgen.Request) (string, error) {
			return `{"relevant_ids": ["0", "2", "3", "4", "5"]}`, nil
		},
		NodeScore: func(textgen.Request) (string, error) {
			return `[{"id":"0","score":9,"reason":"a"},{"id":"1","score":0,"reason":"b"},
				{"id":"2","score":12,"reason":"c"},{"id":"3","score":7,"reason":"d"},{"id":"4","score":4,"reason":"e"}]`, nil
		},
	})
	items := englishItems(6)
	items[5].Summary = "..."

	d, err := newEngine(t, gen, testConfig()).Run(context.Background(), items)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	inputIDs := map[string]int{}
	for i, item := range items {
		inputIDs[item.ID] = i
	}
	last := -1
	for _, item := range d.Items {
		pos, ok := inputIDs[item.ID]
		if !ok {
			t.Fatalf("output id %s not in input", item.ID)
		}
		if pos <= last {
			t.Fatalf("ingestion order not preserved")
		}
		last = pos
		if item.Score != 0 && (item.Score < domain.MinScore || item.Score > domain.MaxScore) {
			t.Fatalf("score %d out of range", item.Score)
		}
		if item.Category == "" {
			t.Fatalf("item %s left without category", item.ID)
		}
	}
	if len(d.Items) != 5 || d.Metadata.FilteredOut != 1 {
		t.Fatalf("filter result: %d items, %d removed", len(d.Items), d.Metadata.FilteredOut)
	}
	if n := runeLen(d.Items[4].Summary); n < enhancedMinLen || n > enhancedMaxLen {
		t.Fatalf("sparse summary not enhanced: %q", d.Items[4].Summary)
	}
	if d.Metadata.Mode != domain.ModeFull || d.Metadata.RunID == "" || d.Metadata.Total != 6 {
		t.Fatalf("metadata incomplete: %+v", d.Metadata)
	}
	if d.Metadata.ByCategory[domain.CategoryResearch] != 5 {
		t.Fatalf("ByCategory = %v", d.Metadata.ByCategory)
	}
	if diff := cmp.Diff([]string{"Agents", "Open weights", "Chips"}, d.Trends); diff != "" {
		t.Fatalf("trends mismatch (-want +got):\n%s", diff)
	}
	if len(d.TopSelection) != 5 || d.TopSelection[0].ID != items[0].ID {
		t.Fatalf("top selection wrong: %+v", d.TopSelection)
	}
	if d.Summary == "" || d.Metadata.Translated != 5 {
		t.Fatalf("digest incomplete: summary %q translated %d", d.Summary, d.Metadata.Translated)
	}
}

func TestRunScoreFailureDegrades(t *testing.T) {
	t.Parallel()

	gen := newScripted(map[NodeName]handler{NodeScore: failing("model overloaded")})
	d, err := newEngine(t, gen, testConfig()).Run(context.Background(), englishItems(6))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, item := range d.Items {
		if item.Scored() {
			t.Fatalf("item scored despite failing node: %+v", item)
		}
	}
	if d.Metadata.FailureCount(string(NodeScore)) != 1 {
		t.Fatalf("score failure not recorded: %+v", d.Metadata.Failures)
	}
	if len(gen.callsFor(NodeTranslate)) == 0 || len(gen.callsFor(NodeSummarize)) == 0 {
		t.Fatalf("later nodes did not run")
	}
	if len(d.Trends) != 0 || len(gen.callsFor(NodeTrends)) != 0 {
		t.Fatalf("trends ran without scored candidates")
	}
	if len(d.TopSelection) != 5 || d.Summary == "" {
		t.Fatalf("digest not produced: %+v", d)
	}
}

func TestRunUnreachableCapabilityIsFatal(t *testing.T) {
	t.Parallel()

	gen := newScripted(nil)
	gen.pingErr = errors.New("dial tcp: connection refused")
	_, err := newEngine(t, gen, testConfig()).Run(context.Background(), englishItems(6))
	if !errors.Is(err, textgen.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if len(gen.calls) != 0 {
		t.Fatalf("items processed despite unreachable capability")
	}
}

func TestRunBudgetYieldsPartialDigest(t *testing.T) {
	t.Parallel()

	gen := newScripted(map[NodeName]handler{
		NodeCategorize: func(textgen.Request) (string, error) {
			time.Sleep(30 * time.Millisecond)
			return `[]`, nil
		},
	})
	cfg := testConfig(func(c *config.AnalysisConfig) { c.RunBudget = 10 * time.Millisecond })
	d, err := newEngine(t, gen, cfg).Run(context.Background(), englishItems(6))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !d.Metadata.Partial || len(d.Metadata.Skipped) == 0 {
		t.Fatalf("expected partial run: %+v", d.Metadata)
	}
	if len(d.Items) != 6 {
		t.Fatalf("items lost on partial run: %d", len(d.Items))
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig(func(c *config.AnalysisConfig) { c.BatchSize = 0 })
	if _, err := New(cfg, nil, nil); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}
