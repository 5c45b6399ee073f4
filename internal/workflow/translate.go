package workflow

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/textgen"
)

const translateSummaryLen = 300

var quoteReplacer = strings.NewReplacer("“", "「", "”", "」")

type translateNode struct{ env }

type translateResult struct {
	ID        textgen.Number `json:"id"`
	TitleZH   string         `json:"title_zh"`
	SummaryZH string         `json:"summary_zh"`
}

type translation struct {
	title   string
	summary string
}

func (n *translateNode) Name() NodeName { return NodeTranslate }

// Apply translates majority-Latin items in batches. A failed batch is halved
// and each half retried once; items in a half that fails again stay
// untranslated.
func (n *translateNode) Apply(ctx context.Context, st *State) error {
	var pending []int
	for i, item := range st.Items {
		if needsTranslation(item) {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	var (
		mu       sync.Mutex
		done     = map[int]translation{}
		failures []error
	)
	record := func(results map[int]translation, errs []error) {
		mu.Lock()
		defer mu.Unlock()
		for pos, tr := range results {
			done[pos] = tr
		}
		failures = append(failures, errs...)
	}

	var g errgroup.Group
	g.SetLimit(n.cfg.Concurrency)
	for _, batch := range chunk(pending, n.cfg.BatchSize) {
		g.Go(func() error {
			record(n.translateWithSplit(ctx, st.Items, batch))
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range failures {
		st.Metadata.RecordFailure(string(NodeTranslate), err)
	}
	for pos, tr := range done {
		item := &st.Items[pos]
		item.TitleZH = tr.title
		item.SummaryZH = tr.summary
		if item.Translated() {
			st.Metadata.Translated++
		}
	}
	return nil
}

func (n *translateNode) translateWithSplit(ctx context.Context, items []domain.NewsItem, batch []int) (map[int]translation, []error) {
	results, err := n.call(ctx, items, batch)
	if err == nil {
		return results, nil
	}
	errs := []error{err}
	if len(batch) < 2 {
		n.logger.Warn("translate item failed", "error", err)
		return nil, errs
	}

	mid := len(batch) / 2
	n.logger.Warn("translate batch failed, splitting", "items", len(batch), "error", err)
	merged := map[int]translation{}
	for _, half := range [][]int{batch[:mid], batch[mid:]} {
		part, err := n.call(ctx, items, half)
		if err != nil {
			errs = append(errs, err)
			n.logger.Warn("translate half failed, leaving untranslated", "items", len(half), "error", err)
			continue
		}
		for pos, tr := range part {
			merged[pos] = tr
		}
	}
	return merged, errs
}

func (n *translateNode) call(ctx context.Context, items []domain.NewsItem, batch []int) (map[int]translation, error) {
	req := textgen.Request{
		Task:        string(NodeTranslate),
		Instruction: translateInstruction,
		Items: payloads(items, batch, func(item domain.NewsItem, p *textgen.Payload) {
			p.Title = item.Title
			p.Summary = truncate(item.Summary, translateSummaryLen)
		}),
	}
	results, err := textgen.Invoke[[]translateResult](ctx, n.inv, req)
	if err != nil {
		return nil, err
	}

	out := make(map[int]translation, len(results))
	for _, r := range results {
		pos, ok := resolve(batch, r.ID)
		if !ok {
			continue
		}
		tr := translation{
			title:   strings.TrimSpace(quoteReplacer.Replace(r.TitleZH)),
			summary: strings.TrimSpace(quoteReplacer.Replace(r.SummaryZH)),
		}
		item := items[pos]
		if tr.title == "" && !majorityLatin(item.Title) {
			tr.title = item.Title
		}
		if tr.summary == "" && !majorityLatin(item.Summary) {
			tr.summary = item.Summary
		}
		if tr.title != "" || tr.summary != "" {
			out[pos] = tr
		}
	}
	return out, nil
}

// needsTranslation holds when the item's text is mostly Latin letters.
func needsTranslation(item domain.NewsItem) bool {
	return majorityLatin(item.Title + " " + item.Summary)
}
