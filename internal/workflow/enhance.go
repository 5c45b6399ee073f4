package workflow

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/textgen"
)

const (
	sparseSummaryLen = 50
	enhancedMinLen   = 80
	enhancedMaxLen   = 150
	titlePrefixLen   = 20
)

type enhanceNode struct{ env }

type enhanceResult struct {
	ID      textgen.Number `json:"id"`
	Summary string         `json:"summary"`
}

type enhanceOutcome struct {
	batch   []int
	results []enhanceResult
	err     error
}

func (n *enhanceNode) Name() NodeName { return NodeEnhance }

// Apply rewrites sparse summaries. Batches run with bounded concurrency and
// results are matched back by batch-local id.
func (n *enhanceNode) Apply(ctx context.Context, st *State) error {
	var sparse []int
	for i, item := range st.Items {
		if sparseSummary(item) {
			sparse = append(sparse, i)
		}
	}
	if len(sparse) == 0 {
		return nil
	}

	batches := chunk(sparse, n.cfg.BatchSize)
	outcomes := make([]enhanceOutcome, len(batches))
	var g errgroup.Group
	g.SetLimit(n.cfg.Concurrency)
	for i, batch := range batches {
		req := textgen.Request{
			Task:        string(NodeEnhance),
			Instruction: enhanceInstruction(enhancedMinLen, enhancedMaxLen),
			Items: payloads(st.Items, batch, func(item domain.NewsItem, p *textgen.Payload) {
				p.Title = item.Title
				p.Summary = item.Summary
				p.Source = item.Source
				p.URL = item.URL
			}),
		}
		g.Go(func() error {
			results, err := textgen.Invoke[[]enhanceResult](ctx, n.inv, req)
			outcomes[i] = enhanceOutcome{batch: batch, results: results, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for _, out := range outcomes {
		if out.err != nil {
			st.Metadata.RecordFailure(string(NodeEnhance), out.err)
			n.logger.Warn("enhance batch failed", "items", len(out.batch), "error", out.err)
			continue
		}
		for _, r := range out.results {
			pos, ok := resolve(out.batch, r.ID)
			if !ok {
				continue
			}
			summary, ok := fitBand(r.Summary)
			if !ok {
				n.logger.Warn("enhanced summary rejected", "id", st.Items[pos].ID, "length", runeLen(r.Summary))
				continue
			}
			st.Items[pos].Summary = summary
			st.Metadata.Enhanced++
		}
	}
	return nil
}

// sparseSummary holds when the summary is short, repeats the title, opens
// with the title or carries no letters or digits at all.
func sparseSummary(item domain.NewsItem) bool {
	summary := strings.TrimSpace(item.Summary)
	title := strings.TrimSpace(item.Title)
	if runeLen(summary) < sparseSummaryLen {
		return true
	}
	if strings.EqualFold(summary, title) {
		return true
	}
	if prefix := titlePrefix(title); prefix != "" && strings.HasPrefix(strings.ToLower(summary), strings.ToLower(prefix)) {
		return true
	}
	return strings.IndexFunc(summary, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) == -1
}

func titlePrefix(title string) string {
	runes := []rune(title)
	return string(runes[:min(len(runes), titlePrefixLen)])
}

// fitBand enforces the enhanced summary length band: long text is cut with
// an ellipsis, short text is rejected.
func fitBand(summary string) (string, bool) {
	summary = strings.Join(strings.Fields(summary), " ")
	summary = truncate(summary, enhancedMaxLen)
	if runeLen(summary) < enhancedMinLen {
		return "", false
	}
	return summary, true
}
