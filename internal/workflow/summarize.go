package workflow

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/textgen"
)

const (
	topSelectionSize = 5
	minBullets       = 3
	maxBullets       = 5
	bulletWidth      = 60
)

type summarizeNode struct{ env }

func (n *summarizeNode) Name() NodeName { return NodeSummarize }

// Apply sets the top selection and the digest bullets. A failed call falls
// back to bullets built from the top selection titles.
func (n *summarizeNode) Apply(ctx context.Context, st *State) error {
	st.TopSelection = topSelection(st.Items, topSelectionSize)

	bullets, err := n.bullets(ctx, st)
	if err != nil {
		st.Metadata.RecordFailure(string(NodeSummarize), err)
		n.logger.Warn("summarize call failed, using titles", "error", err)
		bullets = fallbackBullets(st.TopSelection)
	}
	st.Bullets = bullets

	lines := make([]string, len(bullets))
	for i, b := range bullets {
		lines[i] = "- " + b
	}
	st.Summary = strings.Join(lines, "\n")
	return nil
}

func (n *summarizeNode) bullets(ctx context.Context, st *State) ([]string, error) {
	if len(st.TopSelection) == 0 {
		return []string{}, nil
	}
	req := textgen.Request{
		Task:        string(NodeSummarize),
		Instruction: summarizeInstruction(minBullets, maxBullets, bulletWidth),
		Context:     fmt.Sprintf("Items analysed today: %d\nTrends: %s", len(st.Items), strings.Join(st.Trends, ", ")),
		Items: payloads(st.TopSelection, allPositions(len(st.TopSelection)), func(item domain.NewsItem, p *textgen.Payload) {
			p.Title = item.DisplayTitle()
			p.Summary = truncate(item.Summary, 200)
			p.Category = string(item.Category)
			p.Score = item.Score
		}),
	}
	raw, err := textgen.Invoke[[]string](ctx, n.inv, req)
	if err != nil {
		return nil, err
	}
	bullets := cleanLabels(raw, maxBullets, bulletWidth)
	if len(bullets) < min(minBullets, len(st.TopSelection)) {
		return nil, fmt.Errorf("%w: %d bullets, want at least %d", textgen.ErrMalformed, len(bullets), minBullets)
	}
	return bullets, nil
}

// topSelection returns the size highest-scored items. The sort is stable so
// ties keep ingestion order; unscored items sort last.
func topSelection(items []domain.NewsItem, size int) []domain.NewsItem {
	ranked := slices.Clone(items)
	slices.SortStableFunc(ranked, byScoreDesc)
	if len(ranked) > size {
		ranked = ranked[:size]
	}
	if ranked == nil {
		ranked = []domain.NewsItem{}
	}
	return ranked
}

func fallbackBullets(top []domain.NewsItem) []string {
	out := make([]string, 0, len(top))
	for _, item := range top {
		out = append(out, truncate(strings.TrimSpace(item.DisplayTitle()), bulletWidth))
	}
	return out
}
