package workflow

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/textgen"
)

const (
	maxTrendCandidates = 15
	minTrends          = 3
	maxTrends          = 5
	trendWidth         = 24
)

type trendsNode struct{ env }

func (n *trendsNode) Name() NodeName { return NodeTrends }

// Apply derives trend labels from high-scoring items. No candidates means no
// call and an empty list.
func (n *trendsNode) Apply(ctx context.Context, st *State) error {
	var candidates []domain.NewsItem
	for _, item := range st.Items {
		if item.Scored() && item.Score >= n.cfg.TrendScoreThreshold {
			candidates = append(candidates, item)
		}
	}
	st.Trends = []string{}
	if len(candidates) == 0 {
		n.logger.Info("no trend candidates", "threshold", n.cfg.TrendScoreThreshold)
		return nil
	}
	slices.SortStableFunc(candidates, byScoreDesc)
	if len(candidates) > maxTrendCandidates {
		candidates = candidates[:maxTrendCandidates]
	}

	req := textgen.Request{
		Task:        string(NodeTrends),
		Instruction: trendsInstruction(minTrends, maxTrends, trendWidth),
		Items: payloads(candidates, allPositions(len(candidates)), func(item domain.NewsItem, p *textgen.Payload) {
			p.Title = item.Title
			p.Summary = truncate(item.Summary, 200)
			p.Category = string(item.Category)
			p.Score = item.Score
		}),
	}
	labels, err := textgen.Invoke[[]string](ctx, n.inv, req)
	if err != nil {
		return fmt.Errorf("find trends: %w", err)
	}
	trends := cleanLabels(labels, maxTrends, trendWidth)
	if len(trends) > 0 && len(trends) < minTrends {
		return fmt.Errorf("find trends: %w: %d labels, want none or at least %d", textgen.ErrMalformed, len(trends), minTrends)
	}
	st.Trends = trends
	return nil
}

// cleanLabels trims list markers, drops empties and duplicates, bounds each
// label to width runes and keeps at most limit labels.
func cleanLabels(raw []string, limit, width int) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, label := range raw {
		label = truncate(strings.Join(strings.Fields(stripMarker(label)), " "), width)
		if label == "" {
			continue
		}
		key := strings.ToLower(label)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, label)
		if len(out) == limit {
			break
		}
	}
	return out
}

var numbered = regexp.MustCompile(`^\d{1,2}[.)]\s+`)

// stripMarker removes a leading list bullet or "1." style number.
func stripMarker(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "-*•# ")
	return numbered.ReplaceAllString(s, "")
}

func byScoreDesc(a, b domain.NewsItem) int {
	return b.Score - a.Score
}
