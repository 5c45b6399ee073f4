package workflow

import (
	"context"
	"fmt"
	"strings"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/textgen"
)

type scoreNode struct{ env }

type scoreResult struct {
	ID     textgen.Number `json:"id"`
	Score  textgen.Number `json:"score"`
	Reason string         `json:"reason"`
}

func (n *scoreNode) Name() NodeName { return NodeScore }

// Apply assigns ai_score and ai_reason. Out of range scores leave the item
// unset. When every batch fails the node fails as a whole.
func (n *scoreNode) Apply(ctx context.Context, st *State) error {
	batches := chunk(allPositions(len(st.Items)), n.cfg.BatchSize)
	var failed int
	var lastErr error

	for _, batch := range batches {
		req := textgen.Request{
			Task:        string(NodeScore),
			Instruction: scoreInstruction,
			Items: payloads(st.Items, batch, func(item domain.NewsItem, p *textgen.Payload) {
				p.Title = item.Title
				p.Summary = truncate(item.Summary, 300)
				p.Source = item.Source
				p.Category = string(item.Category)
			}),
		}
		results, err := textgen.Invoke[[]scoreResult](ctx, n.inv, req)
		if err != nil {
			failed++
			lastErr = err
			st.Metadata.RecordFailure(string(NodeScore), err)
			n.logger.Warn("score batch failed", "items", len(batch), "error", err)
			continue
		}
		for _, r := range results {
			pos, ok := resolve(batch, r.ID)
			if !ok {
				continue
			}
			if !st.Items[pos].SetScore(int(r.Score), strings.TrimSpace(r.Reason)) {
				n.logger.Warn("score out of range rejected", "id", st.Items[pos].ID, "score", int(r.Score))
			}
		}
	}

	if len(batches) > 0 && failed == len(batches) {
		return fmt.Errorf("score all %d batches: %w", failed, lastErr)
	}
	n.checkVariance(st.Items)
	return nil
}

// checkVariance warns when a batch came back with one identical score.
func (n *scoreNode) checkVariance(items []domain.NewsItem) {
	seen := map[int]struct{}{}
	var scored int
	for _, item := range items {
		if item.Scored() {
			scored++
			seen[item.Score] = struct{}{}
		}
	}
	if scored > 1 && len(seen) == 1 {
		n.logger.Warn("every item received the same score", "items", scored)
	}
}
