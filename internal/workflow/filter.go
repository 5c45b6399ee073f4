package workflow

import (
	"context"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/textgen"
)

type filterNode struct{ env }

type filterResult struct {
	Relevant []textgen.Number `json:"relevant_ids"`
}

func (n *filterNode) Name() NodeName { return NodeFilter }

// Apply drops items judged irrelevant. Protected sources never reach the
// capability; a failed batch keeps all of its items.
func (n *filterNode) Apply(ctx context.Context, st *State) error {
	keep := make([]bool, len(st.Items))
	var lenient, strict []int
	for i, item := range st.Items {
		switch {
		case containsFold(n.cfg.ProtectedSources, item.Source):
			keep[i] = true
		case containsFold(n.cfg.LenientSources, item.Source):
			lenient = append(lenient, i)
		default:
			strict = append(strict, i)
		}
	}

	n.judge(ctx, st, lenient, true, keep)
	n.judge(ctx, st, strict, false, keep)

	survivors := st.Items[:0:0]
	for i, item := range st.Items {
		if keep[i] {
			survivors = append(survivors, item)
		}
	}
	removed := len(st.Items) - len(survivors)
	st.Metadata.FilteredOut += removed
	st.Items = survivors
	n.logger.Info("filter applied", "kept", len(survivors), "removed", removed)
	return nil
}

func (n *filterNode) judge(ctx context.Context, st *State, positions []int, lenient bool, keep []bool) {
	for _, batch := range chunk(positions, n.cfg.BatchSize) {
		req := textgen.Request{
			Task:        string(NodeFilter),
			Instruction: filterInstruction(n.cfg.Focus, lenient),
			Items: payloads(st.Items, batch, func(item domain.NewsItem, p *textgen.Payload) {
				p.Title = item.Title
				p.Summary = truncate(item.Summary, 200)
				p.Source = item.Source
				p.Category = string(item.Category)
			}),
		}
		res, err := textgen.Invoke[filterResult](ctx, n.inv, req)
		if err != nil {
			st.Metadata.RecordFailure(string(NodeFilter), err)
			n.logger.Warn("filter batch failed, keeping items", "items", len(batch), "error", err)
			for _, pos := range batch {
				keep[pos] = true
			}
			continue
		}
		for _, id := range res.Relevant {
			if pos, ok := resolve(batch, id); ok {
				keep[pos] = true
			}
		}
	}
}
