package workflow

import (
	"context"
	"strings"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/textgen"
)

type categorizeNode struct{ env }

type categoryResult struct {
	ID       textgen.Number `json:"id"`
	Category string         `json:"category"`
}

func (n *categorizeNode) Name() NodeName { return NodeCategorize }

// Apply gives every item exactly one category. Failed batches and unknown
// labels fall back to domain.FallbackCategory; configured source and keyword
// rules override the model afterwards.
func (n *categorizeNode) Apply(ctx context.Context, st *State) error {
	assigned := make([]domain.Category, len(st.Items))

	for _, batch := range chunk(allPositions(len(st.Items)), n.cfg.BatchSize) {
		req := textgen.Request{
			Task:        string(NodeCategorize),
			Instruction: categorizeInstruction(),
			Items: payloads(st.Items, batch, func(item domain.NewsItem, p *textgen.Payload) {
				p.Title = item.Title
				p.Summary = truncate(item.Summary, 200)
				p.Source = item.Source
			}),
		}
		results, err := textgen.Invoke[[]categoryResult](ctx, n.inv, req)
		if err != nil {
			st.Metadata.RecordFailure(string(NodeCategorize), err)
			n.logger.Warn("categorize batch failed, using fallback", "items", len(batch), "error", err)
			continue
		}
		for _, r := range results {
			pos, ok := resolve(batch, r.ID)
			if !ok {
				continue
			}
			if c, ok := domain.ParseCategory(r.Category); ok {
				assigned[pos] = c
			} else {
				n.logger.Debug("unknown category label", "label", r.Category)
			}
		}
	}

	for i := range st.Items {
		c := assigned[i]
		if forced, ok := n.ruleCategory(st.Items[i]); ok {
			c = forced
		}
		if c == "" {
			c = domain.FallbackCategory
		}
		st.Items[i].Category = c
	}
	return nil
}

// ruleCategory applies the source map first, then keyword rules in order.
func (n *categorizeNode) ruleCategory(item domain.NewsItem) (domain.Category, bool) {
	for source, label := range n.cfg.SourceCategories {
		if strings.EqualFold(strings.TrimSpace(source), strings.TrimSpace(item.Source)) {
			if c, ok := domain.ParseCategory(label); ok {
				return c, true
			}
		}
	}
	title := strings.ToLower(item.Title)
	for _, rule := range n.cfg.KeywordCategories {
		c, ok := domain.ParseCategory(rule.Category)
		if !ok {
			continue
		}
		for _, kw := range rule.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" && strings.Contains(title, kw) {
				return c, true
			}
		}
	}
	return "", false
}
