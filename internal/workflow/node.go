package workflow

import "context"

// NodeName identifies one of the fixed enrichment steps.
type NodeName string

const (
	NodeCategorize NodeName = "categorize"
	NodeFilter     NodeName = "filter"
	NodeScore      NodeName = "score"
	NodeEnhance    NodeName = "enhance"
	NodeTranslate  NodeName = "translate"
	NodeTrends     NodeName = "find_trends"
	NodeSummarize  NodeName = "summarize"
)

// Order is the sequence every full run follows.
func Order() []NodeName {
	return []NodeName{
		NodeCategorize,
		NodeFilter,
		NodeScore,
		NodeEnhance,
		NodeTranslate,
		NodeTrends,
		NodeSummarize,
	}
}

// Node transforms the state in place. A returned error discards every
// mutation the node made.
type Node interface {
	Name() NodeName
	Apply(ctx context.Context, st *State) error
}
