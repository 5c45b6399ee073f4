package domain

import "time"

// RunMode tells the renderer how much enrichment a digest went through.
type RunMode string

const (
	ModeFull        RunMode = "full"
	ModePassThrough RunMode = "pass_through"
)

// NodeError is one recorded node-level failure.
type NodeError struct {
	Node  string `json:"node"`
	Error string `json:"error"`
}

// RunMetadata carries the counters of a single analysis run.
type RunMetadata struct {
	RunID      string    `json:"run_id"`
	Mode       RunMode   `json:"mode"`
	ModeReason string    `json:"mode_reason,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Total       int `json:"total"`
	FilteredOut int `json:"filtered_out"`
	Enhanced    int `json:"enhanced"`
	Translated  int `json:"translated"`

	Failures   map[string]int   `json:"failures,omitempty"`
	Errors     []NodeError      `json:"errors,omitempty"`
	Skipped    []string         `json:"skipped,omitempty"`
	Partial    bool             `json:"partial,omitempty"`
	AvgScore   float64          `json:"avg_score,omitempty"`
	ByCategory map[Category]int `json:"by_category,omitempty"`
}

// RecordFailure counts one failure against node and keeps its message.
func (m *RunMetadata) RecordFailure(node string, err error) {
	if m.Failures == nil {
		m.Failures = map[string]int{}
	}
	m.Failures[node]++
	if err != nil {
		m.Errors = append(m.Errors, NodeError{Node: node, Error: err.Error()})
	}
}

// FailureCount returns how many failures were recorded for node.
func (m RunMetadata) FailureCount(node string) int {
	return m.Failures[node]
}

// Clone returns a deep copy so a failed node cannot leak mutations.
func (m RunMetadata) Clone() RunMetadata {
	out := m
	if m.Failures != nil {
		out.Failures = make(map[string]int, len(m.Failures))
		for k, v := range m.Failures {
			out.Failures[k] = v
		}
	}
	if m.ByCategory != nil {
		out.ByCategory = make(map[Category]int, len(m.ByCategory))
		for k, v := range m.ByCategory {
			out.ByCategory[k] = v
		}
	}
	out.Errors = append([]NodeError(nil), m.Errors...)
	out.Skipped = append([]string(nil), m.Skipped...)
	return out
}

// Digest is the run-level artifact handed to renderers and publishers.
type Digest struct {
	Items        []NewsItem  `json:"items"`
	Trends       []string    `json:"trends"`
	TopSelection []NewsItem  `json:"top_selection"`
	Summary      string      `json:"digest_summary"`
	Bullets      []string    `json:"bullets,omitempty"`
	Metadata     RunMetadata `json:"run_metadata"`
}

// IDs lists item ids in digest order.
func (d Digest) IDs() []string {
	ids := make([]string, len(d.Items))
	for i, item := range d.Items {
		ids[i] = item.ID
	}
	return ids
}
