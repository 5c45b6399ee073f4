package workflow

import "NewsDigest/internal/domain"

// State is the unit passed between nodes during one run. Items keep
// ingestion order; only Summarize derives a reordered TopSelection.
type State struct {
	Items        []domain.NewsItem
	Trends       []string
	TopSelection []domain.NewsItem
	Summary      string
	Bullets      []string
	Metadata     domain.RunMetadata
}

func newState(items []domain.NewsItem, meta domain.RunMetadata) *State {
	return &State{
		Items:        append([]domain.NewsItem(nil), items...),
		Trends:       []string{},
		TopSelection: []domain.NewsItem{},
		Metadata:     meta,
	}
}

// Clone returns a deep copy. NewsItem holds only value fields, so copying the
// slices is enough to isolate a node's work from its input.
func (s *State) Clone() *State {
	return &State{
		Items:        append([]domain.NewsItem(nil), s.Items...),
		Trends:       append([]string(nil), s.Trends...),
		TopSelection: append([]domain.NewsItem(nil), s.TopSelection...),
		Summary:      s.Summary,
		Bullets:      append([]string(nil), s.Bullets...),
		Metadata:     s.Metadata.Clone(),
	}
}

// Digest converts the state into the artifact handed to renderers.
func (s *State) Digest() domain.Digest {
	d := domain.Digest{
		Items:        append([]domain.NewsItem{}, s.Items...),
		Trends:       append([]string{}, s.Trends...),
		TopSelection: append([]domain.NewsItem{}, s.TopSelection...),
		Summary:      s.Summary,
		Bullets:      append([]string(nil), s.Bullets...),
		Metadata:     s.Metadata.Clone(),
	}
	return d
}
