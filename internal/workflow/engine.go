// Package workflow is the analysis engine: it decides the run mode, then
// drives the fixed node sequence over one batch of items and produces the
// digest artifact.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/textgen"
)

// Engine runs the analysis workflow. It holds no state across runs.
type Engine struct {
	cfg    config.AnalysisConfig
	inv    *textgen.Invoker
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// New validates cfg and builds an engine calling the capability through inv.
func New(cfg config.AnalysisConfig, inv *textgen.Invoker, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("analysis engine: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		cfg:    cfg,
		inv:    inv,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}, nil
}

// Run analyses one batch. Node failures never surface here; the only errors
// are an unreachable capability in full mode or a cancelled caller context,
// both reported before any item is processed.
func (e *Engine) Run(ctx context.Context, items []domain.NewsItem) (domain.Digest, error) {
	meta := domain.RunMetadata{
		RunID:     e.newID(),
		StartedAt: e.now(),
		Total:     len(items),
	}
	decision := Decide(e.cfg, len(items))
	meta.Mode = decision.Mode
	meta.ModeReason = decision.Reason
	logger := e.logger.With("run_id", meta.RunID)

	st := newState(items, meta)
	if decision.Mode == domain.ModePassThrough {
		logger.Info("pass-through run", "items", len(items), "reason", decision.Reason)
		return e.finish(st), nil
	}

	if err := ctx.Err(); err != nil {
		return domain.Digest{}, fmt.Errorf("analysis run: %w", err)
	}
	if err := e.inv.Ping(ctx); err != nil {
		return domain.Digest{}, fmt.Errorf("analysis run: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.cfg.RunBudget)
	defer cancel()

	logger.Info("analysis run started", "items", len(items))
	st = NewSequencer(e.nodes(logger), logger).Run(runCtx, st)
	d := e.finish(st)
	logger.Info("analysis run finished",
		"items", len(d.Items),
		"filtered_out", d.Metadata.FilteredOut,
		"enhanced", d.Metadata.Enhanced,
		"translated", d.Metadata.Translated,
		"failures", len(d.Metadata.Errors),
		"partial", d.Metadata.Partial)
	return d, nil
}

func (e *Engine) nodes(logger *slog.Logger) []Node {
	shared := func(name NodeName) env {
		return env{cfg: e.cfg, inv: e.inv, logger: logger.With("node", string(name))}
	}
	return []Node{
		&categorizeNode{shared(NodeCategorize)},
		&filterNode{shared(NodeFilter)},
		&scoreNode{shared(NodeScore)},
		&enhanceNode{shared(NodeEnhance)},
		&translateNode{shared(NodeTranslate)},
		&trendsNode{shared(NodeTrends)},
		&summarizeNode{shared(NodeSummarize)},
	}
}

func (e *Engine) finish(st *State) domain.Digest {
	st.Metadata.FinishedAt = e.now()
	if st.Metadata.Mode == domain.ModeFull {
		var sum, scored int
		byCategory := map[domain.Category]int{}
		for _, item := range st.Items {
			if item.Scored() {
				sum += item.Score
				scored++
			}
			if item.Category != "" {
				byCategory[item.Category]++
			}
		}
		if scored > 0 {
			st.Metadata.AvgScore = float64(sum) / float64(scored)
		}
		if len(byCategory) > 0 {
			st.Metadata.ByCategory = byCategory
		}
	}
	return st.Digest()
}
