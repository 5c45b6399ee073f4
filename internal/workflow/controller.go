package workflow

import (
	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
)

const (
	ReasonDisabled       = "disabled"
	ReasonBelowThreshold = "below_threshold"
)

// Decision is the single up-front choice between full enrichment and
// pass-through.
type Decision struct {
	Mode   domain.RunMode
	Reason string
}

// Decide picks the run mode for a batch of n items.
func Decide(cfg config.AnalysisConfig, n int) Decision {
	switch {
	case !cfg.Enabled:
		return Decision{Mode: domain.ModePassThrough, Reason: ReasonDisabled}
	case n < cfg.MinNewsForAnalysis:
		return Decision{Mode: domain.ModePassThrough, Reason: ReasonBelowThreshold}
	default:
		return Decision{Mode: domain.ModeFull}
	}
}
