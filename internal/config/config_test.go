package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
llm:
  model: test-model
  timeout: 15s
analysis:
  enabled: false
  minNewsForAnalysis: 8
  protectedSources: ["Lab Blog"]
  sourceCategories:
    Lab Blog: research
scheduler:
  dailyTime: "07:30"
  timezone: Europe/Berlin
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("LLM_API_KEY", "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "test-model" || cfg.LLM.Timeout != 15*time.Second {
		t.Fatalf("llm section not merged: %+v", cfg.LLM)
	}
	if cfg.LLM.APIKey != "secret" {
		t.Fatalf("env override ignored: %q", cfg.LLM.APIKey)
	}
	if cfg.Analysis.Enabled || cfg.Analysis.MinNewsForAnalysis != 8 {
		t.Fatalf("analysis section not merged: %+v", cfg.Analysis)
	}
	if cfg.Analysis.BatchSize != 10 {
		t.Fatalf("default batch size lost: %d", cfg.Analysis.BatchSize)
	}
	if diff := cmp.Diff([]string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers); diff != "" {
		t.Fatalf("brokers mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.Scheduler.Location().String(); got != "Europe/Berlin" {
		t.Fatalf("timezone = %s", got)
	}
	hour, minute, err := cfg.Scheduler.Clock()
	if err != nil || hour != 7 || minute != 30 {
		t.Fatalf("Clock = %d:%d, %v", hour, minute, err)
	}
}

func TestLoadMissingFileIsFatal(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("scheduler:\n  timezone: Mars/Olympus\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestAnalysisValidate(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*AnalysisConfig){
		"negative threshold": func(a *AnalysisConfig) { a.MinNewsForAnalysis = -1 },
		"zero batch":         func(a *AnalysisConfig) { a.BatchSize = 0 },
		"zero concurrency":   func(a *AnalysisConfig) { a.Concurrency = 0 },
		"trend threshold":    func(a *AnalysisConfig) { a.TrendScoreThreshold = 11 },
		"run budget":         func(a *AnalysisConfig) { a.RunBudget = 0 },
		"source category":    func(a *AnalysisConfig) { a.SourceCategories = map[string]string{"x": "Gossip"} },
		"keyword category": func(a *AnalysisConfig) {
			a.KeywordCategories = []KeywordRule{{Category: "Gossip", Keywords: []string{"x"}}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			a := Default().Analysis
			mutate(&a)
			if err := a.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
