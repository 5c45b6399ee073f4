package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/textgen"
)

type handler func(req textgen.Request) (string, error)

// scripted is a Generator answering per task and recording every request.
type scripted struct {
	mu       sync.Mutex
	calls    []textgen.Request
	handlers map[string]handler
	pingErr  error
}

func newScripted(overrides map[NodeName]handler) *scripted {
	s := &scripted{handlers: map[string]handler{
		string(NodeCategorize): answerEach(func(id int, _ textgen.Payload) any {
			return map[string]any{"id": strconv.Itoa(id), "category": "Research"}
		}),
		string(NodeFilter): func(req textgen.Request) (string, error) {
			ids := make([]string, len(req.Items))
			for i, p := range req.Items {
				ids[i] = p.ID
			}
			return marshal(map[string]any{"relevant_ids": ids})
		},
		string(NodeScore): answerEach(func(id int, _ textgen.Payload) any {
			return map[string]any{"id": strconv.Itoa(id), "score": 10 - id%10, "reason": "rubric"}
		}),
		string(NodeEnhance): answerEach(func(id int, p textgen.Payload) any {
			return map[string]any{"id": strconv.Itoa(id), "summary": longText(100)}
		}),
		string(NodeTranslate): answerEach(func(id int, p textgen.Payload) any {
			return map[string]any{"id": strconv.Itoa(id), "title_zh": "标题" + p.Title, "summary_zh": "摘要"}
		}),
		string(NodeTrends): func(textgen.Request) (string, error) {
			return `["Agents", "Open weights", "Chips"]`, nil
		},
		string(NodeSummarize): func(textgen.Request) (string, error) {
			return `["First point", "Second point", "Third point"]`, nil
		},
	}}
	for name, h := range overrides {
		s.handlers[string(name)] = h
	}
	return s
}

func (s *scripted) Generate(_ context.Context, req textgen.Request) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	h := s.handlers[req.Task]
	s.mu.Unlock()
	if h == nil {
		return "", fmt.Errorf("no handler for task %q", req.Task)
	}
	return h(req)
}

func (s *scripted) Ping(context.Context) error { return s.pingErr }

func (s *scripted) callsFor(name NodeName) []textgen.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []textgen.Request
	for _, c := range s.calls {
		if c.Task == string(name) {
			out = append(out, c)
		}
	}
	return out
}

func answerEach(fn func(id int, p textgen.Payload) any) handler {
	return func(req textgen.Request) (string, error) {
		out := make([]any, len(req.Items))
		for i, p := range req.Items {
			id, err := strconv.Atoi(p.ID)
			if err != nil {
				return "", err
			}
			out[i] = fn(id, p)
		}
		return marshal(out)
	}
}

func failing(msg string) handler {
	return func(textgen.Request) (string, error) { return "", errors.New(msg) }
}

func marshal(v any) (string, error) {
	raw, err := json.Marshal(v)
	return string(raw), err
}

func longText(n int) string {
	var b strings.Builder
	for b.Len() < n {
		b.WriteString("word ")
	}
	return strings.TrimSpace(b.String()[:n])
}

func testConfig(mutate ...func(*config.AnalysisConfig)) config.AnalysisConfig {
	cfg := config.Default().Analysis
	cfg.Concurrency = 1
	cfg.ProtectedSources = nil
	cfg.LenientSources = nil
	for _, m := range mutate {
		m(&cfg)
	}
	return cfg
}

func testEnv(gen textgen.Generator, cfg config.AnalysisConfig) env {
	return env{
		cfg:    cfg,
		inv:    textgen.NewInvoker(gen, textgen.WithRetry(1, 0)),
		logger: discard(),
	}
}

func newItem(n int, title, summary, source string) domain.NewsItem {
	published := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return domain.NewNewsItem(title, summary, fmt.Sprintf("https://news.example.com/%d", n), source, published)
}

func englishItems(n int) []domain.NewsItem {
	items := make([]domain.NewsItem, n)
	for i := range items {
		items[i] = newItem(i,
			fmt.Sprintf("Story %d about a new open model release", i),
			"A research lab released an open model with strong results on reasoning benchmarks today.",
			"Daily News")
	}
	return items
}

func stateOf(items []domain.NewsItem) *State {
	return newState(items, domain.RunMetadata{Total: len(items), Mode: domain.ModeFull})
}

func titles(reqs []textgen.Request) []string {
	var out []string
	for _, r := range reqs {
		for _, p := range r.Items {
			out = append(out, p.Title)
		}
	}
	return out
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
