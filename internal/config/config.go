package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"NewsDigest/internal/domain"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "NEWSDIGEST_CONFIG"
	ledgerDSNEnv      = "LEDGER_DSN"
	llmAPIKeyEnv      = "LLM_API_KEY"
	llmModelEnv       = "LLM_MODEL"
	llmEndpointEnv    = "LLM_ENDPOINT"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	kafkaBrokersEnv   = "KAFKA_BROKERS"
)

// ErrInvalid marks configuration that must abort the process before any run.
var ErrInvalid = errors.New("invalid configuration")

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	LLM           LLMConfig          `yaml:"llm"`
	Analysis      AnalysisConfig     `yaml:"analysis"`
	Ingest        IngestConfig       `yaml:"ingest"`
	Ledger        LedgerConfig       `yaml:"ledger"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Kafka         KafkaConfig        `yaml:"kafka"`
	HTTP          HTTPConfig         `yaml:"http"`
	Sites         []SiteConfig       `yaml:"sites"`
}

// LoggingConfig selects the slog level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LLMConfig defines how to contact the text-generation endpoint.
type LLMConfig struct {
	Endpoint          string        `yaml:"endpoint"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"apiKey"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxAttempts       int           `yaml:"maxAttempts"`
	Backoff           time.Duration `yaml:"backoff"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Temperature       float64       `yaml:"temperature"`
	MaxTokens         int           `yaml:"maxTokens"`
}

// AnalysisConfig tunes the enrichment workflow.
type AnalysisConfig struct {
	Enabled             bool              `yaml:"enabled"`
	Focus               string            `yaml:"focus"`
	MinNewsForAnalysis  int               `yaml:"minNewsForAnalysis"`
	BatchSize           int               `yaml:"batchSize"`
	Concurrency         int               `yaml:"concurrency"`
	ProtectedSources    []string          `yaml:"protectedSources"`
	LenientSources      []string          `yaml:"lenientSources"`
	TrendScoreThreshold int               `yaml:"trendScoreThreshold"`
	RunBudget           time.Duration     `yaml:"runBudget"`
	SourceCategories    map[string]string `yaml:"sourceCategories"`
	KeywordCategories   []KeywordRule     `yaml:"keywordCategories"`
}

// KeywordRule files an item under Category when its title contains any keyword.
type KeywordRule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// IngestConfig bounds which fetched items are eligible for a run.
type IngestConfig struct {
	MaxAgeDays int `yaml:"maxAgeDays"`
}

// LedgerConfig describes the seen-items store.
type LedgerConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines when the daily run fires.
type SchedulerConfig struct {
	DailyTime string         `yaml:"dailyTime"`
	Timezone  string         `yaml:"timezone"`
	location  *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	return time.UTC
}

// Clock parses DailyTime into hour and minute.
func (s SchedulerConfig) Clock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s.DailyTime))
	if err != nil {
		return 0, 0, fmt.Errorf("parse daily time %q: %w", s.DailyTime, err)
	}
	return t.Hour(), t.Minute(), nil
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIBase  string `yaml:"apiBase"`
}

// Enabled reports whether both token and chat are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// KafkaConfig describes the digest event stream.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Enabled reports whether a broker and topic are configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.Topic != ""
}

// HTTPConfig configures the trigger API.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// SiteConfig describes a single site with its scanner strategy.
type SiteConfig struct {
	Name       string            `yaml:"name"`
	Scanner    string            `yaml:"scanner"`
	Categories []CategoryConfig  `yaml:"categories"`
	Options    map[string]string `yaml:"options"`
}

// CategoryConfig holds the concrete endpoints to crawl (e.g., Arxiv category URLs).
type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Load builds the configuration from defaults, the YAML file at path (or
// NEWSDIGEST_CONFIG when path is empty) and environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := Parse(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}
	if len(cfg.Sites) == 0 {
		cfg.Sites = Default().Sites
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML on top of cfg, keeping values the document leaves out.
func Parse(raw []byte, cfg *Config) error {
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(ledgerDSNEnv); v != "" {
		c.Ledger.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(llmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}

	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}

	if v := os.Getenv(llmEndpointEnv); v != "" {
		c.LLM.Endpoint = v
	}

	if v := os.Getenv(kafkaBrokersEnv); v != "" {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		c.Kafka.Brokers = brokers
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("%w: unknown timezone %q: %v", ErrInvalid, tz, err)
	}
	c.Scheduler.location = loc
	return nil
}

// Validate checks every section that can make a run impossible.
func (c Config) Validate() error {
	if err := c.Analysis.Validate(); err != nil {
		return err
	}
	switch c.Ledger.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: ledger driver %q (want sqlite or postgres)", ErrInvalid, c.Ledger.Driver)
	}
	if _, _, err := c.Scheduler.Clock(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Ingest.MaxAgeDays < 0 {
		return fmt.Errorf("%w: ingest.maxAgeDays must not be negative", ErrInvalid)
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("%w: llm.maxAttempts must be at least 1", ErrInvalid)
	}
	return nil
}

// Validate rejects thresholds the workflow cannot honour.
func (a AnalysisConfig) Validate() error {
	switch {
	case a.MinNewsForAnalysis < 0:
		return fmt.Errorf("%w: analysis.minNewsForAnalysis must not be negative", ErrInvalid)
	case a.BatchSize < 1:
		return fmt.Errorf("%w: analysis.batchSize must be at least 1", ErrInvalid)
	case a.Concurrency < 1:
		return fmt.Errorf("%w: analysis.concurrency must be at least 1", ErrInvalid)
	case a.TrendScoreThreshold < domain.MinScore || a.TrendScoreThreshold > domain.MaxScore:
		return fmt.Errorf("%w: analysis.trendScoreThreshold %d outside [%d,%d]",
			ErrInvalid, a.TrendScoreThreshold, domain.MinScore, domain.MaxScore)
	case a.RunBudget <= 0:
		return fmt.Errorf("%w: analysis.runBudget must be positive", ErrInvalid)
	}
	for source, label := range a.SourceCategories {
		if _, ok := domain.ParseCategory(label); !ok {
			return fmt.Errorf("%w: source %q maps to unknown category %q", ErrInvalid, source, label)
		}
	}
	for _, rule := range a.KeywordCategories {
		if _, ok := domain.ParseCategory(rule.Category); !ok {
			return fmt.Errorf("%w: keyword rule uses unknown category %q", ErrInvalid, rule.Category)
		}
	}
	return nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		LLM: LLMConfig{
			Endpoint:          "https://api.openai.com/v1/chat/completions",
			Model:             "gpt-4o-mini",
			Timeout:           60 * time.Second,
			MaxAttempts:       3,
			Backoff:           time.Second,
			RequestsPerSecond: 2,
			Temperature:       0.3,
			MaxTokens:         4000,
		},
		Analysis: AnalysisConfig{
			Enabled:             true,
			Focus:               "artificial intelligence, machine learning and the software around them",
			MinNewsForAnalysis:  5,
			BatchSize:           10,
			Concurrency:         3,
			TrendScoreThreshold: 7,
			RunBudget:           15 * time.Minute,
			ProtectedSources:    []string{"arXiv cs.AI"},
			LenientSources:      []string{"Hacker News", "GitHub Trending"},
		},
		Ingest:    IngestConfig{MaxAgeDays: 2},
		Ledger:    LedgerConfig{Driver: "sqlite", DSN: "file:newsdigest.db"},
		Scheduler: SchedulerConfig{DailyTime: "08:00", Timezone: defaultTimezone, location: time.UTC},
		Kafka:     KafkaConfig{Topic: "news.digests"},
		HTTP:      HTTPConfig{Addr: ":8080"},
		Sites: []SiteConfig{
			{
				Name:    "arXiv cs.AI",
				Scanner: "arxiv",
				Categories: []CategoryConfig{
					{Name: "cs.AI", URL: "https://export.arxiv.org/list/cs.AI/pastweek"},
				},
			},
		},
	}
}
