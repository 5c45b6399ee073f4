package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/httpapi"
	"NewsDigest/internal/infrastructure/kafka"
	"NewsDigest/internal/infrastructure/llm"
	"NewsDigest/internal/infrastructure/parser"
	"NewsDigest/internal/infrastructure/scheduler"
	"NewsDigest/internal/infrastructure/storage"
	"NewsDigest/internal/infrastructure/telegram"
	"NewsDigest/internal/logging"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/scanner"
	"NewsDigest/internal/textgen"
	"NewsDigest/internal/usecase"
	"NewsDigest/internal/workflow"
)

const shutdownTimeout = 15 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	invoker  *textgen.Invoker
	engine   *workflow.Engine
	pipeline *usecase.Pipeline
	ledger   *storage.SQLLedger
	kafka    *kafka.Publisher
}

// New builds every adapter from cfg. The ledger is opened eagerly so a bad
// DSN fails before any run.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format, nil)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewArxivScanner(httpClient, baseLogger.With("component", "scanner.arxiv")))
	registry.Register(parser.NewHTMLScanner(httpClient, baseLogger.With("component", "scanner.html")))
	for _, site := range cfg.Sites {
		if _, err := registry.Resolve(site.Scanner); err != nil {
			return nil, fmt.Errorf("%w: site %s: %v", config.ErrInvalid, site.Name, err)
		}
	}
	source := parser.NewStrategySource(registry, cfg.Sites, cfg.Ingest.MaxAgeDays, baseLogger.With("component", "source"))

	invoker := textgen.NewInvoker(
		llm.NewChatClient(cfg.LLM, &http.Client{}),
		textgen.WithTimeout(cfg.LLM.Timeout),
		textgen.WithRetry(cfg.LLM.MaxAttempts, cfg.LLM.Backoff),
		textgen.WithRateLimit(cfg.LLM.RequestsPerSecond, 1),
		textgen.WithLogger(baseLogger.With("component", "textgen")),
	)

	engine, err := workflow.New(cfg.Analysis, invoker, baseLogger.With("component", "workflow"))
	if err != nil {
		return nil, err
	}

	ledger, err := storage.Open(ctx, cfg.Ledger.Driver, cfg.Ledger.DSN)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	a := &Application{
		cfg:     cfg,
		logger:  baseLogger,
		invoker: invoker,
		engine:  engine,
		ledger:  ledger,
	}

	var publishers []ports.DigestPublisher
	if cfg.Notifications.Telegram.Enabled() {
		publishers = append(publishers, telegram.NewNotifier(cfg.Notifications.Telegram))
	}
	if cfg.Kafka.Enabled() {
		a.kafka = kafka.NewPublisher(cfg.Kafka, baseLogger.With("component", "kafka"))
		publishers = append(publishers, a.kafka)
	}
	if len(publishers) == 0 {
		baseLogger.Warn("no publishers configured; digests are only logged")
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Ledger:     ledger,
		Analyzer:   engine,
		Publishers: publishers,
		MaxAgeDays: cfg.Ingest.MaxAgeDays,
		Logger:     baseLogger.With("component", "pipeline"),
	})
	return a, nil
}

// Ping verifies the text-generation endpoint is reachable.
func (a *Application) Ping(ctx context.Context) error {
	return a.invoker.Ping(ctx)
}

// RunOnce processes the given day. With dryRun the digest is built but not
// published and the ledger is left untouched.
func (a *Application) RunOnce(ctx context.Context, day time.Time, dryRun bool) (domain.Digest, error) {
	if dryRun {
		return a.pipeline.Preview(ctx, day)
	}
	return a.pipeline.ProcessDay(ctx, day)
}

// Serve starts the daily scheduler and the HTTP API and blocks until ctx is
// cancelled or the server fails.
func (a *Application) Serve(ctx context.Context) error {
	if a.cfg.Analysis.Enabled {
		if err := a.Ping(ctx); err != nil {
			return fmt.Errorf("startup check: %w", err)
		}
	}

	hour, minute, err := a.cfg.Scheduler.Clock()
	if err != nil {
		return err
	}
	driver := scheduler.NewDailyScheduler(hour, minute, a.cfg.Scheduler.Location(), a.logger.With("component", "scheduler"))
	sched := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	server := httpapi.New(a.cfg.HTTP.Addr, a.engine, a.logger.With("component", "http"))
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(
		err,
		server.Shutdown(stopCtx),
		sched.Stop(stopCtx),
	)
}

// Close releases the ledger and the Kafka writer.
func (a *Application) Close() error {
	var errs []error
	if a.kafka != nil {
		errs = append(errs, a.kafka.Close())
	}
	if a.ledger != nil {
		errs = append(errs, a.ledger.Close())
	}
	return errors.Join(errs...)
}
