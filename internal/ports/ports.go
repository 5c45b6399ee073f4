package ports

import (
	"context"
	"time"

	"NewsDigest/internal/domain"
)

// NewsSource pulls fresh items from upstream providers.
type NewsSource interface {
	FetchDaily(ctx context.Context, day time.Time) ([]domain.NewsItem, error)
}

// Ledger remembers which item ids were already delivered.
type Ledger interface {
	AlreadySeen(ctx context.Context, ids []string) (map[string]bool, error)
	MarkSeen(ctx context.Context, ids []string, at time.Time) error
}

// Analyzer turns a deduplicated batch into a digest.
type Analyzer interface {
	Run(ctx context.Context, items []domain.NewsItem) (domain.Digest, error)
}

// DigestPublisher delivers a finished digest to a channel (Telegram, Kafka, etc.).
type DigestPublisher interface {
	Name() string
	Publish(ctx context.Context, digest domain.Digest) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
