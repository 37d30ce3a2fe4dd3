package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/captable/internal/domain"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// StakeholderRepository defines data access for a company's ownership rows.
// Team members (founders and employees) and investors live in separate tables;
// only investors of closed rounds are loaded.
type StakeholderRepository interface {
	Load(ctx context.Context, companyID string) (*domain.StakeholderData, error)
	LoadForUpdate(ctx context.Context, tx Transaction, companyID string) (*domain.StakeholderData, error)
	Insert(ctx context.Context, tx Transaction, companyID string, entry domain.Entry) error
	SaveEquity(ctx context.Context, tx Transaction, companyID string, entries []domain.Entry) error
	Delete(ctx context.Context, tx Transaction, companyID string, entry domain.Entry) error
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

// Retrier retries an operation on transient storage failures.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// Recorder receives cap table metrics.
type Recorder interface {
	RecordOperation(operation string, duration time.Duration, err error)
	RecordNormalization(adjusted int)
}
