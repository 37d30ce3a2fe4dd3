package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

func fastRetrier(maxRetries int) *Retrier {
	return NewRetrierWithConfig(RetryConfig{
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsedTime:  time.Second,
	}, zerolog.Nop())
}

func TestRetrierRetriesOnRetryableError(t *testing.T) {
	for _, code := range []string{pgErrDeadlock, pgErrSerializationFailure, pgErrLockNotAvailable} {
		t.Run(code, func(t *testing.T) {
			attempts := 0
			err := fastRetrier(2).Retry(context.Background(), func() error {
				attempts++
				if attempts < 2 {
					return &pgconn.PgError{Code: code}
				}
				return nil
			})

			if err != nil {
				t.Fatalf("expected success after retry, got %v", err)
			}
			if attempts != 2 {
				t.Fatalf("expected 2 attempts, got %d", attempts)
			}
		})
	}
}

func TestRetrierStopsOnPermanentError(t *testing.T) {
	r := NewRetrier(zerolog.Nop())
	attempts := 0
	permanentErr := errors.New("permanent")

	err := r.Retry(context.Background(), func() error {
		attempts++
		return permanentErr
	})

	if !errors.Is(err, permanentErr) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestIsRetryableError(t *testing.T) {
	if !isRetryableError(&pgconn.PgError{Code: pgErrDeadlock}) {
		t.Fatalf("expected deadlock error to be retryable")
	}

	serialization := fmt.Errorf("commit: %w", &pgconn.PgError{Code: pgErrSerializationFailure})
	if !isRetryableError(serialization) {
		t.Fatalf("expected wrapped serialization failure to be retryable")
	}

	if !isRetryableError(&pgconn.PgError{Code: pgErrLockNotAvailable}) {
		t.Fatalf("expected lock timeout to be retryable")
	}

	if isRetryableError(&pgconn.PgError{Code: pgErrUniqueViolation}) {
		t.Fatalf("expected unique violation to be non-retryable")
	}

	if isRetryableError(errors.New("other")) {
		t.Fatalf("expected generic error to be non-retryable")
	}
}

func TestRetrierGivesUpAfterMaxRetries(t *testing.T) {
	attempts := 0
	err := fastRetrier(2).Retry(context.Background(), func() error {
		attempts++
		return &pgconn.PgError{Code: pgErrSerializationFailure}
	})

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("expected the last pg error, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestNewRetrierWithConfigDefaults(t *testing.T) {
	r := NewRetrierWithConfig(RetryConfig{MaxRetries: 7}, zerolog.Nop())

	def := DefaultRetryConfig()
	if r.cfg.MaxRetries != 7 {
		t.Fatalf("expected explicit max retries to be kept, got %d", r.cfg.MaxRetries)
	}
	if r.cfg.InitialInterval != def.InitialInterval || r.cfg.MaxInterval != def.MaxInterval || r.cfg.MaxElapsedTime != def.MaxElapsedTime {
		t.Fatalf("expected zero fields to use defaults, got %+v", r.cfg)
	}
}

func TestRetrierStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := fastRetrier(5).Retry(ctx, func() error {
		attempts++
		return &pgconn.PgError{Code: pgErrDeadlock}
	})

	if err == nil {
		t.Fatal("expected an error once the context is cancelled")
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}
