// Package dbretry runs gorm transactions with bounded exponential backoff on
// transient storage failures.
package dbretry

import (
	"context"
	"errors"
	"strings"
	"time"

	"forum_backend/internal/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Policy bounds the retry loop. The zero value is not usable; start from
// DefaultPolicy.
type Policy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

var DefaultPolicy = Policy{
	MaxRetries:      5,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     2 * time.Second,
	MaxElapsedTime:  10 * time.Second,
}

// WithMaxRetries returns a copy of p with the retry count replaced.
func (p Policy) WithMaxRetries(n int) Policy {
	if n > 0 {
		p.MaxRetries = uint64(n)
	}
	return p
}

// retryableCodes are the Postgres SQLSTATEs worth replaying a whole
// transaction for.
var retryableCodes = map[string]struct{}{
	"08000": {}, // connection_exception
	"08003": {}, // connection_does_not_exist
	"08006": {}, // connection_failure
	"08001": {}, // sqlclient_unable_to_establish_sqlconnection
	"08004": {}, // sqlserver_rejected_establishment_of_sqlconnection
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"53300": {}, // too_many_connections
	"55P03": {}, // lock_not_available
	"57P01": {}, // admin_shutdown
	"57P03": {}, // cannot_connect_now
}

// IsRetryableError reports whether err is a transient storage failure.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		_, ok := retryableCodes[pgErr.Code]
		return ok
	}

	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection refused")
}

// Transaction runs fn inside db.Transaction, replaying the whole transaction
// when it fails with a retryable error. Any other error (including AppErrors
// returned by fn) stops immediately and is returned unchanged.
func Transaction(ctx context.Context, db *gorm.DB, policy Policy, operation string, fn func(tx *gorm.DB) error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(policy.InitialInterval),
		backoff.WithMaxInterval(policy.MaxInterval),
		backoff.WithMaxElapsedTime(policy.MaxElapsedTime),
	), policy.MaxRetries), ctx)

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}
		if !IsRetryableError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)

	logger.TxLog(operation, attempts, err)
	return err
}
