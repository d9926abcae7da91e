package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/lib/pq"

	"reservation-engine/internal/domain"
	"reservation-engine/internal/logger"
)

// RetryPolicy retries transient storage failures with exponential backoff.
// Once retries are exhausted the error is reported as domain.ErrUnavailable.
type RetryPolicy struct {
	MaxRetries  int
	BaseBackoff time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseBackoff: 50 * time.Millisecond}
}

func (p RetryPolicy) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := p.BaseBackoff << (attempt - 1)
			logger.Warn("Transient storage failure, retrying",
				"operation", operation, "attempt", attempt, "backoff", backoff, "error", err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return fmt.Errorf("%s: %w", operation, domain.ErrUnavailable)
			}
		}

		err = fn(ctx)
		if err == nil || !isTransient(err) {
			return err
		}
	}
	logger.Error("Storage retries exhausted", "operation", operation, "attempts", p.MaxRetries+1, "error", err)
	return fmt.Errorf("%s: %w (%v)", operation, domain.ErrUnavailable, err)
}

// isTransient reports whether err is a connection-level or contention failure
// that a fresh attempt may not hit.
func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", // connection exception
			"40", // serialization failure, deadlock detected
			"53": // insufficient resources
			return true
		}
		return pqErr.Code == "57P01" || pqErr.Code == "57P03" // admin shutdown, cannot connect now
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
