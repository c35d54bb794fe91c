package booking

import (
	"context"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/apperr"
)

// retry re-runs fn after transient store failures with exponential backoff.
// Conflicts and validation failures return immediately.
func (s *Service) retry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	delay := s.baseDelay
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil || !apperr.Retryable(err) || attempt >= s.maxAttempts {
			return err
		}
		s.metrics.ObserveRetry(op)
		s.logger.Warn("retrying booking write", "operation", op, "attempt", attempt, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}
