package jobs

import (
	"context"
	"time"

	"home-services-api/config"
	"home-services-api/services"

	"go.uber.org/zap"
)

// Reconciler re-checks payment orders the client never confirmed.
type Reconciler interface {
	ReconcilePending(ctx context.Context) (services.ReconcileReport, error)
}

// LimiterSweeper drops idle rate limiter state.
type LimiterSweeper interface {
	Cleanup(maxIdle time.Duration) int
}

// limiterIdle is how long a client key may stay silent before its bucket is dropped.
const limiterIdle = 30 * time.Minute

// RegisterDefaults schedules payment reconciliation and rate limiter cleanup.
func RegisterDefaults(s *Scheduler, cfg config.ReconcileConfig, reconciler Reconciler, limiters ...LimiterSweeper) error {
	if cfg.Schedule != "" && reconciler != nil {
		err := s.Register("payment-reconcile", cfg.Schedule, func(ctx context.Context) error {
			_, err := reconciler.ReconcilePending(ctx)
			return err
		})
		if err != nil {
			return err
		}
	}

	if len(limiters) > 0 {
		return s.Register("ratelimit-cleanup", "@every 10m", func(context.Context) error {
			dropped := 0
			for _, l := range limiters {
				dropped += l.Cleanup(limiterIdle)
			}
			if dropped > 0 {
				zap.S().Debugw("dropped idle rate limiters", "count", dropped)
			}
			return nil
		})
	}
	return nil
}
