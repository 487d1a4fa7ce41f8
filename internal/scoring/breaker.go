package scoring

import (
	"context"
	"errors"

	"github.com/sony/gobreaker/v2"

	"github.com/fmuoria/candidate-ranker/internal/config"
	"github.com/fmuoria/candidate-ranker/internal/logging"
	"github.com/fmuoria/candidate-ranker/internal/models"
)

// BreakerScorer wraps a scorer with circuit breaker protection
type BreakerScorer struct {
	next Scorer
	cb   *gobreaker.CircuitBreaker[models.MatchResult]
}

// NewBreakerScorer wraps next in a circuit breaker. A disabled breaker returns next unchanged.
func NewBreakerScorer(next Scorer, cfg config.BreakerConfig, logger *logging.Logger) Scorer {
	if !cfg.Enabled {
		return next
	}

	settings := gobreaker.Settings{
		Name:        "candidate-scorer",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests &&
				failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"failure_threshold", cfg.FailureThreshold)
		},
		// Cancelled runs say nothing about the health of the model
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &BreakerScorer{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[models.MatchResult](settings),
	}
}

// Score forwards to the wrapped scorer unless the breaker is open
func (b *BreakerScorer) Score(ctx context.Context, candidate models.Candidate, job models.JobRequirements) (models.MatchResult, error) {
	return b.cb.Execute(func() (models.MatchResult, error) {
		return b.next.Score(ctx, candidate, job)
	})
}

// State reports the current breaker state name
func (b *BreakerScorer) State() string {
	return b.cb.State().String()
}
