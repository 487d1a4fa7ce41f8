package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fmuoria/candidate-ranker/internal/config"
	"github.com/fmuoria/candidate-ranker/internal/logging"
	"github.com/fmuoria/candidate-ranker/internal/metrics"
	"github.com/fmuoria/candidate-ranker/internal/models"
	"github.com/fmuoria/candidate-ranker/internal/ranking"
	"github.com/fmuoria/candidate-ranker/internal/scoring"
	"github.com/fmuoria/candidate-ranker/internal/store"
)

var (
	// ErrNoScorer is returned by ScoreCandidates when no scorer is configured
	ErrNoScorer = errors.New("no scorer configured")
	// ErrInvalidInput wraps validation failures on imported records, jobs and searches
	ErrInvalidInput = errors.New("invalid input")
)

// ProgressCallback is called to report progress during batch scoring
type ProgressCallback func(current, total int, message string)

// Options tunes batch scoring
type Options struct {
	Concurrency       int
	RequestsPerSecond float64
	MaxRetries        int
	RetryBackoff      time.Duration
}

// OptionsFromConfig maps the scoring section of the config file
func OptionsFromConfig(c config.ScoringConfig) Options {
	return Options{
		Concurrency:       c.Concurrency,
		RequestsPerSecond: c.RequestsPerSecond,
		MaxRetries:        c.MaxRetries,
		RetryBackoff:      c.RetryBackoff,
	}
}

// ScoreRun reports the outcome of a batch scoring run
type ScoreRun struct {
	Total  int `json:"total"`
	Scored int `json:"scored"`
	Failed int `json:"failed"`
}

// RankingAgent orchestrates import, scoring and ranking of candidates
type RankingAgent struct {
	repo    store.Repository
	scorer  scoring.Scorer
	limiter *rate.Limiter
	log     *logging.Logger
	metrics *metrics.Metrics
	opts    Options
	now     func() time.Time

	mu         sync.RWMutex
	progressCb ProgressCallback
}

// NewRankingAgent creates a new ranking agent. scorer may be nil, in which case
// ranking works on whatever scores are already stored.
func NewRankingAgent(repo store.Repository, scorer scoring.Scorer, opts Options, logger *logging.Logger, m *metrics.Metrics) *RankingAgent {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &RankingAgent{
		repo:    repo,
		scorer:  scorer,
		limiter: rate.NewLimiter(limit, 1),
		log:     logger.With("component", "agent"),
		metrics: m,
		opts:    opts,
		now:     time.Now,
	}
}

// SetProgressCallback sets the progress callback function
func (a *RankingAgent) SetProgressCallback(cb ProgressCallback) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.progressCb = cb
}

// reportProgress calls the progress callback if set
func (a *RankingAgent) reportProgress(current, total int, message string) {
	a.mu.RLock()
	cb := a.progressCb
	a.mu.RUnlock()

	if cb != nil {
		cb(current, total, message)
	}
}

// Import normalizes and stores parsed candidate records. Missing IDs get a UUID,
// missing status becomes new and a zero applied date becomes the import time.
// Re-importing a stored ID keeps its score, match analysis, status and applied
// date unless the incoming record sets them. Nothing is stored if any record
// fails validation.
func (a *RankingAgent) Import(ctx context.Context, candidates []models.Candidate) ([]models.Candidate, error) {
	now := a.now().UTC()
	prepared := make([]models.Candidate, len(candidates))
	seen := make(map[string]bool, len(candidates))

	for i, c := range candidates {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			c.ID = uuid.NewString()
		} else {
			stored, err := a.repo.Get(ctx, c.ID)
			switch {
			case err == nil:
				c = keepReviewState(c, stored)
			case !errors.Is(err, store.ErrNotFound):
				return nil, fmt.Errorf("failed to load candidate %s: %w", c.ID, err)
			}
		}
		if c.Status == "" {
			c.Status = models.StatusNew
		}
		if c.AppliedDate.IsZero() {
			c.AppliedDate = now
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%w: candidate %d: %v", ErrInvalidInput, i, err)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("%w: duplicate candidate id %q", ErrInvalidInput, c.ID)
		}
		seen[c.ID] = true
		prepared[i] = c
	}

	if err := a.repo.Save(ctx, prepared...); err != nil {
		return nil, fmt.Errorf("failed to save candidates: %w", err)
	}

	a.log.Info("Imported candidates", "count", len(prepared))
	return prepared, nil
}

// keepReviewState carries scoring and review fields of a stored record over to a
// re-imported one that leaves them unset
func keepReviewState(incoming, stored models.Candidate) models.Candidate {
	if incoming.OverallScore == nil && incoming.Match == nil {
		incoming.OverallScore = stored.OverallScore
		incoming.Match = stored.Match
	}
	if incoming.Status == "" {
		incoming.Status = stored.Status
	}
	if incoming.AppliedDate.IsZero() {
		incoming.AppliedDate = stored.AppliedDate
	}
	return incoming
}

// Candidate returns a stored candidate by ID
func (a *RankingAgent) Candidate(ctx context.Context, id string) (models.Candidate, error) {
	return a.repo.Get(ctx, id)
}

// UpdateStatus changes the review status of a candidate
func (a *RankingAgent) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	switch status {
	case models.StatusNew, models.StatusReviewed, models.StatusShortlisted, models.StatusRejected:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	if err := a.repo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	a.log.Info("Updated candidate status", "id", id, "status", status)
	return nil
}

// ScoreCandidates scores every stored candidate against job. Candidates that fail to
// score are logged and skipped; the run only fails on cancellation or a storage error.
func (a *RankingAgent) ScoreCandidates(ctx context.Context, job models.JobRequirements) (ScoreRun, error) {
	if a.scorer == nil {
		return ScoreRun{}, ErrNoScorer
	}
	if err := job.Validate(); err != nil {
		return ScoreRun{}, fmt.Errorf("%w: job requirements: %v", ErrInvalidInput, err)
	}

	if err := a.repo.SaveJob(ctx, job); err != nil {
		return ScoreRun{}, fmt.Errorf("failed to save job: %w", err)
	}

	candidates, err := a.repo.List(ctx)
	if err != nil {
		return ScoreRun{}, fmt.Errorf("failed to load candidates: %w", err)
	}

	total := len(candidates)
	a.log.Info("Scoring candidates", "count", total, "job", job.Title)
	a.reportProgress(0, total, fmt.Sprintf("Scoring %d candidates...", total))

	var scored, failed, done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)

	for _, c := range candidates {
		g.Go(func() error {
			match, err := a.scoreWithRetry(gctx, c, job)
			n := int(done.Add(1))
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				a.log.Warn("Failed to score candidate", "id", c.ID, "name", c.PersonalInfo.Name, "error", err)
				a.reportProgress(n, total, fmt.Sprintf("Failed %s (%d/%d)", c.PersonalInfo.Name, n, total))
				return nil
			}

			if err := a.repo.SaveMatch(gctx, c.ID, match); err != nil {
				return fmt.Errorf("failed to save match for %s: %w", c.ID, err)
			}
			scored.Add(1)
			a.reportProgress(n, total, fmt.Sprintf("Scored %s (%d/%d)", c.PersonalInfo.Name, n, total))
			return nil
		})
	}

	run := ScoreRun{Total: total}
	err = g.Wait()
	run.Scored = int(scored.Load())
	run.Failed = int(failed.Load())
	if err != nil {
		return run, err
	}

	a.log.Info("Scoring complete", "scored", run.Scored, "failed", run.Failed)
	return run, nil
}

// scoreWithRetry waits on the shared limiter and retries rate-limit errors with a
// linear backoff
func (a *RankingAgent) scoreWithRetry(ctx context.Context, c models.Candidate, job models.JobRequirements) (models.MatchResult, error) {
	var lastErr error

	for attempt := 0; attempt <= a.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := a.opts.RetryBackoff * time.Duration(attempt)
			a.log.Debug("Retrying after rate limit", "id", c.ID, "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return models.MatchResult{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := a.limiter.Wait(ctx); err != nil {
			return models.MatchResult{}, err
		}

		start := time.Now()
		match, err := a.scorer.Score(ctx, c, job)
		a.metrics.ScoringDuration.Observe(time.Since(start).Seconds())
		if err == nil {
			a.metrics.ScoringResults.WithLabelValues(metrics.OutcomeOK).Inc()
			return match, nil
		}

		a.metrics.ScoringResults.WithLabelValues(metrics.OutcomeError).Inc()
		lastErr = err
		if !isRateLimitError(err) {
			break
		}
	}

	return models.MatchResult{}, lastErr
}

// isRateLimitError checks whether the error came from LLM quota enforcement,
// reported as a gRPC ResourceExhausted status or an HTTP 429
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if status.Code(err) == codes.ResourceExhausted {
		return true
	}
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests
}

// Rank filters and orders the stored candidates
func (a *RankingAgent) Rank(ctx context.Context, criteria models.FilterCriteria, spec models.SortSpec) ([]models.RankedCandidate, models.ScoreSummary, error) {
	candidates, err := a.repo.List(ctx)
	if err != nil {
		a.metrics.RankRequests.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, models.ScoreSummary{}, fmt.Errorf("failed to load candidates: %w", err)
	}

	ranked, err := ranking.RankAndFilter(candidates, criteria, spec)
	if err != nil {
		a.metrics.RankRequests.WithLabelValues(metrics.OutcomeReject).Inc()
		return nil, models.ScoreSummary{}, err
	}

	a.metrics.RankRequests.WithLabelValues(metrics.OutcomeOK).Inc()
	a.metrics.RankedCandidates.Observe(float64(len(ranked)))
	a.log.Debug("Ranked candidates", "pool", len(candidates), "matched", len(ranked), "sort", spec.Key, "direction", spec.Direction)

	return ranking.Positions(ranked), ranking.Summarize(ranked), nil
}

// Report returns a ranked report for the current job
func (a *RankingAgent) Report(ctx context.Context, criteria models.FilterCriteria, spec models.SortSpec) (models.ReportResponse, error) {
	ranked, summary, err := a.Rank(ctx, criteria, spec)
	if err != nil {
		return models.ReportResponse{}, err
	}

	job, err := a.repo.Job(ctx)
	if err != nil {
		return models.ReportResponse{}, fmt.Errorf("failed to load job: %w", err)
	}

	return models.ReportResponse{
		Job:        job,
		Filters:    criteria,
		Sort:       spec,
		Candidates: ranked,
		Summary:    summary,
		Timestamp:  a.now().Format(time.RFC3339),
	}, nil
}

// Job returns the job of the last scoring run, or nil
func (a *RankingAgent) Job(ctx context.Context) (*models.JobRequirements, error) {
	return a.repo.Job(ctx)
}

// SaveSearch validates and stores a named search
func (a *RankingAgent) SaveSearch(ctx context.Context, search models.SavedSearch) (models.SavedSearch, error) {
	if err := search.Validate(); err != nil {
		return models.SavedSearch{}, fmt.Errorf("%w: saved search: %v", ErrInvalidInput, err)
	}
	// Reject criteria the pipeline would refuse later
	if _, err := ranking.RankAndFilter(nil, search.Filters, search.Sort); err != nil {
		return models.SavedSearch{}, err
	}

	search.ID = uuid.NewString()
	search.CreatedAt = a.now().UTC()

	if err := a.repo.SaveSearch(ctx, search); err != nil {
		return models.SavedSearch{}, fmt.Errorf("failed to save search: %w", err)
	}

	return search, nil
}

// Searches returns the saved searches in creation order
func (a *RankingAgent) Searches(ctx context.Context) ([]models.SavedSearch, error) {
	return a.repo.ListSearches(ctx)
}

// ScorerEnabled reports whether batch scoring is available
func (a *RankingAgent) ScorerEnabled() bool {
	return a.scorer != nil
}
