package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fmuoria/candidate-ranker/internal/logging"
	"github.com/fmuoria/candidate-ranker/internal/metrics"
	"github.com/fmuoria/candidate-ranker/internal/models"
	"github.com/fmuoria/candidate-ranker/internal/ranking"
	"github.com/fmuoria/candidate-ranker/internal/store"
)

var fixedNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type funcScorer struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(c models.Candidate, attempt int) (models.MatchResult, error)
}

func (f *funcScorer) Score(ctx context.Context, c models.Candidate, job models.JobRequirements) (models.MatchResult, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[c.ID]++
	attempt := f.calls[c.ID]
	f.mu.Unlock()
	return f.fn(c, attempt)
}

func (f *funcScorer) callsFor(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func newTestAgent(t *testing.T, scorer *funcScorer) (*RankingAgent, *metrics.Metrics) {
	t.Helper()
	return newTestAgentAt(t, filepath.Join(t.TempDir(), "candidates.json"), scorer)
}

// newTestAgentAt builds an agent over the file store at path, so a second agent
// on the same path sees what the first one persisted
func newTestAgentAt(t *testing.T, path string, scorer *funcScorer) (*RankingAgent, *metrics.Metrics) {
	t.Helper()

	repo, err := store.NewFileStore(path)
	require.NoError(t, err)

	m := metrics.New()
	opts := Options{Concurrency: 2, MaxRetries: 2, RetryBackoff: time.Millisecond}

	var a *RankingAgent
	if scorer == nil {
		a = NewRankingAgent(repo, nil, opts, logging.Nop(), m)
	} else {
		a = NewRankingAgent(repo, scorer, opts, logging.Nop(), m)
	}
	a.now = func() time.Time { return fixedNow }
	return a, m
}

func seed(t *testing.T, a *RankingAgent) {
	t.Helper()
	_, err := a.Import(context.Background(), []models.Candidate{
		{ID: "ann", PersonalInfo: models.PersonalInfo{Name: "Ann"}, Skills: models.Skills{Technical: []string{"Go"}}},
		{ID: "bob", PersonalInfo: models.PersonalInfo{Name: "Bob"}, Skills: models.Skills{Technical: []string{"Java"}}},
		{ID: "cat", PersonalInfo: models.PersonalInfo{Name: "Cat"}, Skills: models.Skills{Technical: []string{"Go", "SQL"}}},
	})
	require.NoError(t, err)
}

var testJob = models.JobRequirements{Title: "Backend Engineer", RequiredSkills: []string{"Go"}}

// TestIsRateLimitError tests the rate limit error detection
func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "Nil error", err: nil, expected: false},
		{name: "ResourceExhausted status", err: status.Error(codes.ResourceExhausted, "quota exceeded"), expected: true},
		{name: "Wrapped ResourceExhausted status", err: fmt.Errorf("failed to get LLM response: %w", status.Error(codes.ResourceExhausted, "quota exceeded")), expected: true},
		{name: "HTTP 429 error", err: &googleapi.Error{Code: http.StatusTooManyRequests}, expected: true},
		{name: "Other status", err: status.Error(codes.InvalidArgument, "bad prompt"), expected: false},
		{name: "Other HTTP error", err: &googleapi.Error{Code: http.StatusInternalServerError}, expected: false},
		{name: "Other error", err: errors.New("connection timeout"), expected: false},
		{name: "429 in response text", err: errors.New("failed to parse match: candidate phone 555-0429 rate limit quota"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRateLimitError(tt.err))
		})
	}
}

func TestImport_AppliesDefaults(t *testing.T) {
	a, _ := newTestAgent(t, nil)
	applied := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	got, err := a.Import(context.Background(), []models.Candidate{
		{PersonalInfo: models.PersonalInfo{Name: "No ID"}},
		{ID: "kept", Status: models.StatusReviewed, AppliedDate: applied},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.NotEmpty(t, got[0].ID)
	assert.Equal(t, models.StatusNew, got[0].Status)
	assert.Equal(t, fixedNow, got[0].AppliedDate)

	assert.Equal(t, "kept", got[1].ID)
	assert.Equal(t, models.StatusReviewed, got[1].Status)
	assert.Equal(t, applied, got[1].AppliedDate)

	stored, err := a.Candidate(context.Background(), got[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "No ID", stored.PersonalInfo.Name)
}

func TestImport_RejectsInvalidWithoutSaving(t *testing.T) {
	tests := []struct {
		name       string
		candidates []models.Candidate
	}{
		{name: "bad level", candidates: []models.Candidate{{ID: "a"}, {ID: "b", ExperienceLevel: "guru"}}},
		{name: "negative experience", candidates: []models.Candidate{{ID: "a", ExperienceYears: -1}}},
		{name: "score out of range", candidates: []models.Candidate{{ID: "a", OverallScore: models.Float(101)}}},
		{name: "duplicate id", candidates: []models.Candidate{{ID: "a"}, {ID: "a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestAgent(t, nil)

			_, err := a.Import(context.Background(), tt.candidates)
			assert.ErrorIs(t, err, ErrInvalidInput)

			_, err = a.Candidate(context.Background(), "a")
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestScoreCandidates_NoScorer(t *testing.T) {
	a, _ := newTestAgent(t, nil)

	_, err := a.ScoreCandidates(context.Background(), testJob)
	assert.ErrorIs(t, err, ErrNoScorer)
	assert.False(t, a.ScorerEnabled())
}

func TestScoreCandidates_InvalidJob(t *testing.T) {
	a, _ := newTestAgent(t, &funcScorer{fn: func(models.Candidate, int) (models.MatchResult, error) {
		return models.MatchResult{}, nil
	}})

	_, err := a.ScoreCandidates(context.Background(), models.JobRequirements{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestScoreCandidates_SkipsFailures(t *testing.T) {
	scorer := &funcScorer{fn: func(c models.Candidate, attempt int) (models.MatchResult, error) {
		switch c.ID {
		case "ann":
			return models.MatchResult{OverallScore: 91}, nil
		case "cat":
			return models.MatchResult{OverallScore: 72}, nil
		default:
			return models.MatchResult{}, errors.New("malformed response")
		}
	}}
	a, m := newTestAgent(t, scorer)
	seed(t, a)

	var mu sync.Mutex
	var progress []int
	a.SetProgressCallback(func(current, total int, message string) {
		mu.Lock()
		defer mu.Unlock()
		progress = append(progress, current)
		assert.Equal(t, 3, total)
	})

	run, err := a.ScoreCandidates(context.Background(), testJob)
	require.NoError(t, err)
	assert.Equal(t, ScoreRun{Total: 3, Scored: 2, Failed: 1}, run)
	assert.Equal(t, 1, scorer.callsFor("bob"), "non rate-limit errors are not retried")
	assert.Len(t, progress, 4)

	ann, err := a.Candidate(context.Background(), "ann")
	require.NoError(t, err)
	score, ok := ann.Score()
	assert.True(t, ok)
	assert.Equal(t, 91.0, score)

	bob, err := a.Candidate(context.Background(), "bob")
	require.NoError(t, err)
	_, ok = bob.Score()
	assert.False(t, ok)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ScoringResults.WithLabelValues(metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScoringResults.WithLabelValues(metrics.OutcomeError)))

	job, err := a.Job(context.Background())
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "Backend Engineer", job.Title)
}

func TestScoreCandidates_RetriesRateLimits(t *testing.T) {
	scorer := &funcScorer{fn: func(c models.Candidate, attempt int) (models.MatchResult, error) {
		if c.ID == "bob" {
			return models.MatchResult{}, status.Error(codes.ResourceExhausted, "quota exceeded")
		}
		if attempt < 3 {
			return models.MatchResult{}, &googleapi.Error{Code: http.StatusTooManyRequests, Message: "Too Many Requests"}
		}
		return models.MatchResult{OverallScore: 60}, nil
	}}
	a, _ := newTestAgent(t, scorer)
	seed(t, a)

	run, err := a.ScoreCandidates(context.Background(), testJob)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Scored)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, 3, scorer.callsFor("ann"))
	assert.Equal(t, 3, scorer.callsFor("bob"), "gives up after MaxRetries retries")
}

func TestScoreCandidates_Cancelled(t *testing.T) {
	scorer := &funcScorer{fn: func(models.Candidate, int) (models.MatchResult, error) {
		return models.MatchResult{OverallScore: 50}, nil
	}}
	a, _ := newTestAgent(t, scorer)
	seed(t, a)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.ScoreCandidates(ctx, testJob)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRank(t *testing.T) {
	scorer := &funcScorer{fn: func(c models.Candidate, attempt int) (models.MatchResult, error) {
		scores := map[string]float64{"ann": 80, "bob": 40, "cat": 95}
		return models.MatchResult{OverallScore: scores[c.ID]}, nil
	}}
	a, m := newTestAgent(t, scorer)
	seed(t, a)
	_, err := a.ScoreCandidates(context.Background(), testJob)
	require.NoError(t, err)

	ranked, summary, err := a.Rank(context.Background(),
		models.FilterCriteria{Skills: []string{"go"}},
		models.DefaultSortSpec())
	require.NoError(t, err)

	require.Len(t, ranked, 2)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, "cat", ranked[0].Candidate.ID)
	assert.Equal(t, "ann", ranked[1].Candidate.ID)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Excellent)
	assert.Equal(t, 1, summary.Good)

	_, _, err = a.Rank(context.Background(), models.FilterCriteria{}, models.SortSpec{Key: "salary", Direction: models.Ascending})
	assert.ErrorIs(t, err, ranking.ErrInvalidSortKey)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RankRequests.WithLabelValues(metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RankRequests.WithLabelValues(metrics.OutcomeReject)))
}

func TestReport(t *testing.T) {
	a, _ := newTestAgent(t, nil)
	seed(t, a)

	report, err := a.Report(context.Background(), models.FilterCriteria{}, models.SortSpec{Key: models.SortByName, Direction: models.Ascending})
	require.NoError(t, err)

	assert.Nil(t, report.Job)
	assert.Len(t, report.Candidates, 3)
	assert.Equal(t, "Ann", report.Candidates[0].Candidate.PersonalInfo.Name)
	assert.Equal(t, fixedNow.Format(time.RFC3339), report.Timestamp)
	assert.Equal(t, 0, report.Summary.Scored)
}

func TestUpdateStatus(t *testing.T) {
	a, _ := newTestAgent(t, nil)
	seed(t, a)
	ctx := context.Background()

	require.NoError(t, a.UpdateStatus(ctx, "bob", models.StatusShortlisted))
	bob, err := a.Candidate(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.StatusShortlisted, bob.Status)

	assert.ErrorIs(t, a.UpdateStatus(ctx, "bob", "hired"), ErrInvalidInput)
	assert.ErrorIs(t, a.UpdateStatus(ctx, "zed", models.StatusRejected), store.ErrNotFound)
}

func TestSaveSearch(t *testing.T) {
	a, _ := newTestAgent(t, nil)

	ctx := context.Background()

	saved, err := a.SaveSearch(ctx, models.SavedSearch{
		Name:    "Senior Go",
		Filters: models.FilterCriteria{ExperienceLevel: models.LevelSenior, Skills: []string{"Go"}},
		Sort:    models.DefaultSortSpec(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, fixedNow, saved.CreatedAt)

	_, err = a.SaveSearch(ctx, models.SavedSearch{Sort: models.DefaultSortSpec()})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = a.SaveSearch(ctx, models.SavedSearch{Name: "bad", Sort: models.SortSpec{Key: models.SortByScore, Direction: "up"}})
	assert.ErrorIs(t, err, ranking.ErrInvalidSortDirection)

	_, err = a.SaveSearch(ctx, models.SavedSearch{Name: "bad bounds", Filters: models.FilterCriteria{MinScore: models.Float(80), MaxScore: models.Float(20)}, Sort: models.DefaultSortSpec()})
	assert.ErrorIs(t, err, ranking.ErrInvalidScoreBounds)

	searches, err := a.Searches(ctx)
	require.NoError(t, err)
	require.Len(t, searches, 1)
	assert.Equal(t, "Senior Go", searches[0].Name)
}

func TestImport_ReimportKeepsReviewState(t *testing.T) {
	scorer := &funcScorer{fn: func(models.Candidate, int) (models.MatchResult, error) {
		return models.MatchResult{OverallScore: 91, FitLevel: "excellent"}, nil
	}}
	a, _ := newTestAgent(t, scorer)
	ctx := context.Background()
	applied := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)

	_, err := a.Import(ctx, []models.Candidate{{ID: "c1", PersonalInfo: models.PersonalInfo{Name: "First"}, AppliedDate: applied}})
	require.NoError(t, err)
	_, err = a.ScoreCandidates(ctx, testJob)
	require.NoError(t, err)
	require.NoError(t, a.UpdateStatus(ctx, "c1", models.StatusShortlisted))

	got, err := a.Import(ctx, []models.Candidate{{ID: "c1", PersonalInfo: models.PersonalInfo{Name: "Renamed"}}})
	require.NoError(t, err)
	require.Len(t, got, 1)

	stored, err := a.Candidate(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.PersonalInfo.Name)
	assert.Equal(t, models.StatusShortlisted, stored.Status)
	assert.Equal(t, applied, stored.AppliedDate)
	score, ok := stored.Score()
	assert.True(t, ok)
	assert.Equal(t, 91.0, score)
	require.NotNil(t, stored.Match)
	assert.Equal(t, "excellent", stored.Match.FitLevel)
}

func TestImport_ReimportExplicitFieldsWin(t *testing.T) {
	a, _ := newTestAgent(t, nil)
	ctx := context.Background()

	_, err := a.Import(ctx, []models.Candidate{{ID: "c1", Status: models.StatusShortlisted, OverallScore: models.Float(40)}})
	require.NoError(t, err)

	_, err = a.Import(ctx, []models.Candidate{{ID: "c1", Status: models.StatusRejected, OverallScore: models.Float(65)}})
	require.NoError(t, err)

	stored, err := a.Candidate(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, stored.Status)
	score, _ := stored.Score()
	assert.Equal(t, 65.0, score)
}

func TestJobAndSearches_PersistAcrossAgents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidates.json")
	scorer := &funcScorer{fn: func(models.Candidate, int) (models.MatchResult, error) {
		return models.MatchResult{OverallScore: 75}, nil
	}}
	ctx := context.Background()

	first, _ := newTestAgentAt(t, path, scorer)
	seed(t, first)
	_, err := first.ScoreCandidates(ctx, testJob)
	require.NoError(t, err)
	_, err = first.SaveSearch(ctx, models.SavedSearch{Name: "Go", Filters: models.FilterCriteria{Skills: []string{"go"}}, Sort: models.DefaultSortSpec()})
	require.NoError(t, err)

	second, _ := newTestAgentAt(t, path, nil)

	report, err := second.Report(ctx, models.FilterCriteria{}, models.DefaultSortSpec())
	require.NoError(t, err)
	require.NotNil(t, report.Job)
	assert.Equal(t, "Backend Engineer", report.Job.Title)
	assert.Equal(t, 3, report.Summary.Scored)

	searches, err := second.Searches(ctx)
	require.NoError(t, err)
	require.Len(t, searches, 1)
	assert.Equal(t, "Go", searches[0].Name)
}
