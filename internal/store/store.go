// Package store persists candidate records.
package store

import (
	"context"
	"errors"

	"github.com/fmuoria/candidate-ranker/internal/models"
)

// ErrNotFound is returned when no candidate has the requested ID
var ErrNotFound = errors.New("candidate not found")

// Repository is the candidate pool backing the ranking service, together with
// the job the pool was last scored against and the recruiter's saved searches.
// List returns candidates in insertion order.
type Repository interface {
	List(ctx context.Context) ([]models.Candidate, error)
	Get(ctx context.Context, id string) (models.Candidate, error)
	// Save inserts new candidates and replaces existing ones by ID
	Save(ctx context.Context, candidates ...models.Candidate) error
	SaveMatch(ctx context.Context, id string, match models.MatchResult) error
	UpdateStatus(ctx context.Context, id string, status models.Status) error

	// SaveJob records the job the stored scores refer to
	SaveJob(ctx context.Context, job models.JobRequirements) error
	// Job returns the recorded job, or nil if the pool was never scored
	Job(ctx context.Context) (*models.JobRequirements, error)

	SaveSearch(ctx context.Context, search models.SavedSearch) error
	// ListSearches returns saved searches in creation order
	ListSearches(ctx context.Context) ([]models.SavedSearch, error)

	Close() error
}
