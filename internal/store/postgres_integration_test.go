//go:build integration
// +build integration

package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmuoria/candidate-ranker/internal/models"
)

func setupTestDB(t *testing.T) *PostgresStore {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	s, err := Connect(context.Background(), url)
	require.NoError(t, err)
	return s
}

func TestPostgresStore_RoundTrip_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	s := setupTestDB(t)
	defer s.Close()

	ctx := context.Background()
	id := uuid.NewString()

	require.NoError(t, s.Save(ctx, models.Candidate{ID: id, PersonalInfo: models.PersonalInfo{Name: "Integration"}, Status: models.StatusNew}))
	require.NoError(t, s.SaveMatch(ctx, id, models.MatchResult{OverallScore: 88}))
	require.NoError(t, s.UpdateStatus(ctx, id, models.StatusReviewed))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	score, ok := got.Score()
	assert.True(t, ok)
	assert.Equal(t, 88.0, score)
	assert.Equal(t, models.StatusReviewed, got.Status)

	list, err := s.List(ctx)
	require.NoError(t, err)
	found := false
	for _, c := range list {
		if c.ID == id {
			found = true
		}
	}
	assert.True(t, found)
}

func TestPostgresStore_NotFound_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	s := setupTestDB(t)
	defer s.Close()

	_, err := s.Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.UpdateStatus(context.Background(), uuid.NewString(), models.StatusRejected), ErrNotFound)
}

func TestPostgresStore_JobAndSearches_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	s := setupTestDB(t)
	defer s.Close()

	ctx := context.Background()
	title := "Engineer " + uuid.NewString()
	require.NoError(t, s.SaveJob(ctx, models.JobRequirements{Title: title}))

	job, err := s.Job(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, title, job.Title)

	id := uuid.NewString()
	require.NoError(t, s.SaveSearch(ctx, models.SavedSearch{ID: id, Name: "Integration", Sort: models.DefaultSortSpec()}))

	searches, err := s.ListSearches(ctx)
	require.NoError(t, err)
	found := false
	for _, search := range searches {
		if search.ID == id {
			found = true
			assert.Equal(t, "Integration", search.Name)
		}
	}
	assert.True(t, found)
}
