package ranking

import (
	"testing"

	"github.com/fmuoria/candidate-ranker/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestBandFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Band
	}{
		{100, BandExcellent},
		{90, BandExcellent},
		{89.99, BandGood},
		{70, BandGood},
		{69, BandFair},
		{50, BandFair},
		{49.5, BandPoor},
		{0, BandPoor},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BandFor(tt.score), "score %v", tt.score)
	}
}

func TestSummarize(t *testing.T) {
	candidates := []models.Candidate{
		candidate("1", "A", 95),
		candidate("2", "B", 72),
		candidate("3", "C", 55),
		candidate("4", "D", 30),
		{ID: "5"},
	}

	summary := Summarize(candidates)

	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 4, summary.Scored)
	assert.Equal(t, 1, summary.Excellent)
	assert.Equal(t, 1, summary.Good)
	assert.Equal(t, 1, summary.Fair)
	assert.Equal(t, 1, summary.Poor)
	assert.InDelta(t, 63.0, summary.Average, 0.001)
	assert.Equal(t, 95.0, summary.Highest)
	assert.Equal(t, 30.0, summary.Lowest)
}

func TestSummarize_NoScores(t *testing.T) {
	summary := Summarize([]models.Candidate{{ID: "1"}, {ID: "2"}})
	assert.Equal(t, models.ScoreSummary{Total: 2}, summary)
}
