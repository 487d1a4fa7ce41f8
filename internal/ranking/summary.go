package ranking

import (
	"github.com/fmuoria/candidate-ranker/internal/models"
)

// Score band thresholds used in reports
const (
	ExcellentThreshold = 90.0
	GoodThreshold      = 70.0
	FairThreshold      = 50.0
)

// Band names a score band
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandFair      Band = "fair"
	BandPoor      Band = "poor"
)

// BandFor classifies a score into its report band
func BandFor(score float64) Band {
	switch {
	case score >= ExcellentThreshold:
		return BandExcellent
	case score >= GoodThreshold:
		return BandGood
	case score >= FairThreshold:
		return BandFair
	default:
		return BandPoor
	}
}

// Summarize computes score statistics. Unscored candidates count towards Total only.
func Summarize(candidates []models.Candidate) models.ScoreSummary {
	summary := models.ScoreSummary{Total: len(candidates)}

	var sum float64
	for _, c := range candidates {
		score, ok := c.Score()
		if !ok {
			continue
		}

		if summary.Scored == 0 || score > summary.Highest {
			summary.Highest = score
		}
		if summary.Scored == 0 || score < summary.Lowest {
			summary.Lowest = score
		}
		summary.Scored++
		sum += score

		switch BandFor(score) {
		case BandExcellent:
			summary.Excellent++
		case BandGood:
			summary.Good++
		case BandFair:
			summary.Fair++
		default:
			summary.Poor++
		}
	}

	if summary.Scored > 0 {
		summary.Average = sum / float64(summary.Scored)
	}

	return summary
}
