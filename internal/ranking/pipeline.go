package ranking

import (
	"slices"

	"github.com/fmuoria/candidate-ranker/internal/models"
)

// RankAndFilter filters candidates and then orders the survivors.
// Both the criteria and the sort spec are validated before any work is done, so a
// configuration error never yields a partial result. Inputs are not modified.
func RankAndFilter(candidates []models.Candidate, criteria models.FilterCriteria, spec models.SortSpec) ([]models.Candidate, error) {
	compare, err := comparator(spec)
	if err != nil {
		return nil, err
	}
	if err := validateCriteria(criteria); err != nil {
		return nil, err
	}

	out := filter(candidates, newMatcher(criteria))
	slices.SortStableFunc(out, compare)
	return out, nil
}

// Positions numbers an already ordered list starting at 1
func Positions(candidates []models.Candidate) []models.RankedCandidate {
	ranked := make([]models.RankedCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = models.RankedCandidate{Rank: i + 1, Candidate: c}
	}
	return ranked
}
