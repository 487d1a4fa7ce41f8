package ranking

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/fmuoria/candidate-ranker/internal/models"
)

// Sort returns a reordered copy of candidates. Ties keep their input order.
func Sort(candidates []models.Candidate, spec models.SortSpec) ([]models.Candidate, error) {
	compare, err := comparator(spec)
	if err != nil {
		return nil, err
	}

	out := slices.Clone(candidates)
	slices.SortStableFunc(out, compare)
	return out, nil
}

// comparator resolves a sort spec. Descending swaps the arguments of the
// ascending comparator so the two directions are exact inverses.
func comparator(spec models.SortSpec) (func(a, b models.Candidate) int, error) {
	var asc func(a, b models.Candidate) int

	switch spec.Key {
	case models.SortByScore:
		asc = func(a, b models.Candidate) int {
			as, _ := a.Score()
			bs, _ := b.Score()
			return cmp.Compare(as, bs)
		}
	case models.SortByName:
		asc = func(a, b models.Candidate) int {
			return strings.Compare(a.PersonalInfo.Name, b.PersonalInfo.Name)
		}
	case models.SortByExperience:
		asc = func(a, b models.Candidate) int {
			return cmp.Compare(a.ExperienceYears, b.ExperienceYears)
		}
	case models.SortByAppliedDate:
		asc = func(a, b models.Candidate) int {
			return a.AppliedDate.Compare(b.AppliedDate)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSortKey, spec.Key)
	}

	switch spec.Direction {
	case models.Ascending:
		return asc, nil
	case models.Descending:
		return func(a, b models.Candidate) int { return asc(b, a) }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSortDirection, spec.Direction)
	}
}
