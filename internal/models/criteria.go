package models

// Score bounds applied when FilterCriteria leaves them unset
const (
	DefaultMinScore = 0.0
	DefaultMaxScore = 100.0
)

// FilterCriteria narrows a candidate list. Every field is optional and an
// unset field never excludes a candidate.
type FilterCriteria struct {
	ExperienceLevel ExperienceLevel `json:"experience_level,omitempty" validate:"omitempty,oneof=entry mid senior lead"`
	Location        string          `json:"location,omitempty"`
	Skills          []string        `json:"skills,omitempty"`
	MinScore        *float64        `json:"min_score,omitempty"`
	MaxScore        *float64        `json:"max_score,omitempty"`
	Status          Status          `json:"status,omitempty" validate:"omitempty,oneof=new reviewed shortlisted rejected"`
	Education       string          `json:"education,omitempty"`
	Search          string          `json:"search,omitempty"`
}

// ScoreBounds returns the effective inclusive score bounds
func (f FilterCriteria) ScoreBounds() (lo, hi float64) {
	lo, hi = DefaultMinScore, DefaultMaxScore
	if f.MinScore != nil {
		lo = *f.MinScore
	}
	if f.MaxScore != nil {
		hi = *f.MaxScore
	}
	return lo, hi
}

// SortKey selects the candidate attribute to order by
type SortKey string

const (
	SortByScore       SortKey = "score"
	SortByName        SortKey = "name"
	SortByExperience  SortKey = "experience"
	SortByAppliedDate SortKey = "appliedDate"
)

// SortDirection is ascending or descending
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// SortSpec is the single active ordering of a ranked view
type SortSpec struct {
	Key       SortKey       `json:"key"`
	Direction SortDirection `json:"direction"`
}

// DefaultSortSpec orders by score, best first
func DefaultSortSpec() SortSpec {
	return SortSpec{Key: SortByScore, Direction: Descending}
}

// Float returns a pointer to v, for populating optional score bounds
func Float(v float64) *float64 {
	return &v
}
