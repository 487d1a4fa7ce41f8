package ranking

import "errors"

// Configuration errors returned before any filtering or sorting happens.
var (
	ErrInvalidSortKey       = errors.New("invalid sort key")
	ErrInvalidSortDirection = errors.New("invalid sort direction")
	ErrInvalidScoreBounds   = errors.New("invalid score bounds")
	ErrInvalidCriteria      = errors.New("invalid filter criteria")
)

// IsConfigError reports whether err is one of the ranking configuration errors
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidSortKey) ||
		errors.Is(err, ErrInvalidSortDirection) ||
		errors.Is(err, ErrInvalidScoreBounds) ||
		errors.Is(err, ErrInvalidCriteria)
}
