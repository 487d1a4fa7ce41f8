package models

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the structural constraints of a candidate record
func (c Candidate) Validate() error {
	return validate.Struct(c)
}

// Validate checks that enum fields hold known values
func (f FilterCriteria) Validate() error {
	return validate.Struct(f)
}

// Validate checks the job requirements carry at least a title
func (j JobRequirements) Validate() error {
	return validate.Struct(j)
}

// Validate checks the saved search is named
func (s SavedSearch) Validate() error {
	return validate.Struct(s)
}
