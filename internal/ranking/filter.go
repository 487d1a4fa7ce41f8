// Package ranking filters and orders scored candidates for a recruiter view.
package ranking

import (
	"fmt"
	"strings"

	"github.com/fmuoria/candidate-ranker/internal/models"
)

// Filter returns the candidates that satisfy every active criterion, in input order.
// Criteria are ANDed; the skills criterion matches when the candidate has any of the
// requested skills.
func Filter(candidates []models.Candidate, criteria models.FilterCriteria) ([]models.Candidate, error) {
	if err := validateCriteria(criteria); err != nil {
		return nil, err
	}
	return filter(candidates, newMatcher(criteria)), nil
}

func filter(candidates []models.Candidate, m matcher) []models.Candidate {
	out := make([]models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if m.matches(c) {
			out = append(out, c)
		}
	}
	return out
}

// validateCriteria rejects unknown enum values and malformed score bounds
func validateCriteria(criteria models.FilterCriteria) error {
	if err := criteria.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCriteria, err)
	}

	lo, hi := criteria.ScoreBounds()
	if !(lo >= models.DefaultMinScore && hi <= models.DefaultMaxScore) {
		return fmt.Errorf("%w: [%g, %g] outside [%g, %g]", ErrInvalidScoreBounds, lo, hi, models.DefaultMinScore, models.DefaultMaxScore)
	}
	if lo > hi {
		return fmt.Errorf("%w: min_score %g greater than max_score %g", ErrInvalidScoreBounds, lo, hi)
	}
	return nil
}

// matcher is FilterCriteria with its strings normalized once per call
type matcher struct {
	level     models.ExperienceLevel
	location  string
	skills    map[string]struct{}
	status    models.Status
	education string
	search    string
	boundsSet bool
	lo, hi    float64
}

func newMatcher(criteria models.FilterCriteria) matcher {
	m := matcher{
		level:     criteria.ExperienceLevel,
		location:  normalize(criteria.Location),
		status:    criteria.Status,
		education: normalize(criteria.Education),
		search:    normalize(criteria.Search),
	}

	for _, skill := range criteria.Skills {
		if s := normalize(skill); s != "" {
			if m.skills == nil {
				m.skills = make(map[string]struct{}, len(criteria.Skills))
			}
			m.skills[s] = struct{}{}
		}
	}

	m.lo, m.hi = criteria.ScoreBounds()
	m.boundsSet = m.lo != models.DefaultMinScore || m.hi != models.DefaultMaxScore

	return m
}

func (m matcher) matches(c models.Candidate) bool {
	if m.level != "" && c.ExperienceLevel != m.level {
		return false
	}
	if m.location != "" && !strings.Contains(normalize(c.PersonalInfo.Location), m.location) {
		return false
	}
	if len(m.skills) > 0 && !m.hasAnySkill(c) {
		return false
	}
	if m.boundsSet {
		score, ok := c.Score()
		if !ok || score < m.lo || score > m.hi {
			return false
		}
	}
	if m.status != "" && c.Status != m.status {
		return false
	}
	if m.education != "" && !m.hasDegree(c) {
		return false
	}
	if m.search != "" && !m.matchesSearch(c) {
		return false
	}
	return true
}

func (m matcher) hasAnySkill(c models.Candidate) bool {
	for _, skill := range c.Skills.Technical {
		if _, ok := m.skills[normalize(skill)]; ok {
			return true
		}
	}
	for _, skill := range c.Skills.Soft {
		if _, ok := m.skills[normalize(skill)]; ok {
			return true
		}
	}
	return false
}

func (m matcher) hasDegree(c models.Candidate) bool {
	for _, edu := range c.Education {
		if strings.Contains(normalize(edu.Degree), m.education) {
			return true
		}
	}
	return false
}

// matchesSearch is a free-text match on name or any technical/soft skill
func (m matcher) matchesSearch(c models.Candidate) bool {
	if strings.Contains(normalize(c.PersonalInfo.Name), m.search) {
		return true
	}
	for _, skills := range [][]string{c.Skills.Technical, c.Skills.Soft} {
		for _, skill := range skills {
			if strings.Contains(normalize(skill), m.search) {
				return true
			}
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
