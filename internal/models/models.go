package models

import (
	"time"
)

// ExperienceLevel is the seniority bucket assigned to a candidate by the resume parser
type ExperienceLevel string

const (
	LevelEntry  ExperienceLevel = "entry"  // 0-2 years
	LevelMid    ExperienceLevel = "mid"    // 3-5 years
	LevelSenior ExperienceLevel = "senior" // 6-10 years
	LevelLead   ExperienceLevel = "lead"   // 10+ years
)

// Status is the recruiter-facing review state of a candidate
type Status string

const (
	StatusNew         Status = "new"
	StatusReviewed    Status = "reviewed"
	StatusShortlisted Status = "shortlisted"
	StatusRejected    Status = "rejected"
)

// PersonalInfo holds contact details extracted from a resume
type PersonalInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
}

// Skills partitions a candidate's skills the way the parser reports them
type Skills struct {
	Technical  []string `json:"technical,omitempty"`
	Soft       []string `json:"soft,omitempty"`
	Additional []string `json:"additional,omitempty"`
}

// Education is a single degree record
type Education struct {
	Institution    string `json:"institution"`
	Degree         string `json:"degree"`
	FieldOfStudy   string `json:"field_of_study,omitempty"`
	GraduationDate string `json:"graduation_date,omitempty"`
}

// Candidate is a parsed applicant record, optionally scored against a job
type Candidate struct {
	ID              string          `json:"id" validate:"required"`
	PersonalInfo    PersonalInfo    `json:"personal_info"`
	Skills          Skills          `json:"skills"`
	ExperienceYears float64         `json:"total_years_experience" validate:"gte=0"`
	ExperienceLevel ExperienceLevel `json:"experience_level,omitempty" validate:"omitempty,oneof=entry mid senior lead"`
	Education       []Education     `json:"education,omitempty"`
	OverallScore    *float64        `json:"overall_score,omitempty" validate:"omitempty,gte=0,lte=100"`
	Match           *MatchResult    `json:"match_analysis,omitempty"`
	Status          Status          `json:"status,omitempty" validate:"omitempty,oneof=new reviewed shortlisted rejected"`
	AppliedDate     time.Time       `json:"applied_date"`
	FileName        string          `json:"file_name,omitempty"`
}

// Score returns the overall score and whether the candidate has been scored
func (c Candidate) Score() (float64, bool) {
	if c.OverallScore == nil {
		return 0, false
	}
	return *c.OverallScore, true
}

// WithMatch returns a copy of the candidate carrying the given match result
func (c Candidate) WithMatch(m MatchResult) Candidate {
	score := m.OverallScore
	c.OverallScore = &score
	c.Match = &m
	return c
}

// JobRequirements represents a job posting with structured requirements
type JobRequirements struct {
	Title            string          `json:"title" validate:"required"`
	Company          string          `json:"company,omitempty"`
	Location         string          `json:"location,omitempty"`
	ExperienceLevel  ExperienceLevel `json:"experience_level,omitempty" validate:"omitempty,oneof=entry mid senior lead"`
	RequiredSkills   []string        `json:"required_skills"`
	PreferredSkills  []string        `json:"preferred_skills,omitempty"`
	Qualifications   []string        `json:"qualifications,omitempty"`
	Responsibilities []string        `json:"responsibilities,omitempty"`
	Description      string          `json:"description,omitempty"`
}

// SkillsMatch is the skills section of a match analysis
type SkillsMatch struct {
	Score            float64  `json:"score"`
	MatchedSkills    []string `json:"matched_skills"`
	MissingSkills    []string `json:"missing_skills"`
	AdditionalSkills []string `json:"additional_skills,omitempty"`
}

// SectionMatch is a scored section of a match analysis with reasoning
type SectionMatch struct {
	Score    float64 `json:"score"`
	Analysis string  `json:"analysis"`
}

// MatchResult is the external scorer's verdict for one candidate and job.
// All scores are in [0,100].
type MatchResult struct {
	OverallScore    float64      `json:"overall_score"`
	SkillsMatch     SkillsMatch  `json:"skills_match"`
	ExperienceMatch SectionMatch `json:"experience_match"`
	EducationMatch  SectionMatch `json:"education_match"`
	Strengths       []string     `json:"strengths,omitempty"`
	Concerns        []string     `json:"concerns,omitempty"`
	Recommendations []string     `json:"recommendations,omitempty"`
	FitLevel        string       `json:"fit_level,omitempty"`
	Summary         string       `json:"summary,omitempty"`
}

// RankedCandidate is a candidate with its 1-based position in a ranked view
type RankedCandidate struct {
	Rank      int       `json:"rank"`
	Candidate Candidate `json:"candidate"`
}

// ScoreSummary aggregates scores across a candidate list
type ScoreSummary struct {
	Total     int     `json:"total"`
	Scored    int     `json:"scored"`
	Excellent int     `json:"excellent"` // 90-100
	Good      int     `json:"good"`      // 70-89
	Fair      int     `json:"fair"`      // 50-69
	Poor      int     `json:"poor"`      // <50
	Average   float64 `json:"average"`
	Highest   float64 `json:"highest"`
	Lowest    float64 `json:"lowest"`
}

// ReportResponse represents a ranked, filtered view of candidates for a job
type ReportResponse struct {
	Job        *JobRequirements  `json:"job,omitempty"`
	Filters    FilterCriteria    `json:"filters"`
	Sort       SortSpec          `json:"sort"`
	Candidates []RankedCandidate `json:"candidates"`
	Summary    ScoreSummary      `json:"summary"`
	Timestamp  string            `json:"timestamp"`
}

// SavedSearch is a named set of filter and sort criteria
type SavedSearch struct {
	ID        string         `json:"id"`
	Name      string         `json:"name" validate:"required"`
	Filters   FilterCriteria `json:"filters"`
	Sort      SortSpec       `json:"sort"`
	CreatedAt time.Time      `json:"created_at"`
}
