package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fmuoria/candidate-ranker/internal/llm"
	"github.com/fmuoria/candidate-ranker/internal/models"
)

const (
	maxDescriptionLen   = 4000
	maxRequirementItems = 8
)

// Scorer produces a match result for one candidate against one job
type Scorer interface {
	Score(ctx context.Context, candidate models.Candidate, job models.JobRequirements) (models.MatchResult, error)
}

// LLMScorer evaluates candidates using an LLM
type LLMScorer struct {
	llmClient llm.Generator
}

// NewLLMScorer creates a new scorer instance
func NewLLMScorer(llmClient llm.Generator) *LLMScorer {
	return &LLMScorer{
		llmClient: llmClient,
	}
}

// Score evaluates a candidate against the job requirements
func (s *LLMScorer) Score(ctx context.Context, candidate models.Candidate, job models.JobRequirements) (models.MatchResult, error) {
	prompt := s.buildScoringPrompt(candidate, job)

	response, err := s.llmClient.GenerateContent(ctx, prompt)
	if err != nil {
		return models.MatchResult{}, fmt.Errorf("failed to get LLM response: %w", err)
	}

	result, err := s.parseMatch(response)
	if err != nil {
		return models.MatchResult{}, fmt.Errorf("failed to parse match: %w", err)
	}

	return result, nil
}

// buildScoringPrompt creates a detailed prompt for the LLM
func (s *LLMScorer) buildScoringPrompt(candidate models.Candidate, job models.JobRequirements) string {
	var sb strings.Builder

	sb.WriteString("You are an expert recruiter. Analyze the fit between the candidate and the job requirements and provide a detailed match score with reasoning.\n\n")

	sb.WriteString("## JOB REQUIREMENTS\n")
	sb.WriteString(fmt.Sprintf("Title: %s\n", sanitizeUTF8(job.Title)))
	if job.Company != "" {
		sb.WriteString(fmt.Sprintf("Company: %s\n", sanitizeUTF8(job.Company)))
	}
	if job.Location != "" {
		sb.WriteString(fmt.Sprintf("Location: %s\n", sanitizeUTF8(job.Location)))
	}
	if job.ExperienceLevel != "" {
		sb.WriteString(fmt.Sprintf("Experience Level: %s\n", job.ExperienceLevel))
	}
	sb.WriteString(s.condenseRequirements("Required Skills", job.RequiredSkills, maxRequirementItems))
	sb.WriteString(s.condenseRequirements("Preferred Skills", job.PreferredSkills, maxRequirementItems))
	sb.WriteString(s.condenseRequirements("Qualifications", job.Qualifications, maxRequirementItems))
	sb.WriteString(s.condenseRequirements("Responsibilities", job.Responsibilities, maxRequirementItems))
	if job.Description != "" {
		desc := sanitizeUTF8(job.Description)
		if len(desc) > maxDescriptionLen {
			desc = truncate(desc, maxDescriptionLen) + "\n[Job description truncated for length]"
		}
		sb.WriteString(fmt.Sprintf("Description: %s\n", desc))
	}

	sb.WriteString("\n## CANDIDATE\n")
	sb.WriteString(fmt.Sprintf("Name: %s\n", sanitizeUTF8(candidate.PersonalInfo.Name)))
	if candidate.PersonalInfo.Location != "" {
		sb.WriteString(fmt.Sprintf("Location: %s\n", sanitizeUTF8(candidate.PersonalInfo.Location)))
	}
	sb.WriteString(fmt.Sprintf("Total Years of Experience: %g\n", candidate.ExperienceYears))
	if candidate.ExperienceLevel != "" {
		sb.WriteString(fmt.Sprintf("Experience Level: %s\n", candidate.ExperienceLevel))
	}
	if len(candidate.Skills.Technical) > 0 {
		sb.WriteString(fmt.Sprintf("Technical Skills: %s\n", sanitizeUTF8(strings.Join(candidate.Skills.Technical, ", "))))
	}
	if len(candidate.Skills.Soft) > 0 {
		sb.WriteString(fmt.Sprintf("Soft Skills: %s\n", sanitizeUTF8(strings.Join(candidate.Skills.Soft, ", "))))
	}
	if len(candidate.Skills.Additional) > 0 {
		sb.WriteString(fmt.Sprintf("Additional Skills: %s\n", sanitizeUTF8(strings.Join(candidate.Skills.Additional, ", "))))
	}
	for _, edu := range candidate.Education {
		line := edu.Degree
		if edu.FieldOfStudy != "" {
			line += " in " + edu.FieldOfStudy
		}
		if edu.Institution != "" {
			line += ", " + edu.Institution
		}
		sb.WriteString(fmt.Sprintf("Education: %s\n", sanitizeUTF8(line)))
	}

	sb.WriteString("\n## EVALUATION INSTRUCTIONS\n")
	sb.WriteString("Missing required skills should significantly lower the score, while missing preferred skills should have minimal impact. All scores are between 0 and 100.\n\n")
	sb.WriteString("Provide your evaluation in the following JSON format:\n")
	sb.WriteString("{\n")
	sb.WriteString(`  "overall_score": <0-100>,` + "\n")
	sb.WriteString(`  "skills_match": {"score": <0-100>, "matched_skills": [...], "missing_skills": [...], "additional_skills": [...]},` + "\n")
	sb.WriteString(`  "experience_match": {"score": <0-100>, "analysis": "<experience fit>"},` + "\n")
	sb.WriteString(`  "education_match": {"score": <0-100>, "analysis": "<education fit>"},` + "\n")
	sb.WriteString(`  "strengths": [...],` + "\n")
	sb.WriteString(`  "concerns": [...],` + "\n")
	sb.WriteString(`  "recommendations": [...],` + "\n")
	sb.WriteString(`  "fit_level": "<excellent|good|fair|poor>",` + "\n")
	sb.WriteString(`  "summary": "<two sentence summary>"` + "\n")
	sb.WriteString("}\n\n")
	sb.WriteString("Return ONLY the JSON object, no additional text.\n")

	return sb.String()
}

// condenseRequirements renders at most maxItems entries on one line
func (s *LLMScorer) condenseRequirements(category string, items []string, maxItems int) string {
	if len(items) == 0 {
		return ""
	}

	shown := items
	if len(shown) > maxItems {
		shown = shown[:maxItems]
	}

	line := fmt.Sprintf("%s: %s", category, sanitizeUTF8(strings.Join(shown, "; ")))
	if extra := len(items) - len(shown); extra > 0 {
		line += fmt.Sprintf(" (+%d more)", extra)
	}

	return line + "\n"
}

// parseMatch extracts and validates the match result from an LLM response
func (s *LLMScorer) parseMatch(response string) (models.MatchResult, error) {
	// Find JSON in response (in case there's extra text)
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx < startIdx {
		return models.MatchResult{}, fmt.Errorf("no JSON found in response")
	}

	jsonStr := response[startIdx : endIdx+1]

	if err := validateMatch(jsonStr); err != nil {
		return models.MatchResult{}, err
	}

	var result models.MatchResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return models.MatchResult{}, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return result, nil
}

// sanitizeUTF8 replaces invalid byte sequences so the prompt is valid UTF-8
func sanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// truncate cuts s to at most maxLen bytes on a rune boundary
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
