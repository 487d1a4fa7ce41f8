package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/fmuoria/candidate-ranker/internal/models"
	"github.com/fmuoria/candidate-ranker/internal/ranking"
)

const (
	summarySheet    = "Summary"
	candidatesSheet = "Ranked Candidates"
	detailsSheet    = "Detailed Analysis"
)

// Fill colours per score band
var bandColors = map[ranking.Band]string{
	ranking.BandExcellent: "C6EFCE",
	ranking.BandGood:      "FFEB9C",
	ranking.BandFair:      "FFC7CE",
	ranking.BandPoor:      "FF9999",
}

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

// ExportToExcel writes the ranked report to an Excel file
func ExportToExcel(report models.ReportResponse, outputPath string) (string, error) {
	// Ensure output path has .xlsx extension
	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath = outputPath + ".xlsx"
	}

	// Clean the path for cross-platform compatibility (Windows paths)
	outputPath = filepath.Clean(outputPath)

	var buf bytes.Buffer
	if err := WriteExcel(&buf, report); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(outputPath, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to save Excel file: %w", err)
	}

	return outputPath, nil
}

// WriteExcel renders the ranked report as an xlsx workbook
func WriteExcel(w io.Writer, report models.ReportResponse) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(candidatesSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(detailsSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	if err := createSummarySheet(f, summarySheet, report); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	if err := createRankedCandidatesSheet(f, candidatesSheet, report.Candidates); err != nil {
		return fmt.Errorf("failed to create ranked candidates sheet: %w", err)
	}

	if err := createDetailedAnalysisSheet(f, detailsSheet, report.Candidates); err != nil {
		return fmt.Errorf("failed to create detailed analysis sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}

	return nil
}

func headerStyle(f *excelize.File, size float64, horizontal string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: size, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: horizontal, Vertical: "center"},
		Border:    thinBorder,
	})
}

// createSummarySheet creates the summary sheet with job details and statistics
func createSummarySheet(f *excelize.File, sheetName string, report models.ReportResponse) error {
	f.SetColWidth(sheetName, "A", "A", 28)
	f.SetColWidth(sheetName, "B", "B", 50)

	titleStyle, err := headerStyle(f, 14, "left")
	if err != nil {
		return err
	}

	labelStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return err
	}

	row := 1
	section := func(title string) {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), title)
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row), titleStyle)
		f.MergeCell(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row))
		row++
	}
	line := func(label string, value any) {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), label)
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), labelStyle)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), value)
		row++
	}

	section("Candidate Ranking Report")
	row++

	if report.Job != nil {
		line("Job Title:", report.Job.Title)
		if report.Job.Company != "" {
			line("Company:", report.Job.Company)
		}
	}
	line("Generated:", report.Timestamp)
	line("Sorted By:", fmt.Sprintf("%s (%s)", report.Sort.Key, report.Sort.Direction))
	line("Filters:", describeFilters(report.Filters))
	row++

	s := report.Summary
	section("Statistics:")
	line("Candidates Listed:", s.Total)
	line("Candidates Scored:", s.Scored)
	line("Excellent (90-100):", s.Excellent)
	line("Good (70-89):", s.Good)
	line("Fair (50-69):", s.Fair)
	line("Poor (<50):", s.Poor)

	if s.Scored > 0 {
		row++
		section("Score Distribution Details:")
		line("Average Score:", fmt.Sprintf("%.2f", s.Average))
		line("Highest Score:", fmt.Sprintf("%.2f", s.Highest))
		line("Lowest Score:", fmt.Sprintf("%.2f", s.Lowest))
		line("Score Range:", fmt.Sprintf("%.2f", s.Highest-s.Lowest))
	}

	return nil
}

// describeFilters renders the active criteria on one line
func describeFilters(c models.FilterCriteria) string {
	var parts []string
	if c.ExperienceLevel != "" {
		parts = append(parts, "level="+string(c.ExperienceLevel))
	}
	if c.Location != "" {
		parts = append(parts, "location="+c.Location)
	}
	if len(c.Skills) > 0 {
		parts = append(parts, "skills="+strings.Join(c.Skills, "|"))
	}
	if c.MinScore != nil || c.MaxScore != nil {
		lo, hi := c.ScoreBounds()
		parts = append(parts, fmt.Sprintf("score=%g-%g", lo, hi))
	}
	if c.Status != "" {
		parts = append(parts, "status="+string(c.Status))
	}
	if c.Education != "" {
		parts = append(parts, "education="+c.Education)
	}
	if c.Search != "" {
		parts = append(parts, "search="+c.Search)
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

// createRankedCandidatesSheet creates the ranked candidates sheet with color-coding
func createRankedCandidatesSheet(f *excelize.File, sheetName string, ranked []models.RankedCandidate) error {
	headers := []string{"Rank", "Candidate", "Email", "Location", "Experience (yrs)", "Level", "Status", "Overall Score", "Skills", "Experience", "Education", "Applied"}
	widths := []float64{8, 25, 28, 20, 16, 10, 12, 14, 10, 12, 12, 12}

	hStyle, err := headerStyle(f, 11, "center")
	if err != nil {
		return err
	}

	// One style per band, created once
	bandStyles := make(map[ranking.Band]int, len(bandColors))
	for band, color := range bandColors {
		style, err := f.NewStyle(&excelize.Style{
			Fill:   excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Border: thinBorder,
		})
		if err != nil {
			return err
		}
		bandStyles[band] = style
	}
	unscoredStyle, err := f.NewStyle(&excelize.Style{Border: thinBorder})
	if err != nil {
		return err
	}

	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		name, _ := excelize.ColumnNumberToName(col + 1)
		f.SetColWidth(sheetName, name, name, widths[col])
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, hStyle)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))

	for i, rc := range ranked {
		row := i + 2
		c := rc.Candidate

		values := []any{
			rc.Rank,
			c.PersonalInfo.Name,
			c.PersonalInfo.Email,
			c.PersonalInfo.Location,
			c.ExperienceYears,
			string(c.ExperienceLevel),
			string(c.Status),
			"", "", "", "",
			"",
		}
		style := unscoredStyle
		if score, ok := c.Score(); ok {
			values[7] = fmt.Sprintf("%.2f", score)
			style = bandStyles[ranking.BandFor(score)]
		}
		if c.Match != nil {
			values[8] = fmt.Sprintf("%.2f", c.Match.SkillsMatch.Score)
			values[9] = fmt.Sprintf("%.2f", c.Match.ExperienceMatch.Score)
			values[10] = fmt.Sprintf("%.2f", c.Match.EducationMatch.Score)
		}
		if !c.AppliedDate.IsZero() {
			values[11] = c.AppliedDate.Format("2006-01-02")
		}

		start := fmt.Sprintf("A%d", row)
		if err := f.SetSheetRow(sheetName, start, &values); err != nil {
			return err
		}
		f.SetCellStyle(sheetName, start, fmt.Sprintf("%s%d", lastCol, row), style)
	}

	// Enable auto-filter
	if len(ranked) > 0 {
		f.AutoFilter(sheetName, fmt.Sprintf("A1:%s%d", lastCol, len(ranked)+1), []excelize.AutoFilterOptions{})
	}

	// Freeze top row
	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	return nil
}

// createDetailedAnalysisSheet creates the detailed analysis sheet with full reasoning
func createDetailedAnalysisSheet(f *excelize.File, sheetName string, ranked []models.RankedCandidate) error {
	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "B", 25)
	f.SetColWidth(sheetName, "C", "C", 20)
	f.SetColWidth(sheetName, "D", "D", 60)

	hStyle, err := headerStyle(f, 11, "center")
	if err != nil {
		return err
	}

	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Border:    thinBorder,
	})
	if err != nil {
		return err
	}

	headers := []string{"Rank", "Candidate", "Category", "Reasoning"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, hStyle)
	}

	row := 2
	for _, rc := range ranked {
		m := rc.Candidate.Match
		if m == nil {
			continue
		}

		for _, entry := range analysisRows(*m) {
			f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), rc.Rank)
			f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), rc.Candidate.PersonalInfo.Name)
			f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), entry[0])
			f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), entry[1])
			f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("D%d", row), wrapStyle)
			f.SetRowHeight(sheetName, row, 60)
			row++
		}
	}

	// Freeze top row
	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	return nil
}

// analysisRows flattens a match result into category/reasoning pairs
func analysisRows(m models.MatchResult) [][2]string {
	skills := fmt.Sprintf("Matched: %s\nMissing: %s",
		joinOrNone(m.SkillsMatch.MatchedSkills), joinOrNone(m.SkillsMatch.MissingSkills))

	rows := [][2]string{
		{"Skills", skills},
		{"Experience", m.ExperienceMatch.Analysis},
		{"Education", m.EducationMatch.Analysis},
	}
	if len(m.Strengths) > 0 {
		rows = append(rows, [2]string{"Strengths", strings.Join(m.Strengths, "\n")})
	}
	if len(m.Concerns) > 0 {
		rows = append(rows, [2]string{"Concerns", strings.Join(m.Concerns, "\n")})
	}
	if m.Summary != "" {
		rows = append(rows, [2]string{"Summary", m.Summary})
	}
	return rows
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
