package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fmuoria/candidate-ranker/internal/export"
	"github.com/fmuoria/candidate-ranker/internal/ingestion"
	"github.com/fmuoria/candidate-ranker/internal/models"
	"github.com/fmuoria/candidate-ranker/internal/ranking"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Filter and sort stored candidates",
	Long:  "Filters the stored candidate pool (or a candidates file with --candidates), orders it and prints the ranking or writes it to a JSON or Excel report. With --job the stored pool is scored first.",
	RunE:  runRank,
}

var (
	rankInput     string
	rankJob       string
	rankLevel     string
	rankLocation  string
	rankSkills    []string
	rankMinScore  float64
	rankMaxScore  float64
	rankStatus    string
	rankEducation string
	rankSearch    string
	rankSortKey   string
	rankOrder     string
	rankOutput    string
)

func init() {
	flags := rankCmd.Flags()
	flags.StringVarP(&rankInput, "candidates", "c", "", "Rank this candidates JSON file instead of the store")
	flags.StringVarP(&rankJob, "job", "j", "", "Job requirements JSON file; scores the pool before ranking")
	flags.StringVar(&rankLevel, "level", "", "Experience level (entry, mid, senior, lead)")
	flags.StringVar(&rankLocation, "location", "", "Location substring, case-insensitive")
	flags.StringSliceVar(&rankSkills, "skills", nil, "Keep candidates with any of these skills")
	flags.Float64Var(&rankMinScore, "min-score", models.DefaultMinScore, "Minimum overall score")
	flags.Float64Var(&rankMaxScore, "max-score", models.DefaultMaxScore, "Maximum overall score")
	flags.StringVar(&rankStatus, "status", "", "Review status (new, reviewed, shortlisted, rejected)")
	flags.StringVar(&rankEducation, "education", "", "Degree substring, case-insensitive")
	flags.StringVar(&rankSearch, "search", "", "Free-text search over name and skills")
	flags.StringVarP(&rankSortKey, "sort", "s", string(models.SortByScore), "Sort key (score, name, experience, appliedDate)")
	flags.StringVar(&rankOrder, "order", string(models.Descending), "Sort direction (asc, desc)")
	flags.StringVarP(&rankOutput, "out", "o", "", "Write the report to a .json or .xlsx file instead of stdout")
	rankCmd.MarkFlagsMutuallyExclusive("candidates", "job")

	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, _ []string) error {
	criteria := rankCriteria(cmd)
	spec := models.SortSpec{Key: models.SortKey(rankSortKey), Direction: models.SortDirection(rankOrder)}

	var (
		report models.ReportResponse
		err    error
	)
	if rankInput != "" {
		report, err = rankFile(rankInput, criteria, spec)
	} else {
		report, err = rankStore(cmd, criteria, spec)
	}
	if err != nil {
		return err
	}

	if rankOutput == "" {
		return printRanking(cmd.OutOrStdout(), report)
	}

	path := rankOutput
	switch strings.ToLower(filepath.Ext(rankOutput)) {
	case ".json":
		err = writeJSONReport(path, report)
	default:
		path, err = export.ExportToExcel(report, rankOutput)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
	return nil
}

// rankFile ranks a candidates file without touching the store or the scorer
func rankFile(path string, criteria models.FilterCriteria, spec models.SortSpec) (models.ReportResponse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.ReportResponse{}, fmt.Errorf("failed to read candidates file %s: %w", path, err)
	}
	candidates, err := ingestion.ParseCandidates(data)
	if err != nil {
		return models.ReportResponse{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	ranked, err := ranking.RankAndFilter(candidates, criteria, spec)
	if err != nil {
		return models.ReportResponse{}, err
	}

	return models.ReportResponse{
		Filters:    criteria,
		Sort:       spec,
		Candidates: ranking.Positions(ranked),
		Summary:    ranking.Summarize(ranked),
		Timestamp:  time.Now().Format(time.RFC3339),
	}, nil
}

// rankStore ranks the stored pool, scoring it first when --job is given
func rankStore(cmd *cobra.Command, criteria models.FilterCriteria, spec models.SortSpec) (models.ReportResponse, error) {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return models.ReportResponse{}, err
	}
	defer a.Close()

	if rankJob != "" {
		job, err := readJob(rankJob)
		if err != nil {
			return models.ReportResponse{}, err
		}
		a.agent.SetProgressCallback(func(current, total int, message string) {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s\n", current, total, message)
		})
		run, err := a.agent.ScoreCandidates(ctx, job)
		if err != nil {
			return models.ReportResponse{}, fmt.Errorf("failed to score candidates: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Scored %d of %d candidates (%d failed)\n", run.Scored, run.Total, run.Failed)
	}

	return a.agent.Report(ctx, criteria, spec)
}

// rankCriteria builds filters from flags; score bounds apply only when given
func rankCriteria(cmd *cobra.Command) models.FilterCriteria {
	criteria := models.FilterCriteria{
		ExperienceLevel: models.ExperienceLevel(rankLevel),
		Location:        rankLocation,
		Skills:          rankSkills,
		Status:          models.Status(rankStatus),
		Education:       rankEducation,
		Search:          rankSearch,
	}
	if cmd.Flags().Changed("min-score") {
		criteria.MinScore = models.Float(rankMinScore)
	}
	if cmd.Flags().Changed("max-score") {
		criteria.MaxScore = models.Float(rankMaxScore)
	}
	return criteria
}

func readJob(path string) (models.JobRequirements, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.JobRequirements{}, fmt.Errorf("failed to read job file %s: %w", path, err)
	}

	var job models.JobRequirements
	if err := json.Unmarshal(data, &job); err != nil {
		return models.JobRequirements{}, fmt.Errorf("failed to parse job file %s: %w", path, err)
	}
	return job, nil
}

func writeJSONReport(path string, report models.ReportResponse) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	if err := export.WriteJSON(f, report); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	return nil
}

func printRanking(w io.Writer, report models.ReportResponse) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tLEVEL\tYEARS\tLOCATION\tSTATUS\tSCORE")
	for _, rc := range report.Candidates {
		c := rc.Candidate
		score := "-"
		if s, ok := c.Score(); ok {
			score = fmt.Sprintf("%.1f", s)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%g\t%s\t%s\t%s\n",
			rc.Rank, c.PersonalInfo.Name, c.ExperienceLevel, c.ExperienceYears,
			c.PersonalInfo.Location, c.Status, score)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := report.Summary
	fmt.Fprintf(w, "\n%d candidates, %d scored (excellent %d, good %d, fair %d, poor %d), average %.1f\n",
		s.Total, s.Scored, s.Excellent, s.Good, s.Fair, s.Poor, s.Average)
	return nil
}
