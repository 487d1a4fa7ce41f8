package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fmuoria/candidate-ranker/internal/ingestion"
	"github.com/fmuoria/candidate-ranker/internal/models"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import parsed candidate records into the store",
	Long:  "Imports candidate JSON files (one object or an array per file). With no flags every *.json file in the configured uploads directory is imported.",
	RunE:  runImport,
}

var (
	importFiles []string
	importDir   string
	importClear bool
)

func init() {
	importCmd.Flags().StringSliceVarP(&importFiles, "file", "f", nil, "Candidate JSON file to import (repeatable)")
	importCmd.Flags().StringVarP(&importDir, "dir", "d", "", "Directory of candidate JSON files (default: uploads_dir from config)")
	importCmd.Flags().BoolVar(&importClear, "clear", false, "Empty the directory after a successful import")
	importCmd.MarkFlagsMutuallyExclusive("file", "dir")
	importCmd.MarkFlagsMutuallyExclusive("file", "clear")

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		candidates []models.Candidate
		files      *ingestion.FileHandler
	)
	if len(importFiles) > 0 {
		for _, path := range importFiles {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			parsed, err := ingestion.ParseCandidates(data)
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", path, err)
			}
			for i := range parsed {
				if parsed[i].FileName == "" {
					parsed[i].FileName = filepath.Base(path)
				}
			}
			candidates = append(candidates, parsed...)
		}
	} else {
		dir := importDir
		if dir == "" {
			dir = a.cfg.UploadsDir
		}
		files = ingestion.NewFileHandler(dir)
		candidates, err = files.LoadCandidates()
		if err != nil {
			return err
		}
	}

	if len(candidates) == 0 {
		return fmt.Errorf("no candidates found")
	}

	imported, err := a.agent.Import(ctx, candidates)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d candidates\n", len(imported))

	if importClear && files != nil {
		if err := files.ClearUploads(); err != nil {
			return err
		}
	}
	return nil
}
