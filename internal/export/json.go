// Package export renders ranked reports for download.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fmuoria/candidate-ranker/internal/models"
)

// WriteJSON writes the report as indented JSON
func WriteJSON(w io.Writer, report models.ReportResponse) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
