package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/fmuoria/candidate-ranker/internal/agent"
	"github.com/fmuoria/candidate-ranker/internal/export"
	"github.com/fmuoria/candidate-ranker/internal/ingestion"
	"github.com/fmuoria/candidate-ranker/internal/logging"
	"github.com/fmuoria/candidate-ranker/internal/metrics"
	"github.com/fmuoria/candidate-ranker/internal/models"
	"github.com/fmuoria/candidate-ranker/internal/ranking"
	"github.com/fmuoria/candidate-ranker/internal/store"
)

const maxBodyBytes = 32 << 20 // 32 MB

// Server handles HTTP requests
type Server struct {
	agent   *agent.RankingAgent
	files   *ingestion.FileHandler
	log     *logging.Logger
	metrics *metrics.Metrics
}

// NewServer creates a new API server. files may be nil, in which case uploaded
// files are imported without being kept on disk.
func NewServer(a *agent.RankingAgent, files *ingestion.FileHandler, logger *logging.Logger, m *metrics.Metrics) *Server {
	return &Server{
		agent:   a,
		files:   files,
		log:     logger.With("component", "api"),
		metrics: m,
	}
}

// rankRequest selects the filters and ordering of a ranked view.
// A missing sort falls back to score descending.
type rankRequest struct {
	Filters models.FilterCriteria `json:"filters"`
	Sort    *models.SortSpec      `json:"sort,omitempty"`
}

func (r rankRequest) sortSpec() models.SortSpec {
	if r.Sort == nil {
		return models.DefaultSortSpec()
	}
	return *r.Sort
}

type rankResponse struct {
	Candidates []models.RankedCandidate `json:"candidates"`
	Summary    models.ScoreSummary      `json:"summary"`
}

type statusRequest struct {
	Status models.Status `json:"status"`
}

// Router returns the HTTP router
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("POST /candidates", s.handleImport)
	mux.HandleFunc("GET /candidates/{id}", s.handleGetCandidate)
	mux.HandleFunc("PATCH /candidates/{id}/status", s.handleUpdateStatus)

	mux.HandleFunc("POST /score", s.handleScore)
	mux.HandleFunc("POST /rank", s.handleRank)
	mux.HandleFunc("GET /report", s.handleReport)
	mux.HandleFunc("POST /export", s.handleExport)

	mux.HandleFunc("POST /searches", s.handleSaveSearch)
	mux.HandleFunc("GET /searches", s.handleListSearches)

	return s.loggingMiddleware(mux)
}

// handleRoot provides API information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "Candidate Ranker",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"POST /candidates":              "Import parsed candidate records (JSON body or multipart files)",
			"GET /candidates/{id}":          "Get a candidate",
			"PATCH /candidates/{id}/status": "Update review status",
			"POST /score":                   "Score all candidates against job requirements",
			"POST /rank":                    "Filter and sort candidates",
			"GET /report":                   "Ranked report with default ordering",
			"POST /export":                  "Download a ranked report (format=json|xlsx)",
			"POST /searches":                "Save a named search",
			"GET /searches":                 "List saved searches",
			"GET /health":                   "Health check",
			"GET /metrics":                  "Prometheus metrics",
		},
	})
}

// handleHealth provides a health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"scoring_enabled": s.agent.ScorerEnabled(),
	})
}

// handleImport accepts a JSON document or multipart "files" of parsed candidates
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var candidates []models.Candidate

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		parsed, err := s.readUploads(r)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		candidates = parsed
	} else {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read body: %v", err))
			return
		}
		parsed, err := ingestion.ParseCandidates(body)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		candidates = parsed
	}

	if len(candidates) == 0 {
		s.respondError(w, http.StatusBadRequest, "no candidates in request")
		return
	}

	imported, err := s.agent.Import(r.Context(), candidates)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]any{
		"imported":   len(imported),
		"candidates": imported,
	})
}

// readUploads parses candidates from uploaded JSON files, keeping a copy in the uploads dir
func (s *Server) readUploads(r *http.Request) ([]models.Candidate, error) {
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		return nil, fmt.Errorf("failed to parse form: %w", err)
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		return nil, fmt.Errorf("no files uploaded")
	}

	var candidates []models.Candidate
	for _, fileHeader := range files {
		if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".json") {
			s.log.Warn("Skipping unsupported file type", "file", fileHeader.Filename)
			continue
		}

		file, err := fileHeader.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open uploaded file: %w", err)
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read uploaded file %s: %w", fileHeader.Filename, err)
		}

		parsed, err := ingestion.ParseCandidates(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", fileHeader.Filename, err)
		}
		for i := range parsed {
			if parsed[i].FileName == "" {
				parsed[i].FileName = fileHeader.Filename
			}
		}
		candidates = append(candidates, parsed...)

		if s.files != nil {
			if _, err := s.files.SaveUploadedFile(fileHeader.Filename, bytes.NewReader(data)); err != nil {
				s.log.Warn("Failed to keep uploaded file", "file", fileHeader.Filename, "error", err)
			}
		}
	}

	return candidates, nil
}

func (s *Server) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	c, err := s.agent.Candidate(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !s.decode(w, r, &req, false) {
		return
	}

	id := r.PathValue("id")
	if err := s.agent.UpdateStatus(r.Context(), id, req.Status); err != nil {
		s.respondFailure(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{
		"id":     id,
		"status": string(req.Status),
	})
}

// handleScore runs batch scoring for the posted job requirements
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var job models.JobRequirements
	if !s.decode(w, r, &job, false) {
		return
	}

	run, err := s.agent.ScoreCandidates(r.Context(), job)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, run)
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if !s.decode(w, r, &req, true) {
		return
	}

	ranked, summary, err := s.agent.Rank(r.Context(), req.Filters, req.sortSpec())
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, rankResponse{Candidates: ranked, Summary: summary})
}

// handleReport returns the ranked report with no filters, best score first
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.agent.Report(r.Context(), models.FilterCriteria{}, models.DefaultSortSpec())
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, report)
}

// handleExport streams a report as a JSON or Excel attachment
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "xlsx" {
		s.respondError(w, http.StatusBadRequest, "format must be 'json' or 'xlsx'")
		return
	}

	var req rankRequest
	if !s.decode(w, r, &req, true) {
		return
	}

	report, err := s.agent.Report(r.Context(), req.Filters, req.sortSpec())
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	switch format {
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="candidate-report.xlsx"`)
		if err := export.WriteExcel(w, report); err != nil {
			s.log.Error("Failed to write Excel export", "error", err)
		}
	default:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="candidate-report.json"`)
		if err := export.WriteJSON(w, report); err != nil {
			s.log.Error("Failed to write JSON export", "error", err)
		}
	}
}

func (s *Server) handleSaveSearch(w http.ResponseWriter, r *http.Request) {
	var search models.SavedSearch
	if !s.decode(w, r, &search, false) {
		return
	}
	if search.Sort == (models.SortSpec{}) {
		search.Sort = models.DefaultSortSpec()
	}

	saved, err := s.agent.SaveSearch(r.Context(), search)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleListSearches(w http.ResponseWriter, r *http.Request) {
	searches, err := s.agent.Searches(r.Context())
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, searches)
}

// decode reads a JSON body into v, rejecting unknown fields. With allowEmpty an
// empty body leaves v at its zero value.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return false
	}
	return true
}

// respondFailure maps domain errors to status codes
func (s *Server) respondFailure(w http.ResponseWriter, err error) {
	switch {
	case ranking.IsConfigError(err), errors.Is(err, agent.ErrInvalidInput):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, agent.ErrNoScorer):
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.log.Error("Request failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError sends an error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}
