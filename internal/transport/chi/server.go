// Package chi exposes the retrieval pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain"
	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain/search/mode"
	retrievaluc "github.com/Wafflelover404/GraphTalk-SC-sub001/internal/usecase/retrieval"
)

// Error codes returned in response bodies.
const (
	codeBadRequest          = "bad_request"
	codeValidationFailed    = "validation_failed"
	codeUnauthorized        = "unauthorized"
	codeNoAuthorizedResults = "no_authorized_results"
	codeStoreUnavailable    = "store_unavailable"
	codeEmbeddingFailure    = "embedding_failure"
	codeRetrievalFailed     = "retrieval_failed"
	codeInternalError       = "internal_error"
)

// Searcher runs one retrieval request.
type Searcher interface {
	Search(ctx context.Context, req retrievaluc.Request) (retrievaluc.Result, error)
}

// Pinger checks the chunk store connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker checks the embedding provider.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server holds the HTTP handlers.
type Server struct {
	retrieval Searcher
	store     Pinger
	embedder  HealthChecker
	logger    *zap.Logger
}

// NewServer creates an HTTP API server. embedder may be nil to skip its
// health check.
func NewServer(retrieval Searcher, store Pinger, embedder HealthChecker, logger *zap.Logger) *Server {
	return &Server{
		retrieval: retrieval,
		store:     store,
		embedder:  embedder,
		logger:    logger,
	}
}

// Routes registers the API routes on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

type searchRequest struct {
	Query      string  `json:"query"`
	UserID     string  `json:"user_id"`
	K          int     `json:"k,omitempty"`
	SearchType string  `json:"search_type,omitempty"`
	MinScore   float64 `json:"min_score,omitempty"`
}

type chunkResponse struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type fileResponse struct {
	FileName  string          `json:"file_name"`
	Score     float64         `json:"score"`
	Relevance float64         `json:"relevance"`
	Chunks    []chunkResponse `json:"chunks"`
}

type searchResponse struct {
	Files     []fileResponse     `json:"files"`
	Truncated bool               `json:"truncated"`
	Trace     []retrievaluc.Span `json:"trace,omitempty"`
	Code      string             `json:"code,omitempty"`
	Message   string             `json:"message,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleSearch handles POST /api/v1/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := s.retrieval.Search(r.Context(), retrievaluc.Request{
		Query:    req.Query,
		UserID:   req.UserID,
		K:        req.K,
		MinScore: req.MinScore,
		Mode:     mode.Mode(req.SearchType),
	})
	if err != nil {
		s.handleSearchError(w, err, result)
		return
	}

	writeJSON(w, http.StatusOK, toSearchResponse(result))
}

// handleSearchError maps pipeline sentinels to HTTP responses. This is the
// only place domain errors become status codes.
func (s *Server) handleSearchError(w http.ResponseWriter, err error, result retrievaluc.Result) {
	switch {
	case errors.Is(err, domain.ErrNoAccessibleResults):
		// Matches existed but none were authorized. A successful request
		// with an empty, explicitly coded body, distinct from "no matches".
		writeJSON(w, http.StatusOK, searchResponse{
			Files:   []fileResponse{},
			Trace:   result.Trace,
			Code:    codeNoAuthorizedResults,
			Message: "no results available for this user",
		})
	case errors.Is(err, domain.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
	case errors.Is(err, domain.ErrRetrievalFailed):
		s.logger.Error("Retrieval failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, codeRetrievalFailed, "all retrieval legs failed")
	case errors.Is(err, domain.ErrStoreUnavailable):
		s.logger.Error("Store unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, codeStoreUnavailable, "chunk store unavailable")
	case errors.Is(err, domain.ErrEmbeddingFailure):
		s.logger.Error("Embedding failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, codeEmbeddingFailure, "embedding provider unavailable")
	default:
		s.logger.Error("Internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func toSearchResponse(result retrievaluc.Result) searchResponse {
	files := make([]fileResponse, len(result.Files))
	for i := range result.Files {
		f := &result.Files[i]
		chunks := make([]chunkResponse, len(f.Chunks()))
		for j, c := range f.Chunks() {
			chunks[j] = chunkResponse{Text: c.Text(), Score: c.FinalScore()}
		}
		files[i] = fileResponse{
			FileName:  f.FileName(),
			Score:     f.BestScore(),
			Relevance: f.Relevance(),
			Chunks:    chunks,
		}
	}
	return searchResponse{
		Files:     files,
		Truncated: result.Truncated,
		Trace:     result.Trace,
	}
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	healthy := true

	if err := s.store.Ping(r.Context()); err != nil {
		checks["store"] = "unhealthy"
		healthy = false
	} else {
		checks["store"] = "healthy"
	}

	if s.embedder != nil {
		if err := s.embedder.HealthCheck(r.Context()); err != nil {
			checks["embedder"] = "unhealthy"
			healthy = false
		} else {
			checks["embedder"] = "healthy"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
