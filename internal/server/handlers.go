package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/giangeralcus/hscode-api/internal/common"
	"github.com/giangeralcus/hscode-api/internal/model"
	"github.com/giangeralcus/hscode-api/internal/ollama"
)

const classifyWarning = "Automatic classification was unavailable; showing keyword suggestions only"

type healthResponse struct {
	Status    string        `json:"status"`
	Timestamp string        `json:"timestamp"`
	LLM       ollama.Status `json:"llm"`
}

type classifyRequest struct {
	Description string `json:"description"`
	Language    string `json:"language"`
}

type classifyResponse struct {
	Success  bool         `json:"success"`
	Query    string       `json:"query"`
	Language string       `json:"language"`
	Result   model.Result `json:"result"`
	Warning  string       `json:"warning,omitempty"`
}

type explainRequest struct {
	HSCode      string       `json:"hs_code"`
	Description string       `json:"description"`
	Tariff      model.Tariff `json:"tariff"`
}

type explainResponse struct {
	Success     bool   `json:"success"`
	HSCode      string `json:"hs_code"`
	Explanation string `json:"explanation"`
}

type enhanceRequest struct {
	Query string `json:"query"`
}

type enhanceResponse struct {
	Success       bool                `json:"success"`
	OriginalQuery string              `json:"original_query"`
	Enhanced      model.EnhancedQuery `json:"enhanced"`
}

type quickCode struct {
	Code       string           `json:"code"`
	Formatted  string           `json:"formatted"`
	Confidence model.Confidence `json:"confidence"`
}

type quickResponse struct {
	Success bool        `json:"success"`
	Codes   []quickCode `json:"codes"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		LLM:       s.prober.Status(r.Context()),
	})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	description := strings.TrimSpace(req.Description)
	if len([]rune(description)) < 3 {
		respondForError(w, common.NewValidationError("description must be at least 3 characters"))
		return
	}
	language := normalizeLanguage(req.Language)

	if !s.modelReady(w, r) {
		return
	}

	result, err := s.service.Classify(r.Context(), description, language)
	if err != nil {
		s.logger.Error("classification failed", "error", err)
		respondForError(w, err)
		return
	}

	resp := classifyResponse{
		Success:  true,
		Query:    description,
		Language: language,
	}
	if result == nil {
		resp.Result = *model.EmptyResult(fallbackKeywords(description))
		resp.Warning = classifyWarning
	} else {
		resp.Result = *result
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExplainTariff(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	code := strings.TrimSpace(req.HSCode)
	if code == "" {
		respondForError(w, common.NewValidationError("hs_code is required"))
		return
	}
	if len(req.Tariff) == 0 {
		respondForError(w, common.NewValidationError("tariff data is required"))
		return
	}

	if !s.modelReady(w, r) {
		return
	}

	explanation, err := s.service.ExplainTariff(r.Context(), code, req.Description, req.Tariff)
	if err != nil {
		s.logger.Error("tariff explanation failed", "hs_code", code, "error", err)
		respondForError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, explainResponse{
		Success:     true,
		HSCode:      code,
		Explanation: explanation,
	})
}

func (s *Server) handleEnhanceSearch(w http.ResponseWriter, r *http.Request) {
	var req enhanceRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	query := strings.TrimSpace(req.Query)
	if len([]rune(query)) < 2 {
		respondForError(w, common.NewValidationError("query must be at least 2 characters"))
		return
	}

	// Enhancement is advisory: the service degrades internally and this
	// handler never surfaces a hard error.
	enhanced := s.service.EnhanceSearch(r.Context(), query)
	respondJSON(w, http.StatusOK, enhanceResponse{
		Success:       true,
		OriginalQuery: query,
		Enhanced:      enhanced,
	})
}

func (s *Server) handleQuickClassify(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len([]rune(query)) < 3 {
		respondForError(w, common.NewValidationError("q must be at least 3 characters"))
		return
	}

	if !s.modelReady(w, r) {
		return
	}

	result, err := s.service.Classify(r.Context(), query, "id")
	if err != nil {
		s.logger.Error("quick classification failed", "error", err)
		respondForError(w, err)
		return
	}

	codes := []quickCode{}
	if result != nil {
		for _, c := range result.Candidates {
			codes = append(codes, quickCode{
				Code:       c.Code,
				Formatted:  c.FormattedCode,
				Confidence: c.Confidence,
			})
		}
	}
	respondJSON(w, http.StatusOK, quickResponse{Success: true, Codes: codes})
}

// modelReady pre-emptively refuses model-backed calls when the backend is up
// but the configured model is not installed. An unreachable backend is left
// to the gateway so its error message reaches the caller.
func (s *Server) modelReady(w http.ResponseWriter, r *http.Request) bool {
	status := s.prober.Status(r.Context())
	if status.Available && !status.HasModel {
		respondError(w, http.StatusServiceUnavailable, "required model is not installed")
		return false
	}
	return true
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func normalizeLanguage(lang string) string {
	if lang == "en" {
		return "en"
	}
	return "id"
}

// fallbackKeywords naively splits a description into search terms when the
// model could not produce a result.
func fallbackKeywords(description string) []string {
	keywords := []string{}
	for _, word := range strings.Fields(description) {
		if len([]rune(word)) > 2 {
			keywords = append(keywords, word)
		}
	}
	return keywords
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondForError maps the error taxonomy to HTTP status codes. Validation
// errors are the caller's fault; everything else from the model path is a
// server-side failure.
func respondForError(w http.ResponseWriter, err error) {
	switch {
	case common.IsValidation(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrRateLimited):
		respondError(w, http.StatusTooManyRequests, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
