package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leadline-ai/leadline-web/internal/analysis"
	"github.com/leadline-ai/leadline-web/internal/db"
	"github.com/leadline-ai/leadline-web/internal/logger"
	"github.com/leadline-ai/leadline-web/internal/models"
	"github.com/leadline-ai/leadline-web/internal/validation"
)

// handleAnalyze runs lead extraction over the session's durable transcript
// and returns the structured result.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := validation.ValidateSessionID(sessionID); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrSessionNotFound), errors.Is(err, analysis.ErrEmptyTranscript):
			respondError(w, http.StatusNotFound, "session has no messages to analyze")
		case errors.Is(err, analysis.ErrMalformedExtraction):
			// Raw response text travels in the error for operator diagnosis
			logger.Ctx(r.Context()).Error("extraction unparseable",
				"session_id", sessionID, "error", err)
			respondError(w, http.StatusBadGateway, "analysis produced an unparseable result")
		default:
			logger.Ctx(r.Context()).Error("analysis failed",
				"session_id", sessionID, "error", err)
			status, message := completionErrorResponse(err)
			respondError(w, status, message)
		}
		return
	}

	// Re-read the stored record for the authoritative analyzed_at
	_, analyzedAt, err := s.analyzer.GetAnalysis(r.Context(), sessionID)
	if err != nil {
		logger.Ctx(r.Context()).Warn("failed to read back analysis timestamp",
			"session_id", sessionID, "error", err)
	}

	respondJSON(w, http.StatusOK, models.AnalysisResponse{
		SessionID:  sessionID,
		Analysis:   result,
		AnalyzedAt: analyzedAt,
	})
}

// handleGetAnalysis returns the last stored analysis without computing.
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := validation.ValidateSessionID(sessionID); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, analyzedAt, err := s.analyzer.GetAnalysis(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, db.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		logger.Ctx(r.Context()).Error("failed to get analysis",
			"session_id", sessionID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get analysis")
		return
	}

	respondJSON(w, http.StatusOK, models.AnalysisResponse{
		SessionID:  sessionID,
		Analysis:   result,
		AnalyzedAt: analyzedAt,
	})
}
