package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leadline-ai/leadline-web/internal/logger"
	"github.com/leadline-ai/leadline-web/internal/models"
	"github.com/leadline-ai/leadline-web/internal/validation"
)

// handleListSessions returns summaries of all sessions, newest first.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.List(r.Context())
	if err != nil {
		logger.Ctx(r.Context()).Error("failed to list sessions", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	respondJSON(w, http.StatusOK, summaries)
}

// handleGetHistory returns a session's non-system messages in order.
// Unknown ids yield an empty history per the lazy-creation contract.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := validation.ValidateSessionID(sessionID); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, models.HistoryResponse{
		SessionID: sessionID,
		Messages:  s.store.History(r.Context(), sessionID),
	})
}

// handleDeleteSession removes a session. Idempotent: deleting an absent
// session succeeds.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := validation.ValidateSessionID(sessionID); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.Delete(r.Context(), sessionID); err != nil {
		logger.Ctx(r.Context()).Error("failed to delete session",
			"session_id", sessionID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}

	logger.Ctx(r.Context()).Info("session deleted", "session_id", sessionID)
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
