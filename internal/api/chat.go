package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/leadline-ai/leadline-web/internal/anthropic"
	"github.com/leadline-ai/leadline-web/internal/logger"
	"github.com/leadline-ai/leadline-web/internal/models"
	"github.com/leadline-ai/leadline-web/internal/validation"
)

// handleCreateSession starts a new session and returns its id.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	rec := s.store.Create(r.Context())

	logger.Ctx(r.Context()).Info("session created", "session_id", rec.SessionID)

	respondJSON(w, http.StatusCreated, models.CreateSessionResponse{
		SessionID: rec.SessionID,
		CreatedAt: rec.CreatedAt,
	})
}

// handleChat runs one chat exchange: append the user message, ask the
// completion API for a reply with the session's windowed history as
// context, then append and persist the assistant message. A completion
// failure leaves the user message appended and adds no assistant message.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validation.ValidateSessionID(req.SessionID); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateChatMessage(req.Message); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec := s.store.AppendUserMessage(r.Context(), req.SessionID, req.Message)

	reply, err := s.completer.Complete(r.Context(), rec.Messages)
	if err != nil {
		logger.Ctx(r.Context()).Error("completion failed",
			"session_id", req.SessionID, "error", err)
		status, message := completionErrorResponse(err)
		respondError(w, status, message)
		return
	}

	rec = s.store.AppendAssistantMessage(r.Context(), req.SessionID, reply)

	respondJSON(w, http.StatusOK, models.ChatResponse{
		SessionID: req.SessionID,
		Reply:     reply,
		Timestamp: rec.LastActivity,
	})
}

// completionErrorResponse maps classified completion failures to HTTP
// responses. Quota and credential failures are surfaced distinctly so the
// operator can act; everything else is a generic retryable upstream error.
func completionErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, anthropic.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "assistant quota exhausted, please contact the operator"
	case errors.Is(err, anthropic.ErrInvalidAPIKey):
		return http.StatusBadGateway, "assistant credential rejected, please contact the operator"
	}
	return http.StatusBadGateway, "assistant is temporarily unavailable, please retry"
}
