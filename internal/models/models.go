package models

import (
	"encoding/json"
	"time"
)

// Role identifies the originator of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single turn in a session's conversation timeline.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SessionRecord is the durable record for one conversation session.
// Messages[0] is always the system message; the durable store holds one
// record per session id, replaced wholesale on every persist.
type SessionRecord struct {
	SessionID    string          `json:"session_id"`
	CreatedAt    time.Time       `json:"created_at"`
	LastActivity time.Time       `json:"last_activity"`
	Messages     []Message       `json:"messages"`
	Analysis     json.RawMessage `json:"analysis,omitempty"`
	AnalyzedAt   *time.Time      `json:"analyzed_at,omitempty"`
}

// Clone returns a deep copy of the record. The session cache hands out
// clones so callers can never mutate cached state behind the store's locks.
func (s *SessionRecord) Clone() *SessionRecord {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	if s.Analysis != nil {
		out.Analysis = make(json.RawMessage, len(s.Analysis))
		copy(out.Analysis, s.Analysis)
	}
	if s.AnalyzedAt != nil {
		at := *s.AnalyzedAt
		out.AnalyzedAt = &at
	}
	return &out
}

// SessionSummary is the list-view projection of a session.
// MessageCount excludes the system message.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// CreateSessionResponse is returned by POST /api/v1/sessions.
type CreateSessionResponse struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ChatResponse carries the assistant reply for one exchange.
type ChatResponse struct {
	SessionID string    `json:"session_id"`
	Reply     string    `json:"reply"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryResponse is returned by GET /api/v1/sessions/{id}/history.
type HistoryResponse struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
}

// AnalysisResponse is returned by the analyze and get-analysis endpoints.
// Analysis is the extractor's object verbatim; it is null until the first
// successful analysis.
type AnalysisResponse struct {
	SessionID  string          `json:"session_id"`
	Analysis   json.RawMessage `json:"analysis"`
	AnalyzedAt *time.Time      `json:"analyzed_at"`
}
