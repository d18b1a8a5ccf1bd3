// Package chat owns conversation session lifecycle: identity, the
// in-process cache, the history window, and synchronization with the
// durable store.
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leadline-ai/leadline-web/internal/db"
	"github.com/leadline-ai/leadline-web/internal/logger"
	"github.com/leadline-ai/leadline-web/internal/models"
)

// Recorder is the durable store the session cache synchronizes with.
// Implemented by *db.DB; faked in tests.
type Recorder interface {
	GetSession(ctx context.Context, sessionID string) (*models.SessionRecord, error)
	UpsertSession(ctx context.Context, rec *models.SessionRecord) error
	DeleteSession(ctx context.Context, sessionID string) error
	ListSessions(ctx context.Context) ([]models.SessionSummary, error)
}

// PersistMode controls when a new session first becomes durable.
type PersistMode int

const (
	// PersistLazy defers the first durable write until the first assistant
	// reply, so sessions that never exchange a message leave no record.
	PersistLazy PersistMode = iota

	// PersistImmediate writes the record as soon as the session is created.
	PersistImmediate
)

// Config carries the store's injected policy knobs.
type Config struct {
	// SystemPrompt seeds every new session as its first message.
	SystemPrompt string

	// HistoryLimit bounds stored and sent messages. Zero means
	// DefaultHistoryLimit.
	HistoryLimit int

	// PersistMode selects lazy or immediate first persistence.
	PersistMode PersistMode
}

// Store mediates between the in-process session cache and the durable
// store. The cache is shared mutable state across requests; all mutations
// of one session are serialized on a per-session mutex so that
// append-then-trim-then-persist is atomic per session.
type Store struct {
	recorder Recorder
	cfg      Config

	mu       sync.Mutex
	sessions map[string]*models.SessionRecord
	locks    map[string]*sync.Mutex
}

// NewStore creates a session store backed by the given recorder.
func NewStore(recorder Recorder, cfg Config) *Store {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	return &Store{
		recorder: recorder,
		cfg:      cfg,
		sessions: make(map[string]*models.SessionRecord),
		locks:    make(map[string]*sync.Mutex),
	}
}

// NewSessionID generates an opaque session identifier. Callers treat it as
// an equality-only key; it is not a security credential.
func NewSessionID() string {
	return uuid.NewString()
}

// sessionLock returns the mutex serializing operations for one session id.
func (s *Store) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

func (s *Store) cached(sessionID string) *models.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[sessionID]
}

func (s *Store) cache(rec *models.SessionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[rec.SessionID] = rec
}

// Create starts a brand-new session and returns its record.
func (s *Store) Create(ctx context.Context) *models.SessionRecord {
	return s.GetOrCreate(ctx, NewSessionID())
}

// GetOrCreate returns the session for the given id, loading it from the
// durable store on a cache miss and creating it when absent. Absence is the
// creation trigger, not an error: a fresh session holds only the system
// message and, in lazy mode, stays cache-only until the first assistant
// reply. A store read failure degrades to creation with a logged warning.
func (s *Store) GetOrCreate(ctx context.Context, sessionID string) *models.SessionRecord {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	return s.loadOrCreateLocked(ctx, sessionID).Clone()
}

// loadOrCreateLocked resolves the live cache entry for a session.
// Caller must hold the session lock.
func (s *Store) loadOrCreateLocked(ctx context.Context, sessionID string) *models.SessionRecord {
	if rec := s.cached(sessionID); rec != nil {
		return rec
	}

	rec, err := s.recorder.GetSession(ctx, sessionID)
	if err == nil {
		s.cache(rec)
		return rec
	}
	if !errors.Is(err, db.ErrSessionNotFound) {
		// Store unavailable on a read path with no cached copy: degrade to a
		// fresh cache-only session rather than failing the chat request.
		logger.Ctx(ctx).Warn("session load failed, creating cache-only session",
			"session_id", sessionID, "error", err)
	}

	now := time.Now().UTC()
	rec = &models.SessionRecord{
		SessionID:    sessionID,
		CreatedAt:    now,
		LastActivity: now,
		Messages:     []models.Message{{Role: models.RoleSystem, Content: s.cfg.SystemPrompt}},
	}
	s.cache(rec)

	if s.cfg.PersistMode == PersistImmediate {
		s.persistLocked(ctx, rec)
	}
	return rec
}

// AppendUserMessage records one user turn. It does not trim, persist, or
// invoke the completion API; the assistant append that follows does.
func (s *Store) AppendUserMessage(ctx context.Context, sessionID, content string) *models.SessionRecord {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	rec := s.loadOrCreateLocked(ctx, sessionID)
	rec.Messages = append(rec.Messages, models.Message{Role: models.RoleUser, Content: content})
	rec.LastActivity = time.Now().UTC()
	return rec.Clone()
}

// AppendAssistantMessage records one assistant turn, applies the history
// window, and persists the session. This is the point at which a lazily
// created session becomes durable. Persistence is best-effort: a store
// failure is logged and the exchange still succeeds on cached state.
func (s *Store) AppendAssistantMessage(ctx context.Context, sessionID, content string) *models.SessionRecord {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	rec := s.loadOrCreateLocked(ctx, sessionID)
	rec.Messages = append(rec.Messages, models.Message{Role: models.RoleAssistant, Content: content})
	rec.LastActivity = time.Now().UTC()
	rec.Messages = TrimHistory(rec.Messages, s.cfg.HistoryLimit)

	s.persistLocked(ctx, rec)
	return rec.Clone()
}

// persistLocked writes the session through to the durable store.
// Caller must hold the session lock.
func (s *Store) persistLocked(ctx context.Context, rec *models.SessionRecord) {
	if err := s.recorder.UpsertSession(ctx, rec); err != nil {
		logger.Ctx(ctx).Warn("session persist failed, continuing on cache",
			"session_id", rec.SessionID, "error", err)
	}
}

// Delete removes the session from the cache and the durable store.
// Idempotent: deleting an absent session succeeds. A later GetOrCreate
// with the same id yields a brand-new, unrelated session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	return s.recorder.DeleteSession(ctx, sessionID)
}

// List returns session summaries from the durable store, newest first.
func (s *Store) List(ctx context.Context) ([]models.SessionSummary, error) {
	return s.recorder.ListSessions(ctx)
}

// History returns the session's non-system messages in order. Unknown ids
// follow the lazy-creation contract and yield an empty history.
func (s *Store) History(ctx context.Context, sessionID string) []models.Message {
	rec := s.GetOrCreate(ctx, sessionID)

	history := make([]models.Message, 0, len(rec.Messages))
	for _, m := range rec.Messages {
		if m.Role == models.RoleSystem {
			continue
		}
		history = append(history, m)
	}
	return history
}
