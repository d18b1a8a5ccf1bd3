package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/leadline-ai/leadline-web/internal/models"
)

// GetSession retrieves the full durable record for a session.
// Returns ErrSessionNotFound if no record exists.
func (db *DB) GetSession(ctx context.Context, sessionID string) (*models.SessionRecord, error) {
	ctx, span := tracer.Start(ctx, "db.get_session",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	query := `SELECT session_id, created_at, last_activity, messages, analysis, analyzed_at
	          FROM sessions WHERE session_id = $1`

	var rec models.SessionRecord
	var messagesJSON []byte
	var analysisJSON []byte
	err := db.conn.QueryRowContext(ctx, query, sessionID).Scan(
		&rec.SessionID,
		&rec.CreatedAt,
		&rec.LastActivity,
		&messagesJSON,
		&analysisJSON,
		&rec.AnalyzedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := json.Unmarshal(messagesJSON, &rec.Messages); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	if len(analysisJSON) > 0 {
		rec.Analysis = json.RawMessage(analysisJSON)
	}

	span.SetAttributes(attribute.Int("session.message_count", len(rec.Messages)))
	return &rec, nil
}

// UpsertSession writes the full session document, replacing any existing
// messages. created_at is immutable after the first write; last_activity
// and messages are replaced wholesale.
func (db *DB) UpsertSession(ctx context.Context, rec *models.SessionRecord) error {
	ctx, span := tracer.Start(ctx, "db.upsert_session",
		trace.WithAttributes(
			attribute.String("session.id", rec.SessionID),
			attribute.Int("session.message_count", len(rec.Messages)),
		))
	defer span.End()

	messagesJSON, err := json.Marshal(rec.Messages)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to encode messages: %w", err)
	}

	query := `INSERT INTO sessions (session_id, created_at, last_activity, messages)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (session_id) DO UPDATE
	          SET messages = EXCLUDED.messages,
	              last_activity = EXCLUDED.last_activity`

	if _, err := db.conn.ExecContext(ctx, query, rec.SessionID, rec.CreatedAt, rec.LastActivity, messagesJSON); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	return nil
}

// DeleteSession removes the durable record. Deleting an absent session is
// not an error; deletion is terminal and the id behaves as never-created
// afterwards.
func (db *DB) DeleteSession(ctx context.Context, sessionID string) error {
	ctx, span := tracer.Start(ctx, "db.delete_session",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	query := `DELETE FROM sessions WHERE session_id = $1`
	result, err := db.conn.ExecContext(ctx, query, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil {
		span.SetAttributes(attribute.Bool("session.existed", rows > 0))
	}
	return nil
}

// ListSessions returns summaries of all sessions ordered by creation time
// descending. The message count excludes the system message.
func (db *DB) ListSessions(ctx context.Context) ([]models.SessionSummary, error) {
	ctx, span := tracer.Start(ctx, "db.list_sessions")
	defer span.End()

	query := `SELECT session_id, created_at, last_activity,
	                 (SELECT COUNT(*)
	                  FROM jsonb_array_elements(messages) AS m
	                  WHERE m->>'role' <> 'system') AS message_count
	          FROM sessions
	          ORDER BY created_at DESC`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.SessionSummary, 0)
	for rows.Next() {
		var s models.SessionSummary
		if err := rows.Scan(&s.SessionID, &s.CreatedAt, &s.LastActivity, &s.MessageCount); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	span.SetAttributes(attribute.Int("sessions.count", len(summaries)))
	return summaries, nil
}

// SaveAnalysis stores the extraction result for a session, overwriting any
// prior analysis (last write wins). meta carries model/token/cost metadata
// and is kept in a separate column so the analysis column stays exactly the
// extractor's object.
func (db *DB) SaveAnalysis(ctx context.Context, sessionID string, analysis, meta json.RawMessage, analyzedAt time.Time) error {
	ctx, span := tracer.Start(ctx, "db.save_analysis",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	query := `UPDATE sessions
	          SET analysis = $2, analysis_meta = $3, analyzed_at = $4
	          WHERE session_id = $1`

	result, err := db.conn.ExecContext(ctx, query, sessionID, []byte(analysis), nullableJSON(meta), analyzedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// GetAnalysis returns the last stored analysis and its timestamp.
// Both are nil if the session has never been analyzed.
// Returns ErrSessionNotFound if the session does not exist.
func (db *DB) GetAnalysis(ctx context.Context, sessionID string) (json.RawMessage, *time.Time, error) {
	ctx, span := tracer.Start(ctx, "db.get_analysis",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	query := `SELECT analysis, analyzed_at FROM sessions WHERE session_id = $1`

	var analysisJSON []byte
	var analyzedAt *time.Time
	err := db.conn.QueryRowContext(ctx, query, sessionID).Scan(&analysisJSON, &analyzedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, ErrSessionNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	if len(analysisJSON) == 0 {
		return nil, nil, nil
	}
	return json.RawMessage(analysisJSON), analyzedAt, nil
}

// nullableJSON maps an empty raw message to SQL NULL.
func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
