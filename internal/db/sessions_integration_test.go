package db_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/leadline-ai/leadline-web/internal/db"
	"github.com/leadline-ai/leadline-web/internal/models"
	"github.com/leadline-ai/leadline-web/internal/testutil"
)

func TestSessionPersistence(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := testutil.SetupTestEnvironment(t)
	ctx := context.Background()

	t.Run("round trip preserves record", func(t *testing.T) {
		env.CleanDB(t)

		now := time.Now().UTC().Truncate(time.Microsecond)
		rec := &models.SessionRecord{
			SessionID:    "sess-roundtrip",
			CreatedAt:    now,
			LastActivity: now,
			Messages: []models.Message{
				{Role: models.RoleSystem, Content: "test system prompt"},
				{Role: models.RoleUser, Content: "xin chào"},
				{Role: models.RoleAssistant, Content: "chào bạn"},
			},
		}
		if err := env.DB.UpsertSession(ctx, rec); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}

		got, err := env.DB.GetSession(ctx, "sess-roundtrip")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if len(got.Messages) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(got.Messages))
		}
		if got.Messages[1].Content != "xin chào" {
			t.Errorf("message content mangled: %q", got.Messages[1].Content)
		}
		if !got.CreatedAt.Equal(now) {
			t.Errorf("created_at mismatch: got %v want %v", got.CreatedAt, now)
		}
		if got.Analysis != nil {
			t.Error("fresh session should have no analysis")
		}
		if got.AnalyzedAt != nil {
			t.Error("fresh session should have no analyzed_at")
		}
	})

	t.Run("upsert replaces messages and keeps created_at", func(t *testing.T) {
		env.CleanDB(t)

		created := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
		rec := &models.SessionRecord{
			SessionID:    "sess-upsert",
			CreatedAt:    created,
			LastActivity: created,
			Messages:     []models.Message{{Role: models.RoleSystem, Content: "sys"}},
		}
		if err := env.DB.UpsertSession(ctx, rec); err != nil {
			t.Fatalf("first upsert failed: %v", err)
		}

		later := time.Now().UTC().Truncate(time.Microsecond)
		rec.CreatedAt = later // must be ignored by the update
		rec.LastActivity = later
		rec.Messages = append(rec.Messages, models.Message{Role: models.RoleUser, Content: "hi"})
		if err := env.DB.UpsertSession(ctx, rec); err != nil {
			t.Fatalf("second upsert failed: %v", err)
		}

		got, err := env.DB.GetSession(ctx, "sess-upsert")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if !got.CreatedAt.Equal(created) {
			t.Errorf("created_at changed on upsert: got %v want %v", got.CreatedAt, created)
		}
		if !got.LastActivity.Equal(later) {
			t.Errorf("last_activity not updated: got %v want %v", got.LastActivity, later)
		}
		if len(got.Messages) != 2 {
			t.Errorf("messages not replaced: got %d", len(got.Messages))
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		env.CleanDB(t)

		_, err := env.DB.GetSession(ctx, "nope")
		if !errors.Is(err, db.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		env.CleanDB(t)

		sessionID := testutil.CreateTestSession(t, env)
		if err := env.DB.DeleteSession(ctx, sessionID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if _, err := env.DB.GetSession(ctx, sessionID); !errors.Is(err, db.ErrSessionNotFound) {
			t.Errorf("expected session gone, got %v", err)
		}
		if err := env.DB.DeleteSession(ctx, sessionID); err != nil {
			t.Errorf("second delete should succeed, got %v", err)
		}
	})

	t.Run("list orders newest first and counts without system", func(t *testing.T) {
		env.CleanDB(t)

		old := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
		if err := env.DB.UpsertSession(ctx, &models.SessionRecord{
			SessionID:    "sess-old",
			CreatedAt:    old,
			LastActivity: old,
			Messages: []models.Message{
				{Role: models.RoleSystem, Content: "sys"},
				{Role: models.RoleUser, Content: "q"},
				{Role: models.RoleAssistant, Content: "a"},
			},
		}); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}

		recent := time.Now().UTC().Truncate(time.Microsecond)
		if err := env.DB.UpsertSession(ctx, &models.SessionRecord{
			SessionID:    "sess-new",
			CreatedAt:    recent,
			LastActivity: recent,
			Messages:     []models.Message{{Role: models.RoleSystem, Content: "sys"}},
		}); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}

		summaries, err := env.DB.ListSessions(ctx)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(summaries) != 2 {
			t.Fatalf("expected 2 sessions, got %d", len(summaries))
		}
		if summaries[0].SessionID != "sess-new" {
			t.Errorf("expected newest first, got %s", summaries[0].SessionID)
		}
		if summaries[1].MessageCount != 2 {
			t.Errorf("expected count 2 excluding system, got %d", summaries[1].MessageCount)
		}
		if summaries[0].MessageCount != 0 {
			t.Errorf("system-only session should count 0, got %d", summaries[0].MessageCount)
		}
	})
}

func TestAnalysisPersistence(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := testutil.SetupTestEnvironment(t)
	ctx := context.Background()

	t.Run("save and get", func(t *testing.T) {
		env.CleanDB(t)

		sessionID := testutil.CreateTestSession(t, env,
			models.Message{Role: models.RoleUser, Content: "hi"})

		result := json.RawMessage(`{"leadQuality": "warm"}`)
		meta := json.RawMessage(`{"model": "claude-haiku-4-5"}`)
		at := time.Now().UTC().Truncate(time.Microsecond)

		if err := env.DB.SaveAnalysis(ctx, sessionID, result, meta, at); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		got, analyzedAt, err := env.DB.GetAnalysis(ctx, sessionID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		var parsed map[string]string
		if err := json.Unmarshal(got, &parsed); err != nil {
			t.Fatalf("stored analysis is not valid JSON: %v", err)
		}
		if parsed["leadQuality"] != "warm" {
			t.Errorf("unexpected analysis: %s", got)
		}
		if analyzedAt == nil || !analyzedAt.Equal(at) {
			t.Errorf("analyzed_at mismatch: got %v want %v", analyzedAt, at)
		}
	})

	t.Run("overwrite wins", func(t *testing.T) {
		env.CleanDB(t)

		sessionID := testutil.CreateTestSession(t, env,
			models.Message{Role: models.RoleUser, Content: "hi"})

		first := time.Now().UTC().Add(-time.Minute).Truncate(time.Microsecond)
		if err := env.DB.SaveAnalysis(ctx, sessionID, json.RawMessage(`{"leadQuality":"cold"}`), nil, first); err != nil {
			t.Fatalf("first save failed: %v", err)
		}
		second := time.Now().UTC().Truncate(time.Microsecond)
		if err := env.DB.SaveAnalysis(ctx, sessionID, json.RawMessage(`{"leadQuality":"hot"}`), nil, second); err != nil {
			t.Fatalf("second save failed: %v", err)
		}

		got, analyzedAt, err := env.DB.GetAnalysis(ctx, sessionID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		var parsed map[string]string
		if err := json.Unmarshal(got, &parsed); err != nil {
			t.Fatalf("failed to parse analysis: %v", err)
		}
		if parsed["leadQuality"] != "hot" {
			t.Errorf("expected overwrite, got %s", got)
		}
		if !analyzedAt.Equal(second) {
			t.Errorf("analyzed_at not updated: got %v want %v", analyzedAt, second)
		}
	})

	t.Run("never analyzed returns nil", func(t *testing.T) {
		env.CleanDB(t)

		sessionID := testutil.CreateTestSession(t, env)
		got, analyzedAt, err := env.DB.GetAnalysis(ctx, sessionID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got != nil || analyzedAt != nil {
			t.Errorf("expected nil analysis, got %s / %v", got, analyzedAt)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		env.CleanDB(t)

		if err := env.DB.SaveAnalysis(ctx, "nope", json.RawMessage(`{}`), nil, time.Now().UTC()); !errors.Is(err, db.ErrSessionNotFound) {
			t.Errorf("save: expected ErrSessionNotFound, got %v", err)
		}
		if _, _, err := env.DB.GetAnalysis(ctx, "nope"); !errors.Is(err, db.ErrSessionNotFound) {
			t.Errorf("get: expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("analysis survives session upsert", func(t *testing.T) {
		env.CleanDB(t)

		sessionID := testutil.CreateTestSession(t, env,
			models.Message{Role: models.RoleUser, Content: "hi"})
		at := time.Now().UTC().Truncate(time.Microsecond)
		if err := env.DB.SaveAnalysis(ctx, sessionID, json.RawMessage(`{"leadQuality":"hot"}`), nil, at); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		rec, err := env.DB.GetSession(ctx, sessionID)
		if err != nil {
			t.Fatalf("get session failed: %v", err)
		}
		rec.Messages = append(rec.Messages, models.Message{Role: models.RoleAssistant, Content: "hello"})
		if err := env.DB.UpsertSession(ctx, rec); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}

		got, analyzedAt, err := env.DB.GetAnalysis(ctx, sessionID)
		if err != nil {
			t.Fatalf("get analysis failed: %v", err)
		}
		if got == nil || analyzedAt == nil {
			t.Error("analysis lost after session upsert")
		}
	})
}
