package testutil

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/leadline-ai/leadline-web/internal/models"
)

// CreateTestSession inserts a session record with the given non-system
// messages, seeded with a system message, and returns its id.
func CreateTestSession(t *testing.T, env *TestEnvironment, msgs ...models.Message) string {
	t.Helper()

	now := time.Now().UTC()
	rec := &models.SessionRecord{
		SessionID:    uuid.NewString(),
		CreatedAt:    now,
		LastActivity: now,
		Messages:     append([]models.Message{{Role: models.RoleSystem, Content: "test system prompt"}}, msgs...),
	}

	if err := env.DB.UpsertSession(context.Background(), rec); err != nil {
		t.Fatalf("failed to create test session: %v", err)
	}
	return rec.SessionID
}

// ParseJSONResponse decodes JSON response body into v
func ParseJSONResponse(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v. Body: %s", err, w.Body.String())
	}
}
