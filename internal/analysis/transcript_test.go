package analysis

import (
	"testing"

	"github.com/leadline-ai/leadline-web/internal/models"
)

func TestBuildTranscript(t *testing.T) {
	t.Run("renders role-prefixed lines", func(t *testing.T) {
		msgs := []models.Message{
			{Role: models.RoleSystem, Content: "you are a receptionist"},
			{Role: models.RoleUser, Content: "xin chào"},
			{Role: models.RoleAssistant, Content: "chào bạn"},
			{Role: models.RoleUser, Content: "tôi cần hỗ trợ"},
		}

		got := BuildTranscript(msgs)
		want := "USER: xin chào\nASSISTANT: chào bạn\nUSER: tôi cần hỗ trợ"
		if got != want {
			t.Errorf("transcript mismatch:\ngot:  %q\nwant: %q", got, want)
		}
	})

	t.Run("system-only session is empty", func(t *testing.T) {
		msgs := []models.Message{
			{Role: models.RoleSystem, Content: "you are a receptionist"},
		}
		if got := BuildTranscript(msgs); got != "" {
			t.Errorf("expected empty transcript, got %q", got)
		}
	})

	t.Run("no messages is empty", func(t *testing.T) {
		if got := BuildTranscript(nil); got != "" {
			t.Errorf("expected empty transcript, got %q", got)
		}
	})
}
