package analysis

import (
	"strings"

	"github.com/leadline-ai/leadline-web/internal/models"
)

// BuildTranscript renders a session's conversation as role-prefixed text
// lines for the extraction prompt. System messages are excluded; order is
// preserved. Returns "" when there is nothing to analyze.
func BuildTranscript(msgs []models.Message) string {
	var sb strings.Builder
	for _, m := range msgs {
		if m.Role == models.RoleSystem {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strings.ToUpper(string(m.Role)))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
	}
	return sb.String()
}
