package chat

import "github.com/leadline-ai/leadline-web/internal/models"

// DefaultHistoryLimit bounds the number of messages kept per session, both
// in storage and in the payload sent to the completion API.
const DefaultHistoryLimit = 20

// TrimHistory bounds msgs to limit entries. The first message (the system
// message) is always retained; the excess is dropped from the oldest
// non-system entries, keeping the most recent limit-1 turns in order.
// Returns msgs unchanged when already within the limit.
func TrimHistory(msgs []models.Message, limit int) []models.Message {
	if limit <= 0 || len(msgs) <= limit {
		return msgs
	}

	trimmed := make([]models.Message, 0, limit)
	trimmed = append(trimmed, msgs[0])
	trimmed = append(trimmed, msgs[len(msgs)-(limit-1):]...)
	return trimmed
}
