package anthropic

import (
	"context"
	"fmt"

	"github.com/leadline-ai/leadline-web/internal/models"
)

// DefaultChatMaxTokens bounds the length of a single assistant reply.
const DefaultChatMaxTokens = 1024

// ChatCompleter adapts the Messages API to the chat exchange contract:
// given a session's ordered messages (system first), produce a reply.
type ChatCompleter struct {
	client    *Client
	model     string
	maxTokens int
}

// NewChatCompleter creates a completer for the given model.
func NewChatCompleter(client *Client, model string) *ChatCompleter {
	return &ChatCompleter{
		client:    client,
		model:     model,
		maxTokens: DefaultChatMaxTokens,
	}
}

// Complete sends the conversation and returns the assistant reply text.
// The leading system message maps to the request's system field; user and
// assistant turns are forwarded in order.
func (c *ChatCompleter) Complete(ctx context.Context, msgs []models.Message) (string, error) {
	req := &MessagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
	}

	for _, m := range msgs {
		if m.Role == models.RoleSystem {
			req.System = m.Content
			continue
		}
		req.Messages = append(req.Messages, Message{Role: string(m.Role), Content: m.Content})
	}

	resp, err := c.client.CreateMessage(ctx, req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	return resp.GetTextContent(), nil
}
