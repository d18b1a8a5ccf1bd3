// Package analysis turns finished conversation transcripts into structured
// lead records via the completion API.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/leadline-ai/leadline-web/internal/anthropic"
	"github.com/leadline-ai/leadline-web/internal/logger"
	"github.com/leadline-ai/leadline-web/internal/models"
)

var tracer = otel.Tracer("leadline/analysis")

const (
	// MaxOutputTokens bounds the extraction response size.
	MaxOutputTokens = 1024

	// MaxTranscriptChars is the max transcript size sent to the LLM
	// (rough approximation of tokens at 4 chars each).
	MaxTranscriptChars = 100000 * 4
)

// ErrMalformedExtraction means the completion response could not be parsed
// as a JSON object, even after recovery. The raw response text is attached
// to the error for operator diagnosis; nothing is stored.
var ErrMalformedExtraction = errors.New("extraction response is not valid JSON")

// ErrEmptyTranscript means the session has no user or assistant messages
// to analyze.
var ErrEmptyTranscript = errors.New("session has no messages to analyze")

// Store is the slice of the durable store the pipeline needs. It reads the
// authoritative record directly rather than the session cache, since the
// cache may have been windowed while the durable record retains history.
type Store interface {
	GetSession(ctx context.Context, sessionID string) (*models.SessionRecord, error)
	SaveAnalysis(ctx context.Context, sessionID string, analysis, meta json.RawMessage, analyzedAt time.Time) error
	GetAnalysis(ctx context.Context, sessionID string) (json.RawMessage, *time.Time, error)
}

// Meta records how an analysis was produced. Kept separate from the
// extraction object itself so GetAnalysis returns the extractor's output
// verbatim.
type Meta struct {
	Model            string `json:"model"`
	InputTokens      int    `json:"input_tokens"`
	OutputTokens     int    `json:"output_tokens"`
	GenerationTimeMs int    `json:"generation_time_ms"`
	EstimatedCostUSD string `json:"estimated_cost_usd"`
}

// Pipeline runs lead extraction over stored session transcripts.
type Pipeline struct {
	store  Store
	client *anthropic.Client
	model  string
}

// NewPipeline creates an analysis pipeline using the given completion
// client and model.
func NewPipeline(store Store, client *anthropic.Client, model string) *Pipeline {
	return &Pipeline{
		store:  store,
		client: client,
		model:  model,
	}
}

// Analyze fetches the session's authoritative history, runs the extraction
// prompt over its transcript, and stores the parsed result, overwriting any
// prior analysis. Repeated calls are last-write-wins.
func (p *Pipeline) Analyze(ctx context.Context, sessionID string) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "analysis.analyze",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("llm.model", p.model),
		))
	defer span.End()

	rec, err := p.store.GetSession(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	transcript := BuildTranscript(rec.Messages)
	if transcript == "" {
		span.RecordError(ErrEmptyTranscript)
		span.SetStatus(codes.Error, ErrEmptyTranscript.Error())
		return nil, ErrEmptyTranscript
	}

	truncated := false
	if len(transcript) > MaxTranscriptChars {
		transcript = transcript[:MaxTranscriptChars] + "\n\n[Transcript truncated due to length]"
		truncated = true
	}
	span.SetAttributes(
		attribute.Int("transcript.chars", len(transcript)),
		attribute.Bool("transcript.truncated", truncated),
	)

	start := time.Now()

	// Low temperature for consistent structured output
	temperature := 0.0
	resp, err := p.client.CreateMessage(ctx, &anthropic.MessagesRequest{
		Model:       p.model,
		MaxTokens:   MaxOutputTokens,
		Temperature: &temperature,
		System:      leadExtractionPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: transcript},
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("LLM request failed: %w", err)
	}

	generationTimeMs := int(time.Since(start).Milliseconds())

	result, err := parseExtraction(resp.GetTextContent())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	cost := EstimateCost(p.model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	meta, err := json.Marshal(Meta{
		Model:            p.model,
		InputTokens:      resp.Usage.InputTokens,
		OutputTokens:     resp.Usage.OutputTokens,
		GenerationTimeMs: generationTimeMs,
		EstimatedCostUSD: cost.StringFixed(6),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis meta: %w", err)
	}

	analyzedAt := time.Now().UTC()
	if err := p.store.SaveAnalysis(ctx, sessionID, result, meta, analyzedAt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger.Ctx(ctx).Info("session analyzed",
		"session_id", sessionID,
		"model", p.model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"generation_time_ms", generationTimeMs,
		"estimated_cost_usd", cost.StringFixed(6),
	)

	span.SetAttributes(
		attribute.Int("llm.tokens.input", resp.Usage.InputTokens),
		attribute.Int("llm.tokens.output", resp.Usage.OutputTokens),
		attribute.Int("generation.time_ms", generationTimeMs),
	)

	return result, nil
}

// GetAnalysis returns the last stored extraction, or nil if the session has
// never been analyzed. It never computes on demand.
func (p *Pipeline) GetAnalysis(ctx context.Context, sessionID string) (json.RawMessage, *time.Time, error) {
	return p.store.GetAnalysis(ctx, sessionID)
}

// parseExtraction parses the LLM response as a JSON object. The strict
// parse is tried first; on failure the brace-delimited substring is
// extracted and parsed (models tend to wrap JSON in prose or code fences).
func parseExtraction(content string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	jsonStart := strings.Index(content, "{")
	jsonEnd := strings.LastIndex(content, "}")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd < jsonStart {
		return nil, fmt.Errorf("%w: %q", ErrMalformedExtraction, content)
	}

	candidate := content[jsonStart : jsonEnd+1]
	if !json.Valid([]byte(candidate)) {
		return nil, fmt.Errorf("%w: %q", ErrMalformedExtraction, content)
	}
	return json.RawMessage(candidate), nil
}

const leadExtractionPrompt = `You are a meticulous sales operations assistant. You extract structured lead information from customer support and sales chat transcripts.

The transcript is provided as plain text lines, each prefixed with USER: or ASSISTANT:. Conversations may be in any language; keep extracted free-text values in the conversation's original language.

Output ONLY a valid JSON object with these fields:
- customerName: the customer's name, or null if never stated
- phoneNumber: the customer's phone number, or null
- email: the customer's email address, or null
- customerProblem: short description of what the customer needs or asked about, or null
- availability: when the customer said they are available, or null
- followUpScheduled: true if a follow-up call/meeting was agreed, else false
- notes: free-text notes a salesperson should know, or null
- leadQuality: one of "hot", "warm", "cold" based on expressed intent

Guidelines:
- Never invent contact details; use null when the transcript does not state them.
- Output ONLY the JSON object, no additional text.

Example output:
{
  "customerName": "Lan Nguyen",
  "phoneNumber": "+84 912 345 678",
  "email": null,
  "customerProblem": "needs a price quote for the premium plan",
  "availability": "weekday afternoons",
  "followUpScheduled": true,
  "notes": "asked twice about invoicing; prefers phone contact",
  "leadQuality": "hot"
}`
