// Package llm talks to hosted language models. Callers build a Request,
// optionally with a JSON Schema, and get validated JSON back.
package llm

import (
	"context"
	"encoding/json"
)

// Provider generates a response for a request.
type Provider interface {
	// Generate sends req to the model. When req.Schema is set the returned
	// Content has been validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model the provider is configured for.
	ModelID() string
}

// Request is a single prompt.
type Request struct {
	System      string
	Messages    []Message
	Schema      *Schema
	MaxTokens   int
	Temperature float64
}

// Message is one conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Role is the sender of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// UserPrompt is shorthand for a single-turn request body.
func UserPrompt(text string) []Message {
	return []Message{{Role: RoleUser, Content: text}}
}

// Schema is the JSON structure a response must follow. Name doubles as the
// tool or schema name sent to the provider and must be kebab-case.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Normalized stop reasons.
const (
	StopEnd       = "end"
	StopMaxTokens = "max_tokens"
)

// Response is the model output. Without a schema, Content is the raw text.
type Response struct {
	Content    json.RawMessage
	Usage      Usage
	Model      string
	StopReason string
}

// Usage is token accounting for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// finish validates content against the request schema and assembles the
// Response shared by every backend.
func finish(req Request, content json.RawMessage, usage Usage, model, stop string) (*Response, error) {
	if err := validateResponse(req.Schema, content); err != nil {
		return nil, err
	}
	return &Response{Content: content, Usage: usage, Model: model, StopReason: stop}, nil
}

// resolveModel maps a short alias onto a provider model id. Unknown names
// pass through so full ids work too.
func resolveModel(name string, aliases map[string]string) string {
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}

type purposeKey struct{}

// WithPurpose labels calls made with ctx, for request logging.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the label set by WithPurpose, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
