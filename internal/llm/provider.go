// Package llm is a thin client for OpenAI-compatible chat models used by
// the analyze command.
package llm

import "context"

// Provider completes a chat conversation.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}

// Role is the sender of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Prompt is the two-message conversation every review uses: a system
// instruction followed by the user content.
func Prompt(system, user string) []Message {
	return []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: user},
	}
}

// CompletionRequest leaves Model and MaxTokens to the provider defaults
// when zero. JSONMode asks the model for a single JSON object.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse carries the reply and the token usage billed for it.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// Cost is the estimated USD price of the response.
func (r *CompletionResponse) Cost() float64 {
	return EstimateCost(r.Model, r.InputTokens, r.OutputTokens)
}
