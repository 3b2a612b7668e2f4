// Package llm abstracts the generative model backends behind a single
// completion contract and routes calls through a prioritized target list.
package llm

import "context"

// Message is a single conversational message.
type Message struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

// Request is a completion request against any backend target.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature *float64
}

// Response is the single text completion returned by a target.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Target is one completion backend with a fixed model id.
type Target interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Temp is a convenience for optional temperatures.
func Temp(t float64) *float64 {
	return &t
}
