// Package llm is a minimal client for OpenAI-compatible chat completion APIs.
package llm

import (
	"context"
)

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a completion request. Zero Temperature and MaxTokens fall back
// to the provider defaults.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Usage reports token consumption for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the assistant's reply.
type Response struct {
	Content string
	Usage   Usage
}

// Client completes chat requests. Implementations must honor ctx cancellation.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Model() string
}
