package llm

import "context"

// Request contains the data sent to the generation API.
type Request struct {
	Text         string
	SystemPrompt string
	Temperature  float64
	Model        string
}

// Response contains the raw generation result.
type Response struct {
	Text       string
	TokensUsed int
}

// Generator is the external-API abstraction.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}
