package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Gemini calls Google's generateContent REST endpoint.
type Gemini struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGemini creates a Gemini client. An empty apiKey is allowed; Generate
// then fails with ErrNotConfigured.
func NewGemini(apiKey string, timeout time.Duration) *Gemini {
	return &Gemini{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Generate sends the system prompt and input as one user turn, labeled so
// the model treats the text as material to transform rather than converse
// with.
func (g *Gemini) Generate(ctx context.Context, req Request) (Response, error) {
	if g.apiKey == "" {
		return Response{}, ErrNotConfigured
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", g.baseURL, req.Model, g.apiKey)

	prompt := req.SystemPrompt + "\n\n[Input]\n" + req.Text
	body := geminiRequest{
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: prompt}},
			},
		},
	}
	if req.Temperature > 0 {
		body.GenerationConfig = &geminiGenConfig{Temperature: &req.Temperature}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}

	var resp Response
	err = retryWithBackoff(ctx, 3, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		httpResp, err := g.client.Do(httpReq)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer httpResp.Body.Close()

		respBody, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if httpResp.StatusCode == http.StatusTooManyRequests {
			return &rateLimitError{}
		}
		if httpResp.StatusCode != http.StatusOK {
			return &APIError{StatusCode: httpResp.StatusCode, Message: string(respBody)}
		}

		var result geminiResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}

		if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
			return &SafetyError{Reason: result.PromptFeedback.BlockReason}
		}
		if len(result.Candidates) == 0 {
			return &APIError{StatusCode: httpResp.StatusCode, Message: "no candidates in response"}
		}
		if reason := result.Candidates[0].FinishReason; reason == "SAFETY" {
			return &SafetyError{Reason: reason}
		}
		if len(result.Candidates[0].Content.Parts) == 0 {
			return &APIError{StatusCode: httpResp.StatusCode, Message: "no content in response"}
		}

		var content string
		for _, part := range result.Candidates[0].Content.Parts {
			content += part.Text
		}

		resp = Response{
			Text:       content,
			TokensUsed: result.UsageMetadata.TotalTokenCount,
		}
		return nil
	})

	return resp, err
}

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate `json:"candidates"`
	PromptFeedback *geminiFeedback   `json:"promptFeedback,omitempty"`
	UsageMetadata  geminiUsage       `json:"usageMetadata"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type geminiUsage struct {
	TotalTokenCount int `json:"totalTokenCount"`
}
