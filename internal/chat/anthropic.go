package chat

import (
	"context"
	"net/http"
)

// Anthropic talks to the Anthropic Messages API.
type Anthropic struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewAnthropic creates an Anthropic provider with the production
// endpoint. baseURL overrides are for tests.
func NewAnthropic(apiKey string) *Anthropic {
	return &Anthropic{
		apiKey:  apiKey,
		baseURL: "https://api.anthropic.com",
		client:  newHTTPClient(),
	}
}

func (p *Anthropic) Name() string { return "anthropic" }

func (p *Anthropic) Complete(ctx context.Context, model, system, prompt string) (Completion, error) {
	wireRequest := anthropicRequest{
		Model:     model,
		MaxTokens: 4096,
		System:    system,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}

	var wireResponse anthropicResponse
	err := postJSON(ctx, p.client, p.Name(), p.baseURL+"/v1/messages", map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": "2023-06-01",
	}, wireRequest, &wireResponse)
	if err != nil {
		return Completion{}, err
	}

	var text string
	for _, block := range wireResponse.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	return Completion{
		Text:         text,
		InputTokens:  wireResponse.Usage.InputTokens,
		OutputTokens: wireResponse.Usage.OutputTokens,
	}, nil
}

// --- Anthropic wire types ---

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
