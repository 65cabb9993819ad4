package chat

import (
	"context"
	"net/http"
)

// OpenAI talks to the OpenAI Chat Completions API.
type OpenAI struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{
		apiKey:  apiKey,
		baseURL: "https://api.openai.com",
		client:  newHTTPClient(),
	}
}

func (p *OpenAI) Name() string { return "openai" }

func (p *OpenAI) Complete(ctx context.Context, model, system, prompt string) (Completion, error) {
	wireRequest := openaiRequest{
		Model:     model,
		MaxTokens: 4096,
		Messages: []openaiMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	}

	var wireResponse openaiResponse
	err := postJSON(ctx, p.client, p.Name(), p.baseURL+"/v1/chat/completions", map[string]string{
		"Authorization": "Bearer " + p.apiKey,
	}, wireRequest, &wireResponse)
	if err != nil {
		return Completion{}, err
	}

	var text string
	if len(wireResponse.Choices) > 0 {
		text = wireResponse.Choices[0].Message.Content
	}
	return Completion{
		Text:         text,
		InputTokens:  wireResponse.Usage.PromptTokens,
		OutputTokens: wireResponse.Usage.CompletionTokens,
	}, nil
}

// --- OpenAI wire types ---

type openaiRequest struct {
	Model     string          `json:"model"`
	Messages  []openaiMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message openaiMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}
