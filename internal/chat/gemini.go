package chat

import (
	"context"
	"fmt"
	"net/http"
)

// Gemini talks to the Google Generative Language API. The API reports
// no token usage on this endpoint, so counts are estimated at four
// characters per token.
type Gemini struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewGemini(apiKey string) *Gemini {
	return &Gemini{
		apiKey:  apiKey,
		baseURL: "https://generativelanguage.googleapis.com",
		client:  newHTTPClient(),
	}
}

func (p *Gemini) Name() string { return "gemini" }

func (p *Gemini) Complete(ctx context.Context, model, system, prompt string) (Completion, error) {
	// Gemini has no separate system slot here; prepend it to the prompt.
	fullPrompt := prompt
	if system != "" {
		fullPrompt = system + "\n\n" + prompt
	}
	wireRequest := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: fullPrompt}}},
		},
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", p.baseURL, model, p.apiKey)
	var wireResponse geminiResponse
	if err := postJSON(ctx, p.client, p.Name(), url, nil, wireRequest, &wireResponse); err != nil {
		return Completion{}, err
	}

	var text string
	if len(wireResponse.Candidates) > 0 && len(wireResponse.Candidates[0].Content.Parts) > 0 {
		text = wireResponse.Candidates[0].Content.Parts[0].Text
	}
	return Completion{
		Text:         text,
		InputTokens:  len(fullPrompt) / 4,
		OutputTokens: len(text) / 4,
	}, nil
}

// --- Gemini wire types ---

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}
