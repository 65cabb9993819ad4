// Package chat orchestrates conversations between users and model
// providers: it persists the transcript, builds prompts with history,
// dispatches to the chosen backend and reports token usage.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Completion is the normalized result of one model invocation.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Provider is implemented by each model backend. Implementations
// translate between this package's types and the vendor wire format.
type Provider interface {
	// Name reports the provider id used in routing and cost logging.
	Name() string

	// Complete sends a single-turn request and blocks until the full
	// response is available.
	Complete(ctx context.Context, model, system, prompt string) (Completion, error)
}

// ProviderError is returned when a backend responds with an error.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("chat/%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
}

// defaultTimeout bounds one provider round trip. Model backends can be
// slow on long prompts; 60s is generous without hanging a worker
// forever.
const defaultTimeout = 60 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// postJSON marshals wireRequest, POSTs it and decodes a 200 response
// into out. Non-200 responses become a *ProviderError with the body's
// error message when it parses, or the raw body otherwise.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, wireRequest, out interface{}) error {
	body, err := json.Marshal(wireRequest)
	if err != nil {
		return fmt.Errorf("chat/%s: marshaling request: %w", provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("chat/%s: creating request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("chat/%s: sending request: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readProviderError(provider, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("chat/%s: decoding response: %w", provider, err)
	}
	return nil
}

// readProviderError parses the common {"error":{"message":...}} body
// shared by the Anthropic, OpenAI and Gemini APIs.
func readProviderError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var wireError struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Error.Message != "" {
		return &ProviderError{Provider: provider, StatusCode: resp.StatusCode, Message: wireError.Error.Message}
	}
	return &ProviderError{Provider: provider, StatusCode: resp.StatusCode, Message: string(body)}
}
