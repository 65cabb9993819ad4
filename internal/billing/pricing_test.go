package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateSonnetMillionInputTokens(t *testing.T) {
	got := Estimate("anthropic", "claude-3-5-sonnet-20241022", 1_000_000, 0)
	assert.InDelta(t, 3.0, got.USD, 1e-9)
	assert.InDelta(t, 2.76, got.EUR, 1e-9)
}

func TestEstimateOllamaIsFree(t *testing.T) {
	got := Estimate("ollama", "llama3", 500_000, 500_000)
	assert.Zero(t, got.USD)
	assert.Zero(t, got.EUR)
}

func TestEstimateRates(t *testing.T) {
	cases := []struct {
		name      string
		provider  string
		model     string
		in, out   int
		wantUSD   float64
	}{
		{"opus output heavy", "anthropic", "claude-3-opus-20240229", 0, 1_000_000, 75},
		{"haiku", "anthropic", "claude-3-haiku-20240307", 1_000_000, 1_000_000, 1.5},
		{"anthropic unknown model uses sonnet rate", "anthropic", "claude-next", 1_000_000, 0, 3},
		{"gpt-4", "openai", "gpt-4-turbo", 1_000_000, 0, 30},
		{"gpt-3.5 not shadowed by gpt-4 default", "openai", "gpt-3.5-turbo", 1_000_000, 0, 0.5},
		{"openai unknown model uses gpt-4 rate", "openai", "o1-mini", 1_000_000, 0, 30},
		{"gemini", "gemini", "gemini-pro", 1_000_000, 1_000_000, 2},
		{"xai", "xai", "grok-2", 1_000_000, 0, 5},
		{"unknown provider falls back to sonnet rate", "mystery", "whatever", 1_000_000, 0, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Estimate(tc.provider, tc.model, tc.in, tc.out)
			assert.InDelta(t, tc.wantUSD, got.USD, 1e-9)
			assert.InDelta(t, tc.wantUSD*0.92, got.EUR, 1e-9)
		})
	}
}

func TestEstimateCaseInsensitive(t *testing.T) {
	lower := Estimate("anthropic", "claude-3-opus", 1000, 1000)
	upper := Estimate("Anthropic", "Claude-3-OPUS", 1000, 1000)
	assert.Equal(t, lower, upper)
}
