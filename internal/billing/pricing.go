// Package billing prices model invocations and picks models for tasks.
// Prices are pure table lookups so the package carries no state and no
// dependencies beyond the standard library.
package billing

import "strings"

// rate is USD per one million tokens.
type rate struct {
	Input  float64
	Output float64
}

// Cost is the estimated price of one invocation in both currencies.
type Cost struct {
	USD float64 `json:"usd"`
	EUR float64 `json:"eur"`
}

// usdToEUR is a fixed conversion rate, matching what finance reports
// against. It is deliberately not fetched live.
const usdToEUR = 0.92

// providerRates maps provider -> model-name fragment -> rate. Model
// lookup is by substring so dated model ids ("claude-3-5-sonnet-20241022")
// hit their family entry. The empty fragment is the provider default.
var providerRates = map[string]map[string]rate{
	"anthropic": {
		"opus":   {Input: 15, Output: 75},
		"sonnet": {Input: 3, Output: 15},
		"haiku":  {Input: 0.25, Output: 1.25},
		"":       {Input: 3, Output: 15},
	},
	"openai": {
		"gpt-4":   {Input: 30, Output: 60},
		"gpt-3.5": {Input: 0.5, Output: 1.5},
		"":        {Input: 30, Output: 60},
	},
	"gemini": {
		"": {Input: 0.5, Output: 1.5},
	},
	"xai": {
		"": {Input: 5, Output: 15},
	},
	"ollama": {
		"": {Input: 0, Output: 0},
	},
}

// lookupRate resolves the price for a provider/model pair. Longer
// fragments win so "gpt-4" is not shadowed by a shorter match. Unknown
// providers fall back to the anthropic default rather than pricing the
// call at zero.
func lookupRate(provider, model string) rate {
	rates, ok := providerRates[strings.ToLower(provider)]
	if !ok {
		return providerRates["anthropic"][""]
	}
	model = strings.ToLower(model)
	best, bestLen := rates[""], -1
	for fragment, r := range rates {
		if fragment != "" && strings.Contains(model, fragment) && len(fragment) > bestLen {
			best, bestLen = r, len(fragment)
		}
	}
	return best
}

// Estimate prices an invocation from its token counts.
func Estimate(provider, model string, inputTokens, outputTokens int) Cost {
	r := lookupRate(provider, model)
	usd := float64(inputTokens)/1e6*r.Input + float64(outputTokens)/1e6*r.Output
	return Cost{USD: usd, EUR: usd * usdToEUR}
}
