package billing

import "strings"

// Recommendation names the model a task should run on and why.
type Recommendation struct {
	Model    string `json:"model"`
	Provider string `json:"provider"`
	Reason   string `json:"reason"`
}

// SelectionOptions constrain model selection. MaxCostUSD of zero means
// unconstrained.
type SelectionOptions struct {
	PreferLocal      bool
	MaxCostUSD       float64
	RequireReasoning bool
}

// complexKeywords marks a message as needing a reasoning-capable model.
var complexKeywords = []string{
	"analyze", "debug", "refactor", "architecture", "design",
	"implement", "optimize", "security", "performance", "algorithm",
}

// SelectModel picks a model for the message. The rules fire in order:
// local preference, reasoning demand (unless the budget forbids it),
// tight budget, long input, then the balanced default.
func SelectModel(message string, opts SelectionOptions) Recommendation {
	if opts.PreferLocal {
		return Recommendation{Model: "llama3", Provider: "ollama",
			Reason: "local model preferred"}
	}

	if opts.RequireReasoning || isComplexTask(message) {
		if opts.MaxCostUSD == 0 || opts.MaxCostUSD >= 0.05 {
			return Recommendation{Model: "claude-3-5-sonnet-20241022", Provider: "anthropic",
				Reason: "complex task requires advanced reasoning"}
		}
	}

	if opts.MaxCostUSD > 0 && opts.MaxCostUSD < 0.01 {
		return Recommendation{Model: "gemini-pro", Provider: "gemini",
			Reason: "cost-optimized selection"}
	}

	if len(message) > 1000 {
		return Recommendation{Model: "claude-3-haiku-20240307", Provider: "anthropic",
			Reason: "optimized for long text processing"}
	}

	return Recommendation{Model: "claude-3-5-sonnet-20241022", Provider: "anthropic",
		Reason: "best balance of performance and cost"}
}

func isComplexTask(message string) bool {
	m := strings.ToLower(message)
	for _, kw := range complexKeywords {
		if strings.Contains(m, kw) {
			return true
		}
	}
	return false
}
