package model

import "time"

// CostLogEntry is an append-only record of one provider call. Rows are
// aggregated on demand into summaries and never mutated.
type CostLogEntry struct {
	ID           uint64
	UserID       string
	TaskID       string
	Model        string
	Provider     string
	InputTokens  int
	OutputTokens int
	CreatedAt    time.Time
}
