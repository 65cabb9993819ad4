package repository

import (
	"context"
	"database/sql"

	"github.com/codecloudhq/cloud-agents/internal/model"
)

// CostRepo is an append-mostly log of token consumption. Rows are never
// updated; totals are computed from the raw entries at read time.
type CostRepo struct{ DB *sql.DB }

func NewCostRepo(db *sql.DB) *CostRepo { return &CostRepo{DB: db} }

// Insert records one model invocation.
func (r *CostRepo) Insert(ctx context.Context, e model.CostLogEntry) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO cost_log (user_id, task_id, model, provider, input_tokens, output_tokens)
		 VALUES (?,?,?,?,?,?)`,
		e.UserID, e.TaskID, e.Model, e.Provider, e.InputTokens, e.OutputTokens)
	return err
}

const costColumns = "id,user_id,task_id,model,provider,input_tokens,output_tokens,created_at"

// ListByUser returns a user's cost entries, newest first.
func (r *CostRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.CostLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+costColumns+" FROM cost_log WHERE user_id=? ORDER BY created_at DESC LIMIT ? OFFSET ?",
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCostEntries(rows)
}

// ListByTask returns every entry recorded against a task, oldest first.
func (r *CostRepo) ListByTask(ctx context.Context, taskID string) ([]model.CostLogEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+costColumns+" FROM cost_log WHERE task_id=? ORDER BY created_at ASC", taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCostEntries(rows)
}

func collectCostEntries(rows *sql.Rows) ([]model.CostLogEntry, error) {
	var out []model.CostLogEntry
	for rows.Next() {
		var e model.CostLogEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.TaskID, &e.Model, &e.Provider,
			&e.InputTokens, &e.OutputTokens, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
