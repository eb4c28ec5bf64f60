package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"boardflow/internal/domain"
)

// InsertRuleRun appends one run record to the audit log. Append-only;
// nothing updates these rows.
func (r Repo) InsertRuleRun(ctx context.Context, run domain.RunResult) error {
	resultsJSON, err := json.Marshal(run.ActionResults)
	if err != nil {
		return fmt.Errorf("marshal action results: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO rule_runs(id,rule_id,board_id,card_id,triggered_by,status,actions_total,actions_succeeded,actions_failed,action_results_json,error_message,duration_ms,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		run.RunID, run.RuleID, run.BoardID, nullable(run.CardID), nullable(run.TriggeredBy),
		run.Status, run.ActionsTotal, run.ActionsSucceeded, run.ActionsFailed,
		string(resultsJSON), nullable(run.ErrorMessage), run.DurationMs, run.CreatedAt)
	return err
}

func scanRun(scan func(dest ...any) error) (domain.RunResult, error) {
	var run domain.RunResult
	var cardID, triggeredBy, resultsJSON, errorMessage sql.NullString
	err := scan(&run.RunID, &run.RuleID, &run.BoardID, &cardID, &triggeredBy, &run.Status,
		&run.ActionsTotal, &run.ActionsSucceeded, &run.ActionsFailed,
		&resultsJSON, &errorMessage, &run.DurationMs, &run.CreatedAt)
	if err == sql.ErrNoRows {
		return run, ErrNotFound
	}
	if err != nil {
		return run, err
	}
	run.CardID = cardID.String
	run.TriggeredBy = triggeredBy.String
	run.ErrorMessage = errorMessage.String
	if resultsJSON.Valid && resultsJSON.String != "" {
		if err := json.Unmarshal([]byte(resultsJSON.String), &run.ActionResults); err != nil {
			return run, fmt.Errorf("run %s results: %w", run.RunID, err)
		}
	}
	return run, nil
}

const runColumns = `id,rule_id,board_id,card_id,triggered_by,status,actions_total,actions_succeeded,actions_failed,action_results_json,error_message,duration_ms,created_at`

// GetRuleRun returns one run record.
func (r Repo) GetRuleRun(ctx context.Context, runID string) (domain.RunResult, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+runColumns+` FROM rule_runs WHERE id=?`, runID)
	return scanRun(row.Scan)
}

// ListRuleRuns returns the newest runs for a rule.
func (r Repo) ListRuleRuns(ctx context.Context, ruleID string, limit int) ([]domain.RunResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+runColumns+` FROM rule_runs WHERE rule_id=? ORDER BY created_at DESC, id DESC LIMIT ?`, ruleID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.RunResult
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, run)
	}
	return res, rows.Err()
}

// ListBoardRuns returns the newest runs across all rules of a board.
func (r Repo) ListBoardRuns(ctx context.Context, boardID string, limit int) ([]domain.RunResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+runColumns+` FROM rule_runs WHERE board_id=? ORDER BY created_at DESC, id DESC LIMIT ?`, boardID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.RunResult
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, run)
	}
	return res, rows.Err()
}
