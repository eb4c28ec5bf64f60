package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"boardflow/internal/domain"
)

// InsertRule stores a rule; trigger, conditions and actions are persisted
// as JSON blobs to keep the rule row schema stable across handler additions.
func (r Repo) InsertRule(ctx context.Context, rule domain.Rule) error {
	triggerJSON, err := json.Marshal(rule.Trigger)
	if err != nil {
		return fmt.Errorf("marshal trigger: %w", err)
	}
	conditionsJSON, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("marshal conditions: %w", err)
	}
	actionsJSON, err := json.Marshal(rule.Actions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO rules(id,board_id,name,is_active,trigger_json,conditions_json,actions_json,run_count,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,0,?,?)`,
		rule.ID, rule.BoardID, rule.Name, boolToInt(rule.IsActive),
		string(triggerJSON), string(conditionsJSON), string(actionsJSON),
		rule.CreatedAt, rule.UpdatedAt)
	return err
}

func scanRule(scan func(dest ...any) error) (domain.Rule, error) {
	var rule domain.Rule
	var isActive int
	var triggerJSON, actionsJSON string
	var conditionsJSON, lastRunAt, lastRunStatus sql.NullString
	err := scan(&rule.ID, &rule.BoardID, &rule.Name, &isActive,
		&triggerJSON, &conditionsJSON, &actionsJSON,
		&rule.RunCount, &lastRunAt, &lastRunStatus, &rule.CreatedAt, &rule.UpdatedAt)
	if err == sql.ErrNoRows {
		return rule, ErrNotFound
	}
	if err != nil {
		return rule, err
	}
	rule.IsActive = isActive != 0
	if err := json.Unmarshal([]byte(triggerJSON), &rule.Trigger); err != nil {
		return rule, fmt.Errorf("rule %s trigger: %w", rule.ID, err)
	}
	if conditionsJSON.Valid && conditionsJSON.String != "" {
		if err := json.Unmarshal([]byte(conditionsJSON.String), &rule.Conditions); err != nil {
			return rule, fmt.Errorf("rule %s conditions: %w", rule.ID, err)
		}
	}
	if err := json.Unmarshal([]byte(actionsJSON), &rule.Actions); err != nil {
		return rule, fmt.Errorf("rule %s actions: %w", rule.ID, err)
	}
	if lastRunAt.Valid {
		rule.LastRunAt = &lastRunAt.String
	}
	if lastRunStatus.Valid {
		rule.LastRunStatus = &lastRunStatus.String
	}
	return rule, nil
}

const ruleColumns = `id,board_id,name,is_active,trigger_json,conditions_json,actions_json,run_count,last_run_at,last_run_status,created_at,updated_at`

// GetRule returns one rule.
func (r Repo) GetRule(ctx context.Context, id string) (domain.Rule, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id=?`, id)
	return scanRule(row.Scan)
}

// ListActiveRules returns the active rules for a board, the set the engine
// evaluates per event.
func (r Repo) ListActiveRules(ctx context.Context, boardID string) ([]domain.Rule, error) {
	return r.listRules(ctx, `SELECT `+ruleColumns+` FROM rules WHERE board_id=? AND is_active=1 ORDER BY created_at`, boardID)
}

// ListRules returns all rules for a board regardless of active state.
func (r Repo) ListRules(ctx context.Context, boardID string) ([]domain.Rule, error) {
	return r.listRules(ctx, `SELECT `+ruleColumns+` FROM rules WHERE board_id=? ORDER BY created_at`, boardID)
}

func (r Repo) listRules(ctx context.Context, query string, args ...any) ([]domain.Rule, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Rule
	for rows.Next() {
		rule, err := scanRule(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, rule)
	}
	return res, rows.Err()
}

// SetRuleActive flips a rule's active flag.
func (r Repo) SetRuleActive(ctx context.Context, id string, active bool, updatedAt string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE rules SET is_active=?, updated_at=? WHERE id=?`,
		boolToInt(active), updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateRule replaces a rule's definition.
func (r Repo) UpdateRule(ctx context.Context, rule domain.Rule) error {
	triggerJSON, err := json.Marshal(rule.Trigger)
	if err != nil {
		return fmt.Errorf("marshal trigger: %w", err)
	}
	conditionsJSON, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("marshal conditions: %w", err)
	}
	actionsJSON, err := json.Marshal(rule.Actions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}
	res, err := r.DB.ExecContext(ctx, `UPDATE rules SET name=?, is_active=?, trigger_json=?, conditions_json=?, actions_json=?, updated_at=? WHERE id=?`,
		rule.Name, boolToInt(rule.IsActive), string(triggerJSON), string(conditionsJSON), string(actionsJSON), rule.UpdatedAt, rule.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateRuleCounters bumps run_count and records the last run outcome.
// Called best-effort by the engine after every run.
func (r Repo) UpdateRuleCounters(ctx context.Context, ruleID, status, at string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE rules SET run_count=run_count+1, last_run_at=?, last_run_status=? WHERE id=?`,
		at, status, ruleID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
