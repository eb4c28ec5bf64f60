package repo

import (
	"context"

	"boardflow/internal/domain"
)

// InsertSubtask stores a subtask.
func (r Repo) InsertSubtask(ctx context.Context, s domain.Subtask) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO subtasks(id,card_id,title,done,assignee_id,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		s.ID, s.CardID, s.Title, boolToInt(s.Done), nullablePtr(s.AssigneeID), s.CreatedAt, s.UpdatedAt)
	return err
}

// ListSubtasks returns a card's subtasks in creation order.
func (r Repo) ListSubtasks(ctx context.Context, cardID string) ([]domain.Subtask, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,card_id,title,done,assignee_id,created_at,updated_at FROM subtasks WHERE card_id=? ORDER BY created_at, id`, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Subtask
	for rows.Next() {
		var s domain.Subtask
		var done int
		var assignee *string
		if err := rows.Scan(&s.ID, &s.CardID, &s.Title, &done, &assignee, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Done = done != 0
		s.AssigneeID = assignee
		res = append(res, s)
	}
	return res, rows.Err()
}

// CompleteSubtask marks one open subtask done. Returns false when the
// subtask does not exist on the card or is already done.
func (r Repo) CompleteSubtask(ctx context.Context, cardID, subtaskID, updatedAt string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE subtasks SET done=1, updated_at=? WHERE id=? AND card_id=? AND done=0`, updatedAt, subtaskID, cardID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CompleteAllSubtasks marks every open subtask of a card done and returns
// how many rows changed.
func (r Repo) CompleteAllSubtasks(ctx context.Context, cardID, updatedAt string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE subtasks SET done=1, updated_at=? WHERE card_id=? AND done=0`, updatedAt, cardID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AssignAllSubtasks sets the assignee on every subtask of a card and
// returns how many rows changed.
func (r Repo) AssignAllSubtasks(ctx context.Context, cardID, userID, updatedAt string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE subtasks SET assignee_id=?, updated_at=? WHERE card_id=?`, userID, updatedAt, cardID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
