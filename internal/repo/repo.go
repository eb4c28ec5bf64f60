package repo

import (
	"context"
	"database/sql"
	"errors"

	"boardflow/internal/domain"
)

// Repo is the storage layer. All reads/writes go through here; the engine
// and action handlers never touch SQL directly.
type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullablePtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// InsertBoard stores a board row.
func (r Repo) InsertBoard(ctx context.Context, b domain.BoardData, createdAt string) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO boards(id,name,workspace_id,created_at) VALUES (?,?,?,?)`,
		b.ID, b.Name, nullable(b.WorkspaceID), createdAt)
	if err != nil {
		return err
	}
	for _, c := range b.Columns {
		if err := r.InsertColumn(ctx, b.ID, c); err != nil {
			return err
		}
	}
	return nil
}

// InsertColumn appends a column to a board.
func (r Repo) InsertColumn(ctx context.Context, boardID string, c domain.Column) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO board_columns(id,board_id,label,color_key,position) VALUES (?,?,?,?,?)`,
		c.ID, boardID, c.Label, nullable(c.ColorKey), c.Position)
	return err
}

// GetBoardData returns the board projection with ordered columns.
func (r Repo) GetBoardData(ctx context.Context, id string) (domain.BoardData, error) {
	var b domain.BoardData
	var workspace sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,workspace_id FROM boards WHERE id=?`, id).
		Scan(&b.ID, &b.Name, &workspace)
	if err == sql.ErrNoRows {
		return b, ErrNotFound
	}
	if err != nil {
		return b, err
	}
	if workspace.Valid {
		b.WorkspaceID = workspace.String
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,label,COALESCE(color_key,''),position FROM board_columns WHERE board_id=? ORDER BY position`, id)
	if err != nil {
		return b, err
	}
	defer rows.Close()
	for rows.Next() {
		var c domain.Column
		if err := rows.Scan(&c.ID, &c.Label, &c.ColorKey, &c.Position); err != nil {
			return b, err
		}
		b.Columns = append(b.Columns, c)
	}
	return b, rows.Err()
}

// ListBoards returns all boards without columns.
func (r Repo) ListBoards(ctx context.Context) ([]domain.BoardData, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,COALESCE(workspace_id,'') FROM boards ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.BoardData
	for rows.Next() {
		var b domain.BoardData
		if err := rows.Scan(&b.ID, &b.Name, &b.WorkspaceID); err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, rows.Err()
}

// InsertUser stores a user row.
func (r Repo) InsertUser(ctx context.Context, u domain.CardUser, createdAt string) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO users(id,name,email,created_at) VALUES (?,?,?,?)`,
		u.ID, u.Name, nullable(u.Email), createdAt)
	return err
}

// GetUser returns a user projection.
func (r Repo) GetUser(ctx context.Context, id string) (domain.CardUser, error) {
	var u domain.CardUser
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,COALESCE(email,'') FROM users WHERE id=?`, id).
		Scan(&u.ID, &u.Name, &u.Email)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

// ListUsers returns all users.
func (r Repo) ListUsers(ctx context.Context) ([]domain.CardUser, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,COALESCE(email,'') FROM users ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.CardUser
	for rows.Next() {
		var u domain.CardUser
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}
