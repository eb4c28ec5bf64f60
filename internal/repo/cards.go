package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"boardflow/internal/domain"
)

// InsertCard stores a card with its assignees, tags and custom fields.
func (r Repo) InsertCard(ctx context.Context, c domain.CardData) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var createdBy any
	if c.CreatedBy != nil {
		createdBy = c.CreatedBy.ID
	}
	entered := c.ColumnEnteredAt
	if entered == "" {
		entered = c.CreatedAt
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO cards(id,board_id,column_id,title,description,priority,due_date,business_id,created_by,archived,column_entered_at,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.BoardID, c.Status, c.Title, nullable(c.Description), nullable(c.Priority),
		nullablePtr(c.DueDate), nullable(c.BusinessID), createdBy, boolToInt(c.Archived), entered, c.CreatedAt, c.UpdatedAt); err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	for _, u := range c.Assignees {
		if _, err := tx.ExecContext(ctx, `INSERT INTO card_assignees(card_id,user_id) VALUES (?,?)`, c.ID, u.ID); err != nil {
			return err
		}
	}
	for _, tag := range c.Tags {
		if _, err := tx.ExecContext(ctx, `INSERT INTO card_tags(card_id,tag) VALUES (?,?)`, c.ID, tag); err != nil {
			return err
		}
	}
	for name, value := range c.CustomFields {
		if _, err := tx.ExecContext(ctx, `INSERT INTO card_custom_fields(card_id,name,value) VALUES (?,?,?)`, c.ID, name, value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetCardData builds the point-in-time card snapshot the engine evaluates
// against. Assembled fresh on every call; never cached.
func (r Repo) GetCardData(ctx context.Context, id string) (domain.CardData, error) {
	var c domain.CardData
	var desc, priority, dueDate, businessID, createdBy, entered sql.NullString
	var archived int
	err := r.DB.QueryRowContext(ctx, `SELECT id,board_id,column_id,title,description,priority,due_date,business_id,created_by,archived,column_entered_at,created_at,updated_at FROM cards WHERE id=?`, id).
		Scan(&c.ID, &c.BoardID, &c.Status, &c.Title, &desc, &priority, &dueDate, &businessID, &createdBy, &archived, &entered, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	c.Description = desc.String
	c.Priority = priority.String
	if dueDate.Valid {
		c.DueDate = &dueDate.String
	}
	c.BusinessID = businessID.String
	c.Archived = archived != 0
	c.ColumnEnteredAt = entered.String

	if createdBy.Valid {
		creator, err := r.GetUser(ctx, createdBy.String)
		if err == nil {
			c.CreatedBy = &creator
		} else if err != ErrNotFound {
			return c, err
		}
	}

	rows, err := r.DB.QueryContext(ctx, `SELECT u.id,u.name,COALESCE(u.email,'')
FROM card_assignees a JOIN users u ON u.id=a.user_id WHERE a.card_id=? ORDER BY u.name`, id)
	if err != nil {
		return c, err
	}
	defer rows.Close()
	for rows.Next() {
		var u domain.CardUser
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return c, err
		}
		c.Assignees = append(c.Assignees, u)
	}
	if err := rows.Err(); err != nil {
		return c, err
	}

	tagRows, err := r.DB.QueryContext(ctx, `SELECT tag FROM card_tags WHERE card_id=? ORDER BY tag`, id)
	if err != nil {
		return c, err
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var tag string
		if err := tagRows.Scan(&tag); err != nil {
			return c, err
		}
		c.Tags = append(c.Tags, tag)
	}
	if err := tagRows.Err(); err != nil {
		return c, err
	}

	fieldRows, err := r.DB.QueryContext(ctx, `SELECT name,value FROM card_custom_fields WHERE card_id=?`, id)
	if err != nil {
		return c, err
	}
	defer fieldRows.Close()
	for fieldRows.Next() {
		var name, value string
		if err := fieldRows.Scan(&name, &value); err != nil {
			return c, err
		}
		if c.CustomFields == nil {
			c.CustomFields = make(map[string]string)
		}
		c.CustomFields[name] = value
	}
	return c, fieldRows.Err()
}

func (r Repo) touchCard(ctx context.Context, cardID, updatedAt string, set string, args ...any) error {
	args = append(args, updatedAt, cardID)
	res, err := r.DB.ExecContext(ctx, `UPDATE cards SET `+set+`, updated_at=? WHERE id=?`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MoveCard moves a card to another column and restamps its column entry
// time.
func (r Repo) MoveCard(ctx context.Context, cardID, columnID, updatedAt string) error {
	return r.touchCard(ctx, cardID, updatedAt, `column_id=?, column_entered_at=?`, columnID, updatedAt)
}

// MoveCardToTop gives the card the lowest position in its column.
func (r Repo) MoveCardToTop(ctx context.Context, cardID, updatedAt string) error {
	return r.touchCard(ctx, cardID, updatedAt,
		`position=(SELECT COALESCE(MIN(position),0)-1 FROM cards c2 WHERE c2.column_id=cards.column_id)`)
}

// SetPriority updates the card priority.
func (r Repo) SetPriority(ctx context.Context, cardID, priority, updatedAt string) error {
	return r.touchCard(ctx, cardID, updatedAt, `priority=?`, priority)
}

// SetDueDate sets or clears the card due date.
func (r Repo) SetDueDate(ctx context.Context, cardID string, dueDate *string, updatedAt string) error {
	return r.touchCard(ctx, cardID, updatedAt, `due_date=?`, nullablePtr(dueDate))
}

// SetTitle replaces the card title.
func (r Repo) SetTitle(ctx context.Context, cardID, title, updatedAt string) error {
	return r.touchCard(ctx, cardID, updatedAt, `title=?`, title)
}

// SetDescription replaces the card description.
func (r Repo) SetDescription(ctx context.Context, cardID, description, updatedAt string) error {
	return r.touchCard(ctx, cardID, updatedAt, `description=?`, nullable(description))
}

// ArchiveCard marks the card archived.
func (r Repo) ArchiveCard(ctx context.Context, cardID, updatedAt string) error {
	return r.touchCard(ctx, cardID, updatedAt, `archived=1`)
}

// AssignUser adds an assignee; already-assigned is a no-op.
func (r Repo) AssignUser(ctx context.Context, cardID, userID, updatedAt string) error {
	if _, err := r.DB.ExecContext(ctx, `INSERT INTO card_assignees(card_id,user_id) VALUES (?,?)
ON CONFLICT(card_id,user_id) DO NOTHING`, cardID, userID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx, `UPDATE cards SET updated_at=? WHERE id=?`, updatedAt, cardID)
	return err
}

// UnassignUser removes an assignee; not-assigned is a no-op.
func (r Repo) UnassignUser(ctx context.Context, cardID, userID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM card_assignees WHERE card_id=? AND user_id=?`, cardID, userID)
	return err
}

// UnassignAll removes every assignee from a card.
func (r Repo) UnassignAll(ctx context.Context, cardID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM card_assignees WHERE card_id=?`, cardID)
	return err
}

// AddTag adds a tag; duplicate tags are a no-op (actions stay idempotent
// under at-least-once event delivery).
func (r Repo) AddTag(ctx context.Context, cardID, tag string) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO card_tags(card_id,tag) VALUES (?,?)
ON CONFLICT(card_id,tag) DO NOTHING`, cardID, tag)
	return err
}

// RemoveTag removes a tag; missing tag is a no-op.
func (r Repo) RemoveTag(ctx context.Context, cardID, tag string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM card_tags WHERE card_id=? AND tag=?`, cardID, tag)
	return err
}

// SetCustomField upserts one custom field value.
func (r Repo) SetCustomField(ctx context.Context, cardID, name, value string) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO card_custom_fields(card_id,name,value) VALUES (?,?,?)
ON CONFLICT(card_id,name) DO UPDATE SET value=excluded.value`, cardID, name, value)
	return err
}

// CopyCard duplicates a card (tags and custom fields included, assignees
// excluded) into the target column and returns the new card id.
func (r Repo) CopyCard(ctx context.Context, cardID, targetColumnID, now string) (string, error) {
	src, err := r.GetCardData(ctx, cardID)
	if err != nil {
		return "", err
	}
	dst := src
	dst.ID = uuid.New().String()
	dst.Status = targetColumnID
	dst.Assignees = nil
	dst.Archived = false
	dst.ColumnEnteredAt = now
	dst.CreatedAt = now
	dst.UpdatedAt = now
	if err := r.InsertCard(ctx, dst); err != nil {
		return "", err
	}
	return dst.ID, nil
}

// ListCards returns card snapshots for a board, unarchived first.
func (r Repo) ListCards(ctx context.Context, boardID string) ([]domain.CardData, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id FROM cards WHERE board_id=? ORDER BY archived, column_id, position, created_at`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	res := make([]domain.CardData, 0, len(ids))
	for _, id := range ids {
		c, err := r.GetCardData(ctx, id)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, nil
}
