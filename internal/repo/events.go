package repo

import (
	"context"
	"database/sql"

	"boardflow/internal/domain"
)

// EventsAfter returns up to limit events with id > cursor for a board.
// Backs the board event log listing.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64, boardID string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,type,board_id,card_id,actor_id,payload_json FROM events WHERE id>? AND board_id=? ORDER BY id LIMIT ?`,
		cursor, boardID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		evt, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, evt)
	}
	return res, rows.Err()
}

// AllEventsAfter returns up to limit events with id > cursor across boards.
func (r Repo) AllEventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,type,board_id,card_id,actor_id,payload_json FROM events WHERE id>? ORDER BY id LIMIT ?`, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		evt, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, evt)
	}
	return res, rows.Err()
}

func scanEvent(scan func(dest ...any) error) (domain.Event, error) {
	var evt domain.Event
	var cardID, actorID sql.NullString
	if err := scan(&evt.ID, &evt.TS, &evt.Type, &evt.BoardID, &cardID, &actorID, &evt.Payload); err != nil {
		return evt, err
	}
	evt.CardID = cardID.String
	evt.ActorID = actorID.String
	return evt, nil
}

// LatestEventID returns the newest event id, 0 when the log is empty.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	if err := r.DB.QueryRowContext(ctx, `SELECT MAX(id) FROM events`).Scan(&id); err != nil {
		return 0, err
	}
	return id.Int64, nil
}
