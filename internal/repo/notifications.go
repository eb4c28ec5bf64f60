package repo

import (
	"context"
	"database/sql"

	"boardflow/internal/domain"
)

// InsertNotification writes one in-app notification record.
func (r Repo) InsertNotification(ctx context.Context, n domain.Notification) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO notifications(id,user_id,card_id,message,created_at) VALUES (?,?,?,?,?)`,
		n.ID, n.UserID, nullable(n.CardID), n.Message, n.CreatedAt)
	return err
}

// ListNotifications returns a user's notifications, newest first.
func (r Repo) ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,user_id,card_id,message,created_at,read_at FROM notifications WHERE user_id=? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var cardID, readAt sql.NullString
		if err := rows.Scan(&n.ID, &n.UserID, &cardID, &n.Message, &n.CreatedAt, &readAt); err != nil {
			return nil, err
		}
		n.CardID = cardID.String
		if readAt.Valid {
			n.ReadAt = &readAt.String
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

// InsertEmail queues one outbound email in the outbox.
func (r Repo) InsertEmail(ctx context.Context, e domain.OutboxEmail) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO email_outbox(id,recipient,subject,body,status,created_at) VALUES (?,?,?,?,?,?)`,
		e.ID, e.Recipient, e.Subject, nullable(e.Body), e.Status, e.CreatedAt)
	return err
}

// PendingEmails returns queued emails oldest first.
func (r Repo) PendingEmails(ctx context.Context, limit int) ([]domain.OutboxEmail, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,recipient,subject,COALESCE(body,''),status,created_at,sent_at FROM email_outbox WHERE status='pending' ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.OutboxEmail
	for rows.Next() {
		var e domain.OutboxEmail
		var sentAt sql.NullString
		if err := rows.Scan(&e.ID, &e.Recipient, &e.Subject, &e.Body, &e.Status, &e.CreatedAt, &sentAt); err != nil {
			return nil, err
		}
		if sentAt.Valid {
			e.SentAt = &sentAt.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// MarkEmail updates an outbox row after a delivery attempt.
func (r Repo) MarkEmail(ctx context.Context, id, status, sentAt string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE email_outbox SET status=?, sent_at=? WHERE id=?`, status, nullable(sentAt), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
