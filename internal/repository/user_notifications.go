package repository

import (
	"context"
	"database/sql"

	"github.com/essoham7/chinelivre/internal/model"
	"github.com/jmoiron/sqlx"
)

// UserNotificationRow is one fan-out insert prepared by the notifier worker.
type UserNotificationRow struct {
	ID             string
	NotificationID string
	UserID         string
}

// UserNotificationsRepository defines persistence for per-user deliveries.
type UserNotificationsRepository interface {
	// InsertBatch writes fan-out rows in one statement. Duplicate
	// (notification_id, user_id) pairs are ignored so redelivered Kafka
	// messages stay idempotent.
	InsertBatch(ctx context.Context, tx *sqlx.Tx, rows []UserNotificationRow) error
	ListForUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]model.UserNotification, error)
	MarkRead(ctx context.Context, userID string, ids []string) error
	MarkDeleted(ctx context.Context, userID string, ids []string) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

type UserNotificationsRepositoryImpl struct {
	db *sqlx.DB
}

func NewUserNotificationsRepository(db *sqlx.DB) *UserNotificationsRepositoryImpl {
	return &UserNotificationsRepositoryImpl{db: db}
}

var _ UserNotificationsRepository = (*UserNotificationsRepositoryImpl)(nil)

func (r *UserNotificationsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

func (r *UserNotificationsRepositoryImpl) InsertBatch(ctx context.Context, tx *sqlx.Tx, rows []UserNotificationRow) error {
	if len(rows) == 0 {
		return nil
	}
	q := `INSERT IGNORE INTO user_notifications
	          (id, notification_id, user_id, status, created_at)
	      VALUES `
	args := make([]any, 0, len(rows)*3)
	for i, row := range rows {
		if i > 0 {
			q += ","
		}
		q += "(?, ?, ?, 'unread', NOW())"
		args = append(args, row.ID, row.NotificationID, row.UserID)
	}
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, args...)
		return err
	})
}

func (r *UserNotificationsRepositoryImpl) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]model.UserNotification, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT un.id, un.notification_id, un.user_id, un.status, un.read_at, un.created_at,
		       n.id AS "notification.id",
		       n.package_id AS "notification.package_id",
		       n.type AS "notification.type",
		       n.priority AS "notification.priority",
		       n.status AS "notification.status",
		       n.title AS "notification.title",
		       n.content AS "notification.content",
		       n.created_by AS "notification.created_by",
		       n.expires_at AS "notification.expires_at",
		       n.created_at AS "notification.created_at",
		       n.updated_at AS "notification.updated_at"
		  FROM user_notifications un
		  JOIN notifications n ON n.id = un.notification_id
		 WHERE un.user_id = ? AND un.status <> 'deleted'
		   AND (n.expires_at IS NULL OR n.expires_at > NOW())
	`
	args := []any{userID}
	if unreadOnly {
		q += " AND un.status = 'unread'"
	}
	q += " ORDER BY un.created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	type joinedRow struct {
		model.UserNotification
		Joined model.Notification `db:"notification"`
	}
	var raw []joinedRow
	if err := r.db.SelectContext(ctx, &raw, q, args...); err != nil {
		return nil, err
	}

	out := make([]model.UserNotification, 0, len(raw))
	for i := range raw {
		un := raw[i].UserNotification
		n := raw[i].Joined
		un.Notification = &n
		out = append(out, un)
	}
	return out, nil
}

func (r *UserNotificationsRepositoryImpl) MarkRead(ctx context.Context, userID string, ids []string) error {
	return r.setStatus(ctx, userID, ids, model.UserNotifRead, true)
}

func (r *UserNotificationsRepositoryImpl) MarkDeleted(ctx context.Context, userID string, ids []string) error {
	return r.setStatus(ctx, userID, ids, model.UserNotifDeleted, false)
}

func (r *UserNotificationsRepositoryImpl) setStatus(ctx context.Context, userID string, ids []string, status model.UserNotificationStatus, stampReadAt bool) error {
	if len(ids) == 0 {
		return nil
	}
	base := `UPDATE user_notifications SET status = ?`
	if stampReadAt {
		base += `, read_at = NOW()`
	}
	base += ` WHERE user_id = ? AND id IN (?)`
	query, args, err := sqlx.In(base, string(status), userID, ids)
	if err != nil {
		return err
	}
	query = r.db.Rebind(query)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *UserNotificationsRepositoryImpl) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM user_notifications WHERE user_id = ? AND status = 'unread'
	`, userID)
	return n, err
}
