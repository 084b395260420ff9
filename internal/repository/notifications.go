package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/essoham7/chinelivre/internal/model"
	"github.com/jmoiron/sqlx"
)

// NotificationFilters narrows admin listings (from the dashboard filter panel).
type NotificationFilters struct {
	Status   string
	Type     string
	Priority string
	DateFrom *time.Time
	DateTo   *time.Time
}

// NotificationsRepository defines persistence for authored notifications.
type NotificationsRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, n model.Notification) error
	GetByID(ctx context.Context, id string) (*model.Notification, error)
	List(ctx context.Context, f NotificationFilters, limit, offset int) ([]model.Notification, error)
	Update(ctx context.Context, id string, title, content string, priority model.NotificationPriority, expiresAt *time.Time) error
	Delete(ctx context.Context, id string) error
	BatchSetState(ctx context.Context, tx *sqlx.Tx, ids []string, state model.NotificationState) error
}

type NotificationsRepositoryImpl struct {
	db *sqlx.DB
}

func NewNotificationsRepository(db *sqlx.DB) *NotificationsRepositoryImpl {
	return &NotificationsRepositoryImpl{db: db}
}

var _ NotificationsRepository = (*NotificationsRepositoryImpl)(nil)

func (r *NotificationsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
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

const notificationColumns = `
	id, package_id, type, priority, status, title, content, created_by,
	expires_at, created_at, updated_at
`

func (r *NotificationsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, n model.Notification) error {
	const q = `
		INSERT INTO notifications
		    (id, package_id, type, priority, status, title, content, created_by,
		     expires_at, created_at, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			n.ID, n.PackageID, n.Type.String(), string(n.Priority), n.Status.String(),
			n.Title, n.Content, n.CreatedBy, n.ExpiresAt,
		)
		return err
	})
}

func (r *NotificationsRepositoryImpl) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	var n model.Notification
	err := r.db.GetContext(ctx, &n, `
		SELECT `+notificationColumns+` FROM notifications WHERE id = ? LIMIT 1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationsRepositoryImpl) List(ctx context.Context, f NotificationFilters, limit, offset int) ([]model.Notification, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + notificationColumns + ` FROM notifications WHERE 1=1`
	args := []any{}
	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.Type != "" {
		q += " AND type = ?"
		args = append(args, f.Type)
	}
	if f.Priority != "" {
		q += " AND priority = ?"
		args = append(args, f.Priority)
	}
	if f.DateFrom != nil {
		q += " AND created_at >= ?"
		args = append(args, *f.DateFrom)
	}
	if f.DateTo != nil {
		q += " AND created_at <= ?"
		args = append(args, *f.DateTo)
	}
	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.Notification
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *NotificationsRepositoryImpl) Update(ctx context.Context, id string, title, content string, priority model.NotificationPriority, expiresAt *time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		   SET title = ?, content = ?, priority = ?, expires_at = ?, updated_at = NOW()
		 WHERE id = ? AND status = 'draft'
	`, title, content, string(priority), expiresAt, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *NotificationsRepositoryImpl) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, id)
	return err
}

// BatchSetState updates status for many notifications using a single statement.
func (r *NotificationsRepositoryImpl) BatchSetState(ctx context.Context, tx *sqlx.Tx, ids []string, state model.NotificationState) error {
	if len(ids) == 0 {
		return nil
	}
	const base = `UPDATE notifications SET status = ?, updated_at = NOW() WHERE id IN (?)`
	query, args, err := sqlx.In(base, state.String(), ids)
	if err != nil {
		return err
	}
	query = r.db.Rebind(query)

	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
}
