package repository

import (
	"context"

	"github.com/essoham7/chinelivre/internal/model"
	"github.com/jmoiron/sqlx"
)

// ChatRepository defines persistence for the per-package messages table.
type ChatRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, m model.ChatMessage) error
	ListByPackage(ctx context.Context, packageID string, limit, offset int) ([]model.ChatMessage, error)
	// MarkRead flips is_read for the given ids, but never for messages the
	// reader sent themselves.
	MarkRead(ctx context.Context, readerID string, ids []string) error
	CountUnread(ctx context.Context, packageID, readerID string) (int, error)
}

type ChatRepositoryImpl struct {
	db *sqlx.DB
}

func NewChatRepository(db *sqlx.DB) *ChatRepositoryImpl {
	return &ChatRepositoryImpl{db: db}
}

var _ ChatRepository = (*ChatRepositoryImpl)(nil)

func (r *ChatRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
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

func (r *ChatRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, m model.ChatMessage) error {
	const q = `
		INSERT INTO messages
		    (id, package_id, sender_id, sender_role, content, is_read, created_at)
		VALUES
		    (?, ?, ?, ?, ?, 0, NOW())
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			m.ID, m.PackageID, m.SenderID, m.SenderRole.String(), m.Content,
		)
		return err
	})
}

func (r *ChatRepositoryImpl) ListByPackage(ctx context.Context, packageID string, limit, offset int) ([]model.ChatMessage, error) {
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	var rows []model.ChatMessage
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, package_id, sender_id, sender_role, content, is_read, created_at
		  FROM messages
		 WHERE package_id = ?
		 ORDER BY created_at ASC
		 LIMIT ? OFFSET ?
	`, packageID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ChatRepositoryImpl) MarkRead(ctx context.Context, readerID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const base = `UPDATE messages SET is_read = 1 WHERE id IN (?) AND sender_id <> ?`
	query, args, err := sqlx.In(base, ids, readerID)
	if err != nil {
		return err
	}
	query = r.db.Rebind(query)
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *ChatRepositoryImpl) CountUnread(ctx context.Context, packageID, readerID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM messages
		 WHERE package_id = ? AND sender_id <> ? AND is_read = 0
	`, packageID, readerID)
	return n, err
}
