package repository

import (
	"context"
	"time"

	"github.com/essoham7/chinelivre/internal/model"
	"github.com/jmoiron/sqlx"
)

// DeliveryFilters narrows the per-user delivery report.
type DeliveryFilters struct {
	UserID   string
	Type     model.NotificationType
	Status   string
	DateFrom *time.Time
	DateTo   *time.Time
}

// CHDeliveriesRepository lists notification deliveries from ClickHouse (final view).
type CHDeliveriesRepository interface {
	List(ctx context.Context, f DeliveryFilters, limit, offset int) ([]model.Delivery, error)
}

type chDeliveriesRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHDeliveriesRepository(ch *sqlx.DB) CHDeliveriesRepository {
	return &chDeliveriesRepository{ch: ch}
}

func (r *chDeliveriesRepository) List(ctx context.Context, f DeliveryFilters, limit, offset int) ([]model.Delivery, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT notification_id, user_id, package_id, type, title, status, created_at
		FROM chinelivre.deliveries_latest
		WHERE 1 = 1
	`
	args := []any{}

	if f.UserID != "" {
		q += " AND user_id = ?"
		args = append(args, f.UserID)
	}
	if f.Type != "" {
		q += " AND type = ?"
		args = append(args, f.Type.String())
	}
	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, f.Status)
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

	var rows []model.Delivery
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
