package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/essoham7/chinelivre/internal/model"
	"github.com/jmoiron/sqlx"
)

// PackagesRepository defines persistence for the packages table.
type PackagesRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, p model.Package) error
	GetByID(ctx context.Context, id string) (*model.Package, error)
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (*model.Package, error)
	// List returns non-archived packages, newest first. Empty clientID lists all.
	List(ctx context.Context, clientID string, limit, offset int) ([]model.Package, error)
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, id string, status model.PackageStatus, location *string) error
	Delete(ctx context.Context, id string) error
	// ArchiveOldPickedUp flags picked_up packages older than cutoff.
	// Returns the number of rows archived.
	ArchiveOldPickedUp(ctx context.Context, cutoff time.Time) (int64, error)
}

type PackagesRepositoryImpl struct {
	db *sqlx.DB
}

func NewPackagesRepository(db *sqlx.DB) *PackagesRepositoryImpl {
	return &PackagesRepositoryImpl{db: db}
}

var _ PackagesRepository = (*PackagesRepositoryImpl)(nil)

func (r *PackagesRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
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

const packageColumns = `
	id, tracking_number, client_id, content, weight_kg, volume_m3,
	status, location, received_china_at, estimated_arrival, archived,
	created_at, updated_at
`

func (r *PackagesRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, p model.Package) error {
	const q = `
		INSERT INTO packages
		    (id, tracking_number, client_id, content, weight_kg, volume_m3,
		     status, location, received_china_at, estimated_arrival, archived,
		     created_at, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NOW(), NOW())
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			p.ID, p.TrackingNumber, p.ClientID, p.Content, p.WeightKg, p.VolumeM3,
			p.Status.String(), p.Location, p.ReceivedChinaAt, p.EstimatedArrival,
		)
		return err
	})
}

func (r *PackagesRepositoryImpl) GetByID(ctx context.Context, id string) (*model.Package, error) {
	var p model.Package
	err := r.db.GetContext(ctx, &p, `
		SELECT `+packageColumns+` FROM packages WHERE id = ? LIMIT 1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PackagesRepositoryImpl) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*model.Package, error) {
	var p model.Package
	err := r.db.GetContext(ctx, &p, `
		SELECT `+packageColumns+` FROM packages WHERE tracking_number = ? LIMIT 1
	`, trackingNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PackagesRepositoryImpl) List(ctx context.Context, clientID string, limit, offset int) ([]model.Package, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + packageColumns + ` FROM packages WHERE archived = 0`
	args := []any{}
	if clientID != "" {
		q += " AND client_id = ?"
		args = append(args, clientID)
	}
	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.Package
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatus does not inspect RowsAffected: under MySQL's changed-rows
// semantics a no-op update (same status and location) reports 0 rows even
// though the row exists. Existence is the caller's concern (GetByID first).
func (r *PackagesRepositoryImpl) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id string, status model.PackageStatus, location *string) error {
	const q = `
		UPDATE packages
		   SET status = ?, location = COALESCE(?, location), updated_at = NOW()
		 WHERE id = ?
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, status.String(), location, id)
		return err
	})
}

func (r *PackagesRepositoryImpl) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM packages WHERE id = ?`, id)
	return err
}

func (r *PackagesRepositoryImpl) ArchiveOldPickedUp(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE packages
		   SET archived = 1, updated_at = NOW()
		 WHERE status = 'picked_up' AND archived = 0 AND updated_at <= ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
