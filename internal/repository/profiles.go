package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/essoham7/chinelivre/internal/model"
	"github.com/jmoiron/sqlx"
)

type ProfilesRepository interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*model.Profile, error)
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	// GetByIDs loads profiles in bulk, keyed by id. Missing ids are absent
	// from the result rather than an error.
	GetByIDs(ctx context.Context, ids []string) (map[string]model.Profile, error)
	List(ctx context.Context, f ProfileFilters, limit, offset int) ([]model.Profile, error)
	// ListClientIDs returns ids of all active clients, for broadcast fan-out.
	ListClientIDs(ctx context.Context) ([]string, error)
	ListAdminIDs(ctx context.Context) ([]string, error)
}

// ProfileFilters narrows the admin user directory. Search matches email,
// first/last name and company as a substring.
type ProfileFilters struct {
	Role    string
	Country string
	City    string
	Search  string
}

type ProfilesRepositoryImpl struct {
	db *sqlx.DB
}

func NewProfilesRepository(db *sqlx.DB) *ProfilesRepositoryImpl {
	return &ProfilesRepositoryImpl{db: db}
}

var _ ProfilesRepository = (*ProfilesRepositoryImpl)(nil)

const profileColumns = `
	id, email, role, api_key, status, rate_limit_rps,
	first_name, last_name, company, country, city, phone,
	created_at, updated_at
`

func (r *ProfilesRepositoryImpl) GetByAPIKey(ctx context.Context, apiKey string) (*model.Profile, error) {
	var p model.Profile
	err := r.db.GetContext(ctx, &p, `
		SELECT `+profileColumns+`
		  FROM profiles
		 WHERE api_key = ? LIMIT 1
	`, apiKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfilesRepositoryImpl) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	err := r.db.GetContext(ctx, &p, `
		SELECT `+profileColumns+`
		  FROM profiles
		 WHERE id = ? LIMIT 1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfilesRepositoryImpl) GetByIDs(ctx context.Context, ids []string) (map[string]model.Profile, error) {
	out := make(map[string]model.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(`
		SELECT `+profileColumns+`
		  FROM profiles
		 WHERE id IN (?)
	`, ids)
	if err != nil {
		return nil, err
	}
	var rows []model.Profile
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

func (r *ProfilesRepositoryImpl) List(ctx context.Context, f ProfileFilters, limit, offset int) ([]model.Profile, error) {
	q := `
		SELECT ` + profileColumns + `
		  FROM profiles
		 WHERE status = 'active'
	`
	args := []interface{}{}
	if f.Role != "" {
		q += " AND role = ?"
		args = append(args, f.Role)
	}
	if f.Country != "" {
		q += " AND country = ?"
		args = append(args, f.Country)
	}
	if f.City != "" {
		q += " AND city = ?"
		args = append(args, f.City)
	}
	if f.Search != "" {
		q += " AND (email LIKE ? OR first_name LIKE ? OR last_name LIKE ? OR company LIKE ?)"
		like := "%" + f.Search + "%"
		args = append(args, like, like, like, like)
	}
	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.Profile
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ProfilesRepositoryImpl) ListClientIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `
		SELECT id FROM profiles WHERE role = 'client' AND status = 'active'
	`)
	return ids, err
}

func (r *ProfilesRepositoryImpl) ListAdminIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `
		SELECT id FROM profiles WHERE role = 'admin' AND status = 'active'
	`)
	return ids, err
}
