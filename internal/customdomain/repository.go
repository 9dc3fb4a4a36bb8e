package customdomain

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when no row matches.
var ErrNotFound = errors.New("domain not found")

// Store persists domain rows.
type Store interface {
	ByDomain(ctx context.Context, domain string) (*Record, error)
	ListByUser(ctx context.Context, userID string) ([]Record, error)
	ListBySite(ctx context.Context, userID, siteID string) ([]Record, error)
	Insert(ctx context.Context, rec *Record) error
	Update(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, id string) error
}

// Repository is the sqlx-backed Store.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps db.
func NewRepository(db *sqlx.DB) *Repository { return &Repository{db: db} }

const selectCols = `
        SELECT id, user_id, site_id, domain, status, verification,
               last_error, created_at, updated_at
        FROM   custom_domains`

// ByDomain fetches the row for a normalized hostname.
func (r *Repository) ByDomain(ctx context.Context, domain string) (*Record, error) {
	var rec Record
	err := r.db.GetContext(ctx, &rec, r.db.Rebind(selectCols+` WHERE domain = ?`), domain)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByUser returns the user's domains, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	rows := []Record{}
	err := r.db.SelectContext(ctx, &rows,
		r.db.Rebind(selectCols+` WHERE user_id = ? ORDER BY created_at DESC, id DESC`), userID)
	return rows, err
}

// ListBySite returns the domains attached to one of the user's sites.
func (r *Repository) ListBySite(ctx context.Context, userID, siteID string) ([]Record, error) {
	rows := []Record{}
	err := r.db.SelectContext(ctx, &rows,
		r.db.Rebind(selectCols+` WHERE user_id = ? AND site_id = ?`), userID, siteID)
	return rows, err
}

// Insert writes a new row.
func (r *Repository) Insert(ctx context.Context, rec *Record) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
        INSERT INTO custom_domains
               (id, user_id, site_id, domain, status, verification,
                last_error, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.UserID, rec.SiteID, rec.Domain, rec.Status, rec.Verification,
		rec.LastError, rec.CreatedAt, rec.UpdatedAt)
	return err
}

// Update overwrites the mutable columns.  Last write wins.
func (r *Repository) Update(ctx context.Context, rec *Record) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
        UPDATE custom_domains
        SET    site_id = ?, status = ?, verification = ?,
               last_error = ?, updated_at = ?
        WHERE  id = ?`),
		rec.SiteID, rec.Status, rec.Verification, rec.LastError, rec.UpdatedAt, rec.ID)
	return err
}

// Delete removes one row by id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM custom_domains WHERE id = ?`), id)
	return err
}
