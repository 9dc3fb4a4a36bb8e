package site

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when no site row matches.
var ErrNotFound = errors.New("site not found")

// Repository holds every query against `sites`.  Publish copies the draft
// in SQL so the snapshot is exactly what is stored, never what a handler
// happened to have in memory.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps db.
func NewRepository(db *sqlx.DB) *Repository { return &Repository{db: db} }

const selectCols = `
        SELECT id, user_id, template, prompt, html,
               published_html, published_at, created_at, updated_at
        FROM   sites`

// ByID fetches one site regardless of owner; callers check ownership.
func (r *Repository) ByID(ctx context.Context, id string) (*Record, error) {
	var rec Record
	err := r.db.GetContext(ctx, &rec, r.db.Rebind(selectCols+` WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByUser returns the user's sites, most recently changed first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	rows := []Record{}
	err := r.db.SelectContext(ctx, &rows,
		r.db.Rebind(selectCols+` WHERE user_id = ? ORDER BY updated_at DESC, created_at DESC`), userID)
	return rows, err
}

// Insert writes a new draft.
func (r *Repository) Insert(ctx context.Context, rec *Record) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
        INSERT INTO sites
               (id, user_id, template, prompt, html, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.UserID, rec.Template, rec.Prompt, rec.HTML, rec.CreatedAt, rec.UpdatedAt)
	return err
}

// UpdateDraft rewrites the draft columns of the user's site.  The
// published snapshot is untouched.
func (r *Repository) UpdateDraft(ctx context.Context, rec *Record) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
        UPDATE sites
        SET    template = ?, prompt = ?, html = ?, updated_at = ?
        WHERE  id = ? AND user_id = ?`),
		rec.Template, rec.Prompt, rec.HTML, rec.UpdatedAt, rec.ID, rec.UserID)
	return affected(res, err)
}

// Publish copies html into published_html in one statement.  It matches
// nothing when the draft is empty.
func (r *Repository) Publish(ctx context.Context, userID, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
        UPDATE sites
        SET    published_html = html, published_at = ?, updated_at = ?
        WHERE  id = ? AND user_id = ? AND html <> ''`),
		at, at, id, userID)
	return affected(res, err)
}

// Unpublish drops the snapshot.
func (r *Repository) Unpublish(ctx context.Context, userID, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
        UPDATE sites
        SET    published_html = NULL, published_at = NULL, updated_at = ?
        WHERE  id = ? AND user_id = ?`),
		at, id, userID)
	return affected(res, err)
}

// Delete removes the site and its custom-domain rows in one transaction.
func (r *Repository) Delete(ctx context.Context, userID, id string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(
		`DELETE FROM custom_domains WHERE site_id = ? AND user_id = ?`), id, userID); err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(
		`DELETE FROM sites WHERE id = ? AND user_id = ?`), id, userID)
	ok, err := affected(res, err)
	if err != nil || !ok {
		return false, err
	}
	return true, tx.Commit()
}

// OwnsSite reports whether siteID belongs to userID.
func (r *Repository) OwnsSite(ctx context.Context, userID, siteID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		r.db.Rebind(`SELECT COUNT(*) FROM sites WHERE id = ? AND user_id = ?`), siteID, userID)
	return n > 0, err
}

// PublishedByID returns the published snapshot of a site.
func (r *Repository) PublishedByID(ctx context.Context, id string) (string, error) {
	return r.published(ctx, `
        SELECT published_html FROM sites
        WHERE  id = ? AND published_html IS NOT NULL`, id)
}

// PublishedByHost returns the snapshot of the site attached to a
// verified custom domain.
func (r *Repository) PublishedByHost(ctx context.Context, host string) (string, error) {
	return r.published(ctx, `
        SELECT s.published_html
        FROM   sites s
        JOIN   custom_domains d ON d.site_id = s.id
        WHERE  d.domain = ? AND d.status = 'verified'
          AND  s.published_html IS NOT NULL`, host)
}

func (r *Repository) published(ctx context.Context, q, arg string) (string, error) {
	var html string
	err := r.db.GetContext(ctx, &html, r.db.Rebind(q), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return html, err
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
