package entitlement

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a user has no subscriptions row.
var ErrNotFound = errors.New("entitlement not found")

// Store is the read/write surface the gate and billing depend on.
type Store interface {
	ByUser(ctx context.Context, userID string) (*Record, error)
	ByCustomer(ctx context.Context, customerID string) (*Record, error)
	Upsert(ctx context.Context, rec *Record) error
}

// Repository is the sqlx-backed Store.
type Repository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewRepository wraps db.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const selectCols = `
        SELECT user_id, status, current_period_end,
               stripe_customer_id, stripe_subscription_id,
               created_at, updated_at
        FROM   subscriptions`

// ByUser fetches the single row for userID.
func (r *Repository) ByUser(ctx context.Context, userID string) (*Record, error) {
	return r.one(ctx, selectCols+` WHERE user_id = ?`, userID)
}

// ByCustomer finds the row linked to a Stripe customer id.
func (r *Repository) ByCustomer(ctx context.Context, customerID string) (*Record, error) {
	if customerID == "" {
		return nil, ErrNotFound
	}
	return r.one(ctx, selectCols+` WHERE stripe_customer_id = ?`, customerID)
}

func (r *Repository) one(ctx context.Context, q string, arg any) (*Record, error) {
	var rec Record
	if err := r.db.GetContext(ctx, &rec, r.db.Rebind(q), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// Upsert writes rec for rec.UserID.  Empty Stripe ids keep their stored
// value so a subscription event never erases the customer link.  Existence
// is checked first instead of using a dialect-specific upsert clause.
func (r *Repository) Upsert(ctx context.Context, rec *Record) error {
	now := r.now()

	var exists int
	err := r.db.GetContext(ctx, &exists,
		r.db.Rebind(`SELECT COUNT(*) FROM subscriptions WHERE user_id = ?`), rec.UserID)
	if err != nil {
		return err
	}

	if exists == 0 {
		_, err = r.db.ExecContext(ctx, r.db.Rebind(`
            INSERT INTO subscriptions
                   (user_id, status, current_period_end,
                    stripe_customer_id, stripe_subscription_id,
                    created_at, updated_at)
            VALUES (?, ?, ?, ?, ?, ?, ?)`),
			rec.UserID, rec.Status, rec.CurrentPeriodEnd,
			rec.StripeCustomerID, rec.StripeSubscriptionID, now, now)
		return err
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
        UPDATE subscriptions
        SET    status = ?,
               current_period_end = ?,
               stripe_customer_id = CASE WHEN ? = '' THEN stripe_customer_id ELSE ? END,
               stripe_subscription_id = CASE WHEN ? = '' THEN stripe_subscription_id ELSE ? END,
               updated_at = ?
        WHERE  user_id = ?`),
		rec.Status, rec.CurrentPeriodEnd,
		rec.StripeCustomerID, rec.StripeCustomerID,
		rec.StripeSubscriptionID, rec.StripeSubscriptionID,
		now, rec.UserID)
	return err
}
