// internal/entitlement/model.go
//
// Subscription entitlement, one row per user.
//
// Context
// -------
// Rows are written only by the billing webhook and by checkout completion.
// Everything else reads them, and only through `IsActive`, so the
// definition of "paid up" lives in one function.
//
// Notes
// -----
//   • A NULL period end means "no expiry known"; active and trialing rows
//     without one are allowed through.
//   • Oxford commas, two spaces after periods.

package entitlement

import "time"

// Status is the subscription state vocabulary.
type Status string

const (
	StatusActive   Status = "active"
	StatusTrialing Status = "trialing"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
	StatusInactive Status = "inactive"
)

// Record mirrors one row in the `subscriptions` table.
type Record struct {
	UserID               string     `db:"user_id"                json:"user_id"`
	Status               Status     `db:"status"                 json:"status"`
	CurrentPeriodEnd     *time.Time `db:"current_period_end"     json:"current_period_end"`
	StripeCustomerID     string     `db:"stripe_customer_id"     json:"-"`
	StripeSubscriptionID string     `db:"stripe_subscription_id" json:"-"`
	CreatedAt            time.Time  `db:"created_at"             json:"-"`
	UpdatedAt            time.Time  `db:"updated_at"             json:"-"`
}

// IsActive reports whether r grants access at now: status active or
// trialing, and the period end absent or strictly in the future.
func (r *Record) IsActive(now time.Time) bool {
	if r == nil {
		return false
	}
	if r.Status != StatusActive && r.Status != StatusTrialing {
		return false
	}
	return r.CurrentPeriodEnd == nil || r.CurrentPeriodEnd.After(now)
}

// Schema is the portable DDL for the subscriptions table.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS subscriptions (
		user_id                VARCHAR(64)  NOT NULL PRIMARY KEY,
		status                 VARCHAR(16)  NOT NULL,
		current_period_end     TIMESTAMP    NULL,
		stripe_customer_id     VARCHAR(255) NOT NULL DEFAULT '',
		stripe_subscription_id VARCHAR(255) NOT NULL DEFAULT '',
		created_at             TIMESTAMP    NOT NULL,
		updated_at             TIMESTAMP    NOT NULL
	)`,
}
