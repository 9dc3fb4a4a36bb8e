// internal/customdomain/model.go
//
// Custom-domain rows and their status vocabulary.
//
// Context
// -------
// A row is a local mirror of what the hosting provider last said about a
// domain.  The provider is authoritative; `Status` only caches its verdict
// so list views do not need a provider round-trip per row.
//
// Transitions
// -----------
//   none     → pending   connect accepted by the provider.
//   pending  → verified  a check sees a verified payload.
//   *        → error     a provider call fails; message kept in LastError.
//   error    → pending | verified  on the next successful check.
//
// Notes
// -----
//   • `Verification` holds the raw JSON text of the last response.
//   • Oxford commas, two spaces after periods.

package customdomain

import "time"

// Status is the cached provider verdict.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusError    Status = "error"
)

// Record mirrors one row in `custom_domains`.
type Record struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	SiteID       *string   `db:"site_id"`
	Domain       string    `db:"domain"`
	Status       Status    `db:"status"`
	Verification string    `db:"verification"`
	LastError    *string   `db:"last_error"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Schema is the portable DDL for the custom_domains table.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS custom_domains (
		id           VARCHAR(36)  NOT NULL PRIMARY KEY,
		user_id      VARCHAR(64)  NOT NULL,
		site_id      VARCHAR(36)  NULL,
		domain       VARCHAR(253) NOT NULL UNIQUE,
		status       VARCHAR(16)  NOT NULL,
		verification TEXT         NOT NULL,
		last_error   TEXT         NULL,
		created_at   TIMESTAMP    NOT NULL,
		updated_at   TIMESTAMP    NOT NULL
	)`,
}
