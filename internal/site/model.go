package site

import "time"

// Record mirrors one row in the `sites` table.  The published snapshot is
// independent of the draft:
//
//   - HTML          – the working draft, rewritten by every save.
//   - PublishedHTML – copy of HTML taken at publish time; NULL until the
//     first publish and again after unpublish.
//
// Public hosting only ever reads PublishedHTML.
type Record struct {
	ID            string     `db:"id"             json:"id"`
	UserID        string     `db:"user_id"        json:"-"`
	Template      string     `db:"template"       json:"template"`
	Prompt        string     `db:"prompt"         json:"prompt"`
	HTML          string     `db:"html"           json:"html"`
	PublishedHTML *string    `db:"published_html" json:"published_html,omitempty"`
	PublishedAt   *time.Time `db:"published_at"   json:"published_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"     json:"updated_at"`
}

// Status values reported to clients.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Status reports "published" once a snapshot exists.
func (r *Record) Status() string {
	if r.PublishedHTML != nil {
		return StatusPublished
	}
	return StatusDraft
}

// Schema is the portable DDL for the sites table.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS sites (
		id             VARCHAR(36) NOT NULL PRIMARY KEY,
		user_id        VARCHAR(64) NOT NULL,
		template       VARCHAR(64) NOT NULL,
		prompt         TEXT        NOT NULL,
		html           TEXT        NOT NULL,
		published_html TEXT        NULL,
		published_at   TIMESTAMP   NULL,
		created_at     TIMESTAMP   NOT NULL,
		updated_at     TIMESTAMP   NOT NULL
	)`,
}
