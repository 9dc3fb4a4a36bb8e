// internal/site/service.go
//
// Draft and publish lifecycle for builder sites.
//
/*
Context
--------
A site is a draft HTML document plus an optional published snapshot.  Save
rewrites the draft; Publish copies the draft into the snapshot; Unpublish
drops it.  Public hosting reads only the snapshot, so editing a published
site never changes what visitors see until the next publish.

Notes
-----
  • Ownership is checked here, not in SQL alone, so callers can tell
    "missing" (404) from "someone else's" (403).
  • Delete detaches provider domains first, then removes the site and its
    domain rows in one transaction.
  • Oxford commas, two spaces after periods.
*/
package site

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yanizio/sitesmith/internal/logger"
)

var (
	// ErrForbidden means the site exists but belongs to another user.
	ErrForbidden = errors.New("site belongs to another account")
	// ErrEmptyDraft blocks publishing a blank draft.
	ErrEmptyDraft = errors.New("cannot publish an empty draft")
)

// DomainDetacher removes a site's domains from the hosting provider.
type DomainDetacher interface {
	DetachSite(ctx context.Context, userID, siteID string) error
}

// SaveInput is a builder save.  An empty ID creates a new site.
type SaveInput struct {
	ID       string
	Template string
	Prompt   string
	HTML     string
}

// Service owns the site lifecycle.
type Service struct {
	repo     *Repository
	domains  DomainDetacher
	now      func() time.Time
	onChange []func()
}

// NewService wires the lifecycle.  domains may be nil when no hosting
// provider is configured.
func NewService(repo *Repository, domains DomainDetacher) *Service {
	return &Service{repo: repo, domains: domains, now: func() time.Time { return time.Now().UTC() }}
}

// OnChange registers fn to run after a publish, unpublish, or delete.
// Call it during wiring only.
func (s *Service) OnChange(fn func()) { s.onChange = append(s.onChange, fn) }

func (s *Service) changed() {
	for _, fn := range s.onChange {
		fn()
	}
}

// Save creates or updates the caller's draft and returns the stored row.
func (s *Service) Save(ctx context.Context, userID string, in SaveInput) (*Record, error) {
	now := s.now()

	if in.ID == "" {
		rec := &Record{
			ID:        uuid.NewString(),
			UserID:    userID,
			Template:  in.Template,
			Prompt:    in.Prompt,
			HTML:      in.HTML,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Insert(ctx, rec); err != nil {
			return nil, err
		}
		logger.FromContext(ctx).Infow("site created", "site_id", rec.ID)
		return rec, nil
	}

	rec, err := s.Get(ctx, userID, in.ID)
	if err != nil {
		return nil, err
	}
	rec.Template, rec.Prompt, rec.HTML, rec.UpdatedAt = in.Template, in.Prompt, in.HTML, now
	ok, err := s.repo.UpdateDraft(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Get returns the caller's site.
func (s *Service) Get(ctx context.Context, userID, id string) (*Record, error) {
	rec, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, ErrForbidden
	}
	return rec, nil
}

// List returns the caller's sites, most recently changed first.
func (s *Service) List(ctx context.Context, userID string) ([]Record, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Publish snapshots the current draft.
func (s *Service) Publish(ctx context.Context, userID, id string) (*Record, error) {
	rec, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rec.HTML) == "" {
		return nil, ErrEmptyDraft
	}
	ok, err := s.repo.Publish(ctx, userID, id, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		// Draft emptied or site removed between the read and the write.
		return nil, ErrEmptyDraft
	}
	logger.FromContext(ctx).Infow("site published", "site_id", id)
	s.changed()
	return s.repo.ByID(ctx, id)
}

// Unpublish drops the snapshot; the draft stays.
func (s *Service) Unpublish(ctx context.Context, userID, id string) (*Record, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	if _, err := s.repo.Unpublish(ctx, userID, id, s.now()); err != nil {
		return nil, err
	}
	s.changed()
	return s.repo.ByID(ctx, id)
}

// Delete removes the site and its domains.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if s.domains != nil {
		if err := s.domains.DetachSite(ctx, userID, id); err != nil {
			return err
		}
	}
	ok, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	logger.FromContext(ctx).Infow("site deleted", "site_id", id)
	s.changed()
	return nil
}

// OwnsSite satisfies customdomain.SiteOwner.
func (s *Service) OwnsSite(ctx context.Context, userID, siteID string) (bool, error) {
	return s.repo.OwnsSite(ctx, userID, siteID)
}

// PublishedByID returns the public snapshot of id.
func (s *Service) PublishedByID(ctx context.Context, id string) (string, error) {
	return s.repo.PublishedByID(ctx, id)
}

// PublishedByHost returns the public snapshot for a verified custom domain.
func (s *Service) PublishedByHost(ctx context.Context, host string) (string, error) {
	return s.repo.PublishedByHost(ctx, host)
}
