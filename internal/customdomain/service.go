// internal/customdomain/service.go
//
// Domain connection workflow.
//
/*
Context
--------
Connect, Check, Verify, Remove, and List are the whole surface.  Each call
runs inside the inbound request; polling is the browser's job.

Workflow (Connect)
------------------
  1. Normalize the hostname.  Invalid input fails before any network call.
  2. Refuse hostnames another account already holds, and site ids the
     caller does not own.
  3. Register with the provider.  "Already exists" counts as success and
     is followed by a status read so the mirror has a payload.
  4. Write the row (pending, or verified if the payload already says so).

If the provider accepted the domain but the write fails, nothing is
rolled back: the provider keeps the domain, the caller gets the error, and
`sitesmith_domain_unreconciled_total` ticks so an operator can notice.
Connecting again repairs the row.

Notes
-----
  • Provider failures during Check or Verify store the provider's message
    verbatim on the row and set status `error`.
  • Rows are written last-write-wins; no locking.
  • Oxford commas, two spaces after periods.
*/
package customdomain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/yanizio/sitesmith/internal/domainprovider"
	"github.com/yanizio/sitesmith/internal/logger"
	"github.com/yanizio/sitesmith/internal/metrics"
)

var (
	// ErrForbidden means the hostname belongs to another account.
	ErrForbidden = errors.New("domain belongs to another account")
	// ErrSiteNotFound means the site id is unknown to the caller.
	ErrSiteNotFound = errors.New("site not found")
)

// Provider is the subset of the hosting-provider client the workflow uses.
type Provider interface {
	AddDomain(ctx context.Context, name string) (json.RawMessage, error)
	GetDomain(ctx context.Context, name string) (json.RawMessage, error)
	VerifyDomain(ctx context.Context, name string) (json.RawMessage, error)
	RemoveDomain(ctx context.Context, name string) error
}

// SiteOwner answers whether a site id belongs to a user.
type SiteOwner interface {
	OwnsSite(ctx context.Context, userID, siteID string) (bool, error)
}

// ConnectInput is the connect request.
type ConnectInput struct {
	Domain string
	SiteID *string
}

// Result is what handlers return to the browser.
type Result struct {
	Domain       string                  `json:"domain"`
	Status       Status                  `json:"status"`
	Verified     bool                    `json:"verified"`
	Verification json.RawMessage         `json:"verification"`
	Records      []domainprovider.Record `json:"records"`
	SiteID       *string                 `json:"site_id,omitempty"`
	LastError    *string                 `json:"last_error,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// Service runs the workflow.
type Service struct {
	store    Store
	provider Provider
	sites    SiteOwner
	now      func() time.Time
	onChange []func()
}

// NewService wires the workflow.
func NewService(store Store, provider Provider, sites SiteOwner) *Service {
	return &Service{
		store:    store,
		provider: provider,
		sites:    sites,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// OnChange registers fn to run when a domain stops serving: removed, or
// no longer verified.  Call it during wiring only.
func (s *Service) OnChange(fn func()) { s.onChange = append(s.onChange, fn) }

func (s *Service) changed() {
	for _, fn := range s.onChange {
		fn()
	}
}

/*──────────────────────────── connect ─────────────────────────────────────*/

// Connect registers a hostname for userID and records it as pending.
func (s *Service) Connect(ctx context.Context, userID string, in ConnectInput) (*Result, error) {
	host, err := NormalizeHostname(in.Domain)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.ByDomain(ctx, host)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.UserID != userID {
		return nil, ErrForbidden
	}

	if in.SiteID != nil && *in.SiteID != "" {
		ok, err := s.sites.OwnsSite(ctx, userID, *in.SiteID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrSiteNotFound
		}
	}

	raw, err := s.provider.AddDomain(ctx, host)
	if domainprovider.IsAlreadyExists(err) {
		logger.FromContext(ctx).Infow("domain already on project, reading status", "domain", host)
		raw, err = s.provider.GetDomain(ctx, host)
	}
	if err != nil {
		if existing != nil {
			s.markError(ctx, existing, err)
		}
		return nil, err
	}

	v := domainprovider.Classify(raw)
	now := s.now()
	rec := existing
	if rec == nil {
		rec = &Record{ID: uuid.NewString(), UserID: userID, Domain: host, CreatedAt: now}
	}
	if in.SiteID != nil && *in.SiteID != "" {
		rec.SiteID = in.SiteID
	}
	rec.Status = statusFor(v)
	rec.Verification = string(raw)
	rec.LastError = nil
	rec.UpdatedAt = now

	if existing == nil {
		err = s.store.Insert(ctx, rec)
	} else {
		err = s.store.Update(ctx, rec)
	}
	if err != nil {
		metrics.DomainUnreconciledTotal.Inc()
		logger.FromContext(ctx).Errorw("domain registered with provider but row not saved",
			"domain", host, "user_id", userID, "err", err)
		return nil, fmt.Errorf("save domain %s: %w", host, err)
	}

	logger.FromContext(ctx).Infow("domain connected", "domain", host, "status", rec.Status)
	return resultFor(rec, v), nil
}

/*──────────────────────────── check / verify ──────────────────────────────*/

// Check re-reads the provider's view of domain and mirrors it.
func (s *Service) Check(ctx context.Context, userID, domain string) (*Result, error) {
	return s.refresh(ctx, userID, domain, s.provider.GetDomain)
}

// Verify asks the provider to re-run DNS verification, then mirrors it.
func (s *Service) Verify(ctx context.Context, userID, domain string) (*Result, error) {
	return s.refresh(ctx, userID, domain, s.provider.VerifyDomain)
}

func (s *Service) refresh(
	ctx context.Context,
	userID, domain string,
	call func(context.Context, string) (json.RawMessage, error),
) (*Result, error) {
	rec, err := s.owned(ctx, userID, domain)
	if err != nil {
		return nil, err
	}

	wasVerified := rec.Status == StatusVerified

	raw, err := call(ctx, rec.Domain)
	if err != nil {
		s.markError(ctx, rec, err)
		if wasVerified {
			s.changed()
		}
		return nil, err
	}

	v := domainprovider.Classify(raw)
	rec.Status = statusFor(v)
	rec.Verification = string(raw)
	rec.LastError = nil
	rec.UpdatedAt = s.now()
	if err := s.store.Update(ctx, rec); err != nil {
		return nil, err
	}
	if wasVerified && rec.Status != StatusVerified {
		s.changed()
	}
	return resultFor(rec, v), nil
}

/*──────────────────────────── remove / list ───────────────────────────────*/

// Remove detaches domain at the provider and deletes its row.  A provider
// 404 is fine; the goal state is "gone".
func (s *Service) Remove(ctx context.Context, userID, domain string) error {
	rec, err := s.owned(ctx, userID, domain)
	if err != nil {
		return err
	}
	if err := s.provider.RemoveDomain(ctx, rec.Domain); err != nil && !domainprovider.IsNotFound(err) {
		return err
	}
	if err := s.store.Delete(ctx, rec.ID); err != nil {
		return err
	}
	s.changed()
	return nil
}

// DetachSite removes every domain of a site from the provider ahead of
// site deletion.  Provider errors are logged, not returned; the site
// delete removes the rows either way.
func (s *Service) DetachSite(ctx context.Context, userID, siteID string) error {
	rows, err := s.store.ListBySite(ctx, userID, siteID)
	if err != nil {
		return err
	}
	for _, rec := range rows {
		if err := s.provider.RemoveDomain(ctx, rec.Domain); err != nil && !domainprovider.IsNotFound(err) {
			logger.FromContext(ctx).Warnw("provider domain removal failed",
				"domain", rec.Domain, "site_id", siteID, "err", err)
		}
	}
	return nil
}

// List returns the user's domains newest-first.
func (s *Service) List(ctx context.Context, userID string) ([]Result, error) {
	rows, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(rows))
	for i := range rows {
		out = append(out, *resultFor(&rows[i], domainprovider.Classify([]byte(rows[i].Verification))))
	}
	return out, nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// owned normalizes domain and loads the caller's row.
func (s *Service) owned(ctx context.Context, userID, domain string) (*Record, error) {
	host, err := NormalizeHostname(domain)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.ByDomain(ctx, host)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, ErrForbidden
	}
	return rec, nil
}

// markError records a provider failure on rec.  A failed write is logged;
// the caller already has the provider error to report.
func (s *Service) markError(ctx context.Context, rec *Record, cause error) {
	msg := cause.Error()
	rec.Status = StatusError
	rec.LastError = &msg
	rec.UpdatedAt = s.now()
	if err := s.store.Update(ctx, rec); err != nil {
		logger.FromContext(ctx).Errorw("domain error status not saved",
			"domain", rec.Domain, "cause", msg, "err", err)
	}
}

func statusFor(v domainprovider.Verification) Status {
	if v.Verified {
		return StatusVerified
	}
	return StatusPending
}

func resultFor(rec *Record, v domainprovider.Verification) *Result {
	raw := json.RawMessage(rec.Verification)
	if !json.Valid(raw) {
		raw = json.RawMessage("null")
	}
	return &Result{
		Domain:       rec.Domain,
		Status:       rec.Status,
		Verified:     rec.Status == StatusVerified,
		Verification: raw,
		Records:      v.Records,
		SiteID:       rec.SiteID,
		LastError:    rec.LastError,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}
