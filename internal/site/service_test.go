// internal/site/service_test.go
//
// Lifecycle tests against an in-memory SQLite database.
//
// Run: go test ./internal/site -v

package site

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/sitesmith/internal/customdomain"
	"github.com/yanizio/sitesmith/internal/database"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenWithOptions(ctx, "sqlite3", ":memory:", database.Options{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	stmts := append(append([]string{}, Schema...), customdomain.Schema...)
	if err := database.Migrate(ctx, db, stmts); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// clock returns strictly increasing timestamps.
func clock() func() time.Time {
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

type detachRecorder struct{ sites []string }

func (d *detachRecorder) DetachSite(_ context.Context, _, siteID string) error {
	d.sites = append(d.sites, siteID)
	return nil
}

func newTestService(t *testing.T) (*Service, *sqlx.DB, *detachRecorder) {
	db := openTestDB(t)
	det := &detachRecorder{}
	svc := NewService(NewRepository(db), det)
	svc.now = clock()
	return svc, db, det
}

func TestSaveThenList(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Save(ctx, "user-1", SaveInput{Template: "portfolio", Prompt: "a", HTML: "<p>a</p>"})
	if err != nil {
		t.Fatalf("save a: %v", err)
	}
	b, err := svc.Save(ctx, "user-1", SaveInput{Prompt: "b", HTML: "<p>b</p>"})
	if err != nil {
		t.Fatalf("save b: %v", err)
	}
	if _, err := svc.Save(ctx, "user-2", SaveInput{HTML: "<p>other</p>"}); err != nil {
		t.Fatalf("save other: %v", err)
	}

	list, err := svc.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != b.ID || list[1].ID != a.ID {
		t.Fatalf("list order wrong: %+v", list)
	}

	// Updating a bumps it to the top.
	if _, err := svc.Save(ctx, "user-1", SaveInput{ID: a.ID, Template: "portfolio", HTML: "<p>a2</p>"}); err != nil {
		t.Fatalf("update a: %v", err)
	}
	list, _ = svc.List(ctx, "user-1")
	if list[0].ID != a.ID || list[0].HTML != "<p>a2</p>" {
		t.Fatalf("update not reflected: %+v", list[0])
	}
	if list[0].Status() != StatusDraft {
		t.Fatalf("status %s", list[0].Status())
	}
}

func TestSaveOwnership(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rec, _ := svc.Save(ctx, "user-1", SaveInput{HTML: "<p>x</p>"})
	if _, err := svc.Save(ctx, "user-2", SaveInput{ID: rec.ID, HTML: "stolen"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign save err = %v", err)
	}
	if _, err := svc.Save(ctx, "user-1", SaveInput{ID: "missing", HTML: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing save err = %v", err)
	}
}

func TestPublishCopiesDraftExactly(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	html := "<!DOCTYPE html>\n<html><body><h1>Hi</h1>  </body></html>\n"
	rec, _ := svc.Save(ctx, "user-1", SaveInput{HTML: html})

	pub, err := svc.Publish(ctx, "user-1", rec.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if pub.PublishedHTML == nil || *pub.PublishedHTML != html || pub.HTML != html {
		t.Fatalf("snapshot mismatch: %+v", pub)
	}
	if pub.Status() != StatusPublished || pub.PublishedAt == nil {
		t.Fatalf("not published: %+v", pub)
	}

	// Editing the draft leaves the public copy alone.
	if _, err := svc.Save(ctx, "user-1", SaveInput{ID: rec.ID, HTML: "<p>v2</p>"}); err != nil {
		t.Fatalf("save v2: %v", err)
	}
	got, err := svc.PublishedByID(ctx, rec.ID)
	if err != nil || got != html {
		t.Fatalf("public copy = %q, %v", got, err)
	}

	if _, err := svc.Unpublish(ctx, "user-1", rec.ID); err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	if _, err := svc.PublishedByID(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after unpublish err = %v", err)
	}
}

func TestPublishRejectsEmptyDraft(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rec, _ := svc.Save(ctx, "user-1", SaveInput{HTML: "   \n"})
	if _, err := svc.Publish(ctx, "user-1", rec.ID); !errors.Is(err, ErrEmptyDraft) {
		t.Fatalf("err = %v", err)
	}
	if _, err := svc.Publish(ctx, "user-2", rec.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign publish err = %v", err)
	}
}

func TestPublishedByHostNeedsVerifiedDomain(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	domains := customdomain.NewRepository(db)

	rec, _ := svc.Save(ctx, "user-1", SaveInput{HTML: "<p>live</p>"})
	if _, err := svc.Publish(ctx, "user-1", rec.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}

	now := time.Now().UTC()
	d := &customdomain.Record{ID: "d1", UserID: "user-1", SiteID: &rec.ID, Domain: "shop.example.com",
		Status: customdomain.StatusPending, Verification: `{}`, CreatedAt: now, UpdatedAt: now}
	if err := domains.Insert(ctx, d); err != nil {
		t.Fatalf("insert domain: %v", err)
	}
	if _, err := svc.PublishedByHost(ctx, "shop.example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("pending domain served: %v", err)
	}

	d.Status = customdomain.StatusVerified
	if err := domains.Update(ctx, d); err != nil {
		t.Fatalf("update domain: %v", err)
	}
	got, err := svc.PublishedByHost(ctx, "shop.example.com")
	if err != nil || got != "<p>live</p>" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestDeleteCascadesDomains(t *testing.T) {
	svc, db, det := newTestService(t)
	ctx := context.Background()
	domains := customdomain.NewRepository(db)
	fired := 0
	svc.OnChange(func() { fired++ })

	rec, _ := svc.Save(ctx, "user-1", SaveInput{HTML: "<p>x</p>"})
	now := time.Now().UTC()
	if err := domains.Insert(ctx, &customdomain.Record{ID: "d1", UserID: "user-1", SiteID: &rec.ID,
		Domain: "x.example.com", Status: customdomain.StatusVerified, Verification: `{}`,
		CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("insert domain: %v", err)
	}

	if err := svc.Delete(ctx, "user-2", rec.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign delete err = %v", err)
	}
	if err := svc.Delete(ctx, "user-1", rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(det.sites) != 1 || det.sites[0] != rec.ID {
		t.Fatalf("detach calls %v", det.sites)
	}
	if fired != 1 {
		t.Fatalf("change hook fired %d times", fired)
	}
	if _, err := domains.ByDomain(ctx, "x.example.com"); !errors.Is(err, customdomain.ErrNotFound) {
		t.Fatalf("domain row survived: %v", err)
	}
	if _, err := svc.Get(ctx, "user-1", rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("site survived: %v", err)
	}
}

func TestPublishQueryCopiesInSQL(t *testing.T) {
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer raw.Close()

	mock.ExpectExec(`UPDATE sites\s+SET\s+published_html = html`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "s1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := NewRepository(sqlx.NewDb(raw, "mysql")).Publish(context.Background(), "user-1", "s1", time.Now())
	if err != nil || !ok {
		t.Fatalf("publish = %v, %v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
