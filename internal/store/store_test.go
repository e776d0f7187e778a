package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"sitelog/internal/sites"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenPath(filepath.Join(t.TempDir(), "sitelog.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGetSite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateSite(ctx, sites.SiteContext{
		Name:     "Riverside Retail",
		Address:  "123 Main St",
		PermitID: "P-7741",
	})
	if err != nil {
		t.Fatalf("CreateSite: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected assigned ID")
	}

	got, err := s.GetSite(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetSite: %v", err)
	}
	if got.Name != "Riverside Retail" || got.PermitID != "P-7741" {
		t.Fatalf("unexpected site: %+v", got)
	}
	if got.Archived {
		t.Fatal("new site should not be archived")
	}
}

func TestCreateSiteRejectsDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	site := sites.SiteContext{Name: "Riverside Retail", Address: "123 Main St"}

	if _, err := s.CreateSite(ctx, site); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := s.CreateSite(ctx, site)
	if !errors.Is(err, ErrDuplicateSite) {
		t.Fatalf("expected ErrDuplicateSite, got %v", err)
	}
}

func TestListSitesExcludesArchivedByDefault(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.CreateSite(ctx, sites.SiteContext{Name: "Site A", Address: "1 First St"})
	if _, err := s.CreateSite(ctx, sites.SiteContext{Name: "Site B", Address: "2 Second St"}); err != nil {
		t.Fatal(err)
	}
	if err := s.ArchiveSite(ctx, a.ID); err != nil {
		t.Fatalf("ArchiveSite: %v", err)
	}

	active, err := s.ListSites(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].Name != "Site B" {
		t.Fatalf("active sites = %+v", active)
	}

	all, err := s.ListSites(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("all sites = %d, want 2", len(all))
	}
}

func TestGetSiteNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSite(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetAccount(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before put, got %v", err)
	}

	expires := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	if err := s.PutAccount(ctx, AccountRecord{
		Tier:           "FREE",
		TrialExpiresAt: &expires,
		BetaTester:     true,
	}); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}

	got, err := s.GetAccount(ctx)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got.Tier != "FREE" || !got.BetaTester {
		t.Fatalf("unexpected account: %+v", got)
	}
	if got.TrialExpiresAt == nil || !got.TrialExpiresAt.Equal(expires) {
		t.Fatalf("trial expiry = %v, want %v", got.TrialExpiresAt, expires)
	}

	// Upsert replaces the single row.
	if err := s.PutAccount(ctx, AccountRecord{Tier: "PRO"}); err != nil {
		t.Fatalf("second PutAccount: %v", err)
	}
	got, err = s.GetAccount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tier != "PRO" || got.TrialExpiresAt != nil {
		t.Fatalf("unexpected account after upsert: %+v", got)
	}
}

func TestSaveMetadataOncePerSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	site, err := s.CreateSite(ctx, sites.SiteContext{Name: "Riverside Retail", Address: "123 Main St"})
	if err != nil {
		t.Fatal(err)
	}

	meta := LogMetadata{
		SessionID: "sess-1",
		SiteID:    site.ID,
		SiteName:  site.Name,
		JobType:   "retail",
		Summary:   "Replaced RTU filters and closed two punch list items.",
		Tags:      []string{"hvac", "punch-list"},
	}
	id, err := s.SaveMetadata(ctx, meta)
	if err != nil {
		t.Fatalf("SaveMetadata: %v", err)
	}
	if id == 0 {
		t.Fatal("expected assigned metadata ID")
	}

	if _, err := s.SaveMetadata(ctx, meta); !errors.Is(err, ErrDuplicateMetadata) {
		t.Fatalf("expected ErrDuplicateMetadata, got %v", err)
	}
}

func TestMetadataOutcomesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	site, err := s.CreateSite(ctx, sites.SiteContext{Name: "Riverside Retail", Address: "123 Main St"})
	if err != nil {
		t.Fatal(err)
	}

	id, err := s.SaveMetadata(ctx, LogMetadata{
		SessionID:    "sess-1",
		SiteID:       site.ID,
		SiteName:     site.Name,
		SiteAddress:  site.Address,
		JobType:      "retail",
		Summary:      "Replaced RTU filters.",
		DurationSecs: 2700,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.SetMetadataOutcomes(ctx, id, "notion=synced,drive=failed"); err != nil {
		t.Fatalf("SetMetadataOutcomes: %v", err)
	}

	rows, err := s.ListMetadata(ctx, site.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	got := rows[0]
	if got.SiteAddress != "123 Main St" {
		t.Fatalf("site address = %q", got.SiteAddress)
	}
	if got.DurationSecs != 2700 {
		t.Fatalf("duration = %ds, want 2700", got.DurationSecs)
	}
	if got.Outcomes != "notion=synced,drive=failed" {
		t.Fatalf("outcomes = %q", got.Outcomes)
	}

	if err := s.SetMetadataOutcomes(ctx, id+99, "x=synced"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing row error = %v, want ErrNotFound", err)
	}
}

func TestListMetadataFiltersBySite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.CreateSite(ctx, sites.SiteContext{Name: "Site A", Address: "1 First St"})
	b, _ := s.CreateSite(ctx, sites.SiteContext{Name: "Site B", Address: "2 Second St"})

	for i, rec := range []LogMetadata{
		{SessionID: "s1", SiteID: a.ID, SiteName: a.Name, JobType: "retail", Summary: "one"},
		{SessionID: "s2", SiteID: b.ID, SiteName: b.Name, JobType: "office", Summary: "two"},
		{SessionID: "s3", SiteID: a.ID, SiteName: a.Name, JobType: "retail", Summary: "three"},
	} {
		rec.CapturedAt = time.Now().Add(time.Duration(i) * time.Minute)
		if _, err := s.SaveMetadata(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	forA, err := s.ListMetadata(ctx, a.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(forA) != 2 {
		t.Fatalf("site A rows = %d, want 2", len(forA))
	}
	if forA[0].Summary != "three" {
		t.Fatalf("expected newest first, got %q", forA[0].Summary)
	}

	limited, err := s.ListMetadata(ctx, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Fatalf("limited rows = %d, want 1", len(limited))
	}
}

func TestClearMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.CreateSite(ctx, sites.SiteContext{Name: "Site A", Address: "1 First St"})
	b, _ := s.CreateSite(ctx, sites.SiteContext{Name: "Site B", Address: "2 Second St"})

	for _, rec := range []LogMetadata{
		{SessionID: "s1", SiteID: a.ID, SiteName: a.Name, JobType: "retail", Summary: "one"},
		{SessionID: "s2", SiteID: b.ID, SiteName: b.Name, JobType: "office", Summary: "two"},
	} {
		if _, err := s.SaveMetadata(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := s.ClearMetadata(ctx, a.ID)
	if err != nil {
		t.Fatalf("ClearMetadata: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	remaining, err := s.ListMetadata(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 1 || remaining[0].SiteID != b.ID {
		t.Fatalf("remaining = %+v", remaining)
	}
}

func TestHealth(t *testing.T) {
	s := newTestStore(t)
	if err := s.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
}
