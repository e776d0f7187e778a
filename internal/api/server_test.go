package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"sitelog/internal/capture"
	"sitelog/internal/logging"
	"sitelog/internal/notifications"
	"sitelog/internal/sites"
	"sitelog/internal/store"
	"sitelog/internal/structuring"
	logsync "sitelog/internal/sync"
)

type fakeTranscriber struct{}

func (fakeTranscriber) Transcribe(context.Context, []byte, string) (string, error) {
	return "swapped the filters on the roof unit", nil
}

type fakeStructurer struct{}

func (fakeStructurer) Structure(context.Context, string, sites.SiteContext) (*structuring.Record, error) {
	return &structuring.Record{
		Summary:       "Replaced RTU filters.",
		WorkCompleted: []string{"Replaced filters on RTU-2"},
		Issues:        []string{},
		Safety:        []string{},
		NextSteps:     []string{},
		Tags:          []string{"hvac"},
		JobType:       structuring.JobRetail,
	}, nil
}

type stubDestination struct{}

func (stubDestination) Kind() string                                { return "drive" }
func (stubDestination) Connected() bool                             { return true }
func (stubDestination) Push(context.Context, logsync.Payload) error { return nil }

func newTestServer(t *testing.T, token string) (*httptest.Server, *store.Store) {
	t.Helper()
	st, err := store.OpenPath(filepath.Join(t.TempDir(), "sitelog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })

	submitter := logsync.NewOrchestrator([]logsync.Destination{stubDestination{}},
		st, notifications.Noop(), logging.NewNop())
	manager := capture.NewManager(st, fakeTranscriber{}, fakeStructurer{}, submitter,
		notifications.Noop(), logging.NewNop(), time.Hour)
	server := NewServer(st, manager, notifications.Noop(), nil, logging.NewNop(), token)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func doJSON(t *testing.T, method, url string, body any, token string) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var target T
	if err := json.NewDecoder(resp.Body).Decode(&target); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return target
}

func TestAuthMiddleware(t *testing.T) {
	ts, _ := newTestServer(t, "secret-token")

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/status", nil, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/status", nil, "wrong")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status with bad token = %d, want 401", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/status", nil, "secret-token")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status with token = %d, want 200", resp.StatusCode)
	}
}

func TestRequestIDHeader(t *testing.T) {
	ts, _ := newTestServer(t, "")
	resp := doJSON(t, http.MethodGet, ts.URL+"/api/status", nil, "")
	resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID response header")
	}
}

func TestSiteCRUD(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sites", map[string]string{
		"name":    "Riverside Retail",
		"address": "123 Main St",
	}, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create site = %d", resp.StatusCode)
	}
	created := decode[store.SiteRecord](t, resp)
	if created.ID == 0 {
		t.Fatal("expected assigned site ID")
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/sites", map[string]string{
		"name":    "Riverside Retail",
		"address": "123 Main St",
	}, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate site = %d, want 409", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/sites", nil, "")
	listed := decode[map[string][]store.SiteRecord](t, resp)
	if len(listed["sites"]) != 1 {
		t.Fatalf("sites = %+v", listed)
	}

	resp = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/sites/%d/archive", ts.URL, created.ID), nil, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("archive = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/sites", nil, "")
	listed = decode[map[string][]store.SiteRecord](t, resp)
	if len(listed["sites"]) != 0 {
		t.Fatal("archived site should not be listed by default")
	}
}

func TestCaptureFlowOverHTTP(t *testing.T) {
	ts, st := newTestServer(t, "")

	site, err := st.CreateSite(context.Background(), sites.SiteContext{
		Name: "Riverside Retail", Address: "123 Main St",
	})
	if err != nil {
		t.Fatal(err)
	}

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions", nil, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("begin session = %d", resp.StatusCode)
	}
	session := decode[capture.Snapshot](t, resp)
	base := ts.URL + "/api/sessions/" + session.ID

	resp = doJSON(t, http.MethodPost, base+"/site", map[string]int64{"site_id": site.ID}, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("select site = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, base+"/text", map[string]string{
		"text": "Swapped the filters, noted a bent hatch latch.",
	}, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set text = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, base+"/record", nil, "")
	snap := decode[capture.Snapshot](t, resp)
	if snap.Stage != capture.StageReview {
		t.Fatalf("stage after process = %q", snap.Stage)
	}

	resp = doJSON(t, http.MethodPost, base+"/edit", map[string]any{
		"op": "append", "section": "issues", "entry": "Broken door closer at rear entrance",
	}, "")
	snap = decode[capture.Snapshot](t, resp)
	if len(snap.Record.Issues) != 1 {
		t.Fatalf("issues after edit = %v", snap.Record.Issues)
	}

	resp = doJSON(t, http.MethodPost, base+"/submit", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit = %d", resp.StatusCode)
	}
	submitted := decode[map[string]json.RawMessage](t, resp)
	var results []logsync.Result
	if err := json.Unmarshal(submitted["results"], &results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Outcome != logsync.OutcomeSynced {
		t.Fatalf("results = %+v", results)
	}

	logs, err := st.ListMetadata(context.Background(), site.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Fatalf("metadata rows = %d, want 1", len(logs))
	}
	if logs[0].Outcomes != "drive=synced" {
		t.Fatalf("outcomes = %q, want drive=synced", logs[0].Outcomes)
	}
	if logs[0].SiteAddress != "123 Main St" {
		t.Fatalf("site address = %q", logs[0].SiteAddress)
	}
}

func TestStartOverOverHTTP(t *testing.T) {
	ts, st := newTestServer(t, "")
	site, err := st.CreateSite(context.Background(), sites.SiteContext{
		Name: "Riverside Retail", Address: "123 Main St",
	})
	if err != nil {
		t.Fatal(err)
	}

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions", nil, "")
	session := decode[capture.Snapshot](t, resp)
	base := ts.URL + "/api/sessions/" + session.ID

	resp = doJSON(t, http.MethodPost, base+"/site", map[string]int64{"site_id": site.ID}, "")
	resp.Body.Close()
	resp = doJSON(t, http.MethodPost, base+"/text", map[string]string{"text": "wrong site, scrap it"}, "")
	resp.Body.Close()
	resp = doJSON(t, http.MethodPost, base+"/record", nil, "")
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, base+"/start-over", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start over = %d", resp.StatusCode)
	}
	snap := decode[capture.Snapshot](t, resp)
	if snap.Stage != capture.StagePickSite {
		t.Fatalf("stage = %q, want pick_site", snap.Stage)
	}
	if snap.Site != nil || snap.Record != nil {
		t.Fatalf("start over must discard the site and record: %+v", snap)
	}
}

func TestAttachAudioRejectsBadFormat(t *testing.T) {
	ts, st := newTestServer(t, "")
	site, _ := st.CreateSite(context.Background(), sites.SiteContext{
		Name: "Riverside Retail", Address: "123 Main St",
	})

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions", nil, "")
	session := decode[capture.Snapshot](t, resp)
	base := ts.URL + "/api/sessions/" + session.ID

	resp = doJSON(t, http.MethodPost, base+"/site", map[string]int64{"site_id": site.ID}, "")
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodPost, base+"/audio", bytes.NewReader([]byte("not-audio")))
	req.Header.Set("Content-Type", "video/mp4")
	audioResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	audioResp.Body.Close()
	if audioResp.StatusCode != http.StatusBadRequest {
		t.Fatalf("attach bad audio = %d, want 400", audioResp.StatusCode)
	}
}

func TestStreamedRecordingFlow(t *testing.T) {
	ts, st := newTestServer(t, "")
	site, _ := st.CreateSite(context.Background(), sites.SiteContext{
		Name: "Riverside Retail", Address: "123 Main St",
	})

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions", nil, "")
	session := decode[capture.Snapshot](t, resp)
	base := ts.URL + "/api/sessions/" + session.ID

	resp = doJSON(t, http.MethodPost, base+"/site", map[string]int64{"site_id": site.ID}, "")
	resp.Body.Close()
	resp = doJSON(t, http.MethodPost, base+"/recording/start", nil, "")
	resp.Body.Close()

	for _, chunk := range []string{"first-", "second"} {
		req, _ := http.NewRequest(http.MethodPost, base+"/recording/data", bytes.NewReader([]byte(chunk)))
		chunkResp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		chunkResp.Body.Close()
		if chunkResp.StatusCode != http.StatusOK {
			t.Fatalf("append chunk = %d", chunkResp.StatusCode)
		}
	}

	resp = doJSON(t, http.MethodPost, base+"/recording/finish", map[string]string{
		"mime_type": "audio/webm",
	}, "")
	snap := decode[capture.Snapshot](t, resp)
	if snap.Stage != capture.StageForm || !snap.HasAudio {
		t.Fatalf("after finish: stage=%q has_audio=%v", snap.Stage, snap.HasAudio)
	}

	resp = doJSON(t, http.MethodPost, base+"/record", nil, "")
	snap = decode[capture.Snapshot](t, resp)
	if snap.Stage != capture.StageReview {
		t.Fatalf("stage after process = %q", snap.Stage)
	}
	if snap.HasAudio {
		t.Fatal("audio must be wiped at review")
	}
}

func TestEditTagsAndJobType(t *testing.T) {
	ts, st := newTestServer(t, "")
	site, _ := st.CreateSite(context.Background(), sites.SiteContext{
		Name: "Riverside Retail", Address: "123 Main St",
	})

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions", nil, "")
	session := decode[capture.Snapshot](t, resp)
	base := ts.URL + "/api/sessions/" + session.ID

	resp = doJSON(t, http.MethodPost, base+"/site", map[string]int64{"site_id": site.ID}, "")
	resp.Body.Close()
	resp = doJSON(t, http.MethodPost, base+"/text", map[string]string{"text": "swapped filters"}, "")
	resp.Body.Close()
	resp = doJSON(t, http.MethodPost, base+"/record", nil, "")
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, base+"/edit", map[string]any{
		"op": "tags", "tags": []string{"HVAC Repair", "roof"},
	}, "")
	snap := decode[capture.Snapshot](t, resp)
	if len(snap.Record.Tags) != 2 || snap.Record.Tags[0] != "hvac-repair" {
		t.Fatalf("tags = %v", snap.Record.Tags)
	}

	resp = doJSON(t, http.MethodPost, base+"/edit", map[string]any{
		"op": "job_type", "job_type": "warehouse",
	}, "")
	snap = decode[capture.Snapshot](t, resp)
	if snap.Record.JobType != structuring.JobOther {
		t.Fatalf("unknown job type should map to other, got %q", snap.Record.JobType)
	}
}

func TestClearLogsOverHTTP(t *testing.T) {
	ts, st := newTestServer(t, "")
	site, _ := st.CreateSite(context.Background(), sites.SiteContext{
		Name: "Riverside Retail", Address: "123 Main St",
	})
	if _, err := st.SaveMetadata(context.Background(), store.LogMetadata{
		SessionID: "old-session", SiteID: site.ID, SiteName: site.Name,
		JobType: "retail", Summary: "old entry",
	}); err != nil {
		t.Fatal(err)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/logs", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	cleared := decode[map[string]int64](t, resp)
	if cleared["removed"] != 1 {
		t.Fatalf("removed = %d, want 1", cleared["removed"])
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	ts, _ := newTestServer(t, "")
	resp := doJSON(t, http.MethodGet, ts.URL+"/api/sessions/nope", nil, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown session = %d, want 404", resp.StatusCode)
	}
}

func TestAccountRoundTripOverHTTP(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/account", nil, "")
	account := decode[map[string]any](t, resp)
	if account["tier"] != "FREE" {
		t.Fatalf("default tier = %v", account["tier"])
	}
	if account["has_access"] != true {
		t.Fatal("fresh install should have access")
	}

	expires := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	resp = doJSON(t, http.MethodPut, ts.URL+"/api/account", map[string]any{
		"tier":             "FREE",
		"trial_expires_at": expires,
	}, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("put account = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/sessions", nil, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("begin with expired trial = %d, want 402", resp.StatusCode)
	}
}

func TestDowngradePreservesBetaAccess(t *testing.T) {
	ts, _ := newTestServer(t, "")

	expires := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)
	resp := doJSON(t, http.MethodPut, ts.URL+"/api/account", map[string]any{
		"tier":             "PRO",
		"trial_expires_at": expires,
		"beta_tester":      true,
	}, "")
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/account/downgrade", nil, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("downgrade = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/account", nil, "")
	account := decode[map[string]any](t, resp)
	if account["tier"] != "FREE" {
		t.Fatalf("tier after downgrade = %v", account["tier"])
	}
	if account["beta_tester"] != true || account["has_access"] != true {
		t.Fatalf("beta access must survive downgrade: %v", account)
	}
}
