package adapthttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	adapthttp "healthtrack/internal/adapter/http"
	"healthtrack/internal/adapter/memory"
	"healthtrack/internal/app"
	"healthtrack/internal/domain"
)

// ---------------------------------------------------------------------------
// Mock store (function-fields pattern over the in-memory adapter)
// ---------------------------------------------------------------------------

type mockStore struct {
	*memory.DB
	insertFn func(ctx context.Context, rec domain.HealthRecord, scope domain.Scope) (domain.HealthRecord, error)
	deleteFn func(ctx context.Context, id string, scope domain.Scope) error
}

func (m *mockStore) Insert(ctx context.Context, rec domain.HealthRecord, scope domain.Scope) (domain.HealthRecord, error) {
	if m.insertFn != nil {
		return m.insertFn(ctx, rec, scope)
	}
	return m.DB.Insert(ctx, rec, scope)
}

func (m *mockStore) DeleteByID(ctx context.Context, id string, scope domain.Scope) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, scope)
	}
	return m.DB.DeleteByID(ctx, id, scope)
}

// ---------------------------------------------------------------------------
// Test-server helpers
// ---------------------------------------------------------------------------

var fixedNow = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, store *mockStore, opts ...adapthttp.Option) (*httptest.Server, *mockStore) {
	t.Helper()

	if store == nil {
		store = &mockStore{DB: memory.New()}
	}
	authSvc := app.NewAuthService(store.DB, store.DB.NewSessionRepo())

	webDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(webDir, "index.html"), []byte("<html></html>"), 0o600); err != nil {
		t.Fatal(err)
	}

	opts = append([]adapthttp.Option{adapthttp.WithClock(func() time.Time { return fixedNow })}, opts...)
	srv := adapthttp.New(authSvc, store, webDir, opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar, CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
}

func do(t *testing.T, c *http.Client, method, url string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	var m map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &m)
	}
	return resp, m
}

func signUp(t *testing.T, c *http.Client, base, email string) {
	t.Helper()
	resp, body := do(t, c, http.MethodPost, base+"/api/auth/signup", map[string]string{"email": email, "password": "secret123"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signup: expected 200, got %d: %v", resp.StatusCode, body)
	}
}

var scenario = map[string]any{
	"date": "2024-01-01", "weight": 70, "sleep": 7, "sport": 30, "water": 2,
	"foodType": "balanced", "energy": 60, "mood": 70, "stress": 40,
}

func records(body map[string]any) []any {
	recs, _ := body["records"].([]any)
	return recs
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, body := do(t, http.DefaultClient, http.MethodGet, ts.URL+"/api/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok=true, got %v", body["ok"])
	}
	if resp.Header.Get("Cache-Control") != "no-store" {
		t.Fatalf("expected no-store, got %q", resp.Header.Get("Cache-Control"))
	}
}

func TestRecordEndpointsRequireSession(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	for _, path := range []string{"/api/records", "/api/form", "/api/charts"} {
		resp, _ := do(t, http.DefaultClient, http.MethodGet, ts.URL+path, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, resp.StatusCode)
		}
	}
}

func TestSubmitListChartDelete(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	c := newClient(t)
	signUp(t, c, ts.URL, "alice@example.com")

	resp, body := do(t, c, http.MethodPost, ts.URL+"/api/records", scenario)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", resp.StatusCode, body)
	}
	rec := body["record"].(map[string]any)
	id, _ := rec["id"].(string)
	if id == "" {
		t.Fatal("record missing id")
	}
	if rec["weight"] != 70.0 || rec["foodType"] != "balanced" {
		t.Fatalf("unexpected record: %v", rec)
	}
	form := body["form"].(map[string]any)
	if form["date"] != "2024-03-15" || form["mood"] != 50.0 || form["weight"] != nil {
		t.Fatalf("form was not reset: %v", form)
	}

	resp, body = do(t, c, http.MethodGet, ts.URL+"/api/records", nil)
	if resp.StatusCode != http.StatusOK || len(records(body)) != 1 {
		t.Fatalf("expected one record, got %d: %v", resp.StatusCode, body)
	}

	resp, body = do(t, c, http.MethodGet, ts.URL+"/api/charts?unit=lb", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	series := body["series"].([]any)
	if len(series) != 7 {
		t.Fatalf("expected 7 series, got %d", len(series))
	}
	weight := series[0].(map[string]any)
	point := weight["points"].([]any)[0].(map[string]any)
	if v := point["value"].(float64); v < 154.3 || v > 154.4 {
		t.Fatalf("expected ~154.32 lb, got %v", v)
	}

	resp, body = do(t, c, http.MethodDelete, ts.URL+"/api/records/"+id, nil)
	if resp.StatusCode != http.StatusOK || len(records(body)) != 0 {
		t.Fatalf("delete: got %d: %v", resp.StatusCode, body)
	}
}

func TestSubmitMissingWeight(t *testing.T) {
	ts, store := newTestServer(t, nil)
	store.insertFn = func(context.Context, domain.HealthRecord, domain.Scope) (domain.HealthRecord, error) {
		t.Fatal("store must not be called")
		return domain.HealthRecord{}, nil
	}
	c := newClient(t)
	signUp(t, c, ts.URL, "alice@example.com")

	payload := map[string]any{}
	for k, v := range scenario {
		payload[k] = v
	}
	payload["weight"] = ""

	resp, body := do(t, c, http.MethodPost, ts.URL+"/api/records", payload)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	missing, _ := body["missing"].([]any)
	if len(missing) != 1 || missing[0] != "weight" {
		t.Fatalf("expected missing [weight], got %v", body["missing"])
	}

	_, body = do(t, c, http.MethodGet, ts.URL+"/api/form", nil)
	form := body["form"].(map[string]any)
	if form["sleep"] != 7.0 {
		t.Fatalf("form should keep entered values, got %v", form)
	}
}

func TestSubmitStoreFailure(t *testing.T) {
	ts, store := newTestServer(t, nil)
	store.insertFn = func(context.Context, domain.HealthRecord, domain.Scope) (domain.HealthRecord, error) {
		return domain.HealthRecord{}, fmt.Errorf("%w: connection reset", domain.ErrStoreWrite)
	}
	c := newClient(t)
	signUp(t, c, ts.URL, "alice@example.com")

	resp, _ := do(t, c, http.MethodPost, ts.URL+"/api/records", scenario)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	_, body := do(t, c, http.MethodGet, ts.URL+"/api/records", nil)
	if len(records(body)) != 0 {
		t.Fatalf("collection must be unchanged, got %v", body)
	}
}

func TestDeleteFailureKeepsRecord(t *testing.T) {
	ts, store := newTestServer(t, nil)
	c := newClient(t)
	signUp(t, c, ts.URL, "alice@example.com")
	_, body := do(t, c, http.MethodPost, ts.URL+"/api/records", scenario)
	id := body["record"].(map[string]any)["id"].(string)

	store.deleteFn = func(context.Context, string, domain.Scope) error {
		return fmt.Errorf("%w: network unreachable", domain.ErrStoreWrite)
	}
	resp, _ := do(t, c, http.MethodDelete, ts.URL+"/api/records/"+id, nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	_, body = do(t, c, http.MethodGet, ts.URL+"/api/records", nil)
	if len(records(body)) != 1 {
		t.Fatalf("record should remain, got %v", body)
	}
}

func TestFormPatch(t *testing.T) {
	tests := []struct {
		name       string
		payload    map[string]any
		wantStatus int
	}{
		{name: "numeric strings", payload: map[string]any{"weight": "71.5", "sleep": "8"}, wantStatus: http.StatusOK},
		{name: "numbers", payload: map[string]any{"mood": 80}, wantStatus: http.StatusOK},
		{name: "clear optional", payload: map[string]any{"sport": nil}, wantStatus: http.StatusOK},
		{name: "non-numeric", payload: map[string]any{"weight": "heavy"}, wantStatus: http.StatusBadRequest},
		{name: "out of range", payload: map[string]any{"stress": 150}, wantStatus: http.StatusBadRequest},
		{name: "bad date", payload: map[string]any{"date": "2024-02-30"}, wantStatus: http.StatusBadRequest},
		{name: "unknown food", payload: map[string]any{"foodType": "pizza"}, wantStatus: http.StatusBadRequest},
		{name: "unknown field", payload: map[string]any{"steps": 1000}, wantStatus: http.StatusBadRequest},
	}

	ts, _ := newTestServer(t, nil)
	c := newClient(t)
	signUp(t, c, ts.URL, "alice@example.com")

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := do(t, c, http.MethodPatch, ts.URL+"/api/form", tc.payload)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("expected %d, got %d; body: %v", tc.wantStatus, resp.StatusCode, body)
			}
		})
	}

	resp, body := do(t, c, http.MethodDelete, ts.URL+"/api/form", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d", resp.StatusCode)
	}
	if form := body["form"].(map[string]any); form["weight"] != nil || form["mood"] != 50.0 {
		t.Fatalf("form not reset: %v", form)
	}
}

func TestEditAndResubmit(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	c := newClient(t)
	signUp(t, c, ts.URL, "alice@example.com")
	_, body := do(t, c, http.MethodPost, ts.URL+"/api/records", scenario)
	id := body["record"].(map[string]any)["id"].(string)

	resp, body := do(t, c, http.MethodPost, ts.URL+"/api/records/"+id+"/edit", nil)
	if resp.StatusCode != http.StatusOK || body["editing"] != true {
		t.Fatalf("edit: got %d: %v", resp.StatusCode, body)
	}
	if body["form"].(map[string]any)["editingId"] != id {
		t.Fatalf("form should be editing %s: %v", id, body["form"])
	}

	resp, body = do(t, c, http.MethodPost, ts.URL+"/api/records", map[string]any{"weight": 69})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("resubmit: got %d: %v", resp.StatusCode, body)
	}
	recs := records(body)
	if len(recs) != 1 {
		t.Fatalf("expected in-place update, got %d records", len(recs))
	}
	if r := recs[0].(map[string]any); r["id"] != id || r["weight"] != 69.0 {
		t.Fatalf("unexpected record after edit: %v", r)
	}

	_, body = do(t, c, http.MethodPost, ts.URL+"/api/records/missing/edit", nil)
	if body["editing"] != false {
		t.Fatalf("editing an unknown id should be a no-op, got %v", body)
	}
}

func TestSignInBadCredentials(t *testing.T) {
	ts, store := newTestServer(t, nil)
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.DB.Create(context.Background(), "bob@example.com", string(hash)); err != nil {
		t.Fatal(err)
	}

	resp, body := do(t, newClient(t), http.MethodPost, ts.URL+"/api/auth/signin", map[string]string{"email": "bob@example.com", "password": "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if body["op"] != "signin" {
		t.Fatalf("expected op=signin, got %v", body["op"])
	}

	resp, _ = do(t, newClient(t), http.MethodPost, ts.URL+"/api/auth/signin", map[string]string{"email": "bob@example.com", "password": "secret123"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestSignOutDropsSession(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	c := newClient(t)
	signUp(t, c, ts.URL, "alice@example.com")
	do(t, c, http.MethodPost, ts.URL+"/api/records", scenario)

	resp, _ := do(t, c, http.MethodPost, ts.URL+"/api/auth/signout", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	_, body := do(t, c, http.MethodGet, ts.URL+"/api/auth/session", nil)
	if body["authenticated"] != false {
		t.Fatalf("expected signed out, got %v", body)
	}
	resp, _ = do(t, c, http.MethodGet, ts.URL+"/api/records", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestUsersSeeOnlyTheirRecords(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	alice, bob := newClient(t), newClient(t)
	signUp(t, alice, ts.URL, "alice@example.com")
	signUp(t, bob, ts.URL, "bob@example.com")
	do(t, alice, http.MethodPost, ts.URL+"/api/records", scenario)

	_, body := do(t, bob, http.MethodGet, ts.URL+"/api/records", nil)
	if len(records(body)) != 0 {
		t.Fatalf("bob must not see alice's records: %v", body)
	}
}

func TestSessionResumesInNewProcess(t *testing.T) {
	store := &mockStore{DB: memory.New()}
	first, _ := newTestServer(t, store)
	c := newClient(t)
	signUp(t, c, first.URL, "alice@example.com")
	do(t, c, http.MethodPost, first.URL+"/api/records", scenario)

	firstURL, _ := http.NewRequest(http.MethodGet, first.URL, nil)
	cookies := c.Jar.Cookies(firstURL.URL)

	// A second server over the same storage has never seen the token.
	second, _ := newTestServer(t, store)
	req, _ := http.NewRequest(http.MethodGet, second.URL+"/api/records", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || len(records(body)) != 1 {
		t.Fatalf("expected resumed session with one record, got %d: %v", resp.StatusCode, body)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	c := newClient(t)
	signUp(t, c, ts.URL, "alice@example.com")
	u, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	before := c.Jar.Cookies(u.URL)[0].Value

	resp, _ := do(t, c, http.MethodPost, ts.URL+"/api/auth/refresh", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	after := c.Jar.Cookies(u.URL)[0].Value
	if after == before {
		t.Fatal("expected a new session token")
	}

	resp, _ = do(t, c, http.MethodGet, ts.URL+"/api/records", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with refreshed token, got %d", resp.StatusCode)
	}
}

func TestForwardAuth(t *testing.T) {
	ts, _ := newTestServer(t, nil, adapthttp.WithForwardAuth())

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/records", nil)
	req.Header.Set("Remote-User", "proxy@example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestForwardAuthIgnoredByDefault(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/records", nil)
	req.Header.Set("Remote-User", "proxy@example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestConfigAndSSODisabled(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	_, body := do(t, http.DefaultClient, http.MethodGet, ts.URL+"/api/config", nil)
	if body["sso_enabled"] != false {
		t.Fatalf("expected sso disabled, got %v", body)
	}
	resp, _ := do(t, newClient(t), http.MethodGet, ts.URL+"/api/auth/sso/login", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil, adapthttp.WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})))

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	c := newClient(t)
	signUp(t, c, ts.URL, "alice@example.com")

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/auth/signin"},
		{http.MethodGet, "/api/auth/signout"},
		{http.MethodPut, "/api/records"},
		{http.MethodGet, "/api/records/abc"},
		{http.MethodGet, "/api/records/abc/edit"},
		{http.MethodPost, "/api/form"},
		{http.MethodPost, "/api/charts"},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			resp, _ := do(t, c, tc.method, ts.URL+tc.path, nil)
			if resp.StatusCode != http.StatusMethodNotAllowed {
				t.Fatalf("expected 405, got %d", resp.StatusCode)
			}
		})
	}
}

func TestSweepDropsExpiredTrackers(t *testing.T) {
	db := memory.New()
	authSvc := app.NewAuthService(db, db.NewSessionRepo())
	now := fixedNow
	srv := adapthttp.New(authSvc, db, t.TempDir(), adapthttp.WithClock(func() time.Time { return now }))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	c := newClient(t)
	signUp(t, c, ts.URL, "alice@example.com")
	if n := srv.Sweep(); n != 0 {
		t.Fatalf("expected nothing swept, got %d", n)
	}

	now = time.Now().Add(48 * time.Hour)
	if n := srv.Sweep(); n != 1 {
		t.Fatalf("expected one tracker swept, got %d", n)
	}
}

func TestForwardAuthRefreshKeepsOneTracker(t *testing.T) {
	db := memory.New()
	authSvc := app.NewAuthService(db, db.NewSessionRepo())
	now := fixedNow
	srv := adapthttp.New(authSvc, db, t.TempDir(), adapthttp.WithForwardAuth(), adapthttp.WithClock(func() time.Time { return now }))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	for _, path := range []string{"/api/records", "/api/auth/refresh", "/api/records"} {
		method := http.MethodGet
		if path == "/api/auth/refresh" {
			method = http.MethodPost
		}
		req, _ := http.NewRequest(method, ts.URL+path, nil)
		req.Header.Set("Remote-User", "proxy@example.com")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s %s: expected 200, got %d", method, path, resp.StatusCode)
		}
	}

	now = time.Now().Add(48 * time.Hour)
	if n := srv.Sweep(); n != 1 {
		t.Fatalf("expected one registered tracker, got %d", n)
	}
}
