// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/trustbond/internal/fingerprint"
	"github.com/tomtom215/trustbond/internal/intake"
	"github.com/tomtom215/trustbond/internal/models"
	"github.com/tomtom215/trustbond/internal/scheduler"
	"github.com/tomtom215/trustbond/internal/store"
	"github.com/tomtom215/trustbond/internal/trust"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeRunner is a ClusterRunner with canned results.
type fakeRunner struct {
	mu     sync.Mutex
	result *scheduler.CycleResult
	err    error
	health models.SchedulerHealth
	calls  int
}

func (f *fakeRunner) RunOnce(context.Context) (*scheduler.CycleResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, f.err
}

func (f *fakeRunner) Health() models.SchedulerHealth {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.health
}

type testEnv struct {
	store    *store.Store
	ledger   *trust.Ledger
	feedback *intake.Feedback
	runner   *fakeRunner
	handler  *Handler
	router   http.Handler
}

func newTestEnv(t *testing.T, mw *ChiMiddlewareConfig) *testEnv {
	t.Helper()

	s, err := store.Open(store.Config{InMemory: true})
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	tcfg := trust.DefaultConfig()
	ledger := trust.NewLedger(s, tcfg)
	flood := trust.NewFloodDetector(s, ledger, trust.DefaultFloodConfig())
	icfg := intake.DefaultConfig()
	weights := trust.NewWeightCalculator(s, tcfg)
	guard := intake.NewGuard(s, ledger, flood, weights, nil, icfg)
	feedback := intake.NewFeedback(s, ledger, icfg)

	runner := &fakeRunner{health: models.SchedulerHealth{State: scheduler.StateIdle, Healthy: true}}
	h := NewHandler(s, guard, feedback, ledger, weights, runner, HandlerConfig{Version: "test"})

	if mw == nil {
		mw = DefaultChiMiddlewareConfig()
		mw.RateLimitDisabled = true
	}
	return &testEnv{
		store:    s,
		ledger:   ledger,
		feedback: feedback,
		runner:   runner,
		handler:  h,
		router:   NewRouter(h, mw).SetupChi(),
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	env := decodeEnvelope(t, w)
	if env.Status != "success" {
		t.Fatalf("status = %q, error = %+v", env.Status, env.Error)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func testDevice(n int) string {
	return fingerprint.Hash(fingerprint.DeviceSignals{Platform: fmt.Sprintf("api-%d", n)})
}

func submitBody(fp string) string {
	return fmt.Sprintf(`{"category":"theft","description":"phone snatched near the market",`+
		`"location":{"lat":-1.9441,"lng":30.0619},"device_fingerprint":%q}`, fp)
}

func (e *testEnv) submit(t *testing.T, fp string) SubmitReportResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/reports", submitBody(fp))
	if w.Code != http.StatusCreated {
		t.Fatalf("submit status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SubmitReportResponse
	decodeData(t, w, &resp)
	return resp
}

func TestSubmitReport(t *testing.T) {
	env := newTestEnv(t, nil)
	fp := testDevice(1)

	resp := env.submit(t, fp)
	if resp.ID == "" || !strings.HasPrefix(resp.ReferenceCode, "TB-") {
		t.Errorf("response = %+v, want id and TB- reference", resp)
	}
	if resp.Status != models.ReportStatusNew || resp.IsDelayed {
		t.Errorf("status = %s delayed = %v, want new", resp.Status, resp.IsDelayed)
	}

	for _, path := range []string{
		"/api/v1/reports/" + resp.ID,
		"/api/v1/reports/reference/" + resp.ReferenceCode,
	} {
		w := env.do(t, http.MethodGet, path, "")
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, w.Code)
		}
		if strings.Contains(w.Body.String(), "device_fingerprint") {
			t.Errorf("GET %s exposes the fingerprint: %s", path, w.Body.String())
		}
		var got models.Report
		decodeData(t, w, &got)
		if got.ID != resp.ID || got.TrustScore != 50 {
			t.Errorf("GET %s = %+v", path, got)
		}
	}
}

func TestSubmitReportRejected(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"category":`},
		{"empty body", ``},
		{"unknown field", `{"category":"theft","description":"abc","location":{"lat":0,"lng":0},"extra":1}`},
		{"missing category", `{"description":"abc","location":{"lat":0,"lng":0}}`},
		{"missing location", `{"category":"theft","description":"no location given"}`},
		{"latitude out of range", `{"category":"theft","description":"abc","location":{"lat":91,"lng":0}}`},
		{"bad fingerprint", `{"category":"theft","description":"abc","location":{"lat":0,"lng":0},"device_fingerprint":"zz"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
			if got := decodeEnvelope(t, w); got.Error == nil || got.Error.Code != CodeValidation {
				t.Errorf("error = %+v, want %s", got.Error, CodeValidation)
			}
		})
	}
}

func TestSubmitReportBodyTooLarge(t *testing.T) {
	env := newTestEnv(t, nil)
	env.handler.config.MaxBodyBytes = 64

	w := env.do(t, http.MethodPost, "/api/v1/reports", submitBody(testDevice(2)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSubmitReportFlood(t *testing.T) {
	env := newTestEnv(t, nil)
	fp := testDevice(3)

	for i := 0; i < 3; i++ {
		env.submit(t, fp)
	}

	w := env.do(t, http.MethodPost, "/api/v1/reports", submitBody(fp))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "600" {
		t.Errorf("Retry-After = %q, want 600", got)
	}
	if got := decodeEnvelope(t, w); got.Error == nil || got.Error.Code != CodeFloodDetected {
		t.Errorf("error = %+v, want %s", got.Error, CodeFloodDetected)
	}
}

func TestGetReportNotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/api/v1/reports/missing", "/api/v1/reports/reference/TB-20260101-AAAAAA"} {
		w := env.do(t, http.MethodGet, path, "")
		if w.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, w.Code)
		}
		if got := decodeEnvelope(t, w); got.Error == nil || got.Error.Code != CodeNotFound {
			t.Errorf("GET %s error = %+v", path, got.Error)
		}
	}
}

func TestListReportsHidesFakeAndDelayed(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	visible := env.submit(t, testDevice(4))
	fake := env.submit(t, testDevice(5))
	if _, err := env.feedback.MarkFake(ctx, fake.ID); err != nil {
		t.Fatalf("MarkFake() error = %v", err)
	}

	low := testDevice(6)
	if _, err := env.ledger.EnsureAdjust(ctx, low, -30, "test", trust.CounterNone); err != nil {
		t.Fatalf("EnsureAdjust() error = %v", err)
	}
	if delayed := env.submit(t, low); !delayed.IsDelayed {
		t.Fatal("low-trust report not delayed")
	}

	w := env.do(t, http.MethodGet, "/api/v1/reports", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Reports []models.Report `json:"reports"`
		Count   int             `json:"count"`
	}
	decodeData(t, w, &body)
	if body.Count != 1 || body.Reports[0].ID != visible.ID {
		t.Errorf("reports = %+v, want only %s", body.Reports, visible.ID)
	}
}

func TestFeedbackEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	fp := testDevice(7)
	report := env.submit(t, fp)

	w := env.do(t, http.MethodPost, "/api/v1/reports/"+report.ID+"/mark-fake", "")
	if w.Code != http.StatusOK {
		t.Fatalf("mark-fake status = %d, body %s", w.Code, w.Body.String())
	}
	var res intake.FeedbackResult
	decodeData(t, w, &res)
	if !res.Applied || res.TrustScore == nil || *res.TrustScore != 30 {
		t.Errorf("result = %+v, want applied with score 30", res)
	}
	if res.Report.DeviceFingerprint != fingerprint.Mask(fp) {
		t.Errorf("DeviceFingerprint = %q, want masked %q", res.Report.DeviceFingerprint, fingerprint.Mask(fp))
	}

	w = env.do(t, http.MethodPost, "/api/v1/reports/"+report.ID+"/verify", "")
	if w.Code != http.StatusConflict {
		t.Errorf("verify after mark-fake status = %d, want 409", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/v1/reports/missing/resolve", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("resolve missing status = %d, want 404", w.Code)
	}
}

func TestLowTrustQueueAndApprove(t *testing.T) {
	env := newTestEnv(t, nil)
	fp := testDevice(8)
	if _, err := env.ledger.EnsureAdjust(context.Background(), fp, -40, "test", trust.CounterNone); err != nil {
		t.Fatalf("EnsureAdjust() error = %v", err)
	}
	held := env.submit(t, fp)

	w := env.do(t, http.MethodGet, "/api/v1/reports/queue/low-trust", "")
	var body struct {
		Reports []models.Report `json:"reports"`
		Count   int             `json:"count"`
	}
	decodeData(t, w, &body)
	if body.Count != 1 || body.Reports[0].ID != held.ID {
		t.Fatalf("queue = %+v, want %s", body.Reports, held.ID)
	}
	if body.Reports[0].DeviceFingerprint != fingerprint.Mask(fp) {
		t.Errorf("queue fingerprint = %q, want masked", body.Reports[0].DeviceFingerprint)
	}

	w = env.do(t, http.MethodPost, "/api/v1/reports/"+held.ID+"/approve-delayed", "")
	if w.Code != http.StatusOK {
		t.Fatalf("approve status = %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/api/v1/reports/queue/low-trust", "")
	decodeData(t, w, &body)
	if body.Count != 0 {
		t.Errorf("queue count after approve = %d, want 0", body.Count)
	}
}

func TestClusters(t *testing.T) {
	env := newTestEnv(t, nil)
	env.handler.SetClock(func() time.Time { return testNow })
	ctx := context.Background()

	w := env.do(t, http.MethodGet, "/api/v1/clusters", "")
	var resp ClustersResponse
	decodeData(t, w, &resp)
	if resp.Count != 0 || resp.Clusters == nil {
		t.Errorf("empty snapshot = %+v, want count 0 with empty list", resp)
	}

	run := func(id string, at time.Time, n int) []models.Cluster {
		out := make([]models.Cluster, n)
		for i := range out {
			out[i] = models.Cluster{ClusterID: i, RunID: id, ReportCount: 3, RiskLevel: models.RiskMedium, Timestamp: at}
		}
		return out
	}
	stale := run("stale", testNow.Add(-2*time.Hour), 1)
	older := run("older", testNow.Add(-40*time.Minute), 2)
	latest := run("latest", testNow.Add(-10*time.Minute), 3)
	for _, batch := range [][]models.Cluster{stale, older, latest} {
		if _, err := env.store.ReplaceClusters(ctx, testNow.Add(-24*time.Hour), batch); err != nil {
			t.Fatalf("ReplaceClusters() error = %v", err)
		}
	}

	w = env.do(t, http.MethodGet, "/api/v1/clusters", "")
	decodeData(t, w, &resp)
	if resp.RunID != "latest" || resp.Count != 3 {
		t.Errorf("snapshot run = %q count = %d, want latest with 3", resp.RunID, resp.Count)
	}

	w = env.do(t, http.MethodGet, "/api/v1/clusters?history=true", "")
	decodeData(t, w, &resp)
	if resp.Count != 5 {
		t.Errorf("history count = %d, want 5 within the hour", resp.Count)
	}
}

func TestRefreshClusters(t *testing.T) {
	env := newTestEnv(t, nil)

	env.runner.result = &scheduler.CycleResult{RunID: "run-1", ClusterCount: 2}
	w := env.do(t, http.MethodPost, "/api/v1/clusters/refresh", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var result scheduler.CycleResult
	decodeData(t, w, &result)
	if result.RunID != "run-1" || result.ClusterCount != 2 {
		t.Errorf("result = %+v", result)
	}

	env.runner.result, env.runner.err = nil, scheduler.ErrCycleInProgress
	w = env.do(t, http.MethodPost, "/api/v1/clusters/refresh", "")
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 while a cycle runs", w.Code)
	}
}

func TestClusteringParams(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/v1/clusters/params", "")
	var params models.ClusteringConfig
	decodeData(t, w, &params)
	if params != models.DefaultClusteringConfig() {
		t.Errorf("params = %+v, want defaults", params)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"zero epsilon", `{"epsilon":0,"minSamples":3,"enabled":true}`, http.StatusBadRequest},
		{"epsilon too large", `{"epsilon":2,"minSamples":3,"enabled":true}`, http.StatusBadRequest},
		{"zero samples", `{"epsilon":0.01,"minSamples":0,"enabled":true}`, http.StatusBadRequest},
		{"valid", `{"epsilon":0.01,"minSamples":5,"enabled":false}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do(t, http.MethodPut, "/api/v1/clusters/params", tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}

	w = env.do(t, http.MethodGet, "/api/v1/clusters/params", "")
	decodeData(t, w, &params)
	want := models.ClusteringConfig{Epsilon: 0.01, MinSamples: 5, Enabled: false}
	if params != want {
		t.Errorf("params = %+v, want %+v", params, want)
	}
}

func TestAdminEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	fp := testDevice(9)
	report := env.submit(t, fp)
	if _, err := env.feedback.MarkFake(context.Background(), report.ID); err != nil {
		t.Fatalf("MarkFake() error = %v", err)
	}

	w := env.do(t, http.MethodGet, "/api/v1/admin/abuse/analytics", "")
	var analytics models.AbuseAnalytics
	decodeData(t, w, &analytics)
	if analytics.TotalFingerprints != 1 {
		t.Errorf("TotalFingerprints = %d, want 1", analytics.TotalFingerprints)
	}

	w = env.do(t, http.MethodGet, "/api/v1/admin/abuse/flagged-reports", "")
	if w.Code != http.StatusOK || strings.Contains(w.Body.String(), fp) {
		t.Errorf("flagged-reports status = %d, exposes full fingerprint = %v", w.Code, strings.Contains(w.Body.String(), fp))
	}

	w = env.do(t, http.MethodGet, "/api/v1/admin/abuse/low-trust-devices?limit=5", "")
	if w.Code != http.StatusOK {
		t.Errorf("low-trust-devices status = %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/v1/admin/trust/device/"+fp[:10], "")
	if w.Code != http.StatusOK {
		t.Fatalf("device status = %d, body %s", w.Code, w.Body.String())
	}
	var info models.DeviceTrustInfo
	decodeData(t, w, &info)
	if info.TrustScore != 30 || info.FakeCount != 1 || info.FingerprintMasked != fingerprint.Mask(fp) {
		t.Errorf("device info = %+v", info)
	}
	if info.TrustWeight != 0.1 {
		t.Errorf("TrustWeight = %v, want 0.1 below the low-trust threshold", info.TrustWeight)
	}
	if strings.Contains(w.Body.String(), fp) {
		t.Error("device view leaks the full fingerprint")
	}

	prefixTests := []struct {
		prefix string
		want   int
	}{
		{"abc", http.StatusBadRequest},
		{strings.Repeat("0", 32), http.StatusNotFound},
	}
	for _, tt := range prefixTests {
		if w := env.do(t, http.MethodGet, "/api/v1/admin/trust/device/"+tt.prefix, ""); w.Code != tt.want {
			t.Errorf("device/%s status = %d, want %d", tt.prefix, w.Code, tt.want)
		}
	}

	w = env.do(t, http.MethodPost, "/api/v1/admin/abuse/cleanup", "")
	var cleanup CleanupResponse
	decodeData(t, w, &cleanup)
	if cleanup.Deleted != 0 {
		t.Errorf("Deleted = %d, want 0 for a fresh device", cleanup.Deleted)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/health", "")
	var health models.HealthStatus
	decodeData(t, w, &health)
	if health.Status != "healthy" || health.Version != "test" {
		t.Errorf("health = %+v, want healthy", health)
	}

	env.runner.health = models.SchedulerHealth{State: scheduler.StateIdle, ConsecutiveFailures: 3}
	w = env.do(t, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 while degraded", w.Code)
	}
	decodeData(t, w, &health)
	if health.Status != "degraded" || health.Scheduler.ConsecutiveFailures != 3 {
		t.Errorf("health = %+v, want degraded", health)
	}
}

func TestRouterNotFoundAndMethod(t *testing.T) {
	env := newTestEnv(t, nil)

	if w := env.do(t, http.MethodGet, "/api/v1/nothing", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/v1/clusters", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE status = %d, want 405", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/metrics", ""); w.Code != http.StatusOK {
		t.Errorf("/metrics status = %d, want 200", w.Code)
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{intake.ErrInvalidSubmission, http.StatusBadRequest},
		{trust.ErrAmbiguousPrefix, http.StatusBadRequest},
		{fmt.Errorf("get: %w", models.ErrNotFound), http.StatusNotFound},
		{intake.ErrFeedbackConflict, http.StatusConflict},
		{scheduler.ErrCycleInProgress, http.StatusConflict},
		{intake.ErrFloodDetected, http.StatusTooManyRequests},
		{fmt.Errorf("save: %w", models.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got, _ := statusForError(tt.err); got != tt.want {
			t.Errorf("statusForError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestStoreUnavailableHidesCause(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/clusters", nil)
	w := httptest.NewRecorder()
	respondErr(w, req, fmt.Errorf("badger: disk on fire: %w", models.ErrStoreUnavailable))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if strings.Contains(w.Body.String(), "disk on fire") {
		t.Errorf("body leaks the cause: %s", w.Body.String())
	}
}
