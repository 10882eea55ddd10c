package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"energy-import/internal/backfill/application"
	backfill "energy-import/internal/backfill/domain"
	"energy-import/internal/diagnostics"
	"energy-import/internal/repair"
	"energy-import/internal/statistics/infrastructure/memory"
)

type stubSource struct {
	samples map[string]backfill.DaySamples
}

func (s *stubSource) HourlyEnergy(_ context.Context, field string, date time.Time, _ *time.Location) (backfill.DaySamples, error) {
	return s.samples[field+"|"+date.Format("2006-01-02")], nil
}

func (s *stubSource) CumulativeBefore(context.Context, string, time.Time) (float64, error) {
	return 0, nil
}

func (s *stubSource) EarliestTimestamp(context.Context, string) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestHandler(t *testing.T) (*Handler, *memory.StatisticStore) {
	t.Helper()
	store := memory.NewStatisticStore()
	store.RegisterStatistic("solar_generated", "sensor.pwd_solar_generated_daily")

	var samples backfill.DaySamples
	for i := range samples {
		samples[i] = 0.5
	}
	source := &stubSource{samples: map[string]backfill.DaySamples{
		"solar|2024-01-01": samples,
	}}

	cfg := application.Config{DefaultTimezone: "UTC", BatchSize: 100, BoundaryTolerance: 1.0, Series: "autogen.http"}
	clock := fixedClock{now: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)}
	svc, err := application.NewService(source, store, store, store, store, cfg, clock, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	repairer, err := repair.NewService(source, store, nil, testLogger())
	if err != nil {
		t.Fatalf("new repair service: %v", err)
	}

	snapshot := func() diagnostics.Snapshot {
		return diagnostics.Build(cfg, "http://influx:8086", "powerwall", nil)
	}

	handler, err := NewHandler(svc, repairer, snapshot, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler, store
}

func serve(t *testing.T, h *Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, req)
	return resp
}

func TestHandleBackfillRunsAndReports(t *testing.T) {
	handler, _ := newTestHandler(t)

	body := `{"metrics":["solar_generated"],"start":"2024-01-01","end":"2024-01-01"}`
	resp := serve(t, handler, http.MethodPost, "/api/v1/backfill", body)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var result application.RunResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(result.Metrics) != 1 || result.Metrics[0].Written != 24 {
		t.Fatalf("unexpected result %+v", result)
	}

	last := serve(t, handler, http.MethodGet, "/api/v1/backfill/last", "")
	if last.Code != http.StatusOK {
		t.Fatalf("expected 200 for last, got %d", last.Code)
	}

	csvResp := serve(t, handler, http.MethodGet, "/api/v1/backfill/report.csv", "")
	if csvResp.Code != http.StatusOK {
		t.Fatalf("expected 200 for csv report, got %d", csvResp.Code)
	}
	if ct := csvResp.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("unexpected content type %s", ct)
	}
	if !strings.Contains(csvResp.Body.String(), "solar_generated") {
		t.Fatal("expected metric row in csv report")
	}

	pdfResp := serve(t, handler, http.MethodGet, "/api/v1/backfill/report.pdf", "")
	if pdfResp.Code != http.StatusOK {
		t.Fatalf("expected 200 for pdf report, got %d", pdfResp.Code)
	}
	if !bytes.HasPrefix(pdfResp.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("expected PDF magic bytes")
	}
}

func TestHandleBackfillRejectsBadRequests(t *testing.T) {
	handler, _ := newTestHandler(t)

	resp := serve(t, handler, http.MethodPost, "/api/v1/backfill", "{not json")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad json, got %d", resp.Code)
	}

	resp = serve(t, handler, http.MethodPost, "/api/v1/backfill", `{"start":"01/02/2024"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", resp.Code)
	}

	resp = serve(t, handler, http.MethodPost, "/api/v1/backfill", `{"metrics":["wave_power"],"start":"2024-01-01"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown metric, got %d", resp.Code)
	}

	resp = serve(t, handler, http.MethodGet, "/api/v1/backfill", "")
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}

func TestHandleLastWithoutRun(t *testing.T) {
	handler, _ := newTestHandler(t)
	resp := serve(t, handler, http.MethodGet, "/api/v1/backfill/last", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	resp = serve(t, handler, http.MethodGet, "/api/v1/backfill/report.csv", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for report, got %d", resp.Code)
	}
}

func TestHandleMetricsListsSupported(t *testing.T) {
	handler, _ := newTestHandler(t)
	resp := serve(t, handler, http.MethodGet, "/api/v1/metrics", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var out []struct {
		Key  string `json:"key"`
		Unit string `json:"unit"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if len(out) != 6 {
		t.Fatalf("expected 6 metrics, got %d", len(out))
	}
	for _, m := range out {
		if m.Unit != "kWh" {
			t.Fatalf("unexpected unit %s for %s", m.Unit, m.Key)
		}
	}
}

func TestHandleDiagnostics(t *testing.T) {
	handler, _ := newTestHandler(t)
	resp := serve(t, handler, http.MethodGet, "/api/v1/diagnostics", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var snapshot diagnostics.Snapshot
	if err := json.Unmarshal(resp.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.Timezone != "UTC" || snapshot.SourceDatabase != "powerwall" {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
}

func TestHandleRepairAnalyze(t *testing.T) {
	handler, store := newTestHandler(t)
	store.RegisterStatistic("battery_charged", "stat-batt")

	resp := serve(t, handler, http.MethodPost, "/api/v1/repair/analyze?date=2024-01-05", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = serve(t, handler, http.MethodPost, "/api/v1/repair/analyze", "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without date, got %d", resp.Code)
	}
}
