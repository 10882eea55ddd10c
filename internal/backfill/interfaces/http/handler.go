package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"energy-import/internal/backfill/application"
	backfill "energy-import/internal/backfill/domain"
	"energy-import/internal/diagnostics"
	"energy-import/internal/repair"
	"energy-import/internal/report"
)

const dateLayout = "2006-01-02"

// Handler provides the backfill HTTP endpoints.
type Handler struct {
	service  *application.Service
	repairer *repair.Service
	snapshot func() diagnostics.Snapshot
	logger   *log.Logger

	runMu sync.Mutex

	mu   sync.RWMutex
	last *application.RunResult
}

// NewHandler constructs a handler. The repair service and snapshot
// provider are optional.
func NewHandler(service *application.Service, repairer *repair.Service, snapshot func() diagnostics.Snapshot, logger *log.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("backfill handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{service: service, repairer: repairer, snapshot: snapshot, logger: logger}, nil
}

// Register mounts all endpoints on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/backfill", h.handleBackfill)
	mux.HandleFunc("/api/v1/backfill/last", h.handleLast)
	mux.HandleFunc("/api/v1/backfill/report.csv", h.handleReport)
	mux.HandleFunc("/api/v1/backfill/report.xlsx", h.handleReport)
	mux.HandleFunc("/api/v1/backfill/report.pdf", h.handleReport)
	mux.HandleFunc("/api/v1/metrics", h.handleMetrics)
	mux.HandleFunc("/api/v1/diagnostics", h.handleDiagnostics)
	mux.HandleFunc("/api/v1/repair/analyze", h.handleRepairAnalyze)
	mux.HandleFunc("/api/v1/repair/fix", h.handleRepairFix)
}

type runRequest struct {
	Metrics   []string `json:"metrics"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	All       bool     `json:"all"`
	Timezone  string   `json:"timezone"`
	Mode      string   `json:"mode"`
	HourRange *struct {
		From int `json:"from"`
		To   int `json:"to"`
	} `json:"hour_range"`
	DryRun bool `json:"dry_run"`
}

func (h *Handler) handleBackfill(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var raw runRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	req, err := toDomainRequest(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// One run at a time; a second submission while a run is in flight
	// would double-write the same range.
	if !h.runMu.TryLock() {
		http.Error(w, "a backfill run is already in progress", http.StatusConflict)
		return
	}
	defer h.runMu.Unlock()

	result, err := h.service.Run(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	h.last = &result
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (h *Handler) handleLast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	result, ok := h.lastResult()
	if !ok {
		http.Error(w, "no completed run", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	result, ok := h.lastResult()
	if !ok {
		http.Error(w, "no completed run", http.StatusNotFound)
		return
	}

	format := strings.TrimPrefix(r.URL.Path, "/api/v1/backfill/report.")
	var (
		data        []byte
		contentType string
		err         error
	)
	switch format {
	case "csv":
		data, err = report.BuildRunCSV(result)
		contentType = "text/csv"
	case "xlsx":
		data, err = report.BuildRunXLSX(result)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "pdf":
		data, err = report.BuildRunPDF(result)
		contentType = "application/pdf"
	default:
		http.Error(w, "unsupported format", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Printf("backfill handler: report build failed: %v", err)
		http.Error(w, "report build failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=backfill_report.%s", format))
	_, _ = w.Write(data)
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	type metricView struct {
		Key          string `json:"key"`
		FriendlyName string `json:"friendly_name"`
		Unit         string `json:"unit"`
	}
	var out []metricView
	for _, spec := range backfill.SupportedMetrics() {
		out = append(out, metricView{
			Key:          string(spec.Key),
			FriendlyName: spec.FriendlyName,
			Unit:         spec.Unit,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *Handler) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.snapshot == nil {
		http.Error(w, "diagnostics unavailable", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.snapshot())
}

func (h *Handler) handleRepairAnalyze(w http.ResponseWriter, r *http.Request) {
	h.handleRepair(w, r, false)
}

func (h *Handler) handleRepairFix(w http.ResponseWriter, r *http.Request) {
	h.handleRepair(w, r, true)
}

func (h *Handler) handleRepair(w http.ResponseWriter, r *http.Request, fix bool) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.repairer == nil {
		http.Error(w, "repair unavailable", http.StatusNotFound)
		return
	}

	dateValue := r.URL.Query().Get("date")
	if dateValue == "" {
		http.Error(w, "date required (YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	loc := time.UTC
	if tz := r.URL.Query().Get("timezone"); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			http.Error(w, "invalid timezone", http.StatusBadRequest)
			return
		}
		loc = parsed
	}
	date, err := time.ParseInLocation(dateLayout, dateValue, loc)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if fix {
		corrections, err := h.repairer.Fix(r.Context(), date, loc)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(corrections)
		return
	}
	spikes, err := h.repairer.Analyze(r.Context(), date, loc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(spikes)
}

func (h *Handler) lastResult() (application.RunResult, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.last == nil {
		return application.RunResult{}, false
	}
	return *h.last, true
}

func toDomainRequest(raw runRequest) (backfill.Request, error) {
	req := backfill.Request{
		All:      raw.All,
		Timezone: raw.Timezone,
		Mode:     backfill.Mode(raw.Mode),
		DryRun:   raw.DryRun,
	}
	for _, key := range raw.Metrics {
		req.Metrics = append(req.Metrics, backfill.MetricKey(key))
	}
	if raw.Start != "" {
		start, err := time.Parse(dateLayout, raw.Start)
		if err != nil {
			return backfill.Request{}, errors.New("start must be YYYY-MM-DD")
		}
		req.Start = start
	}
	if raw.End != "" {
		end, err := time.Parse(dateLayout, raw.End)
		if err != nil {
			return backfill.Request{}, errors.New("end must be YYYY-MM-DD")
		}
		req.End = end
	}
	if raw.HourRange != nil {
		req.HourRange = &backfill.HourRange{From: raw.HourRange.From, To: raw.HourRange.To}
	}
	return req, nil
}
