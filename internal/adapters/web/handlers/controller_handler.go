package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	"github.com/lcalzada-xor/floodctl/internal/core/ports"
)

// TargetFactory builds a notification target for a monitor callback url.
type TargetFactory func(id domain.MonitorID, callbackURL string) (ports.NotificationTarget, error)

// ControllerHandler exposes the live controller state and HTTP report ingestion.
type ControllerHandler struct {
	Service ports.ControllerService
	Targets TargetFactory
	Logger  *slog.Logger
}

// NewControllerHandler creates a new ControllerHandler
func NewControllerHandler(service ports.ControllerService, targets TargetFactory, logger *slog.Logger) *ControllerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ControllerHandler{Service: service, Targets: targets, Logger: logger}
}

// reportBody is the JSON body of an HTTP report. Counts are decoded loosely
// and clamped, the same way the gRPC codec treats them.
type reportBody struct {
	ObservedAt time.Time      `json:"observed_at"`
	TimedOut   map[string]any `json:"timed_out"`
}

type targetBody struct {
	URL string `json:"url"`
}

// HandleVerdict returns the currently announced malicious set.
func (h *ControllerHandler) HandleVerdict(w http.ResponseWriter, r *http.Request) {
	names := h.Service.Verdict().Sorted()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"names": names,
		"count": len(names),
	})
}

// HandleMonitors lists every registered monitor.
func (h *ControllerHandler) HandleMonitors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"monitors": h.Service.Monitors(),
	})
}

// HandleCounters returns the counters of the running statistics period.
func (h *ControllerHandler) HandleCounters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.Counters())
}

// HandleReport ingests a report for the monitor named in the path.
func (h *ControllerHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	id := domain.MonitorID(mux.Vars(r)["id"])
	if id == "" {
		http.Error(w, "Missing monitor id", http.StatusBadRequest)
		return
	}

	var body reportBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, "Invalid report: "+err.Error(), http.StatusBadRequest)
		return
	}

	counts := make(map[domain.Name]uint32, len(body.TimedOut))
	for name, c := range body.TimedOut {
		if name == "" {
			continue
		}
		counts[domain.Name(name)] = clampCount(c)
	}
	observed := body.ObservedAt
	if observed.IsZero() {
		observed = time.Now()
	}

	if err := h.Service.Report(r.Context(), id, domain.NewReport(id, counts, observed)); err != nil {
		if errors.Is(err, domain.ErrControllerClosed) {
			http.Error(w, "Controller is shutting down", http.StatusServiceUnavailable)
			return
		}
		h.Logger.Error("HTTP report failed", "monitor", id, "error", err)
		http.Error(w, "Report failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleRegisterTarget binds an HTTP callback as the monitor's notification
// target. The first bound target wins.
func (h *ControllerHandler) HandleRegisterTarget(w http.ResponseWriter, r *http.Request) {
	id := domain.MonitorID(mux.Vars(r)["id"])
	if h.Targets == nil {
		http.Error(w, "Callback targets are disabled", http.StatusNotImplemented)
		return
	}

	var body targetBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&body); err != nil {
		http.Error(w, "Invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	target, err := h.Targets(id, body.URL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.Service.RegisterMonitor(id, target)
	h.Logger.Info("Monitor callback registered", "monitor", id, "url", body.URL)
	w.WriteHeader(http.StatusNoContent)
}

// clampCount maps any JSON value to a count. Non-numbers and anything at or
// below zero become 0, fractions truncate, large values saturate.
func clampCount(v any) uint32 {
	n, ok := v.(json.Number)
	if !ok {
		return 0
	}
	f, err := n.Float64()
	if err != nil && !math.IsInf(f, 0) {
		return 0
	}
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(f)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
