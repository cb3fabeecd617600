package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	"github.com/lcalzada-xor/floodctl/internal/core/ports"
)

const defaultHistoryLimit = 100

// HistoryExporter renders a controller report document.
type HistoryExporter interface {
	ExportHistory(s *domain.HistorySummary) ([]byte, error)
}

// HistoryHandler serves persisted verdicts and the PDF report.
type HistoryHandler struct {
	Repo     ports.VerdictRepository
	Service  ports.ControllerService
	Exporter HistoryExporter
	Node     string
	Logger   *slog.Logger
}

// NewHistoryHandler creates a new HistoryHandler. repo may be nil when
// history persistence is disabled.
func NewHistoryHandler(repo ports.VerdictRepository, service ports.ControllerService, exporter HistoryExporter, node string, logger *slog.Logger) *HistoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryHandler{Repo: repo, Service: service, Exporter: exporter, Node: node, Logger: logger}
}

// HandleList returns the most recent verdicts, newest first.
func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	verdicts, err := h.list(r, limit)
	if err != nil {
		h.Logger.Error("Failed to list verdicts", "error", err)
		http.Error(w, "Failed to fetch verdicts", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"verdicts": verdicts})
}

// HandleGet returns one verdict.
func (h *HistoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		http.Error(w, "Verdict not found", http.StatusNotFound)
		return
	}
	v, err := h.Repo.GetVerdict(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, domain.ErrVerdictNotFound) {
			http.Error(w, "Verdict not found", http.StatusNotFound)
			return
		}
		h.Logger.Error("Failed to fetch verdict", "error", err)
		http.Error(w, "Failed to fetch verdict", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandlePDF renders the controller report.
func (h *HistoryHandler) HandlePDF(w http.ResponseWriter, r *http.Request) {
	verdicts, err := h.list(r, 0)
	if err != nil {
		h.Logger.Error("Failed to list verdicts", "error", err)
		http.Error(w, "Failed to fetch verdicts", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	summary := &domain.HistorySummary{
		Node:        h.Node,
		GeneratedAt: now,
		Current:     h.Service.Verdict().Sorted(),
		Counters:    h.Service.Counters(),
		Monitors:    h.Service.Monitors(),
		Verdicts:    verdicts,
	}
	data, err := h.Exporter.ExportHistory(summary)
	if err != nil {
		h.Logger.Error("PDF export failed", "error", err)
		http.Error(w, "Failed to generate report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=floodctl_%s.pdf", now.Format("20060102_150405")))
	w.Write(data)
}

func (h *HistoryHandler) list(r *http.Request, limit int) ([]domain.Verdict, error) {
	if h.Repo == nil {
		return []domain.Verdict{}, nil
	}
	return h.Repo.ListVerdicts(r.Context(), limit)
}
