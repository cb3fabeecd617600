package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lcalzada-xor/floodctl/internal/adapters/web/middleware"
)

func SetupRoutes(s *Server) http.Handler {
	r := mux.NewRouter()
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	// Public
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	auth := middleware.AuthMiddleware(s.Verifier)

	if s.WSManager != nil {
		r.Handle("/ws", auth(http.HandlerFunc(s.WSManager.HandleWebSocket)))
	}
	r.Handle("/metrics", auth(promhttp.Handler())).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	// subrouters report a method mismatch as 404 unless they carry their own handler
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	api.Use(auth)

	c := s.ControllerHandler
	api.HandleFunc("/verdict", c.HandleVerdict).Methods(http.MethodGet)
	api.HandleFunc("/monitors", c.HandleMonitors).Methods(http.MethodGet)
	api.HandleFunc("/counters", c.HandleCounters).Methods(http.MethodGet)
	api.HandleFunc("/monitors/{id}/target", c.HandleRegisterTarget).Methods(http.MethodPut)

	var ingest http.Handler = http.HandlerFunc(c.HandleReport)
	if s.ReportLimiter != nil {
		ingest = middleware.RateLimitMiddleware(s.ReportLimiter)(ingest)
	}
	api.Handle("/monitors/{id}/reports", ingest).Methods(http.MethodPost)

	if h := s.HistoryHandler; h != nil {
		api.HandleFunc("/verdicts", h.HandleList).Methods(http.MethodGet)
		api.HandleFunc("/verdicts/{id}", h.HandleGet).Methods(http.MethodGet)
		api.HandleFunc("/reports/history.pdf", h.HandlePDF).Methods(http.MethodGet)
	}

	return r
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
