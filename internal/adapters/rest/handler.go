// Package rest exposes the operator's chat sessions over HTTP.
package rest

import (
	"net/http"

	"github.com/Yogeshviper/azure-ai-operator/internal/core/services"
	"github.com/Yogeshviper/azure-ai-operator/internal/worker"
)

// Handler manages the HTTP interface for our application.
type Handler struct {
	svc     *services.Dispatcher
	pool    *worker.Pool
	metrics http.Handler
	router  *http.ServeMux
}

// NewHandler initializes the HTTP adapter and sets up routes. Turns run
// inline when pool is nil; /metrics is only served when metrics is set.
func NewHandler(svc *services.Dispatcher, pool *worker.Pool, metrics http.Handler) *Handler {
	h := &Handler{
		svc:     svc,
		pool:    pool,
		metrics: metrics,
		router:  http.NewServeMux(),
	}

	h.routes()

	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.router.HandleFunc("GET /health", h.HealthCheck)

	h.router.HandleFunc("POST /sessions", h.StartSession)
	h.router.HandleFunc("POST /sessions/{id}/messages", h.PostMessage)
	h.router.HandleFunc("GET /sessions/{id}/turns", h.ListTurns)

	if h.metrics != nil {
		h.router.Handle("GET /metrics", h.metrics)
	}
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Azure AI Operator is live"})
}
