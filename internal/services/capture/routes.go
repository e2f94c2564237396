package capture

import "net/http"

// RegisterRoutes registers the capture service routes on the provided mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/events", h.HandleCapture)
	mux.HandleFunc("GET /health", h.HandleHealth)
}
