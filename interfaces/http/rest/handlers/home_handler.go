package handlers

import (
	"net/http"

	apperrors "elbiefit/pkg/errors"
)

// AppInfo is served by /meta
type AppInfo struct {
	AppName     string `json:"app_name"`
	Version     string `json:"version"`
	BuildTime   string `json:"build_time"`
	Environment string `json:"environment"`
}

// HomeHandler serves the landing page and the service probes
type HomeHandler struct {
	Responder
	info AppInfo
}

func NewHomeHandler(resp Responder, info AppInfo) *HomeHandler {
	return &HomeHandler{Responder: resp, info: info}
}

// Home handles GET /
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "home", nil)
}

// Health handles GET /healthz
func (h *HomeHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Meta handles GET /meta
func (h *HomeHandler) Meta(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.info)
}

// NotFound renders the themed 404 page
func (h *HomeHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.fail(w, r, apperrors.NewNotFoundError("Page"))
}
