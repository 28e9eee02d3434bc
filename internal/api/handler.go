package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eleven-am/goclip"
	"github.com/eleven-am/goclip/internal/logging"
	"github.com/eleven-am/goclip/internal/metrics"
)

// Editor is the part of the controller the HTTP API drives.
type Editor interface {
	Load(ctx context.Context, locator string) (goclip.Clip, error)
	Select(id string) error
	Apply(ctx context.Context, req goclip.Request) (goclip.Clip, error)
	ShowPanel(p goclip.Panel) error
	HidePanel()
	State() goclip.SessionState
	ClearError()
	ExportSettings() goclip.ExportSettings
	SetExportSettings(s goclip.ExportSettings) error
	Export(ctx context.Context) (string, error)
	ExportState() goclip.ExportState
	ClearExportError()
	Concatenate(ctx context.Context, locators []string) (string, error)
	Probe(ctx context.Context, locator string) (float64, error)
	Metrics() *metrics.Metrics
	MetricsHandler() http.Handler
}

// Handler exposes the editing session over HTTP using go-chi.
type Handler struct {
	editor Editor
	log    *slog.Logger
}

func NewHandler(editor Editor, log *slog.Logger) *Handler {
	return &Handler{editor: editor, log: logging.WithComponent(log, "api")}
}

// Router mounts every endpoint with request logging and metrics.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(logging.RequestLogger(h.log))
	r.Use(metrics.RequestMiddleware(h.editor.Metrics()))

	r.Get("/filters", h.ListFilters)
	r.Post("/probe", h.Probe)
	r.Post("/concatenate", h.Concatenate)
	r.Handle("/metrics", h.editor.MetricsHandler())

	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.GetState)
		r.Post("/load", h.Load)
		r.Post("/select", h.Select)
		r.Post("/operations", h.ApplyOperation)
		r.Put("/panel", h.ShowPanel)
		r.Delete("/panel", h.HidePanel)
		r.Delete("/error", h.ClearError)
	})

	r.Route("/export", func(r chi.Router) {
		r.Get("/", h.GetExportState)
		r.Post("/", h.Export)
		r.Get("/settings", h.GetExportSettings)
		r.Put("/settings", h.PutExportSettings)
		r.Delete("/error", h.ClearExportError)
	})

	return r
}

type locatorBody struct {
	Locator string `json:"locator"`
}

type selectBody struct {
	ID string `json:"id"`
}

type panelBody struct {
	Panel goclip.Panel `json:"panel"`
}

type locatorsBody struct {
	Locators []string `json:"locators"`
}

type pathResponse struct {
	Path string `json:"path"`
}

type durationResponse struct {
	Duration float64 `json:"duration"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ListFilters handles GET /filters.
func (h *Handler) ListFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, goclip.Filters())
}

// Load handles POST /session/load. Body: {"locator": "/videos/in.mp4"}.
func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	var body locatorBody
	if !h.decode(w, r, &body) {
		return
	}
	clip, err := h.editor.Load(r.Context(), body.Locator)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clip)
}

// Select handles POST /session/select. Body: {"id": "clip_..."}.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var body selectBody
	if !h.decode(w, r, &body) {
		return
	}
	if err := h.editor.Select(body.ID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.editor.State())
}

// ApplyOperation handles POST /session/operations with a request body such
// as {"kind": "cut", "start": 1, "end": 4}. It returns the derived clip
// once the engine has finished.
func (h *Handler) ApplyOperation(w http.ResponseWriter, r *http.Request) {
	var req goclip.Request
	if !h.decode(w, r, &req) {
		return
	}
	clip, err := h.editor.Apply(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clip)
}

// ShowPanel handles PUT /session/panel. Body: {"panel": "filters"}.
func (h *Handler) ShowPanel(w http.ResponseWriter, r *http.Request) {
	var body panelBody
	if !h.decode(w, r, &body) {
		return
	}
	if err := h.editor.ShowPanel(body.Panel); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.editor.State())
}

// HidePanel handles DELETE /session/panel.
func (h *Handler) HidePanel(w http.ResponseWriter, r *http.Request) {
	h.editor.HidePanel()
	w.WriteHeader(http.StatusNoContent)
}

// GetState handles GET /session.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.editor.State())
}

// ClearError handles DELETE /session/error.
func (h *Handler) ClearError(w http.ResponseWriter, r *http.Request) {
	h.editor.ClearError()
	w.WriteHeader(http.StatusNoContent)
}

// GetExportSettings handles GET /export/settings.
func (h *Handler) GetExportSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.editor.ExportSettings())
}

// PutExportSettings handles PUT /export/settings. Fields left out of the
// body keep their current value.
func (h *Handler) PutExportSettings(w http.ResponseWriter, r *http.Request) {
	settings := h.editor.ExportSettings()
	if !h.decode(w, r, &settings) {
		return
	}
	if err := h.editor.SetExportSettings(settings); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.editor.ExportSettings())
}

// Export handles POST /export.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	path, err := h.editor.Export(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pathResponse{Path: path})
}

// GetExportState handles GET /export.
func (h *Handler) GetExportState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.editor.ExportState())
}

// ClearExportError handles DELETE /export/error.
func (h *Handler) ClearExportError(w http.ResponseWriter, r *http.Request) {
	h.editor.ClearExportError()
	w.WriteHeader(http.StatusNoContent)
}

// Concatenate handles POST /concatenate. Body: {"locators": ["a.mp4", "b.mp4"]}.
func (h *Handler) Concatenate(w http.ResponseWriter, r *http.Request) {
	var body locatorsBody
	if !h.decode(w, r, &body) {
		return
	}
	path, err := h.editor.Concatenate(r.Context(), body.Locators)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pathResponse{Path: path})
}

// Probe handles POST /probe. Body: {"locator": "/videos/in.mp4"}.
func (h *Handler) Probe(w http.ResponseWriter, r *http.Request) {
	var body locatorBody
	if !h.decode(w, r, &body) {
		return
	}
	d, err := h.editor.Probe(r.Context(), body.Locator)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, durationResponse{Duration: d})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.log.Debug("invalid request body", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", slog.Int("status", status), slog.String("error", err.Error()))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// StatusFor maps controller errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, goclip.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, goclip.ErrInvalidParams):
		return http.StatusUnprocessableEntity
	case errors.Is(err, goclip.ErrUnknownClip):
		return http.StatusNotFound
	case errors.Is(err, goclip.ErrNoSelection), errors.Is(err, goclip.ErrNoSource):
		return http.StatusBadRequest
	case errors.Is(err, goclip.ErrClosed):
		return http.StatusGone
	case errors.Is(err, goclip.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, goclip.ErrEngineFailure), errors.Is(err, goclip.ErrEngineException):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
