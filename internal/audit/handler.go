package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eventdesk/eventdesk/internal/platform/httpx"
)

// Handler exposes the audit trail over JSON.
type Handler struct {
	logger  *slog.Logger
	audit   *Logger
	protect func(http.Handler) http.Handler
}

// NewHandler builds a Handler. protect guards the routes.
func NewHandler(logger *slog.Logger, audit *Logger, protect func(http.Handler) http.Handler) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, audit: audit, protect: protect}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.protect != nil {
			r.Use(h.protect)
		}
		r.Get("/audit", h.list)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "limit must be a number")
			return
		}
		limit = n
	}
	entries, err := h.audit.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("list audit entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}
