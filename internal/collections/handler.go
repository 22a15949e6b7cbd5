package collections

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/betonops/receivables/internal/auth"
	"github.com/betonops/receivables/internal/platform/httpx"
	"github.com/betonops/receivables/internal/shared"
)

// Handler manages receivables endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	auth      auth.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authMW auth.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New(), auth: authMW}
}

// MountRoutes registers receivables routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireAny(shared.CapReceivablesView))
		r.Get("/receivables", h.listReceivables)
		r.Get("/aging", h.showAging)
		r.Get("/stats", h.showStats)
		r.Get("/by-client", h.showByClient)
		r.Get("/logs", h.listLogs)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireCaller)
		r.Post("/receivables/{id}/actions", h.performAction)
	})
}

type actionForm struct {
	Action string `json:"action" validate:"required,oneof=mark_paid send_reminder mark_disputed write_off"`
	Notes  string `json:"notes" validate:"max=2000"`
}

func (h *Handler) portfolio(w http.ResponseWriter, r *http.Request) (*Portfolio, bool) {
	clientID, _ := strconv.ParseInt(r.URL.Query().Get("client_id"), 10, 64)
	p, err := h.service.Portfolio(r.Context(), ListReceivablesRequest{
		ClientID: clientID,
		OpenOnly: r.URL.Query().Get("open") == "true",
	})
	if err != nil {
		h.logger.Error("load portfolio", slog.Any("error", err))
		httpx.RespondError(w, err)
		return nil, false
	}
	return p, true
}

func (h *Handler) listReceivables(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.portfolio(w, r); ok {
		httpx.JSON(w, http.StatusOK, p)
	}
}

func (h *Handler) showAging(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.portfolio(w, r); ok {
		httpx.JSON(w, http.StatusOK, map[string]any{"as_of": p.AsOf, "buckets": p.Buckets})
	}
}

func (h *Handler) showStats(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.portfolio(w, r); ok {
		httpx.JSON(w, http.StatusOK, map[string]any{"as_of": p.AsOf, "stats": p.Stats})
	}
}

func (h *Handler) showByClient(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.portfolio(w, r); ok {
		httpx.JSON(w, http.StatusOK, map[string]any{"as_of": p.AsOf, "clients": p.ByClient})
	}
}

func (h *Handler) listLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	receivableID, _ := strconv.ParseInt(q.Get("receivable_id"), 10, 64)
	clientID, _ := strconv.ParseInt(q.Get("client_id"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))
	logs, err := h.service.ListLogs(r.Context(), ListLogsRequest{ReceivableID: receivableID, ClientID: clientID, Limit: limit})
	if err != nil {
		h.logger.Error("list collection logs", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (h *Handler) performAction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid receivable ID")
		return
	}
	var form actionForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.RespondError(w, shared.Validationf("%s", httpx.ValidationMessage(err)))
		return
	}

	caller, _ := shared.CallerFromContext(r.Context())
	result, err := h.service.PerformAction(r.Context(), caller, ActionRequest{
		ReceivableID: id,
		Action:       Action(form.Action),
		Notes:        form.Notes,
	})
	if err != nil {
		h.logger.Warn("collection action rejected",
			slog.Int64("receivable_id", id),
			slog.String("action", form.Action),
			slog.Any("error", err),
		)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
