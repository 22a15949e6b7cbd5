package credit

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/betonops/receivables/internal/auth"
	"github.com/betonops/receivables/internal/platform/httpx"
	"github.com/betonops/receivables/internal/shared"
)

// Handler manages client credit endpoints.
type Handler struct {
	logger    *slog.Logger
	guard     *Guard
	validator *validator.Validate
	auth      auth.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, guard *Guard, authMW auth.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, guard: guard, validator: validator.New(), auth: authMW}
}

// MountRoutes registers credit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireAny(shared.CapReceivablesView))
		r.Get("/clients/flags", h.listFlags)
		r.Get("/clients/{id}/exposure", h.showExposure)
		r.Get("/clients/{id}/can-trade", h.canTrade)
		r.Get("/clients/{id}/mise-en-demeure", h.miseEnDemeure)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireAny(shared.CapCreditScan, shared.CapCreditBlock))
		r.Post("/clients/flags/scan", h.scanFlags)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireCaller)
		r.Post("/clients/{id}/block", h.block)
		r.Post("/clients/{id}/unblock", h.unblock)
	})
}

type blockForm struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func clientID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid client ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) listFlags(w http.ResponseWriter, r *http.Request) {
	result, err := h.guard.Flags(r.Context())
	if err != nil {
		h.logger.Error("list credit flags", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) scanFlags(w http.ResponseWriter, r *http.Request) {
	result, err := h.guard.CheckPaymentDelays(r.Context())
	if err != nil {
		h.logger.Error("credit scan", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) showExposure(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	exp, err := h.guard.Exposure(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, exp)
}

// canTrade answers the delivery intake before it records a new bon.
func (h *Handler) canTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	if err := h.guard.EnsureClientCanTrade(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"client_id": id, "can_trade": true})
}

func (h *Handler) miseEnDemeure(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	notice, err := h.guard.GenerateMiseEnDemeure(r.Context(), id)
	if errors.Is(err, shared.ErrPreconditionFailed) {
		httpx.JSON(w, http.StatusConflict, NoticeResult{Success: false, Reason: err.Error()})
		return
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NoticeResult{Success: true, Content: notice.Content, Notice: notice})
}

func (h *Handler) block(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	var form blockForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.RespondError(w, shared.Validationf("%s", httpx.ValidationMessage(err)))
		return
	}
	caller, _ := shared.CallerFromContext(r.Context())
	client, err := h.guard.BlockClient(r.Context(), caller, id, form.Reason)
	if err != nil {
		h.logger.Warn("block client rejected", slog.Int64("client_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *Handler) unblock(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	caller, _ := shared.CallerFromContext(r.Context())
	client, err := h.guard.UnblockClient(r.Context(), caller, id)
	if err != nil {
		h.logger.Warn("unblock client rejected", slog.Int64("client_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}
