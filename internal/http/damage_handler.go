package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/raid-controller/internal/application"
	"github.com/example/raid-controller/internal/proxyfire"
)

type damageService interface {
	EvaluateDamage(ctx context.Context, event application.DamageEvent) (application.DamageVerdict, error)
	RecordFireOrigin(ctx context.Context, in application.FireOriginInput) (proxyfire.Origin, error)
	FireOrigins() []proxyfire.Origin
}

// DamageHandler arbitrates damage events and records fire origins.
type DamageHandler struct {
	service   damageService
	responder responder
}

func NewDamageHandler(service damageService, logger *slog.Logger) *DamageHandler {
	return &DamageHandler{service: service, responder: newResponder(defaultLogger(logger))}
}

func (h *DamageHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var event application.DamageEvent
	if err := decodeJSON(w, r, &event); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	verdict, err := h.service.EvaluateDamage(r.Context(), event)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, verdict)
}

func (h *DamageHandler) RecordOrigin(w http.ResponseWriter, r *http.Request) {
	var in application.FireOriginInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	origin, err := h.service.RecordFireOrigin(r.Context(), in)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, origin)
}

type originsResponse struct {
	Origins []proxyfire.Origin `json:"origins"`
}

func (h *DamageHandler) ListOrigins(w http.ResponseWriter, r *http.Request) {
	origins := h.service.FireOrigins()
	if origins == nil {
		origins = []proxyfire.Origin{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, originsResponse{Origins: origins})
}
