package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/raid-controller/internal/application"
	"github.com/example/raid-controller/internal/arbitration"
	"github.com/example/raid-controller/internal/raid"
)

type sessionService interface {
	StartSession(ctx context.Context, in application.SessionInput) (raid.Snapshot, error)
	UpdateSession(ctx context.Context, in application.SessionInput) error
	EndSession(ctx context.Context, id arbitration.ActorID) error
	Status(ctx context.Context, id arbitration.ActorID) (raid.Snapshot, error)
	Refresh(ctx context.Context, id arbitration.ActorID) error
	Sessions() []arbitration.ActorID
}

// SessionHandler serves actor sessions and their cached raid state.
type SessionHandler struct {
	service   sessionService
	responder responder
	logger    *slog.Logger
}

func NewSessionHandler(service sessionService, logger *slog.Logger) *SessionHandler {
	base := defaultLogger(logger)
	return &SessionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

type sessionRequest struct {
	ActorID arbitration.ActorID   `json:"actor_id"`
	Groups  []string              `json:"groups"`
	Locale  string                `json:"locale"`
	IsAdmin bool                  `json:"is_admin"`
	Team    []arbitration.ActorID `json:"team"`
}

func (r sessionRequest) toInput() application.SessionInput {
	return application.SessionInput{
		ActorID: r.ActorID,
		Groups:  append([]string(nil), r.Groups...),
		Locale:  r.Locale,
		IsAdmin: r.IsAdmin,
		Team:    append([]arbitration.ActorID(nil), r.Team...),
	}
}

type sessionsResponse struct {
	Sessions []string `json:"sessions"`
}

func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	snapshot, err := h.service.StartSession(r.Context(), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "Start", "actor_id", snapshot.ActorID).DebugContext(r.Context(), "session opened")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, snapshot)
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ActorIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidActorID)
		return
	}

	var req sessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	req.ActorID = id

	if err := h.service.UpdateSession(r.Context(), req.toInput()); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	id, ok := ActorIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidActorID)
		return
	}
	if err := h.service.EndSession(r.Context(), id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	ids := h.service.Sessions()
	resp := sessionsResponse{Sessions: make([]string, 0, len(ids))}
	for _, id := range ids {
		resp.Sessions = append(resp.Sessions, id.String())
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := ActorIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidActorID)
		return
	}
	snapshot, err := h.service.Status(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, snapshot)
}

func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, ok := ActorIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidActorID)
		return
	}
	if err := h.service.Refresh(r.Context(), id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusAccepted, map[string]bool{"queued": true})
}
