package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/raid-controller/internal/application"
	"github.com/example/raid-controller/internal/persistence"
)

type adminService interface {
	RecordWipe(ctx context.Context, in application.WipeInput) (persistence.Wipe, error)
	ListWipes(ctx context.Context, limit int) ([]persistence.Wipe, error)
	LastWipe() time.Time
	ApplyRules(ctx context.Context, raw []byte) (application.RulesInfo, error)
	CurrentRules() application.RulesInfo
}

// AdminHandler manages wipes and the rules document.
type AdminHandler struct {
	service   adminService
	responder responder
	logger    *slog.Logger
}

func NewAdminHandler(service adminService, logger *slog.Logger) *AdminHandler {
	base := defaultLogger(logger)
	return &AdminHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AdminHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "AdminHandler", operation, attrs...)
}

type wipeRequest struct {
	At     string `json:"at"`
	Reason string `json:"reason"`
}

type wipeDTO struct {
	ID         string `json:"id"`
	At         string `json:"at"`
	Reason     string `json:"reason,omitempty"`
	RecordedAt string `json:"recorded_at"`
}

func toWipeDTO(w persistence.Wipe) wipeDTO {
	return wipeDTO{
		ID:         w.ID,
		At:         w.At.Format(time.RFC3339),
		Reason:     w.Reason,
		RecordedAt: w.RecordedAt.Format(time.RFC3339),
	}
}

type wipesResponse struct {
	LastWipe string    `json:"last_wipe"`
	Wipes    []wipeDTO `json:"wipes"`
}

func (h *AdminHandler) RecordWipe(w http.ResponseWriter, r *http.Request) {
	var req wipeRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	in := application.WipeInput{Reason: req.Reason}
	if at := strings.TrimSpace(req.At); at != "" {
		parsed, err := time.Parse(time.RFC3339, at)
		if err != nil {
			h.responder.handleServiceError(r.Context(), w, &application.ValidationError{
				FieldErrors: map[string]string{"at": "must be an RFC3339 timestamp"},
			})
			return
		}
		in.At = parsed
	}

	wipe, err := h.service.RecordWipe(r.Context(), in)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toWipeDTO(wipe))
}

func (h *AdminHandler) ListWipes(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidLimit)
			return
		}
		limit = parsed
	}

	wipes, err := h.service.ListWipes(r.Context(), limit)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	resp := wipesResponse{LastWipe: h.service.LastWipe().Format(time.RFC3339), Wipes: make([]wipeDTO, 0, len(wipes))}
	for _, wipe := range wipes {
		resp.Wipes = append(resp.Wipes, toWipeDTO(wipe))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

type rulesDTO struct {
	ID        string `json:"id,omitempty"`
	Checksum  string `json:"checksum"`
	AppliedAt string `json:"applied_at"`
}

func toRulesDTO(info application.RulesInfo) rulesDTO {
	return rulesDTO{ID: info.ID, Checksum: info.Checksum, AppliedAt: info.AppliedAt.Format(time.RFC3339)}
}

// ApplyRules accepts the raw YAML rules document as the request body.
func (h *AdminHandler) ApplyRules(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil || len(raw) == 0 {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	info, err := h.service.ApplyRules(r.Context(), raw)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "ApplyRules", "rule_set_id", info.ID).InfoContext(r.Context(), "rules replaced")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRulesDTO(info))
}

// GetRules returns the active document as YAML, or its metadata as JSON when
// the client asks for application/json.
func (h *AdminHandler) GetRules(w http.ResponseWriter, r *http.Request) {
	info := h.service.CurrentRules()
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		h.responder.writeJSON(r.Context(), w, http.StatusOK, toRulesDTO(info))
		return
	}
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	w.Header().Set("ETag", strconv.Quote(info.Checksum))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(info.Document); err != nil {
		h.log(r.Context(), "GetRules").ErrorContext(r.Context(), "failed to write rules", "error", err)
	}
}
