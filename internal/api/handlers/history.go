package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/cropsense-ai/cropsense/internal/domain"
	"github.com/cropsense-ai/cropsense/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type HistoryHandler struct {
	svc *service.DiagnosisService
}

func NewHistoryHandler(svc *service.DiagnosisService) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

type sessionsResponse struct {
	Sessions []domain.DiagnosisRecord `json:"sessions"`
	Total    int                      `json:"total"`
}

// ListRecent returns the most recent persisted sessions, newest first.
func (h *HistoryHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.Recent(r.Context(), queryLimit(r))
	if err != nil {
		if errors.Is(err, service.ErrHistoryDisabled) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, sessionsResponse{Sessions: records, Total: len(records)})
}

// GetByID returns one persisted session.
func (h *HistoryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	rec, err := h.svc.Session(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrHistoryDisabled):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to get session")
		}
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type similarResponse struct {
	Similar []domain.RecordWithDistance `json:"similar"`
	Total   int                         `json:"total"`
}

// Similar returns past sessions with the closest symptom vectors.
func (h *HistoryHandler) Similar(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	records, err := h.svc.Similar(r.Context(), id, queryLimit(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrHistoryDisabled):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to find similar sessions")
		}
		return
	}
	writeJSON(w, http.StatusOK, similarResponse{Similar: records, Total: len(records)})
}

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}
