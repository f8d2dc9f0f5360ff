package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cropsense-ai/cropsense/internal/domain"
	"github.com/cropsense-ai/cropsense/internal/service"
)

type DiagnosisHandler struct {
	svc *service.DiagnosisService
}

func NewDiagnosisHandler(svc *service.DiagnosisService) *DiagnosisHandler {
	return &DiagnosisHandler{svc: svc}
}

// Create runs one diagnostic session over the submitted observations and
// returns the finished record.
func (h *DiagnosisHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.DiagnosisInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.svc.Diagnose(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "diagnosis failed")
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}
