package handlers

import (
	"net/http"

	"github.com/cropsense-ai/cropsense/internal/domain"
	"github.com/cropsense-ai/cropsense/internal/kb"
)

type CatalogHandler struct{}

func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

type symptomsResponse struct {
	Symptoms []kb.SymptomInfo `json:"symptoms"`
	Total    int              `json:"total"`
}

// Symptoms lists the observable symptom catalog, optionally filtered by
// ?category=.
func (h *CatalogHandler) Symptoms(w http.ResponseWriter, r *http.Request) {
	symptoms := kb.Symptoms()
	if category := r.URL.Query().Get("category"); category != "" {
		filtered := symptoms[:0]
		for _, s := range symptoms {
			if s.Category == category {
				filtered = append(filtered, s)
			}
		}
		symptoms = filtered
	}
	writeJSON(w, http.StatusOK, symptomsResponse{Symptoms: symptoms, Total: len(symptoms)})
}

type stagesResponse struct {
	Stages  []string `json:"stages"`
	Default string   `json:"default"`
}

// Stages lists the growth stages a session can run under.
func (h *CatalogHandler) Stages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stagesResponse{Stages: kb.Stages(), Default: kb.DefaultStage})
}

type conditionInfo struct {
	Name    string `json:"name"`
	Display string `json:"display"`
}

type conditionsResponse struct {
	Diseases  []conditionInfo `json:"diseases"`
	Nutrients []conditionInfo `json:"nutrients"`
}

// Conditions lists every disease and nutrient deficiency the rule base
// can conclude.
func (h *CatalogHandler) Conditions(w http.ResponseWriter, r *http.Request) {
	resp := conditionsResponse{}
	for _, d := range kb.Diseases() {
		resp.Diseases = append(resp.Diseases, conditionInfo{
			Name:    d,
			Display: kb.ConclusionDisplay(domain.CategoryDisease, d),
		})
	}
	for _, n := range kb.Nutrients() {
		resp.Nutrients = append(resp.Nutrients, conditionInfo{
			Name:    n,
			Display: kb.ConclusionDisplay(domain.CategoryNutrient, n),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
