package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category is a diagnostic axis the reasoner concludes on.
type Category string

const (
	CategoryDisease  Category = "disease"
	CategoryNutrient Category = "nutrient"
	CategoryTriage   Category = "triage"
)

// AllCategories returns the categories in fixed result order.
func AllCategories() []Category {
	return []Category{CategoryDisease, CategoryNutrient, CategoryTriage}
}

// CandidateFactType maps a category to the fact type of its candidates.
func (c Category) CandidateFactType() FactType {
	switch c {
	case CategoryDisease:
		return FactDisease
	case CategoryNutrient:
		return FactNutrient
	default:
		return FactTriage
	}
}

// FinalFactType maps a category to its finalization fact type. Triage
// concludes directly, so its candidate and final types coincide.
func (c Category) FinalFactType() FactType {
	switch c {
	case CategoryDisease:
		return FactFinalDisease
	case CategoryNutrient:
		return FactFinalNutrient
	default:
		return FactTriage
	}
}

// Severity grades an observed symptom.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// ValidSeverity reports whether s is one of the three grades.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityMild, SeverityModerate, SeveritySevere:
		return true
	}
	return false
}

// ObservationCF is the certainty implied by a severity grade when the
// caller supplies no explicit certainty for the observation.
func (s Severity) ObservationCF() float64 {
	switch s {
	case SeverityMild:
		return 0.6
	case SeverityModerate:
		return 0.8
	default:
		return 1.0
	}
}

// SymptomObservation is one caller-supplied input. CF, when nil, defaults
// to the severity mapping, or to 1.0 when severity is also absent.
type SymptomObservation struct {
	Name     string   `json:"name"`
	Severity Severity `json:"severity,omitempty"`
	CF       *float64 `json:"cf,omitempty"`
}

// DiagnosisInput is the full request for one diagnostic session.
type DiagnosisInput struct {
	Symptoms    []SymptomObservation `json:"symptoms"`
	GrowthStage string               `json:"growth_stage,omitempty"`
}

// Conclusion is one named candidate with its folded certainty and the
// symptoms that contributed evidence toward it.
type Conclusion struct {
	Name        string   `json:"name"`
	CF          float64  `json:"cf"`
	Evidence    []string `json:"evidence,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

// CategoryResult is the per-category slice of a session's outcome:
// the winning conclusion (nil when nothing concluded) and all candidates
// ranked by certainty.
type CategoryResult struct {
	Winner     *Conclusion  `json:"winner,omitempty"`
	Candidates []Conclusion `json:"candidates"`
}

// AdjustmentRecord reports one applied cross-category modifier, with the
// certainty values the firing saw at adjustment time.
type AdjustmentRecord struct {
	Target       string  `json:"target"`
	Source       string  `json:"source"`
	ImpactFactor float64 `json:"impact_factor"`
	OriginalCF   float64 `json:"original_cf"`
	AdjustedCF   float64 `json:"adjusted_cf"`
}

// TraceEntry is one firing in the explanation trail.
type TraceEntry struct {
	RuleID     string `json:"rule_id"`
	Conclusion string `json:"conclusion,omitempty"`
}

// Result is the complete outcome of one diagnostic session.
type Result struct {
	PerCategory map[Category]CategoryResult `json:"per_category"`
	Adjustments []AdjustmentRecord          `json:"adjustments"`
	Trace       []TraceEntry                `json:"trace"`
	Firings     int                         `json:"firings"`
}

// DiagnosisRecord is a persisted session: the input, the outcome, and the
// symptom incidence vector used for similar-case retrieval. Working-memory
// facts are never persisted; only the finished result is.
type DiagnosisRecord struct {
	ID          uuid.UUID            `json:"id"`
	GrowthStage string               `json:"growth_stage"`
	Symptoms    []SymptomObservation `json:"symptoms"`
	Result      *Result              `json:"result"`
	Vector      []float32            `json:"-"`
	CreatedAt   time.Time            `json:"created_at"`
}

// RecordWithDistance pairs a past record with its vector distance from a
// query case (smaller is more similar).
type RecordWithDistance struct {
	DiagnosisRecord
	Distance float64 `json:"distance"`
}
