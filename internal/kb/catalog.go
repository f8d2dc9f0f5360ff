package kb

import (
	"strings"

	"github.com/cropsense-ai/cropsense/internal/domain"
)

// Symptom categories as presented to field users.
const (
	CategoryLeavesStems    = "Leaves & Stems"
	CategoryBlossomsFruits = "Blossoms & Fruits"
	CategoryWholePlant     = "Whole Plant"
)

// SymptomInfo describes one observable symptom from the closed catalog.
type SymptomInfo struct {
	Name        string `json:"name"`
	Display     string `json:"display"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// symptomCatalog is the closed input vocabulary. Order is contractual:
// a symptom's position is its dimension in the incidence vector, so new
// symptoms append to their category block and never reorder.
var symptomCatalog = []SymptomInfo{
	{Name: "brown-leaf-spots", Category: CategoryLeavesStems, Description: "Brown lesions on the leaf surface, often expanding over days"},
	{Name: "yellow-halos", Category: CategoryLeavesStems, Description: "Yellow rings surrounding darker leaf spots"},
	{Name: "bulls-eye-pattern", Category: CategoryLeavesStems, Description: "Concentric rings inside leaf spots, a classic alternaria signature"},
	{Name: "lower-leaves-first", Category: CategoryLeavesStems, Description: "Damage starting on the oldest, lowest foliage and moving upward"},
	{Name: "small-gray-tan-spots", Category: CategoryLeavesStems, Description: "Many small circular spots with gray to tan centers"},
	{Name: "dark-spot-margins", Category: CategoryLeavesStems, Description: "Leaf spots bounded by distinctly darker margins"},
	{Name: "water-soaked-blotches", Category: CategoryLeavesStems, Description: "Irregular dark green blotches that look wet or greasy"},
	{Name: "rapid-leaf-browning", Category: CategoryLeavesStems, Description: "Large leaf areas browning within a day or two"},
	{Name: "lower-leaf-yellowing", Category: CategoryLeavesStems, Description: "Lower leaves yellowing while upper growth stays green"},
	{Name: "stem-discoloration", Category: CategoryLeavesStems, Description: "Brown streaking inside or along the stem"},
	{Name: "leaf-mottling", Category: CategoryLeavesStems, Description: "Irregular light and dark green mosaic patterns"},
	{Name: "leaf-distortion", Category: CategoryLeavesStems, Description: "Leaves curled, puckered, or fern-like instead of flat"},
	{Name: "small-dark-spots", Category: CategoryLeavesStems, Description: "Pinhead dark spots scattered across leaflets"},
	{Name: "leaf-yellowing", Category: CategoryLeavesStems, Description: "General yellowing of foliage without a clear pattern"},
	{Name: "spots-merging", Category: CategoryLeavesStems, Description: "Individual spots coalescing into larger dead patches"},
	{Name: "leaf-drop", Category: CategoryLeavesStems, Description: "Leaves detaching prematurely"},
	{Name: "young-leaf-tip-necrosis", Category: CategoryLeavesStems, Description: "Dieback at the tips of the newest leaves"},
	{Name: "dark-green-or-purplish-leaves", Category: CategoryLeavesStems, Description: "Abnormally dark or purple-tinged foliage, undersides first"},
	{Name: "leaf-edge-scorching", Category: CategoryLeavesStems, Description: "Dry, burnt-looking leaf margins"},
	{Name: "weak-stems", Category: CategoryLeavesStems, Description: "Stems bending or breaking under normal load"},
	{Name: "thin-stems", Category: CategoryLeavesStems, Description: "Spindly stem growth relative to plant age"},
	{Name: "pale-green-leaves", Category: CategoryLeavesStems, Description: "Uniformly pale foliage lacking deep green color"},
	{Name: "older-leaf-yellowing", Category: CategoryLeavesStems, Description: "Yellowing concentrated on older leaves as nutrients relocate"},
	{Name: "interveinal-chlorosis", Category: CategoryLeavesStems, Description: "Yellowing between leaf veins while the veins stay green"},
	{Name: "dark-fruit-lesions", Category: CategoryBlossomsFruits, Description: "Dark sunken lesions on developing fruit"},
	{Name: "oily-fruit-lesions", Category: CategoryBlossomsFruits, Description: "Greasy-looking lesions on fruit surfaces"},
	{Name: "blossom-end-rot", Category: CategoryBlossomsFruits, Description: "Dark leathery rot at the blossom end of fruit"},
	{Name: "poor-fruit-quality", Category: CategoryBlossomsFruits, Description: "Small, misshapen, or unevenly ripening fruit"},
	{Name: "increased-fruit-acidity", Category: CategoryBlossomsFruits, Description: "Fruit noticeably more acidic than the variety norm"},
	{Name: "poor-fruit-firmness", Category: CategoryBlossomsFruits, Description: "Soft fruit that bruises or collapses easily"},
	{Name: "delayed-flowering", Category: CategoryBlossomsFruits, Description: "Flowering significantly later than expected for the stage"},
	{Name: "plant-wilting", Category: CategoryWholePlant, Description: "Whole-plant drooping despite adequate soil moisture"},
	{Name: "bottom-up-collapse", Category: CategoryWholePlant, Description: "Progressive collapse starting from the base of the plant"},
	{Name: "stunted-growth", Category: CategoryWholePlant, Description: "Plant markedly smaller than expected for its age"},
}

// VectorDim is the dimensionality of a symptom incidence vector. It must
// equal the catalog length; the stored-vector schema depends on it.
const VectorDim = 34

var symptomIndex = buildSymptomIndex()

func buildSymptomIndex() map[string]int {
	idx := make(map[string]int, len(symptomCatalog))
	for i := range symptomCatalog {
		symptomCatalog[i].Display = displayName(symptomCatalog[i].Name)
		idx[symptomCatalog[i].Name] = i
	}
	return idx
}

// Symptoms returns the full catalog in canonical order.
func Symptoms() []SymptomInfo {
	out := make([]SymptomInfo, len(symptomCatalog))
	copy(out, symptomCatalog)
	return out
}

// HasSymptom reports whether name belongs to the closed catalog.
func HasSymptom(name string) bool {
	_, ok := symptomIndex[name]
	return ok
}

// SymptomDisplay returns the human-readable form of a symptom name.
func SymptomDisplay(name string) string {
	if i, ok := symptomIndex[name]; ok {
		return symptomCatalog[i].Display
	}
	return displayName(name)
}

// Growth stages in plant-development order.
const (
	StageSeedling   = "seedling"
	StageVegetative = "vegetative"
	StageFlowering  = "flowering"
	StageFruiting   = "fruiting"

	// DefaultStage applies when a session supplies no growth context.
	DefaultStage = StageVegetative
)

// Stages returns the growth stages in development order.
func Stages() []string {
	return []string{StageSeedling, StageVegetative, StageFlowering, StageFruiting}
}

// HasStage reports whether the stage name is recognized.
func HasStage(stage string) bool {
	switch stage {
	case StageSeedling, StageVegetative, StageFlowering, StageFruiting:
		return true
	}
	return false
}

// Diseases returns the names of all diagnosable diseases.
func Diseases() []string {
	return []string{
		"early-blight",
		"septoria-leaf-spot",
		"late-blight",
		"fusarium-wilt",
		"mosaic-virus",
		"bacterial-spot",
	}
}

// Nutrients returns the names of all detectable nutrient deficiencies.
func Nutrients() []string {
	return []string{"nitrogen", "phosphorus", "potassium", "calcium", "magnesium"}
}

// ConclusionDisplay renders a conclusion name for humans. Nutrient names
// gain the deficiency suffix; disease names are title-cased as-is.
func ConclusionDisplay(category domain.Category, name string) string {
	if category == domain.CategoryNutrient {
		return displayName(name) + " Deficiency"
	}
	return displayName(name)
}

// Vectorize maps observations onto the symptom incidence vector: each
// observed symptom's certainty at its catalog position, zero elsewhere.
// Unknown names are ignored so historical vectors survive catalog drift.
func Vectorize(symptoms []domain.SymptomObservation) []float32 {
	vec := make([]float32, VectorDim)
	for _, s := range symptoms {
		i, ok := symptomIndex[s.Name]
		if !ok {
			continue
		}
		cf := 1.0
		if s.CF != nil {
			cf = *s.CF
		} else if s.Severity != "" {
			cf = s.Severity.ObservationCF()
		}
		vec[i] = float32(cf)
	}
	return vec
}

// displayName converts a hyphenated symbol to title case.
func displayName(sym string) string {
	words := strings.Split(sym, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
