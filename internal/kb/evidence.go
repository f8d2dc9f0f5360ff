package kb

import (
	"github.com/cropsense-ai/cropsense/internal/domain"
)

// evidenceEntry links one observed symptom to one conclusion with the
// rule's diagnostic strength. The asserted certainty is strength scaled
// by the observation certainty, so a hesitant observation weakens the
// conclusion proportionally.
type evidenceEntry struct {
	symptom  string
	target   string
	strength float64
}

// Strength class boundaries. The class is a property of the rule, not of
// the scaled certainty: a strong rule under a hesitant observation still
// counts as strong evidence, just less of it.
const (
	strongMin = 0.5
	mediumMin = 0.35
)

func basisForStrength(s float64) string {
	switch {
	case s >= strongMin:
		return domain.BasisStrong
	case s >= mediumMin:
		return domain.BasisMedium
	default:
		return domain.BasisWeak
	}
}

// diseaseEvidence maps leaf, fruit, and whole-plant symptoms to disease
// candidates. Strengths follow the field literature: pathognomonic signs
// like a bulls-eye pattern carry far more weight than ambiguous ones like
// wilting, which several wilts and deficiencies share.
var diseaseEvidence = []evidenceEntry{
	{symptom: "brown-leaf-spots", target: "early-blight", strength: 0.55},
	{symptom: "yellow-halos", target: "early-blight", strength: 0.50},
	{symptom: "bulls-eye-pattern", target: "early-blight", strength: 0.65},
	{symptom: "lower-leaves-first", target: "early-blight", strength: 0.30},

	{symptom: "small-gray-tan-spots", target: "septoria-leaf-spot", strength: 0.385},
	{symptom: "dark-spot-margins", target: "septoria-leaf-spot", strength: 0.30},
	{symptom: "lower-leaves-first", target: "septoria-leaf-spot", strength: 0.25},

	{symptom: "water-soaked-blotches", target: "late-blight", strength: 0.60},
	{symptom: "rapid-leaf-browning", target: "late-blight", strength: 0.70},
	{symptom: "dark-fruit-lesions", target: "late-blight", strength: 0.40},
	{symptom: "oily-fruit-lesions", target: "late-blight", strength: 0.35},

	{symptom: "lower-leaf-yellowing", target: "fusarium-wilt", strength: 0.12},
	{symptom: "plant-wilting", target: "fusarium-wilt", strength: 0.12},
	{symptom: "bottom-up-collapse", target: "fusarium-wilt", strength: 0.12},
	{symptom: "stem-discoloration", target: "fusarium-wilt", strength: 0.15},

	{symptom: "leaf-mottling", target: "mosaic-virus", strength: 0.45},
	{symptom: "leaf-distortion", target: "mosaic-virus", strength: 0.35},

	{symptom: "small-dark-spots", target: "bacterial-spot", strength: 0.30},
	{symptom: "leaf-yellowing", target: "bacterial-spot", strength: 0.25},
	{symptom: "leaf-drop", target: "bacterial-spot", strength: 0.20},
	{symptom: "spots-merging", target: "bacterial-spot", strength: 0.25},
}

// nutrientEvidence maps deficiency indicators to nutrients. Mobile
// nutrients (N, Mg) show on older leaves first; immobile ones (Ca) on the
// newest growth, which is why the same yellowing pattern can separate them.
var nutrientEvidence = []evidenceEntry{
	{symptom: "pale-green-leaves", target: "nitrogen", strength: 0.50},
	{symptom: "older-leaf-yellowing", target: "nitrogen", strength: 0.45},
	{symptom: "lower-leaf-yellowing", target: "nitrogen", strength: 0.40},
	{symptom: "stunted-growth", target: "nitrogen", strength: 0.32},
	{symptom: "thin-stems", target: "nitrogen", strength: 0.27},

	{symptom: "dark-green-or-purplish-leaves", target: "phosphorus", strength: 0.50},
	{symptom: "delayed-flowering", target: "phosphorus", strength: 0.35},
	{symptom: "weak-stems", target: "phosphorus", strength: 0.30},
	{symptom: "stunted-growth", target: "phosphorus", strength: 0.25},

	{symptom: "leaf-edge-scorching", target: "potassium", strength: 0.50},
	{symptom: "poor-fruit-quality", target: "potassium", strength: 0.40},
	{symptom: "increased-fruit-acidity", target: "potassium", strength: 0.35},
	{symptom: "poor-fruit-firmness", target: "potassium", strength: 0.35},

	{symptom: "blossom-end-rot", target: "calcium", strength: 0.60},
	{symptom: "young-leaf-tip-necrosis", target: "calcium", strength: 0.45},

	{symptom: "interveinal-chlorosis", target: "magnesium", strength: 0.55},
	{symptom: "older-leaf-yellowing", target: "magnesium", strength: 0.30},
	{symptom: "leaf-edge-scorching", target: "magnesium", strength: 0.25},
}

// evidenceRules expands one table into one rule per entry. Every rule
// matches a single observed symptom by name, binds its certainty, and
// asserts the scaled conclusion.
func evidenceRules(entries []evidenceEntry, conclusionType domain.FactType) []domain.Rule {
	rules := make([]domain.Rule, 0, len(entries))
	for _, e := range entries {
		rules = append(rules, domain.Rule{
			ID:       e.target + "-from-" + e.symptom,
			Priority: PriorityEvidence,
			Conditions: []domain.Condition{
				{Type: domain.FactSymptom, Matches: []domain.AttrMatch{
					{Attr: domain.AttrName, Op: domain.OpEqSym, Sym: e.symptom},
					{Attr: domain.AttrCF, Op: domain.OpBind, Var: "?cf"},
				}},
			},
			Assert: func(_ domain.MemoryView, b domain.Bindings) (domain.Fact, error) {
				cf := e.strength * b.Num("?cf")
				return domain.NewConclusionFact(conclusionType, e.target, cf, basisForStrength(e.strength), e.symptom), nil
			},
		})
	}
	return rules
}
