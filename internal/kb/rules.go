package kb

import (
	"fmt"

	"github.com/cropsense-ai/cropsense/internal/domain"
)

// Priority bands. Band membership is what sequences reasoning: all
// evidence lands before any cross-category modifier, all modifiers before
// reinforcement, and finalization runs only once a category's candidate
// set is complete. Within a band, recency then declaration order decide.
const (
	PriorityBaseline      = 100
	PriorityEvidence      = 80
	PriorityModifier      = 60
	PriorityReinforcement = 40
	PriorityFinalization  = 20
	PriorityTriageUrgent  = 12
	PriorityTriageMonitor = 11
	PriorityTriageRoutine = 10
)

// Triage thresholds over finalized certainties.
const (
	urgentDiseaseCF   = 0.7
	monitorDiseaseCF  = 0.4
	monitorNutrientCF = 0.6
)

// baselineEntry records the expected deficiency pressure for one nutrient
// at one growth stage, plus the plausibility ceiling no amount of evidence
// may push that nutrient past while the plant is in the stage.
type baselineEntry struct {
	stage    string
	nutrient string
	cf       float64
	ceiling  float64
}

// stageBaselines encodes stage-driven nutrient demand: nitrogen dominates
// vegetative growth, phosphorus the transition to flowering, potassium and
// calcium the fruit load. Diseases get no baseline; growth stage alone
// never suggests a pathogen.
var stageBaselines = []baselineEntry{
	{StageSeedling, "nitrogen", 0.25, 0.90},
	{StageSeedling, "phosphorus", 0.30, 0.95},
	{StageSeedling, "potassium", 0.10, 0.75},
	{StageSeedling, "calcium", 0.10, 0.70},
	{StageSeedling, "magnesium", 0.05, 0.70},

	{StageVegetative, "nitrogen", 0.30, 0.95},
	{StageVegetative, "phosphorus", 0.15, 0.80},
	{StageVegetative, "potassium", 0.10, 0.80},
	{StageVegetative, "calcium", 0.10, 0.75},
	{StageVegetative, "magnesium", 0.15, 0.85},

	{StageFlowering, "nitrogen", 0.10, 0.80},
	{StageFlowering, "phosphorus", 0.30, 0.95},
	{StageFlowering, "potassium", 0.25, 0.90},
	{StageFlowering, "calcium", 0.20, 0.90},
	{StageFlowering, "magnesium", 0.10, 0.80},

	{StageFruiting, "nitrogen", 0.05, 0.75},
	{StageFruiting, "phosphorus", 0.20, 0.85},
	{StageFruiting, "potassium", 0.35, 0.95},
	{StageFruiting, "calcium", 0.30, 0.95},
	{StageFruiting, "magnesium", 0.10, 0.80},
}

func baselineRules() []domain.Rule {
	rules := make([]domain.Rule, 0, len(stageBaselines))
	for _, e := range stageBaselines {
		rules = append(rules, domain.Rule{
			ID:       fmt.Sprintf("baseline-%s-%s", e.stage, e.nutrient),
			Priority: PriorityBaseline,
			Conditions: []domain.Condition{
				{Type: domain.FactGrowthStage, Matches: []domain.AttrMatch{
					{Attr: domain.AttrName, Op: domain.OpEqSym, Sym: e.stage},
				}},
			},
			Assert: func(domain.MemoryView, domain.Bindings) (domain.Fact, error) {
				return domain.NewBaselineFact(e.nutrient, e.cf, e.ceiling), nil
			},
		})
	}
	return rules
}

// impactEntry is one cross-category modifier: a confirmed disease changes
// how much weight an overlapping deficiency signal deserves. A factor
// above 1 means the disease aggravates the deficiency; below 1 means the
// disease explains the symptoms away.
type impactEntry struct {
	disease  string
	nutrient string
	factor   float64
}

var diseaseNutrientImpact = []impactEntry{
	{"early-blight", "calcium", 1.20},
	{"early-blight", "nitrogen", 1.15},
	{"late-blight", "calcium", 1.25},
	{"late-blight", "potassium", 1.10},
	{"bacterial-spot", "potassium", 1.10},
	// Vascular blockage and viral mottling mimic nitrogen starvation, so
	// a confirmed wilt or mosaic discounts the nitrogen signal.
	{"fusarium-wilt", "nitrogen", 0.85},
	{"mosaic-virus", "nitrogen", 0.90},
}

func modifierRules() []domain.Rule {
	rules := make([]domain.Rule, 0, len(diseaseNutrientImpact))
	for _, e := range diseaseNutrientImpact {
		rules = append(rules, domain.Rule{
			ID:       fmt.Sprintf("impact-%s-on-%s", e.disease, e.nutrient),
			Priority: PriorityModifier,
			Conditions: []domain.Condition{
				{Type: domain.FactDisease, Matches: []domain.AttrMatch{
					{Attr: domain.AttrName, Op: domain.OpEqSym, Sym: e.disease},
					{Attr: domain.AttrCF, Op: domain.OpAtLeast, Num: strongMin},
				}},
				{Type: domain.FactNutrient, Matches: []domain.AttrMatch{
					{Attr: domain.AttrName, Op: domain.OpEqSym, Sym: e.nutrient},
					{Attr: domain.AttrBasis, Op: domain.OpNeSym, Sym: domain.BasisBaseline},
				}},
				{Type: domain.FactAdjustment, Negated: true, Matches: []domain.AttrMatch{
					{Attr: domain.AttrTarget, Op: domain.OpEqSym, Sym: e.nutrient},
					{Attr: domain.AttrSource, Op: domain.OpEqSym, Sym: e.disease},
				}},
			},
			Assert: func(view domain.MemoryView, _ domain.Bindings) (domain.Fact, error) {
				original := foldNamed(view, domain.FactNutrient, e.nutrient)
				adjusted := domain.Adjust(original, e.factor)
				return domain.NewAdjustmentFact(e.nutrient, e.disease, e.factor, original, adjusted), nil
			},
		})
	}
	return rules
}

// reinforcementRule folds all weak evidence for one conclusion name into a
// single reinforced fact once at least two distinct weak facts corroborate
// it. Weak rules alone should never carry a diagnosis, but three of them
// agreeing is signal.
func reinforcementRule(t domain.FactType, id string) domain.Rule {
	weakFor := func(m domain.MemoryView, name string) []float64 {
		var cfs []float64
		for _, f := range m.FactsOfType(t) {
			if f.Name() == name && f.Sym(domain.AttrBasis) == domain.BasisWeak {
				cfs = append(cfs, f.Num(domain.AttrCF))
			}
		}
		return cfs
	}
	return domain.Rule{
		ID:       id,
		Priority: PriorityReinforcement,
		Conditions: []domain.Condition{
			{Type: t, Matches: []domain.AttrMatch{
				{Attr: domain.AttrName, Op: domain.OpBind, Var: "?n"},
				{Attr: domain.AttrBasis, Op: domain.OpEqSym, Sym: domain.BasisWeak},
			}},
			{Type: t, Distinct: true, Matches: []domain.AttrMatch{
				{Attr: domain.AttrName, Op: domain.OpBind, Var: "?n"},
				{Attr: domain.AttrBasis, Op: domain.OpEqSym, Sym: domain.BasisWeak},
			}},
			{Type: t, Negated: true, Matches: []domain.AttrMatch{
				{Attr: domain.AttrName, Op: domain.OpBind, Var: "?n"},
				{Attr: domain.AttrBasis, Op: domain.OpEqSym, Sym: domain.BasisReinforced},
			}},
		},
		Assert: func(view domain.MemoryView, b domain.Bindings) (domain.Fact, error) {
			name := b.Sym("?n")
			folded := domain.CombineAll(weakFor(view, name))
			return domain.NewConclusionFact(t, name, folded, domain.BasisReinforced, ""), nil
		},
	}
}

// finalizationRule concludes one category: score every candidate, pick the
// best, assert the final fact. The negated guard makes it a once-per-
// session conclusion no matter how many candidate activations exist.
func finalizationRule(cat domain.Category, id string) domain.Rule {
	candidateType := cat.CandidateFactType()
	finalType := cat.FinalFactType()
	return domain.Rule{
		ID:       id,
		Priority: PriorityFinalization,
		Conditions: []domain.Condition{
			{Type: candidateType, Matches: []domain.AttrMatch{
				{Attr: domain.AttrName, Op: domain.OpBind, Var: "?n"},
			}},
			{Type: finalType, Negated: true, Matches: []domain.AttrMatch{
				{Attr: domain.AttrName, Op: domain.OpBind, Var: "?any"},
			}},
		},
		Assert: func(view domain.MemoryView, _ domain.Bindings) (domain.Fact, error) {
			best := domain.SelectBest(Score(view, cat))
			if best == nil {
				return domain.Fact{}, fmt.Errorf("no scorable %s candidate", cat)
			}
			return domain.NewFinalFact(finalType, best.Name, best.CF), nil
		},
	}
}

// Triage levels.
const (
	TriageUrgent  = "urgent"
	TriageMonitor = "monitor"
	TriageRoutine = "routine"
)

// triageRules ladder a single per-session recommendation below the
// finalization band: urgent outranks monitor outranks routine, and the
// shared not-exists guard keeps exactly one on the books.
func triageRules() []domain.Rule {
	noTriageYet := domain.Condition{
		Type: domain.FactTriage, Negated: true,
		Matches: []domain.AttrMatch{{Attr: domain.AttrName, Op: domain.OpBind, Var: "?level"}},
	}
	return []domain.Rule{
		{
			ID:       "triage-urgent-disease",
			Priority: PriorityTriageUrgent,
			Conditions: []domain.Condition{
				{Type: domain.FactFinalDisease, Matches: []domain.AttrMatch{
					{Attr: domain.AttrCF, Op: domain.OpBind, Var: "?cf"},
					{Attr: domain.AttrCF, Op: domain.OpAtLeast, Num: urgentDiseaseCF},
				}},
				noTriageYet,
			},
			Assert: func(_ domain.MemoryView, b domain.Bindings) (domain.Fact, error) {
				return domain.NewTriageFact(TriageUrgent, b.Num("?cf")), nil
			},
		},
		{
			ID:       "triage-urgent-collapse",
			Priority: PriorityTriageUrgent,
			Conditions: []domain.Condition{
				{Type: domain.FactSymptom, Matches: []domain.AttrMatch{
					{Attr: domain.AttrName, Op: domain.OpEqSym, Sym: "bottom-up-collapse"},
					{Attr: domain.AttrSeverity, Op: domain.OpEqSym, Sym: string(domain.SeveritySevere)},
				}},
				noTriageYet,
			},
			Assert: func(domain.MemoryView, domain.Bindings) (domain.Fact, error) {
				return domain.NewTriageFact(TriageUrgent, 0.9), nil
			},
		},
		{
			ID:       "triage-monitor-disease",
			Priority: PriorityTriageMonitor,
			Conditions: []domain.Condition{
				{Type: domain.FactFinalDisease, Matches: []domain.AttrMatch{
					{Attr: domain.AttrCF, Op: domain.OpBind, Var: "?cf"},
					{Attr: domain.AttrCF, Op: domain.OpAtLeast, Num: monitorDiseaseCF},
				}},
				noTriageYet,
			},
			Assert: func(_ domain.MemoryView, b domain.Bindings) (domain.Fact, error) {
				return domain.NewTriageFact(TriageMonitor, b.Num("?cf")), nil
			},
		},
		{
			ID:       "triage-monitor-nutrient",
			Priority: PriorityTriageMonitor,
			Conditions: []domain.Condition{
				{Type: domain.FactFinalNutrient, Matches: []domain.AttrMatch{
					{Attr: domain.AttrCF, Op: domain.OpBind, Var: "?cf"},
					{Attr: domain.AttrCF, Op: domain.OpAtLeast, Num: monitorNutrientCF},
				}},
				noTriageYet,
			},
			Assert: func(_ domain.MemoryView, b domain.Bindings) (domain.Fact, error) {
				return domain.NewTriageFact(TriageMonitor, b.Num("?cf")), nil
			},
		},
		{
			ID:       "triage-routine",
			Priority: PriorityTriageRoutine,
			Conditions: []domain.Condition{
				{Type: domain.FactGrowthStage, Matches: []domain.AttrMatch{
					{Attr: domain.AttrName, Op: domain.OpBind, Var: "?stage"},
				}},
				noTriageYet,
			},
			Assert: func(domain.MemoryView, domain.Bindings) (domain.Fact, error) {
				return domain.NewTriageFact(TriageRoutine, 0.5), nil
			},
		},
	}
}

// assemble builds the full ordered rule list. Order within the slice is
// the declaration order conflict resolution falls back to, so bands are
// laid out from the highest priority down.
func assemble() []domain.Rule {
	var rules []domain.Rule
	rules = append(rules, baselineRules()...)
	rules = append(rules, evidenceRules(diseaseEvidence, domain.FactDisease)...)
	rules = append(rules, evidenceRules(nutrientEvidence, domain.FactNutrient)...)
	rules = append(rules, modifierRules()...)
	rules = append(rules, reinforcementRule(domain.FactDisease, "reinforce-weak-disease"))
	rules = append(rules, reinforcementRule(domain.FactNutrient, "reinforce-weak-nutrient"))
	rules = append(rules, finalizationRule(domain.CategoryDisease, "conclude-disease"))
	rules = append(rules, finalizationRule(domain.CategoryNutrient, "conclude-nutrient"))
	rules = append(rules, triageRules()...)
	return rules
}
