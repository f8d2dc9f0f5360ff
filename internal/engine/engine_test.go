package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cropsense-ai/cropsense/internal/domain"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// evidenceRule asserts a disease conclusion scaled from the observation
// certainty of one named symptom.
func evidenceRule(symptom, disease string, strength float64) domain.Rule {
	return domain.Rule{
		ID:       "observe-" + symptom,
		Priority: 80,
		Conditions: []domain.Condition{
			{Type: domain.FactSymptom, Matches: []domain.AttrMatch{
				{Attr: domain.AttrName, Op: domain.OpEqSym, Sym: symptom},
				{Attr: domain.AttrCF, Op: domain.OpBind, Var: "?cf"},
			}},
		},
		Assert: func(_ domain.MemoryView, b domain.Bindings) (domain.Fact, error) {
			return domain.NewConclusionFact(domain.FactDisease, disease, strength*b.Num("?cf"), domain.BasisStrong, symptom), nil
		},
	}
}

// finalizeRule concludes the strongest disease candidate once, guarded by
// the absence of any prior final conclusion.
func finalizeRule() domain.Rule {
	return domain.Rule{
		ID:       "finalize-disease",
		Priority: 20,
		Conditions: []domain.Condition{
			{Type: domain.FactDisease, Matches: []domain.AttrMatch{
				{Attr: domain.AttrCF, Op: domain.OpAtLeast, Num: 0.2},
			}},
			{Type: domain.FactFinalDisease, Negated: true, Matches: []domain.AttrMatch{
				{Attr: domain.AttrName, Op: domain.OpBind, Var: "?any"},
			}},
		},
		Assert: func(view domain.MemoryView, _ domain.Bindings) (domain.Fact, error) {
			var bestName string
			var bestCF float64
			for _, f := range view.FactsOfType(domain.FactDisease) {
				if bestName == "" || f.Num(domain.AttrCF) > bestCF {
					bestName, bestCF = f.Name(), f.Num(domain.AttrCF)
				}
			}
			return domain.NewFinalFact(domain.FactFinalDisease, bestName, bestCF), nil
		},
	}
}

func TestEngineRunsToQuiescence(t *testing.T) {
	rules := []domain.Rule{
		evidenceRule("brown-leaf-spots", "early-blight", 0.5),
		evidenceRule("yellow-halos", "early-blight", 0.5),
		finalizeRule(),
	}
	eng := New(rules, 0, zap.NewNop())

	wm := NewWorkingMemory()
	mustAssert(t, wm, domain.NewGrowthStageFact("vegetative"))
	mustAssert(t, wm, domain.NewSymptomFact("brown-leaf-spots", "severe", 0.8))
	mustAssert(t, wm, domain.NewSymptomFact("yellow-halos", "moderate", 0.6))

	trace, err := eng.Run(wm)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Recency puts the newest observation first within the evidence band;
	// finalization fires exactly once despite two candidate activations.
	want := []domain.TraceEntry{
		{RuleID: "observe-yellow-halos", Conclusion: "early-blight"},
		{RuleID: "observe-brown-leaf-spots", Conclusion: "early-blight"},
		{RuleID: "finalize-disease", Conclusion: "early-blight"},
	}
	if diff := cmp.Diff(want, trace); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}

	finals := wm.FactsOfType(domain.FactFinalDisease)
	if len(finals) != 1 {
		t.Fatalf("got %d final conclusions, want exactly 1", len(finals))
	}
	if got := finals[0].Num(domain.AttrCF); got != 0.4 {
		t.Errorf("final cf = %v, want 0.4", got)
	}
}

func TestEngineDeterministicAcrossRuns(t *testing.T) {
	rules := []domain.Rule{
		evidenceRule("wilting", "fusarium-wilt", 0.4),
		evidenceRule("stunted-growth", "fusarium-wilt", 0.3),
		finalizeRule(),
	}
	eng := New(rules, 0, nil)

	run := func() []domain.TraceEntry {
		wm := NewWorkingMemory()
		mustAssert(t, wm, domain.NewSymptomFact("wilting", "severe", 1.0))
		mustAssert(t, wm, domain.NewSymptomFact("stunted-growth", "moderate", 0.8))
		trace, err := eng.Run(wm)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return trace
	}

	first := run()
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, run()); diff != "" {
			t.Fatalf("run %d diverged (-first +got):\n%s", i+2, diff)
		}
	}
}

func TestEngineRefractionWithoutGuards(t *testing.T) {
	// Evidence rules carry no negated guard; refraction alone must stop
	// them from firing twice on the same observation.
	rules := []domain.Rule{evidenceRule("wilting", "fusarium-wilt", 0.4)}
	eng := New(rules, 0, nil)

	wm := NewWorkingMemory()
	mustAssert(t, wm, domain.NewSymptomFact("wilting", "mild", 0.6))

	trace, err := eng.Run(wm)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(trace) != 1 {
		t.Fatalf("got %d firings, want 1: %+v", len(trace), trace)
	}
}

func TestEngineQuiescentImmediately(t *testing.T) {
	eng := New([]domain.Rule{finalizeRule()}, 0, nil)
	trace, err := eng.Run(NewWorkingMemory())
	if err != nil {
		t.Fatalf("Run on empty memory: %v", err)
	}
	if len(trace) != 0 {
		t.Errorf("got %d firings on empty memory, want 0", len(trace))
	}
}

func TestEnginePriorityBeatsDeclarationOrder(t *testing.T) {
	low := domain.Rule{
		ID:       "low-band",
		Priority: 10,
		Conditions: []domain.Condition{
			{Type: domain.FactGrowthStage, Matches: []domain.AttrMatch{
				{Attr: domain.AttrName, Op: domain.OpEqSym, Sym: "vegetative"},
			}},
		},
		Assert: func(domain.MemoryView, domain.Bindings) (domain.Fact, error) {
			return domain.NewTriageFact("routine", 0.3), nil
		},
	}
	high := domain.Rule{
		ID:       "high-band",
		Priority: 90,
		Conditions: []domain.Condition{
			{Type: domain.FactGrowthStage, Matches: []domain.AttrMatch{
				{Attr: domain.AttrName, Op: domain.OpEqSym, Sym: "vegetative"},
			}},
		},
		Assert: func(domain.MemoryView, domain.Bindings) (domain.Fact, error) {
			return domain.NewConclusionFact(domain.FactNutrient, "nitrogen-deficiency", 0.3, domain.BasisBaseline, ""), nil
		},
	}

	// Declared low first; priority must still fire high first.
	eng := New([]domain.Rule{low, high}, 0, nil)
	wm := NewWorkingMemory()
	mustAssert(t, wm, domain.NewGrowthStageFact("vegetative"))

	trace, err := eng.Run(wm)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []domain.TraceEntry{
		{RuleID: "high-band", Conclusion: "nitrogen-deficiency"},
		{RuleID: "low-band", Conclusion: "routine"},
	}
	if diff := cmp.Diff(want, trace); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestEngineFiringBound(t *testing.T) {
	// Each firing asserts a fresh fact the same rule matches, so the rule
	// set never quiesces on its own.
	runaway := domain.Rule{
		ID:       "runaway",
		Priority: 50,
		Conditions: []domain.Condition{
			{Type: domain.FactDisease, Matches: []domain.AttrMatch{
				{Attr: domain.AttrCF, Op: domain.OpBind, Var: "?cf"},
			}},
		},
		Assert: func(_ domain.MemoryView, b domain.Bindings) (domain.Fact, error) {
			return domain.NewConclusionFact(domain.FactDisease, "early-blight", b.Num("?cf"), domain.BasisWeak, ""), nil
		},
	}
	eng := New([]domain.Rule{runaway}, 5, nil)

	wm := NewWorkingMemory()
	mustAssert(t, wm, domain.NewConclusionFact(domain.FactDisease, "early-blight", 0.3, domain.BasisWeak, ""))

	trace, err := eng.Run(wm)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("Run error = %v, want ErrConfiguration", err)
	}
	if trace != nil {
		t.Errorf("got a partial trace alongside the error: %+v", trace)
	}
}

func TestEngineActionFailure(t *testing.T) {
	broken := domain.Rule{
		ID:       "broken-action",
		Priority: 50,
		Conditions: []domain.Condition{
			{Type: domain.FactGrowthStage, Matches: []domain.AttrMatch{
				{Attr: domain.AttrName, Op: domain.OpBind, Var: "?s"},
			}},
		},
		Assert: func(domain.MemoryView, domain.Bindings) (domain.Fact, error) {
			return domain.Fact{}, fmt.Errorf("no template for stage")
		},
	}
	eng := New([]domain.Rule{broken}, 0, nil)

	wm := NewWorkingMemory()
	mustAssert(t, wm, domain.NewGrowthStageFact("seedling"))

	if _, err := eng.Run(wm); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("Run error = %v, want ErrConfiguration", err)
	}
}

func TestEngineRejectsMalformedAssertedFact(t *testing.T) {
	malformed := domain.Rule{
		ID:       "asserts-bad-fact",
		Priority: 50,
		Conditions: []domain.Condition{
			{Type: domain.FactGrowthStage, Matches: []domain.AttrMatch{
				{Attr: domain.AttrName, Op: domain.OpBind, Var: "?s"},
			}},
		},
		Assert: func(domain.MemoryView, domain.Bindings) (domain.Fact, error) {
			return domain.NewFact(domain.FactGrowthStage, map[domain.Attr]domain.Value{
				domain.AttrName:   domain.Symbol("seedling"),
				domain.AttrTarget: domain.Symbol("nowhere"),
			}), nil
		},
	}
	eng := New([]domain.Rule{malformed}, 0, nil)

	wm := NewWorkingMemory()
	mustAssert(t, wm, domain.NewGrowthStageFact("seedling"))

	if _, err := eng.Run(wm); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("Run error = %v, want ErrConfiguration", err)
	}
}
