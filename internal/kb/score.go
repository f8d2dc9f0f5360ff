package kb

import (
	"github.com/cropsense-ai/cropsense/internal/domain"
)

// Score computes the ranked conclusions for one category from the current
// working-memory view. The aggregation policy, applied per conclusion
// name, is fixed:
//
//  1. fold the candidate certainties in assertion order with the MYCIN
//     combine formula, where weak facts superseded by a reinforced fold
//     drop out of the combination (their symptoms still count as
//     evidence);
//  2. apply every recorded adjustment factor targeting the name, in
//     assertion order;
//  3. cap the result at the growth-stage ceiling carried by the name's
//     baseline fact, when one exists.
//
// Finalization rules and result extraction both call this, so the winner
// asserted during inference and the candidates reported afterwards can
// never disagree.
func Score(view domain.MemoryView, cat domain.Category) []domain.Conclusion {
	facts := view.FactsOfType(cat.CandidateFactType())
	if len(facts) == 0 {
		return nil
	}

	reinforced := make(map[string]bool)
	for _, f := range facts {
		if f.Sym(domain.AttrBasis) == domain.BasisReinforced {
			reinforced[f.Name()] = true
		}
	}

	type aggregate struct {
		cfs        []float64
		evidence   []string
		ceiling    float64
		hasCeiling bool
	}
	var names []string
	byName := make(map[string]*aggregate)

	for _, f := range facts {
		name := f.Name()
		agg, ok := byName[name]
		if !ok {
			agg = &aggregate{}
			byName[name] = agg
			names = append(names, name)
		}
		if s := f.Sym(domain.AttrSymptom); s != "" {
			agg.evidence = append(agg.evidence, s)
		}
		if f.Has(domain.AttrCeiling) {
			agg.ceiling = f.Num(domain.AttrCeiling)
			agg.hasCeiling = true
		}
		if reinforced[name] && f.Sym(domain.AttrBasis) == domain.BasisWeak {
			continue
		}
		agg.cfs = append(agg.cfs, f.Num(domain.AttrCF))
	}

	adjustments := view.FactsOfType(domain.FactAdjustment)

	out := make([]domain.Conclusion, 0, len(names))
	for _, name := range names {
		agg := byName[name]
		cf := domain.CombineAll(agg.cfs)
		for _, adj := range adjustments {
			if adj.Sym(domain.AttrTarget) == name {
				cf = domain.Adjust(cf, adj.Num(domain.AttrFactor))
			}
		}
		if agg.hasCeiling && cf > agg.ceiling {
			cf = agg.ceiling
		}
		out = append(out, domain.Conclusion{Name: name, CF: cf, Evidence: agg.evidence})
	}
	return domain.Rank(out)
}

// foldNamed combines the certainties currently recorded for one conclusion
// name, honoring reinforcement supersession but applying no adjustments.
// Modifier rules use it to snapshot the pre-adjustment certainty.
func foldNamed(view domain.MemoryView, t domain.FactType, name string) float64 {
	reinforced := false
	for _, f := range view.FactsOfType(t) {
		if f.Name() == name && f.Sym(domain.AttrBasis) == domain.BasisReinforced {
			reinforced = true
			break
		}
	}
	var cfs []float64
	for _, f := range view.FactsOfType(t) {
		if f.Name() != name {
			continue
		}
		if reinforced && f.Sym(domain.AttrBasis) == domain.BasisWeak {
			continue
		}
		cfs = append(cfs, f.Num(domain.AttrCF))
	}
	return domain.CombineAll(cfs)
}
