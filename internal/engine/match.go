package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cropsense-ai/cropsense/internal/domain"
)

// activation is one rule matched against one specific set of facts, a
// candidate to fire. The same rule yields a separate activation for every
// distinct way its conditions match.
type activation struct {
	ruleIdx  int
	rule     *domain.Rule
	bindings domain.Bindings
	// matched holds the sequence numbers of positively matched facts in
	// condition order. Negated conditions contribute nothing.
	matched []int
	// recency is the highest sequence among matched facts; activations
	// touching newer facts win ties within a priority band.
	recency int
}

// key identifies the activation for refraction: a rule never fires twice
// on the same matched facts.
func (a *activation) key() string {
	parts := make([]string, 0, len(a.matched)+1)
	parts = append(parts, fmt.Sprintf("r%d", a.ruleIdx))
	for _, seq := range a.matched {
		parts = append(parts, fmt.Sprintf("%d", seq))
	}
	return strings.Join(parts, ":")
}

// matchAttr tests one attribute constraint against a fact, extending the
// bindings on success. Negated evaluation passes bind=false so wildcard
// variables never leak bindings out of an absence check.
func matchAttr(f domain.Fact, m domain.AttrMatch, b domain.Bindings, bind bool) (domain.Bindings, bool) {
	v, ok := f.Get(m.Attr)
	if !ok {
		return b, false
	}
	switch m.Op {
	case domain.OpEqSym:
		if v.Kind != domain.KindSymbol || v.Sym != m.Sym {
			return b, false
		}
	case domain.OpAtLeast:
		if v.Kind == domain.KindSymbol || v.Num < m.Num {
			return b, false
		}
	case domain.OpAtMost:
		if v.Kind == domain.KindSymbol || v.Num > m.Num {
			return b, false
		}
	case domain.OpBind:
		if bound, ok := b.Lookup(m.Var); ok {
			if !bound.Equal(v) {
				return b, false
			}
			return b, true
		}
		if bind {
			b = b.Clone()
			b[m.Var] = v
		}
	case domain.OpNeVar:
		bound, ok := b.Lookup(m.Var)
		if ok && bound.Equal(v) {
			return b, false
		}
	case domain.OpNeSym:
		if v.Kind == domain.KindSymbol && v.Sym == m.Sym {
			return b, false
		}
	}
	return b, true
}

// matchFact tests every attribute constraint of a condition against one
// fact under the current bindings.
func matchFact(f domain.Fact, c domain.Condition, b domain.Bindings, bind bool) (domain.Bindings, bool) {
	cur := b
	for _, m := range c.Matches {
		var ok bool
		cur, ok = matchAttr(f, m, cur, bind)
		if !ok {
			return b, false
		}
	}
	return cur, true
}

// absenceHolds evaluates a negated condition: true iff no fact of the
// template matches under the current bindings. Unbound variables inside
// the pattern act as wildcards. Re-evaluated freshly every cycle, since
// facts asserted after the rule was last considered can invalidate it.
func absenceHolds(wm *WorkingMemory, c domain.Condition, b domain.Bindings) bool {
	for _, f := range wm.FactsOfType(c.Type) {
		if _, ok := matchFact(f, c, b, false); ok {
			return false
		}
	}
	return true
}

// matchRule computes every activation of one rule against current working
// memory via backtracking search over the conditions in order.
func matchRule(wm *WorkingMemory, rule *domain.Rule, ruleIdx int) []activation {
	var out []activation

	var walk func(condIdx int, b domain.Bindings, matched []int)
	walk = func(condIdx int, b domain.Bindings, matched []int) {
		if condIdx == len(rule.Conditions) {
			recency := 0
			snapshot := make([]int, len(matched))
			copy(snapshot, matched)
			for _, seq := range snapshot {
				if seq > recency {
					recency = seq
				}
			}
			out = append(out, activation{
				ruleIdx:  ruleIdx,
				rule:     rule,
				bindings: b,
				matched:  snapshot,
				recency:  recency,
			})
			return
		}

		c := rule.Conditions[condIdx]
		if c.Negated {
			if absenceHolds(wm, c, b) {
				walk(condIdx+1, b, matched)
			}
			return
		}

		for _, f := range wm.FactsOfType(c.Type) {
			if c.Distinct && contains(matched, f.Seq()) {
				continue
			}
			if next, ok := matchFact(f, c, b, true); ok {
				walk(condIdx+1, next, append(matched, f.Seq()))
			}
		}
	}

	walk(0, domain.Bindings{}, nil)
	return out
}

func contains(seqs []int, seq int) bool {
	for _, s := range seqs {
		if s == seq {
			return true
		}
	}
	return false
}

// matchAll recomputes the full activation set, dropping activations that
// already fired (refraction).
func matchAll(wm *WorkingMemory, rules []domain.Rule, fired map[string]bool) []activation {
	var acts []activation
	for i := range rules {
		for _, a := range matchRule(wm, &rules[i], i) {
			if !fired[a.key()] {
				acts = append(acts, a)
			}
		}
	}
	return acts
}

// orderActivations sorts candidates into firing order: priority descending,
// then recency of the newest matched fact descending, then declaration
// order ascending. The remaining comparisons make the order total so runs
// are fully deterministic.
func orderActivations(acts []activation) {
	sort.SliceStable(acts, func(i, j int) bool {
		a, b := acts[i], acts[j]
		if a.rule.Priority != b.rule.Priority {
			return a.rule.Priority > b.rule.Priority
		}
		if a.recency != b.recency {
			return a.recency > b.recency
		}
		if a.ruleIdx != b.ruleIdx {
			return a.ruleIdx < b.ruleIdx
		}
		// same rule and same newest fact: compare the remaining matched
		// facts pairwise in condition order, newer first
		for k := 0; k < len(a.matched) && k < len(b.matched); k++ {
			if a.matched[k] != b.matched[k] {
				return a.matched[k] > b.matched[k]
			}
		}
		return len(a.matched) > len(b.matched)
	})
}
