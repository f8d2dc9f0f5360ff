package engine

import (
	"fmt"

	"github.com/cropsense-ai/cropsense/internal/domain"
)

// nameKey indexes conclusion facts by (type, name) so negated-existence
// guards resolve without scanning.
type nameKey struct {
	t    domain.FactType
	name string
}

// WorkingMemory is the append-only fact set for one diagnostic session.
// Facts receive a monotonically increasing sequence number on assert;
// recency ordering in conflict resolution relies on it. A session owns
// its working memory exclusively, so no locking is needed.
type WorkingMemory struct {
	facts  []domain.Fact
	byType map[domain.FactType][]int
	byName map[nameKey][]int
}

// NewWorkingMemory returns an empty working memory.
func NewWorkingMemory() *WorkingMemory {
	wm := &WorkingMemory{}
	wm.Reset()
	return wm
}

// Reset clears all facts. Sessions never share residue.
func (wm *WorkingMemory) Reset() {
	wm.facts = nil
	wm.byType = make(map[domain.FactType][]int)
	wm.byName = make(map[nameKey][]int)
}

// Assert validates the fact against the template registry, clamps its
// certainty slots, stamps it with the next sequence number, and appends
// it. Facts are never mutated or retracted afterwards.
func (wm *WorkingMemory) Assert(f domain.Fact) (domain.Fact, error) {
	if err := domain.ValidateFact(f); err != nil {
		return domain.Fact{}, fmt.Errorf("assert: %w", err)
	}
	f = f.ClampCFs().WithSeq(len(wm.facts) + 1)

	idx := len(wm.facts)
	wm.facts = append(wm.facts, f)
	wm.byType[f.Type] = append(wm.byType[f.Type], idx)
	if name := f.Name(); name != "" {
		k := nameKey{t: f.Type, name: name}
		wm.byName[k] = append(wm.byName[k], idx)
	}
	return f, nil
}

// Len returns the number of asserted facts.
func (wm *WorkingMemory) Len() int { return len(wm.facts) }

// Facts returns all facts in assertion order.
func (wm *WorkingMemory) Facts() []domain.Fact {
	out := make([]domain.Fact, len(wm.facts))
	copy(out, wm.facts)
	return out
}

// FactsOfType returns the facts of one template in assertion order.
func (wm *WorkingMemory) FactsOfType(t domain.FactType) []domain.Fact {
	idxs := wm.byType[t]
	out := make([]domain.Fact, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, wm.facts[i])
	}
	return out
}

// FactsNamed returns the facts of one template carrying the given name.
func (wm *WorkingMemory) FactsNamed(t domain.FactType, name string) []domain.Fact {
	idxs := wm.byName[nameKey{t: t, name: name}]
	out := make([]domain.Fact, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, wm.facts[i])
	}
	return out
}

// Exists reports whether any fact of the template satisfies pred.
// A nil pred matches any fact of the type.
func (wm *WorkingMemory) Exists(t domain.FactType, pred func(domain.Fact) bool) bool {
	for _, i := range wm.byType[t] {
		if pred == nil || pred(wm.facts[i]) {
			return true
		}
	}
	return false
}

var _ domain.MemoryView = (*WorkingMemory)(nil)
