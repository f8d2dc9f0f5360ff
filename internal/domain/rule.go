package domain

// Var names a pattern variable shared across a rule's conditions.
type Var string

// MatchOp is the constraint a condition places on one attribute.
type MatchOp uint8

const (
	// OpEqSym requires the attribute to equal a literal symbol.
	OpEqSym MatchOp = iota + 1
	// OpAtLeast requires a numeric attribute >= the literal.
	OpAtLeast
	// OpAtMost requires a numeric attribute <= the literal.
	OpAtMost
	// OpBind binds the attribute to a variable, or tests equality when the
	// variable is already bound by an earlier condition.
	OpBind
	// OpNeVar requires the attribute to differ from a bound variable.
	OpNeVar
	// OpNeSym requires a symbolic attribute to differ from a literal.
	OpNeSym
)

// AttrMatch is one attribute constraint within a condition.
type AttrMatch struct {
	Attr Attr
	Op   MatchOp
	Sym  string
	Num  float64
	Var  Var
}

// Condition matches (or, when negated, requires the absence of) one fact.
// A negated condition never binds variables; it is re-evaluated freshly
// every cycle because later assertions can invalidate it.
type Condition struct {
	Negated bool
	Type    FactType
	Matches []AttrMatch
	// Distinct forbids this condition from matching a fact already matched
	// by an earlier condition of the same rule. Needed where a rule pairs
	// two facts of the same template, e.g. corroborating weak evidence.
	Distinct bool
}

// Bindings maps pattern variables to the values they matched.
type Bindings map[Var]Value

// Lookup returns a bound value.
func (b Bindings) Lookup(v Var) (Value, bool) {
	val, ok := b[v]
	return val, ok
}

// Num returns a bound numeric value, or 0 when unbound or symbolic.
func (b Bindings) Num(v Var) float64 {
	if val, ok := b[v]; ok && val.Kind != KindSymbol {
		return val.Num
	}
	return 0
}

// Sym returns a bound symbol, or "" when unbound or numeric.
func (b Bindings) Sym(v Var) string {
	if val, ok := b[v]; ok && val.Kind == KindSymbol {
		return val.Sym
	}
	return ""
}

// Clone copies the binding set; matching extends copies, never the parent.
func (b Bindings) Clone() Bindings {
	out := make(Bindings, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	return out
}

// MemoryView is the read-only slice of working memory an action may
// consult while computing the fact it asserts.
type MemoryView interface {
	FactsOfType(t FactType) []Fact
	Exists(t FactType, pred func(Fact) bool) bool
}

// Action computes the single fact a firing asserts.
type Action func(view MemoryView, b Bindings) (Fact, error)

// Rule is a static definition: an ordered conjunction of conditions, a
// priority (higher fires first), and an action asserting exactly one fact.
// Declaration order within the knowledge base is the final tiebreak.
type Rule struct {
	ID         string
	Priority   int
	Conditions []Condition
	Assert     Action
}
