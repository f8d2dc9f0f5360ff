package domain

import "sort"

// FactType names a working-memory record template.
type FactType string

const (
	FactSymptom       FactType = "symptom"
	FactGrowthStage   FactType = "growth-stage"
	FactDisease       FactType = "disease"
	FactNutrient      FactType = "nutrient"
	FactAdjustment    FactType = "adjustment"
	FactFinalDisease  FactType = "final-disease"
	FactFinalNutrient FactType = "final-nutrient"
	FactTriage        FactType = "triage"
)

// Attr names a slot within a fact template.
type Attr string

const (
	AttrName       Attr = "name"
	AttrCF         Attr = "cf"
	AttrSeverity   Attr = "severity"
	AttrBasis      Attr = "basis"
	AttrSymptom    Attr = "symptom"
	AttrTarget     Attr = "target"
	AttrSource     Attr = "source"
	AttrFactor     Attr = "impact-factor"
	AttrOriginalCF Attr = "original-cf"
	AttrAdjustedCF Attr = "adjusted-cf"
	AttrCeiling    Attr = "ceiling"
)

// Kind is the value class a slot holds.
type Kind uint8

const (
	// KindSymbol holds a name from a closed vocabulary.
	KindSymbol Kind = iota + 1
	// KindNumber holds an unconstrained float, e.g. an impact factor.
	KindNumber
	// KindCF holds a certainty factor, clamped to [-1, 1] on assert.
	KindCF
)

// Value is a single slot value, either a symbol or a number.
type Value struct {
	Kind Kind
	Sym  string
	Num  float64
}

// Symbol wraps a symbolic slot value.
func Symbol(s string) Value { return Value{Kind: KindSymbol, Sym: s} }

// Number wraps a plain numeric slot value.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// CF wraps a certainty-factor slot value.
func CF(f float64) Value { return Value{Kind: KindCF, Num: f} }

// Equal reports slot equality; symbols and numbers never compare equal.
func (v Value) Equal(o Value) bool {
	if v.Kind == KindSymbol || o.Kind == KindSymbol {
		return v.Kind == KindSymbol && o.Kind == KindSymbol && v.Sym == o.Sym
	}
	return v.Num == o.Num
}

// Basis values distinguish how a conclusion fact came to exist. Weak
// symptom evidence is superseded once a reinforced fact for the same
// conclusion name appears.
const (
	BasisBaseline   = "baseline"
	BasisStrong     = "strong"
	BasisMedium     = "medium"
	BasisWeak       = "weak"
	BasisReinforced = "reinforced"
)

// Fact is an immutable typed record. Working memory stamps each asserted
// fact with a session-unique sequence number used for recency ordering;
// a zero sequence means the fact has not been asserted yet.
type Fact struct {
	Type  FactType
	attrs map[Attr]Value
	seq   int
}

// NewFact builds a fact of the given type, copying the attribute map.
func NewFact(t FactType, attrs map[Attr]Value) Fact {
	copied := make(map[Attr]Value, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	return Fact{Type: t, attrs: copied}
}

// Seq returns the assertion sequence number (0 if unasserted).
func (f Fact) Seq() int { return f.seq }

// WithSeq returns a copy of the fact stamped with a sequence number.
func (f Fact) WithSeq(seq int) Fact {
	f.seq = seq
	return f
}

// Has reports whether the fact carries the attribute.
func (f Fact) Has(a Attr) bool {
	_, ok := f.attrs[a]
	return ok
}

// Get returns the raw attribute value.
func (f Fact) Get(a Attr) (Value, bool) {
	v, ok := f.attrs[a]
	return v, ok
}

// Sym returns a symbolic attribute, or "" if absent or non-symbolic.
func (f Fact) Sym(a Attr) string {
	if v, ok := f.attrs[a]; ok && v.Kind == KindSymbol {
		return v.Sym
	}
	return ""
}

// Num returns a numeric attribute, or 0 if absent or symbolic.
func (f Fact) Num(a Attr) float64 {
	if v, ok := f.attrs[a]; ok && v.Kind != KindSymbol {
		return v.Num
	}
	return 0
}

// Name returns the conclusion-name attribute shared by most templates.
func (f Fact) Name() string { return f.Sym(AttrName) }

// AttrNames returns the fact's attribute names in stable sorted order.
func (f Fact) AttrNames() []Attr {
	names := make([]Attr, 0, len(f.attrs))
	for a := range f.attrs {
		names = append(names, a)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// withAttr returns a copy with one attribute replaced. Used only by
// working memory to clamp certainty slots on assert.
func (f Fact) withAttr(a Attr, v Value) Fact {
	copied := make(map[Attr]Value, len(f.attrs))
	for k, val := range f.attrs {
		copied[k] = val
	}
	copied[a] = v
	f.attrs = copied
	return f
}

// ClampCFs returns a copy of the fact with every certainty-kind slot
// clamped to [-1, 1], per the template schema.
func (f Fact) ClampCFs() Fact {
	schema, ok := factSchema[f.Type]
	if !ok {
		return f
	}
	out := f
	for a, v := range f.attrs {
		if schema[a] == KindCF && (v.Num > 1.0 || v.Num < -1.0) {
			out = out.withAttr(a, CF(Clamp(v.Num)))
		}
	}
	return out
}

// NewSymptomFact builds an observed-symptom fact. The cf slot carries the
// observation certainty, already resolved by the session controller.
func NewSymptomFact(name, severity string, cf float64) Fact {
	return NewFact(FactSymptom, map[Attr]Value{
		AttrName:     Symbol(name),
		AttrSeverity: Symbol(severity),
		AttrCF:       CF(cf),
	})
}

// NewGrowthStageFact builds the context fact for a session.
func NewGrowthStageFact(stage string) Fact {
	return NewFact(FactGrowthStage, map[Attr]Value{
		AttrName: Symbol(stage),
	})
}

// NewConclusionFact builds a candidate conclusion (disease or nutrient)
// with its evidence basis and, for symptom evidence, the source symptom.
func NewConclusionFact(t FactType, name string, cf float64, basis, symptom string) Fact {
	attrs := map[Attr]Value{
		AttrName:  Symbol(name),
		AttrCF:    CF(cf),
		AttrBasis: Symbol(basis),
	}
	if symptom != "" {
		attrs[AttrSymptom] = Symbol(symptom)
	}
	return NewFact(t, attrs)
}

// NewBaselineFact builds a context-derived nutrient candidate carrying the
// growth-stage plausibility ceiling for that nutrient.
func NewBaselineFact(name string, cf, ceiling float64) Fact {
	return NewFact(FactNutrient, map[Attr]Value{
		AttrName:    Symbol(name),
		AttrCF:      CF(cf),
		AttrBasis:   Symbol(BasisBaseline),
		AttrCeiling: CF(ceiling),
	})
}

// NewAdjustmentFact records one cross-category modification.
func NewAdjustmentFact(target, source string, factor, original, adjusted float64) Fact {
	return NewFact(FactAdjustment, map[Attr]Value{
		AttrTarget:     Symbol(target),
		AttrSource:     Symbol(source),
		AttrFactor:     Number(factor),
		AttrOriginalCF: CF(original),
		AttrAdjustedCF: CF(adjusted),
	})
}

// NewFinalFact builds the per-category winner fact asserted by finalization.
func NewFinalFact(t FactType, name string, cf float64) Fact {
	return NewFact(t, map[Attr]Value{
		AttrName: Symbol(name),
		AttrCF:   CF(cf),
	})
}

// NewTriageFact builds the session triage conclusion. The level doubles as
// the fact's name slot so the one-per-session guard can use the name index.
func NewTriageFact(level string, cf float64) Fact {
	return NewFact(FactTriage, map[Attr]Value{
		AttrName: Symbol(level),
		AttrCF:   CF(cf),
	})
}
