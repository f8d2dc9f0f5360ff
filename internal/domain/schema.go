package domain

import "fmt"

// factSchema is the closed template registry: every fact type, its slots,
// and each slot's value kind. Conditions and asserted facts are checked
// against it when the knowledge base is constructed, so the engine can
// assume a validated rule set at match time.
var factSchema = map[FactType]map[Attr]Kind{
	FactSymptom: {
		AttrName:     KindSymbol,
		AttrSeverity: KindSymbol,
		AttrCF:       KindCF,
	},
	FactGrowthStage: {
		AttrName: KindSymbol,
	},
	FactDisease: {
		AttrName:    KindSymbol,
		AttrCF:      KindCF,
		AttrBasis:   KindSymbol,
		AttrSymptom: KindSymbol,
	},
	FactNutrient: {
		AttrName:    KindSymbol,
		AttrCF:      KindCF,
		AttrBasis:   KindSymbol,
		AttrSymptom: KindSymbol,
		AttrCeiling: KindCF,
	},
	FactAdjustment: {
		AttrTarget:     KindSymbol,
		AttrSource:     KindSymbol,
		AttrFactor:     KindNumber,
		AttrOriginalCF: KindCF,
		AttrAdjustedCF: KindCF,
	},
	FactFinalDisease: {
		AttrName: KindSymbol,
		AttrCF:   KindCF,
	},
	FactFinalNutrient: {
		AttrName: KindSymbol,
		AttrCF:   KindCF,
	},
	FactTriage: {
		AttrName: KindSymbol,
		AttrCF:   KindCF,
	},
}

// KnownFactType reports whether the template registry defines the type.
func KnownFactType(t FactType) bool {
	_, ok := factSchema[t]
	return ok
}

// AttrKind looks up the declared kind of a slot, or 0 if undeclared.
func AttrKind(t FactType, a Attr) Kind {
	return factSchema[t][a]
}

// ValidateFact checks an asserted fact against its template: the type must
// be registered and every slot must be declared with a matching kind.
func ValidateFact(f Fact) error {
	schema, ok := factSchema[f.Type]
	if !ok {
		return fmt.Errorf("%w: unknown fact type %q", ErrConfiguration, f.Type)
	}
	for _, a := range f.AttrNames() {
		kind, declared := schema[a]
		if !declared {
			return fmt.Errorf("%w: fact type %q has no attribute %q", ErrConfiguration, f.Type, a)
		}
		v, _ := f.Get(a)
		switch kind {
		case KindSymbol:
			if v.Kind != KindSymbol {
				return fmt.Errorf("%w: attribute %q of %q must be a symbol", ErrConfiguration, a, f.Type)
			}
		default:
			if v.Kind == KindSymbol {
				return fmt.Errorf("%w: attribute %q of %q must be numeric", ErrConfiguration, a, f.Type)
			}
		}
	}
	return nil
}

// ValidateRule type-checks a rule's conditions against the template
// registry. Schema mismatches surface at knowledge-base construction,
// never during a session.
func ValidateRule(r Rule) error {
	if r.ID == "" {
		return fmt.Errorf("%w: rule with empty id", ErrConfiguration)
	}
	if len(r.Conditions) == 0 {
		return fmt.Errorf("%w: rule %q has no conditions", ErrConfiguration, r.ID)
	}
	if r.Assert == nil {
		return fmt.Errorf("%w: rule %q has no action", ErrConfiguration, r.ID)
	}
	for i, c := range r.Conditions {
		schema, ok := factSchema[c.Type]
		if !ok {
			return fmt.Errorf("%w: rule %q condition %d references unknown fact type %q", ErrConfiguration, r.ID, i, c.Type)
		}
		for _, m := range c.Matches {
			kind, declared := schema[m.Attr]
			if !declared {
				return fmt.Errorf("%w: rule %q condition %d references unknown attribute %q of %q", ErrConfiguration, r.ID, i, m.Attr, c.Type)
			}
			switch m.Op {
			case OpEqSym, OpNeSym:
				if kind != KindSymbol {
					return fmt.Errorf("%w: rule %q condition %d compares numeric attribute %q to a symbol", ErrConfiguration, r.ID, i, m.Attr)
				}
			case OpAtLeast, OpAtMost:
				if kind == KindSymbol {
					return fmt.Errorf("%w: rule %q condition %d applies a numeric bound to symbol attribute %q", ErrConfiguration, r.ID, i, m.Attr)
				}
			case OpBind, OpNeVar:
				// any kind binds
			default:
				return fmt.Errorf("%w: rule %q condition %d has unknown match op %d", ErrConfiguration, r.ID, i, m.Op)
			}
			if (m.Op == OpBind || m.Op == OpNeVar) && m.Var == "" {
				return fmt.Errorf("%w: rule %q condition %d binds an empty variable", ErrConfiguration, r.ID, i)
			}
		}
	}
	return nil
}
