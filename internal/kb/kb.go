// Package kb holds the built-in diagnostic knowledge: the closed symptom
// catalog, the growth-stage baselines, the rule bands that drive
// inference, and the scoring policy that turns candidate facts into
// ranked conclusions. Everything here is static data validated once at
// construction; a knowledge base is read-only afterwards and safe to
// share across concurrent sessions.
package kb

import (
	"fmt"

	"github.com/cropsense-ai/cropsense/internal/domain"
)

// KnowledgeBase is a validated, ordered rule set. Order is significant:
// declaration position is the final conflict-resolution tiebreak.
type KnowledgeBase struct {
	rules []domain.Rule
}

// New type-checks every rule against the fact schema and wraps the set.
// A malformed rule fails construction atomically; nothing half-validated
// ever reaches the engine.
func New(rules []domain.Rule) (*KnowledgeBase, error) {
	for i := range rules {
		if err := domain.ValidateRule(rules[i]); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return &KnowledgeBase{rules: rules}, nil
}

// Default returns the built-in tomato knowledge base. It panics when the
// built-in rules fail validation, which is a programming error caught by
// the package tests, never a runtime condition.
func Default() *KnowledgeBase {
	k, err := New(assemble())
	if err != nil {
		panic(err)
	}
	return k
}

// Rules returns the ordered rule definitions. Callers must treat the
// slice as read-only.
func (k *KnowledgeBase) Rules() []domain.Rule { return k.rules }

// Len returns the number of rules.
func (k *KnowledgeBase) Len() int { return len(k.rules) }
