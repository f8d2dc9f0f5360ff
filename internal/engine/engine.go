package engine

import (
	"fmt"

	"github.com/cropsense-ai/cropsense/internal/domain"
	"go.uber.org/zap"
)

// DefaultMaxFirings bounds a session against a misconfigured rule set
// that never reaches quiescence. Exceeding it is a configuration error,
// never a silent truncation.
const DefaultMaxFirings = 500

// Engine runs forward-chaining inference over a working memory: match all
// rules, fire exactly one activation, re-match, until quiescent. It holds
// no per-session state, so one engine serves concurrent sessions as long
// as each session brings its own working memory.
type Engine struct {
	rules      []domain.Rule
	maxFirings int
	logger     *zap.Logger
}

// New builds an engine over a validated rule set. maxFirings <= 0 selects
// DefaultMaxFirings.
func New(rules []domain.Rule, maxFirings int, logger *zap.Logger) *Engine {
	if maxFirings <= 0 {
		maxFirings = DefaultMaxFirings
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{rules: rules, maxFirings: maxFirings, logger: logger}
}

// Run drives working memory to quiescence and returns the firing trace.
// Strict one-firing-per-cycle discipline: after every assert the full
// activation set is recomputed, because negated-existence guards and
// same-band orderings depend on facts asserted moments earlier.
func (e *Engine) Run(wm *WorkingMemory) ([]domain.TraceEntry, error) {
	fired := make(map[string]bool)
	var trace []domain.TraceEntry

	for {
		acts := matchAll(wm, e.rules, fired)
		if len(acts) == 0 {
			e.logger.Debug("inference quiescent", zap.Int("firings", len(trace)), zap.Int("facts", wm.Len()))
			return trace, nil
		}
		if len(trace) >= e.maxFirings {
			return nil, fmt.Errorf("%w: firing bound %d exceeded before quiescence", domain.ErrConfiguration, e.maxFirings)
		}

		orderActivations(acts)
		best := acts[0]

		fact, err := best.rule.Assert(wm, best.bindings)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %q action failed: %v", domain.ErrConfiguration, best.rule.ID, err)
		}
		asserted, err := wm.Assert(fact)
		if err != nil {
			return nil, fmt.Errorf("rule %q asserted malformed fact: %w", best.rule.ID, err)
		}

		fired[best.key()] = true
		entry := domain.TraceEntry{RuleID: best.rule.ID, Conclusion: concludedName(asserted)}
		trace = append(trace, entry)

		e.logger.Debug("rule fired",
			zap.String("rule", best.rule.ID),
			zap.String("conclusion", entry.Conclusion),
			zap.Int("priority", best.rule.Priority),
			zap.Int("cycle", len(trace)),
		)
	}
}

// concludedName extracts the name a firing concluded on, for the trace.
// Adjustment facts have no name slot; their target stands in.
func concludedName(f domain.Fact) string {
	if name := f.Name(); name != "" {
		return name
	}
	return f.Sym(domain.AttrTarget)
}
