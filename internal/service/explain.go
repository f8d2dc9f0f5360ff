package service

import (
	"fmt"
	"strings"

	"github.com/cropsense-ai/cropsense/internal/domain"
	"github.com/cropsense-ai/cropsense/internal/kb"
)

// triageAdvice is the field recommendation attached to each triage level.
var triageAdvice = map[string]string{
	kb.TriageUrgent:  "Treat affected plants now and isolate or remove severely infected ones to slow the spread.",
	kb.TriageMonitor: "Re-inspect the planting within two to three days and track whether symptoms reach new leaves.",
	kb.TriageRoutine: "No acute signals detected. Keep to the regular scouting and feeding schedule.",
}

// TriageRecommendation returns the field advice for a triage level, or an
// empty string for an unknown level.
func TriageRecommendation(level string) string {
	return triageAdvice[level]
}

// explainConclusion renders the one-line explanation for a conclusion in
// its category's vocabulary.
func explainConclusion(cat domain.Category, c domain.Conclusion) string {
	if cat == domain.CategoryTriage {
		return explainTriage(c)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s at %s certainty (%s confidence)",
		kb.ConclusionDisplay(cat, c.Name),
		domain.ToPercentage(c.CF),
		domain.ToConfidenceLevel(c.CF))
	if len(c.Evidence) > 0 {
		names := make([]string, len(c.Evidence))
		for i, s := range c.Evidence {
			names[i] = kb.SymptomDisplay(s)
		}
		fmt.Fprintf(&b, ", indicated by %s", strings.Join(names, ", "))
	}
	b.WriteString(".")
	return b.String()
}

func explainTriage(c domain.Conclusion) string {
	advice := triageAdvice[c.Name]
	if advice == "" {
		return fmt.Sprintf("%s priority.", titleWord(c.Name))
	}
	return fmt.Sprintf("%s priority at %s certainty. %s",
		titleWord(c.Name), domain.ToPercentage(c.CF), advice)
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
