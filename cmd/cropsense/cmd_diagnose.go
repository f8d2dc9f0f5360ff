package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cropsense-ai/cropsense/internal/domain"
	"github.com/cropsense-ai/cropsense/internal/kb"
	"github.com/cropsense-ai/cropsense/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var diagnoseFlags struct {
	stage    string
	symptoms []string
	casePath string
	asJSON   bool
	trace    bool
	verbose  bool
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Diagnose a planting from observed symptoms",
	Long: `Diagnose runs the rule engine over the observations given on the
command line or in a case file and prints the per-category conclusions.

Symptoms are given as name[:severity[:certainty]]:

  cropsense diagnose --stage vegetative \
      --symptom brown-leaf-spots:severe \
      --symptom yellow-halos

A case file carries the same observations in YAML:

  growth_stage: flowering
  symptoms:
    - name: brown-leaf-spots
      severity: severe
    - name: blossom-end-rot
      cf: 0.8

Run "cropsense symptoms" for the observable symptom catalog.`,
	RunE: runDiagnose,
}

func init() {
	f := diagnoseCmd.Flags()
	f.StringVar(&diagnoseFlags.stage, "stage", "", "Growth stage (default: vegetative)")
	f.StringArrayVar(&diagnoseFlags.symptoms, "symptom", nil, "Observed symptom as name[:severity[:certainty]] (repeatable)")
	f.StringVar(&diagnoseFlags.casePath, "case", "", "YAML case file with growth_stage and symptoms")
	f.BoolVar(&diagnoseFlags.asJSON, "json", false, "Print the full diagnosis record as JSON")
	f.BoolVar(&diagnoseFlags.trace, "trace", false, "Print the rule firing trace")
	f.BoolVar(&diagnoseFlags.verbose, "verbose", false, "Log each rule firing while the engine runs")
}

type caseFile struct {
	GrowthStage string `yaml:"growth_stage"`
	Symptoms    []struct {
		Name     string   `yaml:"name"`
		Severity string   `yaml:"severity"`
		CF       *float64 `yaml:"cf"`
	} `yaml:"symptoms"`
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	input, err := buildInput()
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	if diagnoseFlags.verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
	}

	svc := service.NewDiagnosisService(kb.Default(), nil, 0, logger)
	rec, err := svc.Diagnose(cmd.Context(), input)
	if err != nil {
		return err
	}

	if diagnoseFlags.asJSON {
		out, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	printReport(cmd.OutOrStdout(), rec, diagnoseFlags.trace)
	return nil
}

func buildInput() (domain.DiagnosisInput, error) {
	var input domain.DiagnosisInput

	if diagnoseFlags.casePath != "" {
		data, err := os.ReadFile(diagnoseFlags.casePath)
		if err != nil {
			return input, fmt.Errorf("read case file: %w", err)
		}
		var cf caseFile
		if err := yaml.Unmarshal(data, &cf); err != nil {
			return input, fmt.Errorf("parse case file: %w", err)
		}
		input.GrowthStage = cf.GrowthStage
		for _, s := range cf.Symptoms {
			input.Symptoms = append(input.Symptoms, domain.SymptomObservation{
				Name:     s.Name,
				Severity: domain.Severity(s.Severity),
				CF:       s.CF,
			})
		}
	}

	// Flags extend and override the case file.
	if diagnoseFlags.stage != "" {
		input.GrowthStage = diagnoseFlags.stage
	}
	for _, raw := range diagnoseFlags.symptoms {
		obs, err := parseObservation(raw)
		if err != nil {
			return input, err
		}
		input.Symptoms = append(input.Symptoms, obs)
	}
	return input, nil
}

func parseObservation(raw string) (domain.SymptomObservation, error) {
	parts := strings.SplitN(raw, ":", 3)
	obs := domain.SymptomObservation{Name: parts[0]}
	if len(parts) > 1 && parts[1] != "" {
		obs.Severity = domain.Severity(parts[1])
	}
	if len(parts) > 2 && parts[2] != "" {
		cf, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return obs, fmt.Errorf("bad certainty in %q: %w", raw, err)
		}
		obs.CF = &cf
	}
	return obs, nil
}

func printReport(w io.Writer, rec *domain.DiagnosisRecord, showTrace bool) {
	res := rec.Result
	fmt.Fprintf(w, "Stage: %s    Symptoms: %d    Firings: %d\n\n",
		rec.GrowthStage, len(rec.Symptoms), res.Firings)

	labels := map[domain.Category]string{
		domain.CategoryDisease:  "Disease: ",
		domain.CategoryNutrient: "Nutrient:",
		domain.CategoryTriage:   "Triage:  ",
	}
	for _, cat := range domain.AllCategories() {
		cr := res.PerCategory[cat]
		label := labels[cat]
		if cr.Winner == nil {
			fmt.Fprintf(w, "%s none detected\n", label)
			continue
		}
		win := cr.Winner

		if cat == domain.CategoryTriage {
			fmt.Fprintf(w, "%s %s\n", label, win.Explanation)
			continue
		}

		fmt.Fprintf(w, "%s %s - %s (%s)\n", label,
			kb.ConclusionDisplay(cat, win.Name),
			domain.ToPercentage(win.CF),
			domain.ToConfidenceLevel(win.CF))
		if len(win.Evidence) > 0 {
			names := make([]string, len(win.Evidence))
			for i, s := range win.Evidence {
				names[i] = kb.SymptomDisplay(s)
			}
			fmt.Fprintf(w, "          evidence: %s\n", strings.Join(names, ", "))
		}
		for i, c := range cr.Candidates {
			if c.Name == win.Name || i >= 3 {
				continue
			}
			fmt.Fprintf(w, "          also considered: %s (%s)\n",
				kb.ConclusionDisplay(cat, c.Name), domain.ToPercentage(c.CF))
		}
	}

	if len(res.Adjustments) > 0 {
		fmt.Fprintln(w, "\nCross-category adjustments:")
		for _, adj := range res.Adjustments {
			fmt.Fprintf(w, "  %s x%.2f from %s (%s -> %s)\n",
				adj.Target, adj.ImpactFactor, adj.Source,
				domain.ToPercentage(adj.OriginalCF), domain.ToPercentage(adj.AdjustedCF))
		}
	}

	if showTrace {
		fmt.Fprintf(w, "\nTrace (%d firings):\n", res.Firings)
		for _, entry := range res.Trace {
			if entry.Conclusion != "" {
				fmt.Fprintf(w, "  %-40s -> %s\n", entry.RuleID, entry.Conclusion)
			} else {
				fmt.Fprintf(w, "  %s\n", entry.RuleID)
			}
		}
	}
}
