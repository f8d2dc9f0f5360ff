package main

import (
	"fmt"

	"github.com/cropsense-ai/cropsense/internal/kb"
	"github.com/spf13/cobra"
)

var symptomsFlags struct {
	category string
}

var symptomsCmd = &cobra.Command{
	Use:   "symptoms",
	Short: "List the observable symptom catalog",
	RunE:  runSymptoms,
}

func init() {
	symptomsCmd.Flags().StringVar(&symptomsFlags.category, "category", "", "Only list symptoms in this category")
}

func runSymptoms(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	lastCategory := ""
	listed := 0
	for _, s := range kb.Symptoms() {
		if symptomsFlags.category != "" && s.Category != symptomsFlags.category {
			continue
		}
		if s.Category != lastCategory {
			if lastCategory != "" {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%s\n", s.Category)
			lastCategory = s.Category
		}
		fmt.Fprintf(out, "  %-32s %s\n", s.Name, s.Description)
		listed++
	}
	if listed == 0 {
		return fmt.Errorf("no symptoms in category %q", symptomsFlags.category)
	}
	return nil
}
