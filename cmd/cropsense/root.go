package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cropsense-ai/cropsense/internal/buildconfig"
)

var rootCmd = &cobra.Command{
	Use:   "cropsense",
	Short: "Rule-based diagnosis for tomato diseases and nutrient deficiencies",
	Long: "Cropsense runs a certainty-factor rule engine over field observations\n" +
		"and reports the most plausible diseases, nutrient deficiencies, and a\n" +
		"triage level for the planting.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(symptomsCmd)
	rootCmd.Version = buildconfig.Version()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
