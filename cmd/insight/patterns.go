package main

import (
	"fmt"
	"strings"

	"github.com/panbanda/insight/internal/output"
	"github.com/panbanda/insight/internal/progress"
	"github.com/panbanda/insight/pkg/analyzer/patterns"
	"github.com/panbanda/insight/pkg/security"
	"github.com/spf13/cobra"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns [path|owner/repo]",
	Short: "Mine structural patterns and flag anti-patterns",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPatterns,
}

func init() {
	patternsCmd.Flags().String("severity", "", "Only list anti-patterns of this severity (LOW, MEDIUM, HIGH)")
	rootCmd.AddCommand(patternsCmd)
}

func runPatterns(cmd *cobra.Command, args []string) error {
	severity, _ := cmd.Flags().GetString("severity")
	if severity != "" {
		if err := security.ValidateLevel(severity); err != nil {
			return err
		}
	}

	svc := newService(cmd.Context())
	files, dir, err := loadFiles(cmd, svc, args)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(cmd)
	if err != nil {
		return err
	}
	defer formatter.Close()

	spinner := progress.NewSpinner("Extracting patterns...")
	result, err := svc.AnalyzePatterns(cmd.Context(), files)
	if err != nil {
		spinner.FinishError(err)
		return outputFailure(formatter, err)
	}
	spinner.FinishSuccess()

	if severity != "" {
		result.AntiPatterns = filterSeverity(result.AntiPatterns, severity)
	}

	return formatter.Output(&output.Report{
		Title:    fmt.Sprintf("Patterns: %s", dir),
		Sections: patternTables(result, formatter.Colored()),
		Data:     result,
	})
}

func filterSeverity(in []patterns.AntiPattern, severity string) []patterns.AntiPattern {
	var out []patterns.AntiPattern
	for _, ap := range in {
		if strings.EqualFold(ap.Severity.String(), severity) {
			out = append(out, ap)
		}
	}
	return out
}
