package main

import (
	"fmt"

	"github.com/panbanda/insight/internal/output"
	"github.com/panbanda/insight/internal/progress"
	"github.com/spf13/cobra"
)

var complexityCmd = &cobra.Command{
	Use:     "complexity [path|owner/repo]",
	Aliases: []string{"cx"},
	Short:   "Report cyclomatic complexity and maintainability",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runComplexity,
}

func init() {
	complexityCmd.Flags().Int("top", 20, "Number of most complex functions to list (0 for all)")
	rootCmd.AddCommand(complexityCmd)
}

func runComplexity(cmd *cobra.Command, args []string) error {
	top, _ := cmd.Flags().GetInt("top")

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

	spinner := progress.NewSpinner("Measuring complexity...")
	result, err := svc.AnalyzeComplexity(cmd.Context(), files)
	if err != nil {
		spinner.FinishError(err)
		return outputFailure(formatter, err)
	}
	spinner.FinishSuccess()

	threshold := svc.Config().Thresholds.ComplexFunction
	if err := formatter.Output(&output.Report{
		Title:    fmt.Sprintf("Complexity: %s", dir),
		Sections: complexityTables(result, threshold, top, formatter.Colored()),
		Data:     result,
	}); err != nil {
		return err
	}

	if formatter.Format() == output.FormatText && result.Summary.ComplexFunctions > 0 {
		formatter.Warning("%d functions exceed cyclomatic complexity %d", result.Summary.ComplexFunctions, threshold)
	}
	return nil
}
