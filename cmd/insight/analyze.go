package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/panbanda/insight/internal/output"
	"github.com/panbanda/insight/internal/progress"
	"github.com/panbanda/insight/internal/service/analysis"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path|owner/repo]",
	Short: "Run every enabled analysis and print a combined report",
	Long: `Run the enabled analyses concurrently. One analysis failing, for
example similarity without an embedding backend, does not stop the others;
its failure is reported in place of its section.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringSlice("analyses", nil, "Analyses to run: complexity, orphans, patterns, similarity (default from config)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	names, _ := cmd.Flags().GetStringSlice("analyses")
	kinds, err := analysis.ParseKinds(names)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	svc := newService(ctx, kinds...)
	if len(kinds) == 0 {
		kinds = svc.EnabledKinds()
		if slices.Contains(kinds, analysis.KindSimilarity) {
			svc = newService(ctx, kinds...)
		}
	}

	files, dir, err := loadFiles(cmd, svc, args)
	if err != nil {
		return err
	}

	spinner := progress.NewSpinner(fmt.Sprintf("Running %s...", kindList(kinds)))
	report, err := svc.Run(ctx, files, kinds)
	if err != nil {
		spinner.FinishError(err)
		return err
	}
	spinner.FinishSuccess()

	formatter, err := newFormatter(cmd)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(&output.Report{
		Title:    fmt.Sprintf("Insight Report: %s (%d files)", dir, len(files)),
		Sections: reportSections(report, svc, formatter.Colored()),
		Data:     report.Data(),
	})
}

func kindList(kinds []analysis.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// reportSections renders each requested analysis, substituting a failure
// section where the analysis failed.
func reportSections(r *analysis.Report, svc *analysis.Service, colored bool) []output.Renderable {
	th := svc.Config().Thresholds
	var sections []output.Renderable

	switch {
	case r.Complexity.Failure != nil:
		sections = append(sections, failureSection("Complexity", r.Complexity.Failure))
	case r.Complexity.OK():
		sections = append(sections, complexityTables(r.Complexity.Value, th.ComplexFunction, 20, colored)...)
	}

	switch {
	case r.Orphan.Failure != nil:
		sections = append(sections, failureSection("Orphans", r.Orphan.Failure))
	case r.Orphan.OK():
		sections = append(sections, orphanTables(r.Orphan.Value)...)
	}

	switch {
	case r.Patterns.Failure != nil:
		sections = append(sections, failureSection("Patterns", r.Patterns.Failure))
	case r.Patterns.OK():
		sections = append(sections, patternTables(r.Patterns.Value, colored)...)
	}

	switch {
	case r.Similarity.Failure != nil:
		sections = append(sections, failureSection("Similarity", r.Similarity.Failure))
	case r.Similarity.OK():
		sections = append(sections, similarityTables(r.Similarity.Value)...)
	}

	return sections
}
