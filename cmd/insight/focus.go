package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/panbanda/insight/internal/output"
	"github.com/panbanda/insight/internal/service/analysis"
	"github.com/panbanda/insight/pkg/analyzer/callgraph"
	"github.com/spf13/cobra"
)

var focusCmd = &cobra.Command{
	Use:   "focus <file|name|path::name> [path|owner/repo]",
	Short: "Show callers, callees, complexity and findings for one file or definition",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runFocus,
}

func init() {
	rootCmd.AddCommand(focusCmd)
}

func runFocus(cmd *cobra.Command, args []string) error {
	target := args[0]

	svc := newService(cmd.Context())
	files, _, err := loadFiles(cmd, svc, args[1:])
	if err != nil {
		return err
	}

	formatter, err := newFormatter(cmd)
	if err != nil {
		return err
	}
	defer formatter.Close()

	result, err := svc.FocusedContext(cmd.Context(), files, target)
	if errors.Is(err, analysis.ErrAmbiguousMatch) {
		if outErr := formatter.Output(candidateTable(target, result.Candidates)); outErr != nil {
			return outErr
		}
		return fmt.Errorf("%q matches %d definitions, use a qualified name", target, len(result.Candidates))
	}
	if err != nil {
		return outputFailure(formatter, err)
	}

	return formatter.Output(&output.Report{
		Title:    "Focus: " + target,
		Sections: focusSections(result),
		Data:     result,
	})
}

func candidateTable(target string, defs []callgraph.Definition) output.Renderable {
	rows := make([][]string, 0, len(defs))
	for _, d := range defs {
		rows = append(rows, []string{d.QualifiedName, d.Kind.String(), d.File, strconv.Itoa(int(d.Line))})
	}
	return output.NewTable(
		fmt.Sprintf("Candidates for %q", target),
		[]string{"Qualified Name", "Type", "File", "Line"},
		rows, nil, defs,
	)
}

func focusSections(r *analysis.FocusedContextResult) []output.Renderable {
	var sections []output.Renderable

	target := &output.Section{Title: "Target", Data: r.Target}
	if r.Target.Symbol != nil {
		s := r.Target.Symbol
		target.Content = fmt.Sprintf("%s %s at %s:%d", s.Kind, s.QualifiedName, s.File, s.Line)
	} else {
		target.Content = "file " + r.Target.Path
	}
	if r.Maintainability != nil {
		target.Content += fmt.Sprintf("\nMaintainability: %.2f, LOC: %d", r.Maintainability.MaintainabilityIndex, r.Maintainability.LOC)
	}
	sections = append(sections, target)

	if r.Target.Symbol != nil {
		sections = append(sections,
			nameTable("Callers", r.Callers),
			nameTable("Callees", r.Callees),
		)
	}

	if len(r.Complexity) > 0 {
		var rows [][]string
		for _, fm := range r.Complexity {
			rows = append(rows, []string{
				fm.Function,
				fmt.Sprintf("%d-%d", fm.LineStart, fm.LineEnd),
				strconv.Itoa(int(fm.CyclomaticComplexity)),
				strconv.Itoa(fm.LOC),
			})
		}
		sections = append(sections, output.NewTable("Complexity",
			[]string{"Function", "Lines", "Cyclomatic", "LOC"}, rows, nil, r.Complexity))
	}

	if len(r.AntiPatterns) > 0 {
		var rows [][]string
		for _, ap := range r.AntiPatterns {
			rows = append(rows, []string{ap.Severity.String(), ap.Type, ap.Function, ap.Details})
		}
		sections = append(sections, output.NewTable("Anti-Patterns",
			[]string{"Severity", "Type", "Function", "Details"}, rows, nil, r.AntiPatterns))
	}

	return sections
}

func nameTable(title string, names []string) output.Renderable {
	rows := make([][]string, 0, len(names))
	for _, n := range names {
		rows = append(rows, []string{n})
	}
	return output.NewTable(title, []string{"Name"}, rows, nil, names)
}
