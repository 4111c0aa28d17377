package main

import (
	"fmt"

	"github.com/panbanda/insight/internal/output"
	"github.com/panbanda/insight/internal/progress"
	"github.com/spf13/cobra"
)

var callgraphCmd = &cobra.Command{
	Use:     "callgraph [path|owner/repo]",
	Aliases: []string{"graph"},
	Short:   "Print the cross-file call graph",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runCallGraph,
}

func init() {
	rootCmd.AddCommand(callgraphCmd)
}

func runCallGraph(cmd *cobra.Command, args []string) error {
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

	spinner := progress.NewSpinner("Building call graph...")
	g, err := svc.BuildCallGraph(cmd.Context(), files)
	if err != nil {
		spinner.FinishError(err)
		return outputFailure(formatter, err)
	}
	spinner.FinishSuccess()

	report := g.Report()
	return formatter.Output(&output.Report{
		Title:    fmt.Sprintf("Call Graph: %s", dir),
		Sections: []output.Renderable{callGraphTable(report)},
		Data:     report,
	})
}
