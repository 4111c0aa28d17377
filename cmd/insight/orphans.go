package main

import (
	"fmt"

	"github.com/panbanda/insight/internal/output"
	"github.com/panbanda/insight/internal/progress"
	"github.com/spf13/cobra"
)

var orphansCmd = &cobra.Command{
	Use:     "orphans [path|owner/repo]",
	Aliases: []string{"dead"},
	Short:   "Find functions and classes nothing calls",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runOrphans,
}

func init() {
	orphansCmd.Flags().Bool("classes-only", false, "List orphan classes only")
	rootCmd.AddCommand(orphansCmd)
}

func runOrphans(cmd *cobra.Command, args []string) error {
	classesOnly, _ := cmd.Flags().GetBool("classes-only")

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
	result, err := svc.AnalyzeOrphans(cmd.Context(), files)
	if err != nil {
		spinner.FinishError(err)
		return outputFailure(formatter, err)
	}
	spinner.FinishSuccess()

	if classesOnly {
		result.OrphanFunctions = nil
	}

	return formatter.Output(&output.Report{
		Title:    fmt.Sprintf("Orphans: %s", dir),
		Sections: orphanTables(result),
		Data:     result,
	})
}
