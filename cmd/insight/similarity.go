package main

import (
	"fmt"

	"github.com/panbanda/insight/internal/output"
	"github.com/panbanda/insight/internal/progress"
	"github.com/panbanda/insight/internal/service/analysis"
	"github.com/spf13/cobra"
)

var similarityCmd = &cobra.Command{
	Use:     "similarity [path|owner/repo]",
	Aliases: []string{"sim"},
	Short:   "Cluster functions by embedding similarity",
	Long: `Embed every function with the configured embedding backend, cluster the
vectors with k-means, and list the most similar function pairs. Requires a
reachable embedding backend (Ollama by default).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSimilarity,
}

func init() {
	rootCmd.AddCommand(similarityCmd)
}

func runSimilarity(cmd *cobra.Command, args []string) error {
	svc := newService(cmd.Context(), analysis.KindSimilarity)
	files, dir, err := loadFiles(cmd, svc, args)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(cmd)
	if err != nil {
		return err
	}
	defer formatter.Close()

	spinner := progress.NewSpinner("Embedding functions...")
	result, err := svc.AnalyzeSimilarity(cmd.Context(), files)
	if err != nil {
		spinner.FinishError(err)
		return outputFailure(formatter, err)
	}
	spinner.FinishSuccess()

	return formatter.Output(&output.Report{
		Title:    fmt.Sprintf("Similarity: %s", dir),
		Sections: similarityTables(result),
		Data:     result,
	})
}
