package main

import (
	"fmt"

	"github.com/panbanda/insight/internal/output"
	"github.com/panbanda/insight/pkg/chunker"
	"github.com/spf13/cobra"
)

var chunkCmd = &cobra.Command{
	Use:   "chunk [path|owner/repo]",
	Short: "Split sources into retrieval chunks",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runChunk,
}

func init() {
	chunkCmd.Flags().Int("chunk-size", 0, "Target chunk size in characters (default from config)")
	chunkCmd.Flags().Int("overlap-lines", -1, "Lines carried into the next chunk (default from config)")
	chunkCmd.Flags().Int("budget", output.DefaultBudget, "Token budget used for the usage percentage")
	rootCmd.AddCommand(chunkCmd)
}

func runChunk(cmd *cobra.Command, args []string) error {
	c := activeConfig().Chunker
	size, overlap := c.ChunkSize, c.OverlapLines
	if v, _ := cmd.Flags().GetInt("chunk-size"); v > 0 {
		size = v
	}
	if v, _ := cmd.Flags().GetInt("overlap-lines"); v >= 0 {
		overlap = v
	}
	budget, _ := cmd.Flags().GetInt("budget")

	svc := newService(cmd.Context())
	files, dir, err := loadFiles(cmd, svc, args)
	if err != nil {
		return err
	}

	chunks := chunker.New(size, overlap).ChunkFiles(files)

	formatter, err := newFormatter(cmd)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(chunkTable(dir, chunks, budget))
}

func chunkTable(dir string, chunks []chunker.Chunk, budget int) output.Renderable {
	total := 0
	rows := make([][]string, 0, len(chunks))
	for _, ch := range chunks {
		tokens := output.EstimateTokens(ch.Content)
		total += tokens
		rows = append(rows, []string{
			ch.ID,
			ch.FilePath,
			fmt.Sprintf("%d-%d", ch.StartLine, ch.EndLine),
			ch.Type,
			output.FormatTokenCount(tokens),
		})
	}
	return output.NewTable(
		"Chunks: "+dir,
		[]string{"ID", "File", "Lines", "Type", "Tokens"},
		rows,
		[]string{
			fmt.Sprintf("Chunks: %d", len(chunks)),
			"",
			"",
			"",
			fmt.Sprintf("%s (%.1f%% of %s)", output.FormatTokenCount(total), output.BudgetUsage(total, budget), output.FormatTokenCount(budget)),
		},
		chunks,
	)
}
