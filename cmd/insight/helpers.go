package main

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/panbanda/insight/internal/output"
	"github.com/panbanda/insight/internal/progress"
	"github.com/panbanda/insight/internal/service/analysis"
	"github.com/panbanda/insight/pkg/analyzer"
	"github.com/panbanda/insight/pkg/capability"
	"github.com/panbanda/insight/pkg/config"
	"github.com/panbanda/insight/pkg/source"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// loadConfig loads path, or the first config file found in the working
// directory, and validates it. No file means defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.Find(".")
	}
	if path == "" {
		return config.DefaultConfig(), nil
	}

	c, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	if err := config.Validate(c); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	log.Debug().Str("path", path).Msg("loaded config")
	return c, nil
}

// activeConfig returns the loaded configuration or the defaults.
func activeConfig() *config.Config {
	if cfg == nil {
		return config.DefaultConfig()
	}
	return cfg
}

// newService builds the analysis service. Backends are probed only when
// similarity is requested, since probing costs a network round trip.
func newService(ctx context.Context, kinds ...analysis.Kind) *analysis.Service {
	c := activeConfig()
	caps := capability.Set{Graph: c.Capabilities.Graph, Metrics: c.Capabilities.Metrics}
	if slices.Contains(kinds, analysis.KindSimilarity) {
		caps = capability.Detect(ctx, c)
	}
	return analysis.New(analysis.WithConfig(c), analysis.WithCapabilities(caps))
}

// getPath returns the path argument, defaulting to ".".
func getPath(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}

// getFormat returns the format flag, falling back to the configured format.
func getFormat(cmd *cobra.Command) output.Format {
	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = activeConfig().Output.Format
	}
	return output.ParseFormat(format)
}

// getOutputFile returns the output file path from the command.
func getOutputFile(cmd *cobra.Command) string {
	outputFile, _ := cmd.Flags().GetString("output")
	return outputFile
}

func newFormatter(cmd *cobra.Command) (*output.Formatter, error) {
	return output.NewFormatter(getFormat(cmd), getOutputFile(cmd), activeConfig().Output.Color)
}

// loadFiles resolves the path argument and loads its sources behind a spinner.
func loadFiles(cmd *cobra.Command, svc *analysis.Service, args []string) ([]source.File, string, error) {
	spinner := progress.NewSpinner("Loading sources...")
	files, dir, err := svc.LoadPath(cmd.Context(), getPath(args), nil)
	if err != nil {
		spinner.FinishError(err)
		return nil, "", err
	}
	spinner.FinishSuccess()
	log.Debug().Str("path", dir).Int("files", len(files)).Msg("sources loaded")
	return files, dir, nil
}

// outputFailure renders an analyzer failure. Structured formats receive
// the {error, message} payload; text formats get a warning line. Other
// errors are returned unchanged.
func outputFailure(f *output.Formatter, err error) error {
	var failure *analyzer.Failure
	if !errors.As(err, &failure) {
		return err
	}
	switch f.Format() {
	case output.FormatJSON, output.FormatTOON:
		return f.Output(failure)
	default:
		f.Warning("%s", failure.Error())
		return nil
	}
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen < 4 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
