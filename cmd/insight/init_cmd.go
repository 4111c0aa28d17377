package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/panbanda/insight/pkg/config"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "insight.toml"

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default insight.toml",
	Long: `Creates an insight.toml configuration file with the default settings.
Use --output to choose a different location.

Examples:
  insight init                           # insight.toml in the current directory
  insight init -o .insight/insight.toml  # config in the .insight directory
  insight init --force                   # overwrite an existing file`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := getOutputFile(cmd)
	if path == "" {
		path = defaultConfigFile
	}
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %q already exists (use --force to overwrite)", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}

	content, err := defaultConfigContent()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	color.Green("Created %s", path)
	return nil
}

func defaultConfigContent() ([]byte, error) {
	body, err := config.DefaultConfig().MarshalTOML()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to TOML: %w", err)
	}
	return append([]byte("# insight configuration\n\n"), body...), nil
}
