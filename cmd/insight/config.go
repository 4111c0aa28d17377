package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/panbanda/insight/pkg/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	// Skip the root loader so an invalid file reaches validate.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(verbose)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validates an insight configuration file against the configuration schema.

Examples:
  insight config validate                 # validates the default locations
  insight config validate -c insight.toml # validates a specific file`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func configSource() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.Find(".")
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	source := configSource()
	if _, err := loadConfig(source); err != nil {
		color.Red("Configuration validation failed:")
		fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", err)
		return err
	}

	if source != "" {
		color.Green("Configuration valid: %s", source)
	} else {
		color.Yellow("No config file found. Default configuration is valid.")
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	source := configSource()
	c, err := loadConfig(source)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if source != "" {
		fmt.Fprintf(out, "# Configuration from: %s\n\n", source)
	} else {
		fmt.Fprintln(out, "# Default configuration (no config file found)")
	}

	content, err := c.MarshalTOML()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprint(out, string(content))
	return nil
}
