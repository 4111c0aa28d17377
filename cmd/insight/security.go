package main

import (
	"fmt"
	"strconv"

	"github.com/panbanda/insight/internal/output"
	"github.com/panbanda/insight/internal/progress"
	"github.com/panbanda/insight/pkg/security"
	"github.com/spf13/cobra"
)

var securityCmd = &cobra.Command{
	Use:     "security [path|owner/repo]",
	Aliases: []string{"sec"},
	Short:   "Scan Python sources with Bandit",
	Long: `Run Bandit recursively over the path and report its findings sorted by
severity. Requires the bandit executable on PATH (pip install bandit[toml]).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSecurity,
}

func init() {
	securityCmd.Flags().String("severity", "", "Minimum severity: LOW, MEDIUM, HIGH (default from config)")
	securityCmd.Flags().String("confidence", "", "Minimum confidence: LOW, MEDIUM, HIGH (default from config)")
	securityCmd.Flags().StringSlice("tests", nil, "Bandit test IDs to run, e.g. B101,B602")
	securityCmd.Flags().StringSlice("exclude", nil, "Paths to exclude from the scan")
	rootCmd.AddCommand(securityCmd)
}

func securityOptions(cmd *cobra.Command) security.Options {
	defaults := activeConfig().Security
	opts := security.Options{
		Severity:   defaults.Severity,
		Confidence: defaults.Confidence,
		Categories: defaults.Categories,
		Exclude:    defaults.Exclude,
	}
	if v, _ := cmd.Flags().GetString("severity"); v != "" {
		opts.Severity = v
	}
	if v, _ := cmd.Flags().GetString("confidence"); v != "" {
		opts.Confidence = v
	}
	if v, _ := cmd.Flags().GetStringSlice("tests"); len(v) > 0 {
		opts.Categories = v
	}
	if v, _ := cmd.Flags().GetStringSlice("exclude"); len(v) > 0 {
		opts.Exclude = v
	}
	return opts
}

func runSecurity(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	opts := securityOptions(cmd)

	svc := newService(ctx)
	dir, err := svc.Resolve(ctx, getPath(args), nil)
	if err != nil {
		return err
	}

	spinner := progress.NewSpinner("Running bandit...")
	report, err := security.NewScanner().Scan(ctx, dir, opts)
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

	return formatter.Output(securityTable(report, formatter.Colored()))
}

func securityTable(r *security.Report, colored bool) output.Renderable {
	rows := make([][]string, 0, len(r.Vulnerabilities))
	for _, v := range r.Vulnerabilities {
		severity := v.IssueSeverity
		if colored {
			severity = output.SeverityColor(severity, severity)
		}
		rows = append(rows, []string{
			severity,
			v.IssueConfidence,
			v.TestName,
			v.RelativePath + ":" + strconv.Itoa(v.LineNumber),
			truncate(v.IssueText, 80),
		})
	}
	return output.NewTable(
		"Security Findings: "+r.Metadata.ScannedDirectory,
		[]string{"Severity", "Confidence", "Test", "Location", "Issue"},
		rows,
		[]string{
			fmt.Sprintf("High: %d", r.Summary.HighSeverity),
			fmt.Sprintf("Medium: %d", r.Summary.MediumSeverity),
			fmt.Sprintf("Low: %d", r.Summary.LowSeverity),
			fmt.Sprintf("Files: %d/%d", r.Summary.FilesWithIssues, r.Summary.FilesScanned),
			"Bandit " + r.Metadata.BanditVersion,
		},
		r,
	)
}
