package main

import (
	"github.com/panbanda/insight/internal/output"
	"github.com/panbanda/insight/pkg/capability"
	"github.com/spf13/cobra"
)

var capabilitiesCmd = &cobra.Command{
	Use:     "capabilities",
	Aliases: []string{"caps"},
	Short:   "Probe the optional analysis backends",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		caps := capability.Detect(cmd.Context(), activeConfig())

		formatter, err := newFormatter(cmd)
		if err != nil {
			return err
		}
		defer formatter.Close()

		return formatter.Output(capabilityTable(caps.Describe()))
	},
}

func init() {
	rootCmd.AddCommand(capabilitiesCmd)
}

func capabilityTable(statuses []capability.Status) output.Renderable {
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		state := "unavailable"
		if s.Available {
			state = "available"
		}
		rows = append(rows, []string{s.Name, state, s.Detail})
	}
	return output.NewTable("Capabilities", []string{"Capability", "Status", "Detail"}, rows, nil, statuses)
}
