package main

import (
	"github.com/panbanda/insight/internal/httpapi"
	"github.com/panbanda/insight/internal/service/analysis"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analyses over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		svc := newService(cmd.Context(), analysis.AllKinds...)
		return httpapi.NewServer(svc).ListenAndServe(cmd.Context(), addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address")
	rootCmd.AddCommand(serveCmd)
}
