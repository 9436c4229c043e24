/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/bmlfuzz/pkg/monitor"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the findings database over HTTP",
	Long: `Serve the monitor API for a findings database without running a
campaign. Use "bmlfuzz run --monitor" to also get live metrics and
campaign status.

Examples:
  bmlfuzz serve --db fuzz/ui/findings.db
  bmlfuzz serve --config campaign.yaml --bind 0.0.0.0 --port 9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bind, _ := cmd.Flags().GetString("bind")
		port, _ := cmd.Flags().GetInt("port")

		store, err := openFindings(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		server := monitor.NewServer(
			monitor.ServerConfig{Bind: bind, Port: port},
			monitor.NewMetrics(),
			monitor.NewStatus(),
			store,
			logger,
		)
		cmd.Printf("Serving findings on http://%s:%d/api/v1/findings\n", bind, port)
		return server.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("db", "", "Findings database path")
	serveCmd.Flags().String("config", "", "Campaign file whose findings database to serve")
	serveCmd.Flags().String("bind", "127.0.0.1", "Bind address")
	serveCmd.Flags().Int("port", 9464, "Port")
}
