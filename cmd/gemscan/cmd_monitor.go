package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/solgems/gemscan/internal/config"
	httpiface "github.com/solgems/gemscan/internal/interfaces/http"
)

// monitorCmd serves the monitoring endpoints without running cycles. Useful
// for checking connectivity and scraping a standby instance.
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Serve the monitoring endpoints only",
	RunE:  runMonitor,
}

var monitorAddr string

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().StringVar(&monitorAddr, "addr", "", "Listen address (defaults to monitor.listen_addr)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	addr := monitorAddr
	if addr == "" {
		addr = cfg.Monitor.ListenAddr
	}

	server := httpiface.NewServer(prometheus.NewRegistry())
	return server.ListenAndServe(addr)
}
