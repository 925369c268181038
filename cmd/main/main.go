package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// CLI Constants
const (
	CmdServe    = "serve"
	CmdLatest   = "latest"
	CmdCompare  = "compare"
	FlagConfig  = "config"
	FlagChart   = "chart"
	defaultPath = "config/default.yaml"
)

// CLI Variables
var (
	configPath string
	chartPath  string
)

var rootCmd = &cobra.Command{
	Use:   "indicator-observer",
	Short: "Fetches, caches and compares economic indicators per country",
	Long: `indicator-observer fetches a fixed set of economic indicators for a country
from the upstream statistics API, caches the combined history for a few
minutes and serves it over HTTP, WebSocket and gRPC.

  indicator-observer serve                           # HTTP API + gRPC control plane
  indicator-observer latest Sweden                   # latest value per indicator
  indicator-observer compare Sweden Norway GDP       # aligned series and statistics`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// -----------------------------------------------------------------------------

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, FlagConfig, defaultPath, "path to config file (empty for built-in defaults)")

	compareCmd.Flags().StringVar(&chartPath, FlagChart, "", "write a PNG line chart to this path instead of printing JSON")

	rootCmd.AddCommand(serveCmd, latestCmd, compareCmd)
}

// -----------------------------------------------------------------------------

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
