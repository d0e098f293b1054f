package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

var envPath string

var rootCmd = &cobra.Command{
	Use:          "node",
	Short:        "hyperdex custody and order-book node",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envPath, "env", "", "path to a .env file (default: ./.env)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
