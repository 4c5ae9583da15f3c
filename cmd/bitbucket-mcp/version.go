package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/or2ooo/bitbucket-mcp/pkg/server"
)

// These variables are set via ldflags during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("bitbucket-mcp version %s\n", Version)
		if Commit != "" && Commit != "unknown" {
			fmt.Printf("commit: %s\n", Commit)
		}
		if BuildDate != "" && BuildDate != "unknown" {
			fmt.Printf("built at: %s\n", BuildDate)
		}
		return nil
	},
}

func init() {
	// The MCP handshake reports the same version as the CLI.
	server.Version = Version
	rootCmd.AddCommand(versionCmd)
}
