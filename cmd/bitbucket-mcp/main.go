package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/or2ooo/bitbucket-mcp/pkg/config"
	"github.com/or2ooo/bitbucket-mcp/pkg/log"
	"github.com/or2ooo/bitbucket-mcp/pkg/server"
)

var (
	configPath string
	logLevel   string
	readOnly   bool
)

var rootCmd = &cobra.Command{
	Use:   "bitbucket-mcp",
	Short: "MCP server exposing Bitbucket Cloud to AI assistants",
	Long: `bitbucket-mcp is a Model Context Protocol server for Bitbucket Cloud.

It exposes repositories, pull requests, issues, pipelines and source files
as MCP tools over stdio, with a safety layer: workspace and repository
allow-lists, a read-only mode, and mandatory confirmation for destructive
operations.

Credentials come from BITBUCKET_EMAIL and BITBUCKET_API_TOKEN (or
BITBUCKET_ACCESS_TOKEN for OAuth), optionally combined with a
.bitbucket-mcp/config.yaml file. Environment variables always win.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	log.SetLevel(logLevel)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if readOnly {
		cfg.ReadOnly = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	s, err := server.New(ctx, cfg)
	if err != nil {
		return err
	}

	log.Info("serving over stdio", "version", Version)
	return server.ServeStdio(s)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config.yaml (default: search for .bitbucket-mcp/config.yaml upward from the working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: trace, debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&readOnly, "read-only", false, "Reject every write operation regardless of configuration")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
