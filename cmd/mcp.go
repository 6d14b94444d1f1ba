package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/querybee/querybee/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing the QueryBee agent as tools for AI assistants.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		rl, closeRelay, err := createRelay(context.Background(), cfg)
		if err != nil {
			return err
		}
		defer closeRelay()

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "querybee MCP server started on stdio (project=%s, transport=%s)\n",
			cfg.Dialogflow.ProjectID, cfg.Dialogflow.Transport)

		return mcpserver.NewServer(rl).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
