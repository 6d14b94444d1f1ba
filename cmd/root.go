package cmd

import (
	"github.com/spf13/cobra"

	"github.com/querybee/querybee/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "querybee",
	Short: "Dialogflow relay for the QueryBee college support bot",
	Long: `QueryBee relays chat questions from the website widget to a Dialogflow
agent and its knowledge base, handling Google credentials on the server so
the browser never sees them. It can also run as an MCP server, a local
mock upstream, or an interactive terminal chat.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
