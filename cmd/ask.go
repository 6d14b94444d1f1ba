package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/querybee/querybee/internal/relay"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the Dialogflow agent a single question",
	Long:  `Sends one question through the relay in-process, using the configured credentials, and prints the reply.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().String("session", "", "session id (a new one is generated when empty)")
	askCmd.Flags().Bool("json", false, "output the normalized response as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	sessionID, _ := cmd.Flags().GetString("session")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	rl, closeRelay, err := createRelay(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRelay()

	resp, err := rl.Detect(ctx, relay.Request{Query: args[0], SessionID: sessionID})
	if err != nil {
		fmt.Fprintln(os.Stderr, relay.Describe(err, cfg.Dialogflow.ProjectID))
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Println(resp.Response)
	fmt.Fprintf(os.Stderr, "\nsession=%s source=%s", resp.SessionID, resp.Source)
	if resp.Intent != nil {
		fmt.Fprintf(os.Stderr, " intent=%s", *resp.Intent)
	}
	fmt.Fprintln(os.Stderr)
	return nil
}
