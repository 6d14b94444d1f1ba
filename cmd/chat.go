package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/querybee/querybee/internal/client"
	"github.com/querybee/querybee/internal/relay"
)

// askFunc sends one turn of a conversation.
type askFunc func(ctx context.Context, query, sessionID string) (*relay.Response, error)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the agent in the terminal",
	Long: `Starts an interactive conversation. By default questions go through an
in-process relay; with --url they are sent to a running querybee server.
Type "exit" or press Ctrl+C to leave.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().String("url", "", "base URL of a running relay (e.g. http://localhost:3000)")
	chatCmd.Flags().String("session", "", "session id to resume")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	url, _ := cmd.Flags().GetString("url")
	sessionID, _ := cmd.Flags().GetString("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx := context.Background()

	var ask askFunc
	describe := func(err error) string { return err.Error() }

	if url != "" {
		ask = client.New(url, nil).Ask
	} else {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		rl, closeRelay, err := createRelay(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeRelay()

		ask = func(ctx context.Context, query, sessionID string) (*relay.Response, error) {
			return rl.Detect(ctx, relay.Request{Query: query, SessionID: sessionID})
		}
		describe = func(err error) string { return relay.Describe(err, cfg.Dialogflow.ProjectID) }
	}

	fmt.Fprintf(os.Stderr, "QueryBee chat (session %s). Type \"exit\" to quit.\n\n", sessionID)

	for {
		prompt := promptui.Prompt{Label: "You"}
		query, err := prompt.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		query = strings.TrimSpace(query)
		switch strings.ToLower(query) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		resp, err := ask(ctx, query, sessionID)
		if err != nil {
			fmt.Printf("QueryBee: %s\n\n", describe(err))
			continue
		}
		fmt.Printf("QueryBee: %s\n\n", resp.Response)
	}
}
