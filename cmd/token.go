package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/querybee/querybee/internal/token"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Inspect Dialogflow credentials",
}

var tokenStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which credentials are configured",
	Long: `Reports the configured token sources without printing any secret. With
--exchange the service-account key is exchanged once to prove it works.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		exchange, _ := cmd.Flags().GetBool("exchange")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tp, err := createTokenProvider(cfg)
		if err != nil {
			return err
		}

		if exchange {
			tok, err := tp.ServiceAccountToken(context.Background())
			if err != nil {
				return fmt.Errorf("service-account exchange failed: %w", err)
			}
			fmt.Printf("Exchange OK, token valid until %s\n", tok.ExpiresAt.Format(time.RFC3339))
		}

		st := tp.Status()
		fmt.Printf("Project:            %s\n", cfg.Dialogflow.ProjectID)
		fmt.Printf("Manual token:       %t\n", st.HasManualToken)
		fmt.Printf("Service account:    %t\n", st.HasServiceAccount)
		if st.CachedToken {
			fmt.Printf("Cached token TTL:   %s\n", st.ExpiresIn.Round(time.Second))
		}
		return nil
	},
}

var tokenPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print a bearer token for manual API calls",
	Long:  `Prints the token the relay would send upstream, for use with curl. The token is written to stdout only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		useSA, _ := cmd.Flags().GetBool("service-account")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tp, err := createTokenProvider(cfg)
		if err != nil {
			return err
		}

		var tok token.Token
		if useSA {
			tok, err = tp.ServiceAccountToken(context.Background())
		} else {
			tok, err = tp.Token(context.Background())
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "source=%s\n", tok.Source)
		fmt.Println(tok.Value)
		return nil
	},
}

func init() {
	tokenStatusCmd.Flags().Bool("exchange", false, "exchange the service-account key for a token")
	tokenPrintCmd.Flags().Bool("service-account", false, "skip the manual token")
	tokenCmd.AddCommand(tokenStatusCmd, tokenPrintCmd)
	rootCmd.AddCommand(tokenCmd)
}
