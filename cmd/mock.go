package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	qblog "github.com/querybee/querybee/internal/log"
	"github.com/querybee/querybee/internal/mockdf"
	"github.com/querybee/querybee/internal/server"
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Serve a fake Dialogflow upstream with canned replies",
	Long: `Starts a local stand-in for the Dialogflow detectIntent API. Point
dialogflow.endpoint at it (e.g. http://localhost:8081) and use any non-empty
access token to exercise the relay without Google credentials.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		kb, _ := cmd.Flags().GetBool("kb")
		reject, _ := cmd.Flags().GetStringSlice("reject")

		level := ""
		if verbose {
			level = "debug"
		}
		qblog.Configure(qblog.Config{Level: level, Service: "querybee-mock"})
		log := qblog.WithComponent("mock")

		srv := server.New(server.Config{Port: port})
		srv.Router().Mount("/", mockdf.NewHandler(mockdf.Options{
			KnowledgeBase: kb,
			RejectTokens:  reject,
		}))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		log.Info().Int("port", port).Bool("knowledge_base", kb).Int("rejected_tokens", len(reject)).
			Msg("mock Dialogflow starting")
		return srv.Start()
	},
}

func init() {
	mockCmd.Flags().Int("port", 8081, "port to listen on")
	mockCmd.Flags().Bool("kb", false, "answer through knowledgeAnswers when a knowledge base is queried")
	mockCmd.Flags().StringSlice("reject", nil, "bearer tokens to answer with 401")
	rootCmd.AddCommand(mockCmd)
}
