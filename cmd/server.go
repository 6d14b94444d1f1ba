package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	qblog "github.com/querybee/querybee/internal/log"
	"github.com/querybee/querybee/internal/relay"
	"github.com/querybee/querybee/internal/server"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the relay HTTP server",
	Long:  `Starts the QueryBee relay with the chat API, websocket chat, health, diagnostics and metrics endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rl, closeRelay, err := createRelay(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeRelay()

		srv := server.New(server.Config{
			Port:           cfg.Server.Port,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		})
		relay.RegisterRoutes(srv.Router(), rl)

		log := qblog.WithComponent("server")

		// Graceful shutdown.
		go func() {
			<-ctx.Done()
			log.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("shutdown")
			}
		}()

		d := rl.Diagnose()
		log.Info().
			Str("version", Version).
			Int("port", cfg.Server.Port).
			Str("project", d.ProjectID).
			Str("knowledge_base", d.KnowledgeBaseID).
			Str("transport", d.Transport).
			Bool("manual_token", d.HasManualToken).
			Bool("service_account", d.HasServiceAccount).
			Str("environment", cfg.Environment).
			Msg("querybee server starting")

		if err := srv.Start(); err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 3000, "port to listen on (overrides server.port)")
	rootCmd.AddCommand(serverCmd)
}
