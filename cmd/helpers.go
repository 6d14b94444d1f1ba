package cmd

import (
	"context"
	"fmt"

	"github.com/querybee/querybee/internal/config"
	"github.com/querybee/querybee/internal/dialogflow"
	qblog "github.com/querybee/querybee/internal/log"
	"github.com/querybee/querybee/internal/relay"
	"github.com/querybee/querybee/internal/token"
)

// loadConfig loads and validates the config, providing a user-friendly error.
// The global logger is reconfigured from the loaded settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `querybee init` to create a config file", err)
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	qblog.Configure(qblog.Config{Level: level, Pretty: cfg.Log.Pretty})

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// createTokenProvider builds the bearer token source from the credentials
// section. Inline service-account JSON wins over a key file.
func createTokenProvider(cfg *config.Config) (*token.Provider, error) {
	opts := token.Options{
		ManualToken:   cfg.Credentials.AccessToken,
		RefreshBuffer: cfg.Credentials.RefreshBuffer,
	}

	creds := cfg.Credentials
	switch {
	case creds.ServiceAccountJSON != "":
		sa, err := token.ServiceAccountFromJSON([]byte(creds.ServiceAccountJSON), creds.Scopes...)
		if err != nil {
			return nil, err
		}
		opts.Exchanger = sa
	case creds.ServiceAccountFile != "":
		sa, err := token.ServiceAccountFromFile(creds.ServiceAccountFile, creds.Scopes...)
		if err != nil {
			return nil, err
		}
		opts.Exchanger = sa
	}

	return token.NewProvider(opts), nil
}

// createDetector builds the detectIntent client for the configured
// transport. The returned func releases it.
func createDetector(ctx context.Context, cfg *config.Config) (relay.Detector, func() error, error) {
	df := cfg.Dialogflow
	switch df.Transport {
	case config.TransportGRPC:
		c, err := dialogflow.NewSDKClient(ctx, df.Endpoint)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	default:
		c := dialogflow.NewRESTClient(df.Endpoint, df.APIVersion, nil)
		return c, func() error { return nil }, nil
	}
}

// createRelay wires credentials, transport and answer extraction into a
// relay. Callers must invoke the returned func when done.
func createRelay(ctx context.Context, cfg *config.Config) (*relay.Relay, func() error, error) {
	extractors, err := relay.Extractors(cfg.Dialogflow.AnswerOrder)
	if err != nil {
		return nil, nil, fmt.Errorf("dialogflow.answer_order: %w", err)
	}

	tokens, err := createTokenProvider(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("loading credentials: %w", err)
	}

	detector, closeFn, err := createDetector(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating Dialogflow client: %w", err)
	}

	rl := relay.New(relay.Config{
		ProjectID:       cfg.Dialogflow.ProjectID,
		KnowledgeBaseID: cfg.Dialogflow.KnowledgeBaseID,
		Timeout:         cfg.Dialogflow.Timeout,
		Extractors:      extractors,
		FallbackText:    cfg.Dialogflow.FallbackText,
		Development:     cfg.Development(),
		Transport:       string(cfg.Dialogflow.Transport),
		Endpoint:        cfg.Dialogflow.Endpoint,
	}, detector, tokens)
	return rl, closeFn, nil
}
