package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to QueryBee! Let's connect the relay to your Dialogflow agent.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Project.
	projectPrompt := promptui.Prompt{
		Label:    "Google Cloud project ID",
		Default:  cfg.Dialogflow.ProjectID,
		Validate: required("project ID"),
	}
	projectID, err := projectPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("project ID: %w", err)
	}
	cfg.Dialogflow.ProjectID = strings.TrimSpace(projectID)

	// 2. Knowledge base.
	kbPrompt := promptui.Prompt{
		Label:   "Knowledge base ID (blank for intents only)",
		Default: cfg.Dialogflow.KnowledgeBaseID,
	}
	kbID, err := kbPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("knowledge base ID: %w", err)
	}
	cfg.Dialogflow.KnowledgeBaseID = strings.TrimSpace(kbID)

	// 3. Transport.
	transportPrompt := promptui.Select{
		Label: "Select Dialogflow transport",
		Items: []string{
			"rest (HTTPS + JSON)",
			"grpc (Dialogflow client library)",
		},
	}
	idx, _, err := transportPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("transport selection: %w", err)
	}
	cfg.Dialogflow.Transport = []Transport{TransportREST, TransportGRPC}[idx]

	// 4. Service account key file.
	keyPrompt := promptui.Prompt{
		Label:   "Service account key file (blank to use DIALOGFLOW_ACCESS_TOKEN)",
		Default: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
	}
	keyFile, err := keyPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("key file: %w", err)
	}
	cfg.Credentials.ServiceAccountFile = strings.TrimSpace(keyFile)

	if cfg.Credentials.ServiceAccountFile == "" && os.Getenv("DIALOGFLOW_ACCESS_TOKEN") == "" {
		fmt.Println("\nNote: set DIALOGFLOW_ACCESS_TOKEN or GOOGLE_APPLICATION_CREDENTIALS before running querybee server.")
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func required(what string) promptui.ValidateFunc {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}
