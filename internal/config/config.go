package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const envPrefix = "QUERYBEE_"

// listKeys are split on commas when set from the environment.
var listKeys = map[string]bool{
	"server.allowed_origins":  true,
	"dialogflow.answer_order": true,
	"credentials.scopes":      true,
}

// legacyEnv maps the variable names used by existing deployments onto
// config keys. Earlier names win.
var legacyEnv = []struct {
	key   string
	names []string
}{
	{"dialogflow.project_id", []string{"DIALOGFLOW_PROJECT_ID", "DF_PROJECT_ID"}},
	{"dialogflow.knowledge_base_id", []string{"DIALOGFLOW_KNOWLEDGE_BASE_ID", "DF_KNOWLEDGE_BASE_IDS"}},
	{"credentials.access_token", []string{"DIALOGFLOW_ACCESS_TOKEN"}},
	{"credentials.service_account_json", []string{"GOOGLE_CREDS_JSON"}},
	{"server.port", []string{"PORT"}},
	{"environment", []string{"APP_ENV", "NODE_ENV"}},
}

// Load reads configuration from the given YAML file, then overlays the
// legacy deployment variables and finally QUERYBEE_* overrides. A .env file
// in the working directory is read first; it never replaces variables that
// are already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := loadLegacyEnv(k); err != nil {
		return nil, err
	}

	// QUERYBEE_DIALOGFLOW__PROJECT_ID -> dialogflow.project_id, etc.
	if err := k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		key = strings.ReplaceAll(key, "__", ".")
		if listKeys[key] {
			return key, splitAndTrim(value)
		}
		return key, value
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func loadLegacyEnv(k *koanf.Koanf) error {
	for _, m := range legacyEnv {
		for _, name := range m.names {
			if v := os.Getenv(name); v != "" {
				if err := k.Set(m.key, v); err != nil {
					return fmt.Errorf("applying %s: %w", name, err)
				}
				break
			}
		}
	}

	// GOOGLE_APPLICATION_CREDENTIALS holds either a key file path or, on
	// hosts without a writable filesystem, the key JSON itself.
	if v := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")); v != "" {
		key := "credentials.service_account_file"
		if strings.HasPrefix(v, "{") {
			key = "credentials.service_account_json"
		}
		if !k.Exists(key) {
			if err := k.Set(key, v); err != nil {
				return fmt.Errorf("applying GOOGLE_APPLICATION_CREDENTIALS: %w", err)
			}
		}
	}
	return nil
}

// Save writes the configuration to the given YAML file path. Files that may
// hold credentials are written owner-only.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validTransports is the set of recognized transport values.
var validTransports = map[Transport]bool{
	TransportREST: true,
	TransportGRPC: true,
}

// Validate checks that the configuration contains valid values. A relay
// without any credential source is rejected here rather than per request.
func (c *Config) Validate() error {
	if c.Dialogflow.ProjectID == "" {
		return fmt.Errorf("dialogflow.project_id is required")
	}
	if !validTransports[c.Dialogflow.Transport] {
		return fmt.Errorf("invalid dialogflow.transport %q: must be one of rest, grpc", c.Dialogflow.Transport)
	}
	if c.Dialogflow.Timeout <= 0 {
		return fmt.Errorf("dialogflow.timeout must be positive")
	}

	if c.Credentials.AccessToken == "" && !c.HasServiceAccount() {
		return fmt.Errorf("no Dialogflow credentials configured: set DIALOGFLOW_ACCESS_TOKEN, GOOGLE_CREDS_JSON or GOOGLE_APPLICATION_CREDENTIALS")
	}
	if c.Credentials.RefreshBuffer < 0 {
		return fmt.Errorf("credentials.refresh_buffer must be non-negative")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	return nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
