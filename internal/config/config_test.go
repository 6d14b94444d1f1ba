package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, m := range legacyEnv {
		for _, name := range m.names {
			t.Setenv(name, "")
		}
	}
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	for _, kv := range os.Environ() {
		if name, _, _ := strings.Cut(kv, "="); strings.HasPrefix(name, envPrefix) {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Dialogflow.ProjectID != DefaultProjectID {
		t.Errorf("expected default project %q, got %q", DefaultProjectID, cfg.Dialogflow.ProjectID)
	}
	if cfg.Dialogflow.Transport != TransportREST {
		t.Errorf("expected default transport %q, got %q", TransportREST, cfg.Dialogflow.Transport)
	}
	if cfg.Dialogflow.Timeout != 20*time.Second {
		t.Errorf("expected default timeout 20s, got %s", cfg.Dialogflow.Timeout)
	}
	if cfg.Credentials.RefreshBuffer != 5*time.Minute {
		t.Errorf("expected refresh buffer 5m, got %s", cfg.Credentials.RefreshBuffer)
	}
}

func TestSaveAndLoad(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "test.querybee.yml")

	original := DefaultConfig()
	original.Dialogflow.ProjectID = "college-bot"
	original.Dialogflow.KnowledgeBaseID = "kb-42"
	original.Dialogflow.Transport = TransportGRPC
	original.Dialogflow.Timeout = 15 * time.Second
	original.Dialogflow.AnswerOrder = []string{"fulfillment_text", "kb_answer"}
	original.Credentials.ServiceAccountFile = "/etc/querybee/sa.json"

	// Save.
	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Load back.
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify round-trip.
	if loaded.Dialogflow.ProjectID != "college-bot" {
		t.Errorf("project_id: got %q", loaded.Dialogflow.ProjectID)
	}
	if loaded.Dialogflow.KnowledgeBaseID != "kb-42" {
		t.Errorf("knowledge_base_id: got %q", loaded.Dialogflow.KnowledgeBaseID)
	}
	if loaded.Dialogflow.Transport != TransportGRPC {
		t.Errorf("transport: got %q", loaded.Dialogflow.Transport)
	}
	if loaded.Dialogflow.Timeout != 15*time.Second {
		t.Errorf("timeout: got %s", loaded.Dialogflow.Timeout)
	}
	if len(loaded.Dialogflow.AnswerOrder) != 2 || loaded.Dialogflow.AnswerOrder[0] != "fulfillment_text" {
		t.Errorf("answer_order: got %v", loaded.Dialogflow.AnswerOrder)
	}
	if loaded.Credentials.ServiceAccountFile != "/etc/querybee/sa.json" {
		t.Errorf("service_account_file: got %q", loaded.Credentials.ServiceAccountFile)
	}
	if loaded.Credentials.RefreshBuffer != 5*time.Minute {
		t.Errorf("refresh_buffer: got %s", loaded.Credentials.RefreshBuffer)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Dialogflow.ProjectID != DefaultProjectID {
		t.Errorf("expected default project, got %q", cfg.Dialogflow.ProjectID)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "none.yml")

	t.Setenv("QUERYBEE_DIALOGFLOW__TRANSPORT", "grpc")
	t.Setenv("QUERYBEE_DIALOGFLOW__TIMEOUT", "7s")
	t.Setenv("QUERYBEE_DIALOGFLOW__ANSWER_ORDER", "fulfillment_text, kb_answer")
	t.Setenv("QUERYBEE_ENVIRONMENT", "development")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Dialogflow.Transport != TransportGRPC {
		t.Errorf("transport: got %q", loaded.Dialogflow.Transport)
	}
	if loaded.Dialogflow.Timeout != 7*time.Second {
		t.Errorf("timeout: got %s", loaded.Dialogflow.Timeout)
	}
	if got := loaded.Dialogflow.AnswerOrder; len(got) != 2 || got[1] != "kb_answer" {
		t.Errorf("answer_order: got %v", got)
	}
	if !loaded.Development() {
		t.Error("expected development environment")
	}
}

func TestLoadLegacyEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "none.yml")

	t.Setenv("DF_PROJECT_ID", "legacy-project")
	t.Setenv("DF_KNOWLEDGE_BASE_IDS", "legacy-kb")
	t.Setenv("DIALOGFLOW_ACCESS_TOKEN", "ya29.manual")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", `{"type":"service_account"}`)
	t.Setenv("PORT", "8081")
	t.Setenv("NODE_ENV", "development")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Dialogflow.ProjectID != "legacy-project" {
		t.Errorf("project_id: got %q", cfg.Dialogflow.ProjectID)
	}
	if cfg.Dialogflow.KnowledgeBaseID != "legacy-kb" {
		t.Errorf("knowledge_base_id: got %q", cfg.Dialogflow.KnowledgeBaseID)
	}
	if cfg.Credentials.AccessToken != "ya29.manual" {
		t.Errorf("access_token: got %q", cfg.Credentials.AccessToken)
	}
	if cfg.Credentials.ServiceAccountJSON != `{"type":"service_account"}` {
		t.Errorf("inline GOOGLE_APPLICATION_CREDENTIALS should land in service_account_json, got %q", cfg.Credentials.ServiceAccountJSON)
	}
	if cfg.Credentials.ServiceAccountFile != "" {
		t.Errorf("service_account_file should be empty, got %q", cfg.Credentials.ServiceAccountFile)
	}
	if cfg.Server.Port != 8081 {
		t.Errorf("port: got %d", cfg.Server.Port)
	}
	if !cfg.Development() {
		t.Error("expected NODE_ENV=development to enable development mode")
	}
}

func TestLoadLegacyCredentialPath(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/secrets/sa.json")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Credentials.ServiceAccountFile != "/secrets/sa.json" {
		t.Errorf("service_account_file: got %q", cfg.Credentials.ServiceAccountFile)
	}
}

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Credentials.AccessToken = "ya29.manual"
	return cfg
}

func TestValidateValid(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("expected valid config, got: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no credentials", func(c *Config) { c.Credentials.AccessToken = "" }},
		{"empty project", func(c *Config) { c.Dialogflow.ProjectID = "" }},
		{"unknown transport", func(c *Config) { c.Dialogflow.Transport = "soap" }},
		{"zero timeout", func(c *Config) { c.Dialogflow.Timeout = 0 }},
		{"negative refresh buffer", func(c *Config) { c.Credentials.RefreshBuffer = -time.Second }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(" a, b ,,c ")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("unexpected split: %v", got)
	}
}
