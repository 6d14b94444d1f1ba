package config

import "time"

// Transport selects how detectIntent is called.
type Transport string

const (
	TransportREST Transport = "rest"
	TransportGRPC Transport = "grpc"
)

// Config is the top-level querybee configuration, corresponding to .querybee.yml.
type Config struct {
	// Environment is "development" or "production". Development responses
	// carry raw upstream error bodies.
	Environment string            `yaml:"environment" koanf:"environment"`
	Server      ServerConfig      `yaml:"server" koanf:"server"`
	Dialogflow  DialogflowConfig  `yaml:"dialogflow" koanf:"dialogflow"`
	Credentials CredentialsConfig `yaml:"credentials" koanf:"credentials"`
	Log         LogConfig         `yaml:"log" koanf:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port           int      `yaml:"port" koanf:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
}

// DialogflowConfig describes the upstream agent.
type DialogflowConfig struct {
	ProjectID       string        `yaml:"project_id" koanf:"project_id"`
	KnowledgeBaseID string        `yaml:"knowledge_base_id" koanf:"knowledge_base_id"`
	Transport       Transport     `yaml:"transport" koanf:"transport"`
	Endpoint        string        `yaml:"endpoint,omitempty" koanf:"endpoint"`
	APIVersion      string        `yaml:"api_version" koanf:"api_version"`
	Timeout         time.Duration `yaml:"timeout" koanf:"timeout"`
	AnswerOrder     []string      `yaml:"answer_order" koanf:"answer_order"`
	FallbackText    string        `yaml:"fallback_text" koanf:"fallback_text"`
}

// CredentialsConfig lists the token sources. Any one is enough; inline
// service-account JSON wins over a key file.
type CredentialsConfig struct {
	AccessToken        string        `yaml:"access_token,omitempty" koanf:"access_token"`
	ServiceAccountJSON string        `yaml:"service_account_json,omitempty" koanf:"service_account_json"`
	ServiceAccountFile string        `yaml:"service_account_file,omitempty" koanf:"service_account_file"`
	Scopes             []string      `yaml:"scopes" koanf:"scopes"`
	RefreshBuffer      time.Duration `yaml:"refresh_buffer" koanf:"refresh_buffer"`
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Pretty bool   `yaml:"pretty" koanf:"pretty"`
}

// Development reports whether diagnostic detail may be returned to callers.
func (c *Config) Development() bool {
	return c.Environment == "development"
}

// HasServiceAccount reports whether service-account credentials are configured.
func (c *Config) HasServiceAccount() bool {
	return c.Credentials.ServiceAccountJSON != "" || c.Credentials.ServiceAccountFile != ""
}
