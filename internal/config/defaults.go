package config

import "time"

const (
	DefaultProjectID       = "querybee-owui"
	DefaultKnowledgeBaseID = "MTU3Nzc5ODcxODU2NjExODE5NTM"
	DefaultPath            = ".querybee.yml"
)

// DefaultAnswerOrder lists the reply extractors in precedence order.
var DefaultAnswerOrder = []string{
	"kb_answer",
	"kb_faq_answer",
	"kb_text",
	"fulfillment_text",
	"fulfillment_messages",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Environment: "production",
		Server: ServerConfig{
			Port:           3000,
			AllowedOrigins: []string{"*"},
		},
		Dialogflow: DialogflowConfig{
			ProjectID:       DefaultProjectID,
			KnowledgeBaseID: DefaultKnowledgeBaseID,
			Transport:       TransportREST,
			APIVersion:      "v2beta1",
			Timeout:         20 * time.Second,
			AnswerOrder:     append([]string(nil), DefaultAnswerOrder...),
			FallbackText:    "Sorry, I didn't understand that.",
		},
		Credentials: CredentialsConfig{
			Scopes:        []string{"https://www.googleapis.com/auth/cloud-platform"},
			RefreshBuffer: 5 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
