package token

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
)

// CloudPlatformScope is the OAuth scope Dialogflow accepts.
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Exchanger trades long-lived credentials for a short-lived bearer token.
type Exchanger interface {
	Exchange(ctx context.Context) (*oauth2.Token, error)
}

// ServiceAccount exchanges a Google service-account key for access tokens
// using the JWT bearer grant.
type ServiceAccount struct {
	cfg *jwt.Config
}

// ServiceAccountFromJSON parses an inline service-account key. The value
// must be a JSON object.
func ServiceAccountFromJSON(data []byte, scopes ...string) (*ServiceAccount, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, &ConfigurationError{Reason: "service account JSON does not parse", Err: err}
	}
	if _, ok := v.(map[string]any); !ok {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("service account JSON must be an object, got %T", v)}
	}

	if len(scopes) == 0 {
		scopes = []string{CloudPlatformScope}
	}
	cfg, err := google.JWTConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, &ConfigurationError{Reason: "service account key rejected", Err: err}
	}
	return &ServiceAccount{cfg: cfg}, nil
}

// ServiceAccountFromFile reads a key file and parses it like ServiceAccountFromJSON.
func ServiceAccountFromFile(path string, scopes ...string) (*ServiceAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Reason: "reading " + path, Err: err}
	}
	return ServiceAccountFromJSON(data, scopes...)
}

// Email returns the client_email of the key.
func (s *ServiceAccount) Email() string { return s.cfg.Email }

// Exchange performs a fresh token exchange on every call; caching is the
// Provider's job.
func (s *ServiceAccount) Exchange(ctx context.Context) (*oauth2.Token, error) {
	return s.cfg.TokenSource(ctx).Token()
}
