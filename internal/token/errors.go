package token

import "fmt"

// ConfigurationError reports credentials that are present but unusable,
// such as service-account JSON that does not parse to an object.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("credential configuration: %s: %v", e.Reason, e.Err)
	}
	return "credential configuration: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// CredentialError reports that no token could be produced: either no source
// is configured or the identity provider rejected the exchange.
type CredentialError struct {
	// Missing is true when no credential source exists at all.
	Missing bool
	Reason  string
	Err     error
}

func (e *CredentialError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("credentials: %s: %v", e.Reason, e.Err)
	}
	return "credentials: " + e.Reason
}

func (e *CredentialError) Unwrap() error { return e.Err }
