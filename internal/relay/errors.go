package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/querybee/querybee/internal/dialogflow"
	"github.com/querybee/querybee/internal/token"
)

// Kind classifies relay failures.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindConfiguration Kind = "configuration"
	KindAuth          Kind = "auth"
	KindUpstream      Kind = "upstream"
	KindTimeout       Kind = "timeout"
)

// Error is the only error type Detect returns.
type Error struct {
	Kind Kind
	// Status is the upstream HTTP status, zero when the upstream never answered.
	Status int
	// Code is the upstream error code (HTTP status or gRPC code).
	Code    int
	Message string
	// Details is the raw upstream error body.
	Details json.RawMessage
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindValidation
}

func classify(err error) *Error {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr
	}

	var apiErr *dialogflow.APIError
	if errors.As(err, &apiErr) {
		kind := KindUpstream
		if apiErr.IsAuth() {
			kind = KindAuth
		}
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.Status)
		}
		return &Error{Kind: kind, Status: apiErr.Status, Code: apiErr.Code, Message: msg, Details: apiErr.Body, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: err.Error(), Err: err}
	}

	var cfgErr *token.ConfigurationError
	if errors.As(err, &cfgErr) {
		return &Error{Kind: KindConfiguration, Message: err.Error(), Err: err}
	}
	var credErr *token.CredentialError
	if errors.As(err, &credErr) {
		if credErr.Missing {
			return &Error{Kind: KindConfiguration, Message: err.Error(), Err: err}
		}
		return &Error{Kind: KindAuth, Message: err.Error(), Err: err}
	}

	return &Error{Kind: KindUpstream, Message: err.Error(), Err: err}
}

const (
	msgConfiguration = "Please configure Dialogflow credentials. Set either DIALOGFLOW_ACCESS_TOKEN or GOOGLE_APPLICATION_CREDENTIALS environment variable."
	msgTimeout       = "Request to Dialogflow timed out. Please try again."
	msgUnauthorized  = "Dialogflow authentication failed. Your access token may be expired. Please get a new token."
	msgForbidden     = "Access denied. Please check that Dialogflow API is enabled and your credentials have correct permissions."
	msgNotFound      = "Dialogflow project not found. Please verify your project ID %q is correct."
	msgBadRequest    = "Invalid request to Dialogflow. Please check your project configuration."
)

// Describe returns a message fit for display as a bot reply.
func Describe(err error, projectID string) string {
	e := classify(err)
	switch {
	case e.Kind == KindValidation:
		return e.Message
	case e.Kind == KindConfiguration:
		return msgConfiguration
	case e.Kind == KindTimeout:
		return msgTimeout
	case e.Status == http.StatusUnauthorized:
		return msgUnauthorized
	case e.Status == http.StatusForbidden:
		return msgForbidden
	case e.Status == http.StatusNotFound:
		return fmt.Sprintf(msgNotFound, projectID)
	case e.Status == http.StatusBadRequest:
		return msgBadRequest
	case e.Kind == KindAuth:
		return msgUnauthorized
	case e.Status != 0:
		return "Dialogflow error: " + e.Message
	default:
		return "Error: " + e.Message
	}
}

// ErrorBody is the JSON body of a failed relay call.
type ErrorBody struct {
	Error    string          `json:"error"`
	Response string          `json:"response,omitempty"`
	Message  string          `json:"message,omitempty"`
	Code     int             `json:"code,omitempty"`
	Details  json.RawMessage `json:"details,omitempty"`
}

// NewErrorBody builds the 500 body for err. Details are only attached when
// development is set.
func NewErrorBody(err error, projectID string, development bool) ErrorBody {
	e := classify(err)
	body := ErrorBody{
		Error:    "Dialogflow API Error",
		Response: Describe(e, projectID),
		Message:  e.Message,
		Code:     e.Code,
	}
	if body.Code == 0 {
		body.Code = e.Status
	}
	if e.Kind == KindConfiguration {
		body.Error = "Dialogflow client not configured"
	}
	if development {
		body.Details = e.Details
	}
	return body
}
