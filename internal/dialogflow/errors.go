package dialogflow

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is a non-2xx answer from Dialogflow. Status is the HTTP status
// (mapped from the gRPC code on the SDK transport); Code is the code the
// upstream reported in its error body.
type APIError struct {
	Status  int
	Code    int
	Message string
	Body    json.RawMessage
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("dialogflow API error (%d)", e.Status)
	}
	return fmt.Sprintf("dialogflow API error (%d): %s", e.Status, e.Message)
}

// IsAuth reports whether the upstream rejected the bearer token.
func (e *APIError) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// errorResponse is the Google API error envelope.
type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
