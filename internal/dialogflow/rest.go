package dialogflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	// DefaultEndpoint is the global Dialogflow REST host.
	DefaultEndpoint = "https://dialogflow.googleapis.com"
	// DefaultAPIVersion carries knowledge-base support.
	DefaultAPIVersion = "v2beta1"
)

// RESTClient calls detectIntent over HTTPS with a caller-supplied bearer token.
type RESTClient struct {
	endpoint   string
	apiVersion string
	httpClient *http.Client
}

// NewRESTClient creates a REST client. Empty arguments take the defaults;
// timeouts are applied per call through the context.
func NewRESTClient(endpoint, apiVersion string, httpClient *http.Client) *RESTClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &RESTClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiVersion: apiVersion,
		httpClient: httpClient,
	}
}

type restRequest struct {
	QueryInput  restQueryInput   `json:"queryInput"`
	QueryParams *restQueryParams `json:"queryParams,omitempty"`
}

type restQueryInput struct {
	Text restTextInput `json:"text"`
}

type restTextInput struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode"`
}

type restQueryParams struct {
	KnowledgeBaseNames []string `json:"knowledgeBaseNames"`
}

// URL returns the detectIntent URL for the given request.
func (c *RESTClient) URL(req DetectIntentRequest) string {
	return fmt.Sprintf("%s/%s/projects/%s/agent/sessions/%s:detectIntent",
		c.endpoint, c.apiVersion, url.PathEscape(req.ProjectID), url.PathEscape(req.SessionID))
}

// DetectIntent sends one detectIntent call.
func (c *RESTClient) DetectIntent(ctx context.Context, bearer string, req DetectIntentRequest) (*QueryResult, error) {
	body := restRequest{
		QueryInput: restQueryInput{Text: restTextInput{Text: req.QueryText, LanguageCode: req.LanguageCode}},
	}
	if len(req.KnowledgeBaseNames) > 0 {
		body.QueryParams = &restQueryParams{KnowledgeBaseNames: req.KnowledgeBaseNames}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(req), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Code: resp.StatusCode}
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			apiErr.Message = errResp.Error.Message
			if errResp.Error.Code != 0 {
				apiErr.Code = errResp.Error.Code
			}
		}
		if json.Valid(respBody) {
			apiErr.Body = respBody
		}
		return nil, apiErr
	}

	var out DetectIntentResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("unmarshalling response: %w", err)
	}
	if out.QueryResult == nil {
		return &QueryResult{}, nil
	}
	return out.QueryResult, nil
}
