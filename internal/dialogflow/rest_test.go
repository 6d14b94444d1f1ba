package dialogflow

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRESTDetectIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2beta1/projects/querybee-owui/agent/sessions/s1:detectIntent", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{
			"queryInput": {"text": {"text": "admission", "languageCode": "en"}},
			"queryParams": {"knowledgeBaseNames": ["projects/querybee-owui/knowledgeBases/kb1"]}
		}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"responseId":"r1","queryResult":{"queryText":"admission","fulfillmentText":"Visit the admissions office.","intent":{"displayName":"admission.info"}}}`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "", nil)
	qr, err := c.DetectIntent(t.Context(), "tok", DetectIntentRequest{
		ProjectID:          "querybee-owui",
		SessionID:          "s1",
		QueryText:          "admission",
		LanguageCode:       "en",
		KnowledgeBaseNames: []string{KnowledgeBaseName("querybee-owui", "kb1")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Visit the admissions office.", qr.FulfillmentText)
	require.NotNil(t, qr.Intent)
	assert.Equal(t, "admission.info", qr.Intent.DisplayName)
}

func TestRESTOmitsQueryParamsWithoutKnowledgeBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, ok := body["queryParams"]
		assert.False(t, ok)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	qr, err := NewRESTClient(srv.URL, "", nil).DetectIntent(t.Context(), "tok", DetectIntentRequest{
		ProjectID: "p", SessionID: "s", QueryText: "hi", LanguageCode: "en",
	})
	require.NoError(t, err)
	assert.Equal(t, &QueryResult{}, qr)
}

func TestRESTErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantCode    int
		wantMessage string
		wantAuth    bool
		wantBody    bool
	}{
		{
			name:        "unauthenticated",
			status:      http.StatusUnauthorized,
			body:        `{"error":{"code":401,"message":"Request had invalid authentication credentials.","status":"UNAUTHENTICATED"}}`,
			wantCode:    401,
			wantMessage: "Request had invalid authentication credentials.",
			wantAuth:    true,
			wantBody:    true,
		},
		{
			name:        "not found",
			status:      http.StatusNotFound,
			body:        `{"error":{"code":404,"message":"Project not found.","status":"NOT_FOUND"}}`,
			wantCode:    404,
			wantMessage: "Project not found.",
			wantBody:    true,
		},
		{
			name:     "html body",
			status:   http.StatusBadGateway,
			body:     `<html>bad gateway</html>`,
			wantCode: 502,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewRESTClient(srv.URL, "", nil).DetectIntent(t.Context(), "tok", DetectIntentRequest{ProjectID: "p", SessionID: "s"})
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.wantAuth, apiErr.IsAuth())
			assert.Equal(t, tt.wantBody, apiErr.Body != nil)
		})
	}
}

func TestRESTDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	_, err := NewRESTClient(srv.URL, "", nil).DetectIntent(ctx, "tok", DetectIntentRequest{ProjectID: "p", SessionID: "s"})
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}
