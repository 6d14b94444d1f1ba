// Package mockdf serves a fake Dialogflow detectIntent endpoint with canned
// replies so the relay can be exercised without Google credentials.
package mockdf

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/querybee/querybee/internal/dialogflow"
	qblog "github.com/querybee/querybee/internal/log"
)

// IntentName is the display name of every canned intent.
const IntentName = "mock-intent"

// DefaultReply answers any query no keyword matches.
const DefaultReply = "I'm QueryBee! How can I help you?"

var replies = []struct {
	keyword string
	reply   string
}{
	{"hello", "Hello! Welcome to QueryBee!"},
	{"admission", "For admission info, please visit the college office."},
	{"course", "We offer various courses in Engineering, Science, and Management."},
	{"fee", "Please contact the accounts department for fee information."},
}

// Reply returns the canned answer for query. Keywords are checked in order.
func Reply(query string) string {
	q := strings.ToLower(query)
	for _, r := range replies {
		if strings.Contains(q, r.keyword) {
			return r.reply
		}
	}
	return DefaultReply
}

// Options controls the fake upstream.
type Options struct {
	// KnowledgeBase answers through knowledgeAnswers when the request
	// names a knowledge base.
	KnowledgeBase bool
	// RejectTokens are bearers answered with 401.
	RejectTokens []string
}

type handler struct {
	opts Options
	log  zerolog.Logger
}

type detectBody struct {
	QueryInput struct {
		Text struct {
			Text         string `json:"text"`
			LanguageCode string `json:"languageCode"`
		} `json:"text"`
	} `json:"queryInput"`
	QueryParams *struct {
		KnowledgeBaseNames []string `json:"knowledgeBaseNames"`
	} `json:"queryParams"`
}

// NewHandler returns the fake API. Routes follow the REST path
// /{version}/projects/{project}/agent/sessions/{session}:detectIntent.
func NewHandler(opts Options) http.Handler {
	h := &handler{opts: opts, log: qblog.WithComponent("mock")}
	r := chi.NewRouter()
	r.Post("/{version}/projects/{project}/agent/sessions/{session}", h.detectIntent)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusNotFound, "NOT_FOUND", "Method not found.")
	})
	return r
}

func (h *handler) detectIntent(w http.ResponseWriter, r *http.Request) {
	session, ok := strings.CutSuffix(chi.URLParam(r, "session"), ":detectIntent")
	if !ok || session == "" {
		writeStatus(w, http.StatusNotFound, "NOT_FOUND", "Method not found.")
		return
	}
	project := chi.URLParam(r, "project")

	bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || bearer == "" {
		writeStatus(w, http.StatusUnauthorized, "UNAUTHENTICATED",
			"Request is missing required authentication credential.")
		return
	}
	if slices.Contains(h.opts.RejectTokens, bearer) {
		writeStatus(w, http.StatusUnauthorized, "UNAUTHENTICATED",
			"Request had invalid authentication credentials.")
		return
	}

	var body detectBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeStatus(w, http.StatusBadRequest, "INVALID_ARGUMENT", "Invalid JSON payload received.")
		return
	}
	text := body.QueryInput.Text.Text
	if strings.TrimSpace(text) == "" {
		writeStatus(w, http.StatusBadRequest, "INVALID_ARGUMENT", "Text input must not be empty.")
		return
	}

	reply := Reply(text)
	qr := &dialogflow.QueryResult{
		QueryText:    text,
		LanguageCode: body.QueryInput.Text.LanguageCode,
		Intent: &dialogflow.Intent{
			Name:        "projects/" + project + "/agent/intents/" + uuid.NewString(),
			DisplayName: IntentName,
		},
		IntentDetectionConfidence: 1,
	}
	if h.opts.KnowledgeBase && body.QueryParams != nil && len(body.QueryParams.KnowledgeBaseNames) > 0 {
		qr.KnowledgeAnswers = &dialogflow.KnowledgeAnswers{Answers: []dialogflow.Answer{{
			Answer:               reply,
			Source:               body.QueryParams.KnowledgeBaseNames[0] + "/documents/mock",
			MatchConfidenceLevel: "HIGH",
			MatchConfidence:      0.9,
		}}}
	} else {
		qr.FulfillmentText = reply
		qr.FulfillmentMessages = []dialogflow.Message{{Text: &dialogflow.TextMessage{Text: []string{reply}}}}
	}

	h.log.Debug().Str("session_id", session).Str("query", text).Msg("detectIntent")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dialogflow.DetectIntentResponse{
		ResponseID:  uuid.NewString(),
		QueryResult: qr,
	})
}

// writeStatus writes a Google API error envelope.
func writeStatus(w http.ResponseWriter, code int, status, message string) {
	var body struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	body.Error.Code = code
	body.Error.Message = message
	body.Error.Status = status

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
