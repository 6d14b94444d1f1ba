// Package dialogflow calls the Dialogflow v2beta1 detectIntent operation
// over REST or gRPC and returns the query result in its REST JSON shape.
package dialogflow

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DetectIntentRequest is built fresh for every call.
type DetectIntentRequest struct {
	ProjectID          string
	SessionID          string
	QueryText          string
	LanguageCode       string
	KnowledgeBaseNames []string
}

// SessionPath returns projects/{p}/agent/sessions/{s}.
func (r DetectIntentRequest) SessionPath() string {
	return fmt.Sprintf("projects/%s/agent/sessions/%s", r.ProjectID, r.SessionID)
}

// KnowledgeBaseName returns the resource name of a knowledge base.
func KnowledgeBaseName(projectID, kbID string) string {
	return fmt.Sprintf("projects/%s/knowledgeBases/%s", projectID, kbID)
}

// DetectIntentResponse is the REST response envelope.
type DetectIntentResponse struct {
	ResponseID  string       `json:"responseId,omitempty"`
	QueryResult *QueryResult `json:"queryResult,omitempty"`
}

// QueryResult is the subset of the upstream result the relay reads.
type QueryResult struct {
	QueryText                 string            `json:"queryText,omitempty"`
	LanguageCode              string            `json:"languageCode,omitempty"`
	FulfillmentText           string            `json:"fulfillmentText,omitempty"`
	FulfillmentMessages       []Message         `json:"fulfillmentMessages,omitempty"`
	Intent                    *Intent           `json:"intent,omitempty"`
	IntentDetectionConfidence float64           `json:"intentDetectionConfidence,omitempty"`
	KnowledgeAnswers          *KnowledgeAnswers `json:"knowledgeAnswers,omitempty"`
}

type Intent struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// Message is a fulfillment message. Only text messages are modelled.
type Message struct {
	Text *TextMessage `json:"text,omitempty"`
}

type TextMessage struct {
	Text []string `json:"text"`
}

type KnowledgeAnswers struct {
	Answers []Answer `json:"answers"`
}

type FaqAnswer struct {
	Answer   string `json:"answer,omitempty"`
	Question string `json:"question,omitempty"`
}

// Answer is one knowledge-base answer. The upstream has returned it as an
// object with "answer", as an object with "faqAnswer.answer", and as a bare
// JSON string; a bare string lands in Text.
type Answer struct {
	Answer               string     `json:"answer,omitempty"`
	FaqAnswer            *FaqAnswer `json:"faqAnswer,omitempty"`
	FaqQuestion          string     `json:"faqQuestion,omitempty"`
	Source               string     `json:"source,omitempty"`
	MatchConfidenceLevel string     `json:"matchConfidenceLevel,omitempty"`
	MatchConfidence      float64    `json:"matchConfidence,omitempty"`

	Text string `json:"-"`
}

type answerFields Answer

func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		*a = Answer{}
		return json.Unmarshal(data, &a.Text)
	}
	var f answerFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = Answer(f)
	return nil
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.Text != "" && a == (Answer{Text: a.Text}) {
		return json.Marshal(a.Text)
	}
	return json.Marshal(answerFields(a))
}
