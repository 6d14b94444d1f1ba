package relay

import (
	"fmt"
	"strings"

	"github.com/querybee/querybee/internal/dialogflow"
)

// FallbackText is returned when no extractor finds any reply text.
const FallbackText = "Sorry, I didn't understand that."

// Extractor tries one response shape and reports whether it matched.
type Extractor struct {
	Name    string
	Extract func(*dialogflow.QueryResult) (string, bool)
}

func firstAnswer(qr *dialogflow.QueryResult) (dialogflow.Answer, bool) {
	if qr.KnowledgeAnswers == nil || len(qr.KnowledgeAnswers.Answers) == 0 {
		return dialogflow.Answer{}, false
	}
	return qr.KnowledgeAnswers.Answers[0], true
}

func nonBlank(s string) (string, bool) {
	return s, strings.TrimSpace(s) != ""
}

var extractors = map[string]Extractor{
	"kb_answer": {Name: "kb_answer", Extract: func(qr *dialogflow.QueryResult) (string, bool) {
		a, ok := firstAnswer(qr)
		if !ok {
			return "", false
		}
		return nonBlank(a.Answer)
	}},
	"kb_faq_answer": {Name: "kb_faq_answer", Extract: func(qr *dialogflow.QueryResult) (string, bool) {
		a, ok := firstAnswer(qr)
		if !ok || a.FaqAnswer == nil {
			return "", false
		}
		return nonBlank(a.FaqAnswer.Answer)
	}},
	"kb_text": {Name: "kb_text", Extract: func(qr *dialogflow.QueryResult) (string, bool) {
		a, ok := firstAnswer(qr)
		if !ok {
			return "", false
		}
		return nonBlank(a.Text)
	}},
	"fulfillment_text": {Name: "fulfillment_text", Extract: func(qr *dialogflow.QueryResult) (string, bool) {
		return nonBlank(qr.FulfillmentText)
	}},
	"fulfillment_messages": {Name: "fulfillment_messages", Extract: func(qr *dialogflow.QueryResult) (string, bool) {
		for _, m := range qr.FulfillmentMessages {
			if m.Text == nil {
				continue
			}
			for _, t := range m.Text.Text {
				if s, ok := nonBlank(t); ok {
					return s, true
				}
			}
		}
		return "", false
	}},
}

// DefaultExtractionOrder prefers knowledge-base answers over intent
// fulfillment.
var DefaultExtractionOrder = []string{
	"kb_answer",
	"kb_faq_answer",
	"kb_text",
	"fulfillment_text",
	"fulfillment_messages",
}

// Extractors resolves extractor names into a chain. An empty list yields
// the default order.
func Extractors(names []string) ([]Extractor, error) {
	if len(names) == 0 {
		names = DefaultExtractionOrder
	}
	chain := make([]Extractor, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		e, ok := extractors[name]
		if !ok {
			return nil, fmt.Errorf("unknown answer extractor %q", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("answer extractor %q listed twice", name)
		}
		seen[name] = true
		chain = append(chain, e)
	}
	return chain, nil
}

// Extract runs the chain and returns the first hit, or fallback.
func Extract(chain []Extractor, qr *dialogflow.QueryResult, fallback string) string {
	for _, e := range chain {
		if text, ok := e.Extract(qr); ok {
			return text
		}
	}
	return fallback
}
