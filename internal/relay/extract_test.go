package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querybee/querybee/internal/dialogflow"
)

func TestExtractPrecedence(t *testing.T) {
	kb := func(answers ...dialogflow.Answer) *dialogflow.KnowledgeAnswers {
		return &dialogflow.KnowledgeAnswers{Answers: answers}
	}
	messages := []dialogflow.Message{
		{},
		{Text: &dialogflow.TextMessage{Text: []string{"", "  "}}},
		{Text: &dialogflow.TextMessage{Text: []string{"From messages"}}},
	}

	tests := []struct {
		name string
		qr   dialogflow.QueryResult
		want string
	}{
		{
			name: "kb answer wins over fulfillment",
			qr:   dialogflow.QueryResult{FulfillmentText: "Y", KnowledgeAnswers: kb(dialogflow.Answer{Answer: "X"})},
			want: "X",
		},
		{
			name: "faq answer",
			qr:   dialogflow.QueryResult{FulfillmentText: "Y", KnowledgeAnswers: kb(dialogflow.Answer{FaqAnswer: &dialogflow.FaqAnswer{Answer: "FAQ"}})},
			want: "FAQ",
		},
		{
			name: "bare string answer",
			qr:   dialogflow.QueryResult{FulfillmentText: "Y", KnowledgeAnswers: kb(dialogflow.Answer{Text: "Bare"})},
			want: "Bare",
		},
		{
			name: "only first answer is consulted",
			qr:   dialogflow.QueryResult{FulfillmentText: "Merged", KnowledgeAnswers: kb(dialogflow.Answer{MatchConfidence: 0.4}, dialogflow.Answer{Answer: "Second"})},
			want: "Merged",
		},
		{
			name: "fulfillment text",
			qr:   dialogflow.QueryResult{FulfillmentText: "Y"},
			want: "Y",
		},
		{
			name: "fulfillment messages skip blanks",
			qr:   dialogflow.QueryResult{FulfillmentMessages: messages},
			want: "From messages",
		},
		{
			name: "fallback",
			qr:   dialogflow.QueryResult{FulfillmentText: "   "},
			want: FallbackText,
		},
	}

	chain, err := Extractors(nil)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(chain, &tt.qr, FallbackText))
		})
	}
}

func TestExtractorsCustomOrder(t *testing.T) {
	chain, err := Extractors([]string{"fulfillment_text", "kb_answer"})
	require.NoError(t, err)

	qr := &dialogflow.QueryResult{
		FulfillmentText:  "Intent text",
		KnowledgeAnswers: &dialogflow.KnowledgeAnswers{Answers: []dialogflow.Answer{{Answer: "KB text"}}},
	}
	assert.Equal(t, "Intent text", Extract(chain, qr, FallbackText))
}

func TestExtractorsRejectsUnknownAndDuplicate(t *testing.T) {
	_, err := Extractors([]string{"match_confidence"})
	assert.Error(t, err)

	_, err = Extractors([]string{"kb_answer", "kb_answer"})
	assert.Error(t, err)
}
