// Package relay turns {query, sessionId} requests into Dialogflow
// detectIntent calls and normalizes the replies.
package relay

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/querybee/querybee/internal/dialogflow"
	qblog "github.com/querybee/querybee/internal/log"
	"github.com/querybee/querybee/internal/metrics"
	"github.com/querybee/querybee/internal/token"
)

// DefaultTimeout bounds each upstream call.
const DefaultTimeout = 20 * time.Second

// LanguageCode is sent with every detectIntent call. The agent is English only.
const LanguageCode = "en"

// Detector is one calling style for detectIntent.
type Detector interface {
	DetectIntent(ctx context.Context, bearer string, req dialogflow.DetectIntentRequest) (*dialogflow.QueryResult, error)
}

// Tokens supplies bearer tokens. *token.Provider implements it.
type Tokens interface {
	Token(ctx context.Context) (token.Token, error)
	ServiceAccountToken(ctx context.Context) (token.Token, error)
	RejectManual()
	Status() token.Status
}

// Config holds relay settings.
type Config struct {
	ProjectID       string
	KnowledgeBaseID string
	Timeout         time.Duration
	Extractors      []Extractor
	FallbackText    string
	Development     bool

	// Transport and Endpoint are reported by diagnostics only.
	Transport string
	Endpoint  string
}

// Source tells whether a reply came from the knowledge base.
type Source string

const (
	SourceKnowledgeBase Source = "knowledge_base"
	SourceIntent        Source = "intent"
)

// Request is one user utterance.
type Request struct {
	Query     string
	SessionID string
}

// Response is the normalized reply.
type Response struct {
	SessionID string  `json:"sessionId"`
	Query     string  `json:"query"`
	Response  string  `json:"response"`
	Intent    *string `json:"intent"`
	Source    Source  `json:"source"`

	// AnswerCount is the number of knowledge answers upstream returned.
	AnswerCount int `json:"-"`
}

// Relay is safe for concurrent use.
type Relay struct {
	cfg      Config
	detector Detector
	tokens   Tokens
	log      zerolog.Logger
}

// New creates a Relay. Zero-valued settings take defaults.
func New(cfg Config, detector Detector, tokens Tokens) *Relay {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if len(cfg.Extractors) == 0 {
		cfg.Extractors, _ = Extractors(nil)
	}
	if cfg.FallbackText == "" {
		cfg.FallbackText = FallbackText
	}
	return &Relay{
		cfg:      cfg,
		detector: detector,
		tokens:   tokens,
		log:      qblog.WithComponent("relay"),
	}
}

// Config returns the effective settings.
func (rl *Relay) Config() Config { return rl.cfg }

// Detect sends one query upstream. Errors are always *Error.
func (rl *Relay) Detect(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Query) == "" {
		metrics.RelayRequests.WithLabelValues(string(KindValidation)).Inc()
		return nil, &Error{Kind: KindValidation, Message: "missing query"}
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	dfReq := dialogflow.DetectIntentRequest{
		ProjectID:    rl.cfg.ProjectID,
		SessionID:    sessionID,
		QueryText:    req.Query,
		LanguageCode: LanguageCode,
	}
	if rl.cfg.KnowledgeBaseID != "" {
		dfReq.KnowledgeBaseNames = []string{dialogflow.KnowledgeBaseName(rl.cfg.ProjectID, rl.cfg.KnowledgeBaseID)}
	}

	qr, err := rl.detect(ctx, dfReq)
	if err != nil {
		e := classify(err)
		metrics.RelayRequests.WithLabelValues(string(e.Kind)).Inc()
		rl.log.Error().Err(err).Str("session_id", sessionID).Str("kind", string(e.Kind)).
			Int("status", e.Status).Msg("detectIntent failed")
		return nil, e
	}

	resp := rl.normalize(qr, req.Query, sessionID)
	metrics.RelayRequests.WithLabelValues(string(resp.Source)).Inc()
	rl.log.Debug().Str("session_id", sessionID).Str("source", string(resp.Source)).Msg("reply relayed")
	return resp, nil
}

// detect calls upstream with the preferred token and, when a manual token
// is refused with 401/403, retries once with a service-account token.
func (rl *Relay) detect(ctx context.Context, req dialogflow.DetectIntentRequest) (*dialogflow.QueryResult, error) {
	tok, err := rl.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	qr, err := rl.call(ctx, tok.Value, req)
	if err == nil || tok.Source != token.SourceManual || !isAuthRejection(err) {
		return qr, err
	}

	sa, saErr := rl.tokens.ServiceAccountToken(ctx)
	if saErr != nil {
		rl.log.Warn().Err(saErr).Msg("manual token rejected and no service account token available")
		return nil, err
	}
	rl.tokens.RejectManual()
	metrics.ManualTokenFallbacks.Inc()
	rl.log.Info().Msg("manual token rejected; retrying with service account token")
	return rl.call(ctx, sa.Value, req)
}

func (rl *Relay) call(ctx context.Context, bearer string, req dialogflow.DetectIntentRequest) (*dialogflow.QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, rl.cfg.Timeout)
	defer cancel()

	start := time.Now()
	qr, err := rl.detector.DetectIntent(ctx, bearer, req)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.UpstreamDuration.WithLabelValues(rl.cfg.Transport, result).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}
	if qr == nil {
		qr = &dialogflow.QueryResult{}
	}
	return qr, nil
}

func isAuthRejection(err error) bool {
	var apiErr *dialogflow.APIError
	return errors.As(err, &apiErr) && apiErr.IsAuth()
}

func (rl *Relay) normalize(qr *dialogflow.QueryResult, query, sessionID string) *Response {
	resp := &Response{
		SessionID: sessionID,
		Query:     query,
		Response:  Extract(rl.cfg.Extractors, qr, rl.cfg.FallbackText),
		Source:    SourceIntent,
	}
	if qr.QueryText != "" {
		resp.Query = qr.QueryText
	}
	if qr.Intent != nil && qr.Intent.DisplayName != "" {
		name := qr.Intent.DisplayName
		resp.Intent = &name
	}
	if qr.KnowledgeAnswers != nil && len(qr.KnowledgeAnswers.Answers) > 0 {
		resp.Source = SourceKnowledgeBase
		resp.AnswerCount = len(qr.KnowledgeAnswers.Answers)
	}
	return resp
}

// Diagnostics is a credential-free summary of the relay configuration.
type Diagnostics struct {
	ProjectID         string `json:"projectId"`
	KnowledgeBaseID   string `json:"knowledgeBaseId"`
	KnowledgeBasePath string `json:"knowledgeBasePath,omitempty"`
	Transport         string `json:"transport"`
	Endpoint          string `json:"endpoint,omitempty"`
	LanguageCode      string `json:"languageCode"`
	HasManualToken    bool   `json:"hasManualToken"`
	HasServiceAccount bool   `json:"hasServiceAccount"`
	Development       bool   `json:"development"`
}

// Diagnose reports how the relay is configured.
func (rl *Relay) Diagnose() Diagnostics {
	st := rl.tokens.Status()
	d := Diagnostics{
		ProjectID:         rl.cfg.ProjectID,
		KnowledgeBaseID:   rl.cfg.KnowledgeBaseID,
		Transport:         rl.cfg.Transport,
		Endpoint:          rl.cfg.Endpoint,
		LanguageCode:      LanguageCode,
		HasManualToken:    st.HasManualToken,
		HasServiceAccount: st.HasServiceAccount,
		Development:       rl.cfg.Development,
	}
	if rl.cfg.KnowledgeBaseID != "" {
		d.KnowledgeBasePath = dialogflow.KnowledgeBaseName(rl.cfg.ProjectID, rl.cfg.KnowledgeBaseID)
	}
	return d
}

// TokenStatus is the JSON view of the token cache.
type TokenStatus struct {
	ProjectID             string `json:"projectId"`
	KnowledgeBaseID       string `json:"knowledgeBaseId"`
	HasManualToken        bool   `json:"hasManualToken"`
	ManualTokenRejected   bool   `json:"manualTokenRejected"`
	HasServiceAccount     bool   `json:"hasServiceAccount"`
	CachedToken           bool   `json:"cachedToken"`
	TokenExpiresInSeconds int    `json:"tokenExpiresInSeconds"`
}

// TokenStatus reports the token cache state without exposing token values.
func (rl *Relay) TokenStatus() TokenStatus {
	st := rl.tokens.Status()
	return TokenStatus{
		ProjectID:             rl.cfg.ProjectID,
		KnowledgeBaseID:       rl.cfg.KnowledgeBaseID,
		HasManualToken:        st.HasManualToken,
		ManualTokenRejected:   st.ManualTokenRejected,
		HasServiceAccount:     st.HasServiceAccount,
		CachedToken:           st.CachedToken,
		TokenExpiresInSeconds: int(st.ExpiresIn / time.Second),
	}
}
