// Package token supplies bearer tokens for Dialogflow: a manually configured
// token first, then cached service-account tokens.
package token

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	qblog "github.com/querybee/querybee/internal/log"
	"github.com/querybee/querybee/internal/metrics"
)

const (
	// DefaultRefreshBuffer is how long before expiry a cached token stops
	// being handed out.
	DefaultRefreshBuffer = 5 * time.Minute

	// defaultLifetime is assumed when the identity provider omits expires_in.
	defaultLifetime = 55 * time.Minute

	exchangeTimeout = 30 * time.Second
)

// Source identifies where a token came from.
type Source string

const (
	SourceManual         Source = "manual"
	SourceServiceAccount Source = "service_account"
)

// Token is a bearer token plus its provenance.
type Token struct {
	Value     string
	ExpiresAt time.Time // zero for manual tokens
	Source    Source
}

// cachedToken is replaced, never mutated.
type cachedToken struct {
	value     string
	expiresAt time.Time
	refreshAt time.Time
}

// Options configures a Provider.
type Options struct {
	ManualToken   string
	Exchanger     Exchanger // nil when no service account is configured
	RefreshBuffer time.Duration
	Now           func() time.Time
}

// Provider hands out bearer tokens. It is safe for concurrent use.
type Provider struct {
	manual        string
	exchanger     Exchanger
	refreshBuffer time.Duration
	now           func() time.Time
	log           zerolog.Logger

	mu             sync.RWMutex
	cached         *cachedToken
	manualRejected bool

	flight singleflight.Group
}

// NewProvider creates a Provider. A Provider without any source is valid
// but every Token call fails with a CredentialError.
func NewProvider(opts Options) *Provider {
	if opts.RefreshBuffer <= 0 {
		opts.RefreshBuffer = DefaultRefreshBuffer
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Provider{
		manual:        opts.ManualToken,
		exchanger:     opts.Exchanger,
		refreshBuffer: opts.RefreshBuffer,
		now:           opts.Now,
		log:           qblog.WithComponent("token"),
	}
}

// Token returns the manual token unless it is absent or was rejected, in
// which case it returns a service-account token.
func (p *Provider) Token(ctx context.Context) (Token, error) {
	p.mu.RLock()
	useManual := p.manual != "" && !p.manualRejected
	p.mu.RUnlock()

	if useManual {
		return Token{Value: p.manual, Source: SourceManual}, nil
	}
	return p.ServiceAccountToken(ctx)
}

// ServiceAccountToken returns the cached service-account token, exchanging
// a new one when the cache is empty or inside the refresh buffer. Concurrent
// callers share a single in-flight exchange.
func (p *Provider) ServiceAccountToken(ctx context.Context) (Token, error) {
	if p.exchanger == nil {
		return Token{}, &CredentialError{
			Missing: p.manual == "",
			Reason:  "no service account credentials configured",
		}
	}

	if tok, ok := p.fresh(); ok {
		return tok, nil
	}

	ch := p.flight.DoChan("service_account", func() (any, error) {
		// A flight that finished just before this one started may have
		// already refreshed the cache.
		if tok, ok := p.fresh(); ok {
			return tok, nil
		}
		return p.exchange(ctx)
	})

	select {
	case <-ctx.Done():
		return Token{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Token{}, res.Err
		}
		return res.Val.(Token), nil
	}
}

func (p *Provider) fresh() (Token, bool) {
	p.mu.RLock()
	c := p.cached
	p.mu.RUnlock()

	if c == nil || !p.now().Before(c.refreshAt) {
		return Token{}, false
	}
	return Token{Value: c.value, ExpiresAt: c.expiresAt, Source: SourceServiceAccount}, true
}

func (p *Provider) exchange(ctx context.Context) (Token, error) {
	// The exchange outlives any single caller: others may be waiting on it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exchangeTimeout)
	defer cancel()

	tok, err := p.exchanger.Exchange(ctx)
	if err != nil {
		metrics.TokenExchanges.WithLabelValues("error").Inc()
		p.log.Error().Err(err).Msg("service account token exchange failed")
		return Token{}, &CredentialError{Reason: "token exchange rejected", Err: err}
	}
	if tok == nil || tok.AccessToken == "" {
		metrics.TokenExchanges.WithLabelValues("error").Inc()
		return Token{}, &CredentialError{Reason: "token exchange returned no access token"}
	}

	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = p.now().Add(defaultLifetime)
	}

	now := p.now()
	lifetime := expiresAt.Sub(now)
	if lifetime <= 0 {
		metrics.TokenExchanges.WithLabelValues("error").Inc()
		return Token{}, &CredentialError{Reason: "token exchange returned an expired token"}
	}
	// Tokens that live no longer than the buffer are refreshed halfway
	// through their lifetime.
	buffer := p.refreshBuffer
	if lifetime <= buffer {
		buffer = lifetime / 2
	}

	p.mu.Lock()
	p.cached = &cachedToken{value: tok.AccessToken, expiresAt: expiresAt, refreshAt: expiresAt.Add(-buffer)}
	p.mu.Unlock()

	metrics.TokenExchanges.WithLabelValues("ok").Inc()
	p.log.Info().Time("expires_at", expiresAt).Msg("service account token refreshed")
	return Token{Value: tok.AccessToken, ExpiresAt: expiresAt, Source: SourceServiceAccount}, nil
}

// RejectManual records that the upstream refused the manual token. Later
// Token calls go straight to the service account.
func (p *Provider) RejectManual() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.manual != "" && !p.manualRejected {
		p.manualRejected = true
		p.log.Warn().Msg("manual access token rejected upstream; using service account from now on")
	}
}

// Status is a snapshot of the provider suitable for diagnostics. It never
// includes token values.
type Status struct {
	HasManualToken      bool
	ManualTokenRejected bool
	HasServiceAccount   bool
	CachedToken         bool
	ExpiresIn           time.Duration
}

// Status reports the current credential state.
func (p *Provider) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()

	st := Status{
		HasManualToken:      p.manual != "",
		ManualTokenRejected: p.manualRejected,
		HasServiceAccount:   p.exchanger != nil,
	}
	if p.cached != nil {
		st.CachedToken = true
		if left := p.cached.expiresAt.Sub(p.now()); left > 0 {
			st.ExpiresIn = left
		}
	}
	return st
}
