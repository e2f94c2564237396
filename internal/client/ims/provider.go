// Package ims exchanges a service account JWT for an Adobe IMS access token.
package ims

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cornjacket/commerce-events/internal/client/ioevents"
	"github.com/cornjacket/commerce-events/internal/shared/domain/clock"
	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

const (
	imsURLProduction      = "https://ims-na1.adobelogin.com"
	imsURLStaging         = "https://ims-na1-stg1.adobelogin.com"
	exchangeURLProduction = "https://adobeid-na1.services.adobe.com/ims/exchange/jwt"
	exchangeURLStaging    = "https://adobeid-na1-stg1.services.adobe.com/ims/exchange/jwt"
)

// expirySkew is subtracted from the token lifetime reported by IMS.
const expirySkew = time.Minute

// Config holds configuration for the token provider.
type Config struct {
	// Environment is ioevents.EnvProduction or ioevents.EnvStaging.
	Environment string
	PrivateKey  []byte
	// JWTExpiration is the lifetime of the signed assertion.
	JWTExpiration time.Duration
	// ExchangeURL overrides the environment's exchange endpoint.
	ExchangeURL string
	Timeout     time.Duration
}

// Token is an access token and the time it stops being usable.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Valid reports whether the token can still be used at now.
func (t *Token) Valid(now time.Time) bool {
	return t != nil && t.AccessToken != "" && now.Before(t.ExpiresAt)
}

// TokenCache stores access tokens. Get returns nil, nil on a miss.
type TokenCache interface {
	Get(ctx context.Context, key string) (*Token, error)
	Set(ctx context.Context, key string, token *Token) error
}

// Provider returns cached access tokens and refreshes them on expiry.
type Provider struct {
	http    *http.Client
	console ioevents.ConsoleSource
	cache   TokenCache
	config  Config
	logger  *slog.Logger

	mu sync.Mutex
}

// NewProvider creates a new token provider.
func NewProvider(console ioevents.ConsoleSource, cache TokenCache, config Config, logger *slog.Logger) *Provider {
	if config.JWTExpiration == 0 {
		config.JWTExpiration = 24 * time.Hour
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Provider{
		http:    &http.Client{Timeout: timeout},
		console: console,
		cache:   cache,
		config:  config,
		logger:  logger.With("client", "ims"),
	}
}

// KeyConfigured reports whether a private key was supplied.
func (p *Provider) KeyConfigured() bool {
	return len(p.config.PrivateKey) > 0
}

// AccessToken implements ioevents.TokenSource.
func (p *Provider) AccessToken(ctx context.Context) (string, error) {
	cfg, err := p.console.Configuration()
	if err != nil {
		return "", err
	}
	cred, err := cfg.FirstCredential()
	if err != nil {
		return "", err
	}
	key := "ims_token:" + cred.JWT.ClientID

	p.mu.Lock()
	defer p.mu.Unlock()

	cached, err := p.cache.Get(ctx, key)
	if err != nil {
		p.logger.Warn("token cache read failed", "error", err)
	}
	if cached.Valid(clock.Now()) {
		return cached.AccessToken, nil
	}

	token, err := p.exchange(ctx, cfg, cred.JWT)
	if err != nil {
		return "", err
	}
	if err := p.cache.Set(ctx, key, token); err != nil {
		p.logger.Warn("token cache write failed", "error", err)
	}
	return token.AccessToken, nil
}

func (p *Provider) exchange(ctx context.Context, cfg *ioevents.ConsoleConfiguration, cred *ioevents.JWT) (*Token, error) {
	assertion, err := p.signAssertion(cfg.Project.Organization.IMSOrgID, cred)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("client_id", cred.ClientID)
	form.Set("client_secret", cred.ClientSecret)
	form.Set("jwt_token", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.exchangeURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange jwt: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var data struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &data); err != nil || data.AccessToken == "" {
		p.logger.Error("ims token exchange failed", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: Could not login to Adobe IMS.", events.ErrAuthorization)
	}

	// expires_in is in milliseconds
	lifetime := time.Duration(data.ExpiresIn)*time.Millisecond - expirySkew
	return &Token{
		AccessToken: data.AccessToken,
		ExpiresAt:   clock.Now().Add(lifetime),
	}, nil
}

func (p *Provider) signAssertion(imsOrgID string, cred *ioevents.JWT) (string, error) {
	if !p.KeyConfigured() {
		return "", fmt.Errorf("%w: private key is not configured", events.ErrInvalidConfiguration)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(p.config.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("%w: private key is invalid: %v", events.ErrInvalidConfiguration, err)
	}
	return SignAssertion(key, p.imsURL(), imsOrgID, cred, clock.Now().Add(p.config.JWTExpiration))
}

// SignAssertion builds the RS256 service account assertion.
func SignAssertion(key *rsa.PrivateKey, imsURL, imsOrgID string, cred *ioevents.JWT, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"exp": jwt.NewNumericDate(expiresAt),
		"iss": imsOrgID,
		"sub": cred.TechnicalAccountID,
		"aud": imsURL + "/c/" + cred.ClientID,
	}
	for _, scope := range cred.MetaScopes {
		claims[imsURL+"/s/"+scope] = true
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign jwt: %w", err)
	}
	return signed, nil
}

func (p *Provider) imsURL() string {
	if p.config.Environment == ioevents.EnvStaging {
		return imsURLStaging
	}
	return imsURLProduction
}

func (p *Provider) exchangeURL() string {
	if p.config.ExchangeURL != "" {
		return p.config.ExchangeURL
	}
	if p.config.Environment == ioevents.EnvStaging {
		return exchangeURLStaging
	}
	return exchangeURLProduction
}
