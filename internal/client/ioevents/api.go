package ioevents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// Environments.
const (
	EnvProduction = "production"
	EnvStaging    = "staging"
)

const (
	apiURLProduction = "https://api.adobe.io"
	apiURLStaging    = "https://api-stage.adobe.io"
)

// ErrUnavailable is returned while the management API circuit is open.
var ErrUnavailable = errors.New("adobe i/o management api unavailable")

// APIURL returns the management API base URL for an environment.
func APIURL(env string) string {
	if env == EnvStaging {
		return apiURLStaging
	}
	return apiURLProduction
}

// APIConfig holds configuration for the management API client.
type APIConfig struct {
	BaseURL string
	// ProviderMetadata restricts listed providers to this metadata value.
	ProviderMetadata string
	Timeout          time.Duration
}

// API manages event providers and event metadata.
type API struct {
	http    *http.Client
	tokens  TokenSource
	console ConsoleSource
	config  APIConfig
	cb      *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewAPI creates a new management API client.
func NewAPI(tokens TokenSource, console ConsoleSource, config APIConfig, logger *slog.Logger) *API {
	logger = logger.With("client", "ioevents-api")

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "AdobeIOManagementAPI",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// only transport failures and 5xx responses count against the circuit
			return err == nil || !errors.Is(err, errServer)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &API{
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		console: console,
		config:  config,
		cb:      gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

var errServer = errors.New("server error")

type apiResponse struct {
	status int
	body   []byte
}

// CreateEventProvider registers a provider for instanceID.
// A provider that already exists yields events.ErrAlreadyExists.
func (a *API) CreateEventProvider(ctx context.Context, instanceID string, provider EventProvider) (*EventProvider, error) {
	cfg, err := a.console.Configuration()
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("events/%s/%s/%s/providers",
		cfg.Project.Organization.ID, cfg.Project.ID, cfg.Project.Workspace.ID)

	payload := map[string]string{
		"instance_id": instanceID,
		"label":       provider.Label,
		"description": fmt.Sprintf("%s (Instance %s)", provider.Description, instanceID),
	}
	if a.config.ProviderMetadata != "" {
		payload["provider_metadata"] = a.config.ProviderMetadata
	}

	resp, err := a.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}

	switch resp.status {
	case http.StatusCreated:
	case http.StatusConflict:
		return nil, fmt.Errorf("%w: an event provider with the same instance ID already exists", events.ErrAlreadyExists)
	default:
		return nil, statusError(resp)
	}

	var created EventProvider
	if err := json.Unmarshal(resp.body, &created); err != nil {
		return nil, fmt.Errorf("failed to decode event provider: %w", err)
	}
	return &created, nil
}

// ListEventProviders lists the organization's providers, restricted to the
// configured provider metadata when set.
func (a *API) ListEventProviders(ctx context.Context) ([]EventProvider, error) {
	cfg, err := a.console.Configuration()
	if err != nil {
		return nil, err
	}

	resp, err := a.do(ctx, http.MethodGet, fmt.Sprintf("events/%s/providers", cfg.Project.Organization.ID), nil)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, statusError(resp)
	}

	var data struct {
		Embedded struct {
			Providers []EventProvider `json:"providers"`
		} `json:"_embedded"`
	}
	if err := json.Unmarshal(resp.body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode event providers: %w", err)
	}

	var providers []EventProvider
	for _, p := range data.Embedded.Providers {
		if a.config.ProviderMetadata == "" || p.ProviderMetadata == a.config.ProviderMetadata {
			providers = append(providers, p)
		}
	}
	return providers, nil
}

// CreateEventMetadata registers an event type under providerID.
func (a *API) CreateEventMetadata(ctx context.Context, providerID string, metadata EventMetadata) error {
	cfg, err := a.console.Configuration()
	if err != nil {
		return err
	}

	path := fmt.Sprintf("events/%s/%s/%s/providers/%s/eventmetadata",
		cfg.Project.Organization.ID, cfg.Project.ID, cfg.Project.Workspace.ID, providerID)

	resp, err := a.do(ctx, http.MethodPost, path, metadata)
	if err != nil {
		return err
	}
	if resp.status != http.StatusCreated {
		return statusError(resp)
	}
	return nil
}

// ListRegisteredEventMetadata lists event types registered under providerID.
func (a *API) ListRegisteredEventMetadata(ctx context.Context, providerID string) ([]EventMetadata, error) {
	resp, err := a.do(ctx, http.MethodGet, fmt.Sprintf("events/providers/%s/eventmetadata", providerID), nil)
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: event metadata list was not found", events.ErrNotFound)
	}
	if resp.status != http.StatusOK {
		return nil, statusError(resp)
	}

	var data struct {
		Embedded struct {
			EventMetadata []EventMetadata `json:"eventmetadata"`
		} `json:"_embedded"`
	}
	if err := json.Unmarshal(resp.body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode event metadata: %w", err)
	}
	return data.Embedded.EventMetadata, nil
}

// DeleteEventMetadata removes an event type. It reports whether the remote
// side confirmed the deletion.
func (a *API) DeleteEventMetadata(ctx context.Context, providerID string, metadata EventMetadata) (bool, error) {
	cfg, err := a.console.Configuration()
	if err != nil {
		return false, err
	}

	path := fmt.Sprintf("events/%s/%s/%s/providers/%s/eventmetadata/%s",
		cfg.Project.Organization.ID, cfg.Project.ID, cfg.Project.Workspace.ID, providerID,
		url.PathEscape(metadata.EventCode))

	resp, err := a.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return false, err
	}
	return resp.status == http.StatusNoContent, nil
}

// do sends an authorized request through the circuit breaker.
func (a *API) do(ctx context.Context, method, path string, payload any) (*apiResponse, error) {
	result, err := a.cb.Execute(func() (interface{}, error) {
		return a.send(ctx, method, path, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}

	resp := result.(*apiResponse)
	if resp.status == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: access token is not valid anymore", events.ErrAuthorization)
	}
	return resp, nil
}

func (a *API) send(ctx context.Context, method, path string, payload any) (*apiResponse, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(a.config.BaseURL, "/")+"/"+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := a.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := a.console.Configuration()
	if err != nil {
		return nil, err
	}
	cred, err := cfg.FirstCredential()
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", cred.JWT.ClientID)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", errServer, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", errServer, err)
	}

	a.logger.Debug("management api request completed", "method", method, "path", path, "status", resp.StatusCode)

	out := &apiResponse{status: resp.StatusCode, body: respBody}
	if resp.StatusCode >= http.StatusInternalServerError {
		return out, fmt.Errorf("%w: %s", errServer, statusError(out))
	}
	return out, nil
}

func statusError(resp *apiResponse) error {
	return fmt.Errorf("unexpected response %d %s: %s",
		resp.status, http.StatusText(resp.status), strings.TrimSpace(string(resp.body)))
}
