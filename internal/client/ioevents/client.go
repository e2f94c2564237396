// Package ioevents talks to Adobe I/O Events: the batch publish endpoint and
// the provider and event metadata management API.
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
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// TokenSource returns a valid bearer token.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// ConsoleSource returns the workspace configuration.
type ConsoleSource interface {
	Configuration() (*ConsoleConfiguration, error)
}

// Config holds configuration for the publish client.
type Config struct {
	EndpointURL   string
	MerchantID    string
	EnvironmentID string
	InstanceID    string
	Timeout       time.Duration
}

// BatchResponse is the endpoint's answer to a publish request.
type BatchResponse struct {
	StatusCode int
	Reason     string
	Body       string
}

type publishRequest struct {
	MerchantID    string           `json:"merchantId"`
	EnvironmentID string           `json:"environmentId"`
	Messages      []events.Message `json:"messages"`
	InstanceID    string           `json:"instanceId"`
}

// Client publishes event batches.
type Client struct {
	http    *http.Client
	tokens  TokenSource
	console ConsoleSource
	config  Config
	logger  *slog.Logger
}

// NewClient creates a new publish client.
func NewClient(tokens TokenSource, console ConsoleSource, config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		console: console,
		config:  config,
		logger:  logger.With("client", "ioevents"),
	}
}

// SendBatch posts messages to {endpoint}/v1/publish-batch. Any HTTP status is
// returned as a BatchResponse. Missing credentials and rejected
// authorization are returned as events.ErrInvalidConfiguration.
func (c *Client) SendBatch(ctx context.Context, messages []events.Message) (*BatchResponse, error) {
	body, err := json.Marshal(publishRequest{
		MerchantID:    c.config.MerchantID,
		EnvironmentID: c.config.EnvironmentID,
		Messages:      messages,
		InstanceID:    c.config.InstanceID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch: %w", err)
	}

	url := strings.TrimRight(c.config.EndpointURL, "/") + "/v1/publish-batch"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if err := c.authorize(ctx, req); err != nil {
		if errors.Is(err, events.ErrAuthorization) || errors.Is(err, events.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", events.ErrInvalidConfiguration, err)
		}
		return nil, err
	}

	requestID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate request id: %w", err)
	}
	req.Header.Set("x-request-id", requestID.String())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send batch: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("batch request completed",
		"request_id", requestID.String(),
		"messages", len(messages),
		"status", resp.StatusCode,
	)

	return &BatchResponse{
		StatusCode: resp.StatusCode,
		Reason:     http.StatusText(resp.StatusCode),
		Body:       string(respBody),
	}, nil
}

// authorize sets the bearer token, API key and organization headers.
func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	cfg, err := c.console.Configuration()
	if err != nil {
		return err
	}
	cred, err := cfg.FirstCredential()
	if err != nil {
		return err
	}

	req.Header.Set("x-api-key", cred.JWT.ClientID)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("x-ims-org-id", cfg.Project.Organization.IMSOrgID)
	return nil
}
