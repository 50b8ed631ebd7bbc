// Package api is the HTTP client for the auth and transactions backends.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"finvault/internal/log"
)

// maxResponseBytes caps how much of a backend response is read.
const maxResponseBytes = 8 << 20

// Client talks to the auth service and the transactions service. It holds
// no per-user state: tokens are passed in by the caller on every call.
type Client struct {
	authURL     string
	txURL       string
	httpClient  *http.Client
	retry       RetryPolicy
	queryParams bool
	logger      *log.Logger
}

// Options configures a Client.
type Options struct {
	AuthBaseURL         string
	TransactionsBaseURL string
	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
	// Timeout is the per request timeout. Zero leaves it unset.
	Timeout time.Duration
	Retry   RetryPolicy
	// QueryParams duplicates the create transaction fields into the query string.
	QueryParams bool
	Logger      *log.Logger
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		authURL:     strings.TrimRight(opts.AuthBaseURL, "/"),
		txURL:       strings.TrimRight(opts.TransactionsBaseURL, "/"),
		httpClient:  httpClient,
		retry:       opts.Retry,
		queryParams: opts.QueryParams,
		logger:      logger.WithComponent(log.ComponentAPIClient),
	}
}

// TransactionsBaseURL is the transactions service root, used to resolve
// receipt image paths.
func (c *Client) TransactionsBaseURL() string {
	return c.txURL
}

type request struct {
	method      string
	url         string
	token       string
	body        []byte
	contentType string
}

// send performs req and returns the response body of a 2xx answer. GET
// requests are retried on transient failures according to the policy.
func (c *Client) send(ctx context.Context, req request) ([]byte, error) {
	attempts := 1
	if req.method == http.MethodGet {
		attempts = c.retry.attempts()
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.retry.backoff(attempt - 1)
			c.logger.WarnContext(ctx, "Retrying backend request",
				log.FieldEndpoint, req.url,
				log.FieldAttempt, attempt+1,
				"delay", delay.String(),
				log.FieldError, lastErr)
			if err := sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("%s %s: %w", req.method, req.url, err)
			}
		}

		body, err := c.sendOnce(ctx, req)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) sendOnce(ctx context.Context, req request) ([]byte, error) {
	var reader io.Reader
	if req.body != nil {
		reader = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.method, req.url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response of %s %s: %w", req.method, req.url, err)
	}

	c.logger.DebugContext(ctx, "Backend request completed",
		log.FieldMethod, req.method,
		log.FieldEndpoint, req.url,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, body)
	}
	return body, nil
}

func jsonRequest(method, url string, payload any) (request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return request{}, fmt.Errorf("encode request: %w", err)
	}
	return request{method: method, url: url, body: body, contentType: "application/json"}, nil
}

func decode(body []byte, out any, what string) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", what, err)
	}
	return nil
}
