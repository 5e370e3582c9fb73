// Package api is the typed binding of the crowdfunding REST contract. It
// attaches the bearer credential to every call and classifies failures into
// *Error values; it holds no domain state and never retries.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// RequestIDHeader carries a per-request uuid for correlating client and server logs.
	RequestIDHeader = "X-Request-ID"

	maxErrorBody   = 64 << 10
	defaultTimeout = 10 * time.Second
)

// TokenSource supplies the bearer credential for outbound requests.
// An empty token means the request goes out anonymously.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// Token implements TokenSource.
func (f TokenFunc) Token() string { return f() }

// Config holds client configuration.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	Logger     *zap.Logger
}

// Client calls the crowdfunding backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *zap.Logger
}

// New creates a Client. A nil HTTPClient gets a plain client with a 10s timeout.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: hc,
		tokens:     cfg.Tokens,
		logger:     logger,
	}
}

// SetTokens replaces the token source. It is meant for wiring at startup, before
// the client is shared.
func (c *Client) SetTokens(ts TokenSource) {
	c.tokens = ts
}

// NewHTTPClient builds an HTTP client that additionally trusts the PEM
// certificates in caFile. An empty caFile yields a client using system roots.
func NewHTTPClient(caFile string, timeout time.Duration) (*http.Client, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if caFile == "" {
		return &http.Client{Timeout: timeout}, nil
	}

	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	caPool, err := x509.SystemCertPool()
	if err != nil || caPool == nil {
		caPool = x509.NewCertPool()
	}
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			RootCAs:    caPool,
			MinVersion: tls.VersionTLS12,
		},
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

// call describes one outbound request.
type call struct {
	method string
	path   string
	query  url.Values
	body   any
	// bearer overrides the token source when set.
	bearer string
}

// do sends the request and decodes a 2xx JSON body into out (if non-nil).
// Every failure is returned as *Error.
func (c *Client) do(ctx context.Context, cl call, out any) error {
	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return &Error{Kind: KindOther, Message: "failed to encode request", Detail: err.Error(), Err: err}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return &Error{Kind: KindOther, Message: "failed to create request", Detail: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)

	token := cl.bearer
	if token == "" && c.tokens != nil {
		token = c.tokens.Token()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.logger.With(
		zap.String("request_id", reqID),
		zap.String("method", cl.method),
		zap.String("path", cl.path),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("request failed", zap.Error(err))
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := newStatusError(resp.StatusCode, raw)
		log.Info("request rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("detail", apiErr.Detail),
		)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Warn("failed to decode response", zap.Int("status", resp.StatusCode), zap.Error(err))
		if ctx.Err() != nil {
			return transportError(err)
		}
		return &Error{
			Kind:    KindServer,
			Status:  resp.StatusCode,
			Message: "unexpected response from backend",
			Detail:  err.Error(),
			Err:     err,
		}
	}
	return nil
}
