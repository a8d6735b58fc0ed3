// Package billingapi is the client of the hospital billing REST API.
package billingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/matheus3301/msana/internal/model"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "http://localhost:3000/api"
	DefaultTimeout = 15 * time.Second

	loginPath  = "/auth/login"
	healthPath = "/health"
)

// public reports whether path is called without the bearer token. A 401 on
// such a path says nothing about the active account.
func public(path string) bool {
	return path == loginPath || path == healthPath
}

// TokenSource supplies the bearer token of the active account.
type TokenSource interface {
	Token() string
}

// UnauthorizedFunc runs when the API rejects the active account's token.
type UnauthorizedFunc func(ctx context.Context) error

// Client talks to the billing API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	onUnauthorized UnauthorizedFunc
	logger         *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUnauthorizedHandler registers the hook run on a rejected token.
func WithUnauthorizedHandler(fn UnauthorizedFunc) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// New creates a client. tokens may be nil for unauthenticated use.
func New(baseURL string, timeout time.Duration, tokens TokenSource, logger *zap.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetUnauthorizedHandler registers the 401 hook after construction.
func (c *Client) SetUnauthorizedHandler(fn UnauthorizedFunc) {
	c.onUnauthorized = fn
}

// envelope is the response shape of every API endpoint.
type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
	IsDBError bool            `json:"isDbError"`
}

// Login exchanges credentials for a profile and token.
func (c *Client) Login(ctx context.Context, email, password string) (model.User, string, error) {
	var data struct {
		model.User
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, "login", http.MethodPost, loginPath, body, nil, &data); err != nil {
		return model.User{}, "", err
	}
	if data.Token == "" {
		return model.User{}, "", &ApplicationError{Op: "login", StatusCode: http.StatusOK, Message: "login response carried no token"}
	}
	return data.User, data.Token, nil
}

// CreateInvoice submits an invoice. A non-empty idempotencyKey is sent as the
// Idempotency-Key header so the server can drop replays it already accepted.
func (c *Client) CreateInvoice(ctx context.Context, inv *model.Invoice, idempotencyKey string) (*model.CreatedInvoice, error) {
	header := http.Header{}
	if idempotencyKey != "" {
		header.Set("Idempotency-Key", idempotencyKey)
	}
	var created model.CreatedInvoice
	if err := c.do(ctx, "create invoice", http.MethodPost, "/invoices", inv, header, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListProducts fetches the product catalog.
func (c *Client) ListProducts(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := c.do(ctx, "list products", http.MethodGet, "/products", nil, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Health checks that the API answers. It sends no credentials.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, healthPath, nil, nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, in any, header http.Header, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.tokens != nil && !public(path) {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("api request failed", zap.String("op", op), zap.Error(err))
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	if gatewayStatus(resp.StatusCode) {
		return &NetworkError{Op: op, StatusCode: resp.StatusCode}
	}

	var env envelope
	if len(raw) > 0 {
		// Non-JSON bodies still carry a meaningful status code.
		_ = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		appErr := &ApplicationError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    env.Message,
			DBError:    env.IsDBError,
		}
		c.logger.Debug("api rejected request",
			zap.String("op", op), zap.Int("status", resp.StatusCode), zap.String("message", env.Message))
		if resp.StatusCode == http.StatusUnauthorized && !appErr.DBError && !public(path) && c.onUnauthorized != nil {
			if err := c.onUnauthorized(ctx); err != nil {
				c.logger.Error("unauthorized handler failed", zap.Error(err))
			}
		}
		return appErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
