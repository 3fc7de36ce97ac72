// Package remote is the HTTP client for the remote identity API.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sociomile-gateway/internal/credential"
	"sociomile-gateway/internal/identity"

	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName     = "sociomile-gateway/remote"
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20
)

// Paths of the remote auth endpoints, relative to the base URL.
const (
	PathLogin    = "/api/v1/auth/login"
	PathRegister = "/api/v1/auth/register"
	PathRefresh  = "/api/v1/auth/refresh"
	PathProfile  = "/api/v1/auth/profile"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type refreshRequest struct {
	Token string `json:"token"`
}

type Options struct {
	BaseURL string
	// Timeout bounds every call. Default 30s.
	Timeout time.Duration
	// HTTPClient overrides the transport (tests). Its Timeout is left untouched.
	HTTPClient *http.Client
}

// Client talks to the remote API. It is safe for concurrent use.
type Client struct {
	base   *url.URL
	http   *http.Client
	tracer trace.Tracer
}

func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, errors.New("remote: base url is required")
	}
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("remote: invalid base url %q", raw)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{base: u, http: hc, tracer: otel.Tracer(tracerName)}, nil
}

// Login exchanges email/password for a credential and identity.
func (c *Client) Login(ctx context.Context, req LoginRequest) (identity.Grant, error) {
	var g identity.Grant
	if err := c.do(ctx, http.MethodPost, PathLogin, "", req, &g); err != nil {
		return identity.Grant{}, err
	}
	if g.Token == "" || g.User == nil {
		return identity.Grant{}, fmt.Errorf("%w: login grant missing token or user", ErrMalformedResponse)
	}
	return g, nil
}

// Register creates an account and returns its first credential.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (identity.Grant, error) {
	var g identity.Grant
	if err := c.do(ctx, http.MethodPost, PathRegister, "", req, &g); err != nil {
		return identity.Grant{}, err
	}
	if g.Token == "" || g.User == nil {
		return identity.Grant{}, fmt.Errorf("%w: register grant missing token or user", ErrMalformedResponse)
	}
	return g, nil
}

// Refresh exchanges token for a renewed one. The returned grant may carry no user.
func (c *Client) Refresh(ctx context.Context, token string) (identity.Grant, error) {
	token = credential.Normalize(token)
	var g identity.Grant
	if err := c.do(ctx, http.MethodPost, PathRefresh, "", refreshRequest{Token: token}, &g); err != nil {
		return identity.Grant{}, err
	}
	if g.Token == "" {
		return identity.Grant{}, fmt.Errorf("%w: refresh grant missing token", ErrMalformedResponse)
	}
	return g, nil
}

// Profile resolves the identity that token belongs to.
func (c *Client) Profile(ctx context.Context, token string) (identity.Identity, error) {
	var id identity.Identity
	if err := c.do(ctx, http.MethodGet, PathProfile, token, nil, &id); err != nil {
		return identity.Identity{}, err
	}
	if id.ID == 0 {
		return identity.Identity{}, fmt.Errorf("%w: profile missing id", ErrMalformedResponse)
	}
	return id, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "remote "+method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", path),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("remote: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", credential.BearerHeader(token))
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("remote: read body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &APIError{Status: res.StatusCode, Message: errorMessage(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// errorMessage pulls a human readable message out of an error body.
// The backend answers {"message": ..., "error": ...}.
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
