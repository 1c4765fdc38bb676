// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/vaulthub-tui/internal/notice"
	"github.com/jeranaias/vaulthub-tui/internal/util"
)

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "http://127.0.0.1:8080/api"

	// DefaultTimeout bounds every call.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxResponseSize caps reply bodies.
	// SECURITY: Response size limit prevents memory exhaustion.
	DefaultMaxResponseSize = 10 * 1024 * 1024

	// RequestIDHeader carries a per-request id the service echoes back.
	RequestIDHeader = "X-Request-ID"

	defaultUserAgent = "vaulthub-tui"
)

// Credentials supplies the bearer token. "" means unauthenticated.
type Credentials interface {
	Get(ctx context.Context) (string, error)
}

// Deauthenticator ends the local session after the service rejects the
// credential. It must clear the token and move the user to the login view,
// and it must tolerate being called repeatedly.
type Deauthenticator interface {
	ForceLogout(ctx context.Context)
}

type clearer interface {
	Clear(ctx context.Context) error
}

// Client is the single chokepoint for calls to the vault service.
//
// Every call carries the stored bearer token when there is one, is bounded
// by the configured timeout and is never retried. Failures come back as
// *Error and, unless the context is Quiet, produce exactly one notice.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	timeout    time.Duration
	maxBody    int64
	userAgent  string
	codes      Codes
	limiter    *rate.Limiter
	notifier   notice.Notifier
	deauth     Deauthenticator
	log        *zap.Logger
}

// New returns a client for baseURL that reads tokens from creds.
func New(baseURL string, creds Credentials) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		creds:   creds,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		timeout:   DefaultTimeout,
		maxBody:   DefaultMaxResponseSize,
		userAgent: defaultUserAgent,
		codes:     DefaultCodes(),
		notifier:  notice.Discard,
		log:       zap.NewNop(),
	}
}

// WithTimeout sets the per-call deadline.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.timeout = timeout
	}
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithNotifier sets where user-visible notices go.
func (c *Client) WithNotifier(n notice.Notifier) *Client {
	if n == nil {
		n = notice.Discard
	}
	c.notifier = n
	return c
}

// WithDeauthenticator sets the forced-logout action run on an invalid
// credential. Without one the client only clears its credentials.
func (c *Client) WithDeauthenticator(d Deauthenticator) *Client {
	c.deauth = d
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(log *zap.Logger) *Client {
	if log != nil {
		c.log = log.Named("api")
	}
	return c
}

// WithUserAgent sets the User-Agent header.
func (c *Client) WithUserAgent(ua string) *Client {
	if ua != "" {
		c.userAgent = ua
	}
	return c
}

// WithMaxResponseSize caps reply bodies at n bytes.
func (c *Client) WithMaxResponseSize(n int64) *Client {
	if n > 0 {
		c.maxBody = n
	}
	return c
}

// WithCodes overrides the envelope success and invalid-credential codes.
func (c *Client) WithCodes(codes Codes) *Client {
	if len(codes.Success) > 0 {
		c.codes.Success = codes.Success
	}
	if len(codes.Unauthorized) > 0 {
		c.codes.Unauthorized = codes.Unauthorized
	}
	return c
}

// WithRateLimit spaces outgoing calls to rps per second. rps <= 0 disables
// limiting.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = nil
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string { return c.baseURL }

// Timeout returns the per-call deadline.
func (c *Client) Timeout() time.Duration { return c.timeout }

// =============================================================================
// QUIET CALLS
// =============================================================================

type quietKey struct{}

// Quiet marks ctx so failures are classified and returned without a
// notice. An invalid credential still logs the user out and is still
// announced, since the user lands on the login view.
func Quiet(ctx context.Context) context.Context {
	return context.WithValue(ctx, quietKey{}, true)
}

func isQuiet(ctx context.Context) bool {
	q, _ := ctx.Value(quietKey{}).(bool)
	return q
}

// =============================================================================
// SEND
// =============================================================================

// Send performs one call and returns the envelope's data on success.
// payload is JSON encoded when non-nil. query may be nil.
func (c *Client) Send(ctx context.Context, method, path string, payload any, query url.Values) (json.RawMessage, error) {
	reqID := uuid.NewString()
	fail := func(e *Error) (json.RawMessage, error) {
		e.Method, e.Path, e.RequestID = method, path, reqID
		return nil, c.handleFailure(ctx, e)
	}

	// The timeout covers waiting for the rate limiter too.
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() == nil {
				// Wait refuses up front when the deadline would pass first.
				return fail(&Error{Kind: KindTimeout, Err: err})
			}
			return fail(classifyTransport(ctx, err))
		}
	}

	req, err := c.newRequest(ctx, method, path, payload, query)
	if err != nil {
		// Local encoding problems are caller bugs, not service failures.
		return nil, err
	}
	req.Header.Set(RequestIDHeader, reqID)

	token, err := c.creds.Get(ctx)
	if err != nil {
		return fail(&Error{Kind: KindNetwork, Message: "credential store unavailable", Err: err})
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	c.log.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", reqID),
		zap.String("token", util.Fingerprint(token)),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(classifyTransport(ctx, err))
	}
	defer resp.Body.Close()

	body, err := c.readResponse(resp)
	c.log.Debug("response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", reqID),
	)
	if err != nil {
		return fail(classifyTransport(ctx, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(c.classifyStatus(resp.StatusCode, body))
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fail(&Error{Kind: KindServer, Status: resp.StatusCode, Err: fmt.Errorf("malformed envelope: %w", err)})
	}
	switch {
	case c.codes.isSuccess(env.Code):
		return env.Data, nil
	case c.codes.isUnauthorized(env.Code):
		return fail(&Error{Kind: KindAuthentication, Status: resp.StatusCode, Code: env.Code, Message: env.Message})
	default:
		return fail(&Error{Kind: KindApplication, Status: resp.StatusCode, Code: env.Code, Message: env.Message})
	}
}

// Do is Send followed by decoding the data into out. A nil out discards the
// data.
func (c *Client) Do(ctx context.Context, method, path string, payload any, query url.Values, out any) error {
	data, err := c.Send(ctx, method, path, payload, query)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return c.handleFailure(ctx, &Error{Kind: KindServer, Method: method, Path: path, Err: fmt.Errorf("decode data: %w", err)})
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, payload any, query url.Values) (*http.Request, error) {
	target := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s payload: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

func (c *Client) readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", c.maxBody)
	}
	return body, nil
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

func classifyTransport(ctx context.Context, err error) *Error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(ctx.Err(), context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return &Error{Kind: KindTimeout, Err: err}
	default:
		return &Error{Kind: KindNetwork, Err: err}
	}
}

func (c *Client) classifyStatus(status int, body []byte) *Error {
	e := &Error{Status: status}

	var env Envelope
	if json.Unmarshal(body, &env) == nil {
		e.Code, e.Message = env.Code, env.Message
	}

	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindAuthentication
	case status == http.StatusForbidden:
		e.Kind = KindPermission
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status >= 500:
		e.Kind = KindServer
	default:
		e.Kind = KindApplication
	}
	return e
}

// handleFailure runs the side effects for a classified failure and returns
// it as an error.
func (c *Client) handleFailure(ctx context.Context, e *Error) error {
	fields := []zap.Field{
		zap.String("kind", e.Kind.String()),
		zap.String("method", e.Method),
		zap.String("path", e.Path),
		zap.Int("status", e.Status),
		zap.Int("code", e.Code),
		zap.String("request_id", e.RequestID),
	}
	if e.Err != nil {
		fields = append(fields, zap.Error(e.Err))
	}
	c.log.Warn("request failed", fields...)

	if e.Kind == KindAuthentication {
		c.notifier.Notify(notice.Error(notice.KeySessionExpired))
		c.forceLogout(ctx)
		return e
	}

	// A caller abandoning its own call is not something to announce.
	if isQuiet(ctx) || errors.Is(e.Err, context.Canceled) {
		return e
	}
	c.notifier.Notify(noticeFor(e))
	return e
}

func (c *Client) forceLogout(ctx context.Context) {
	// The call's own deadline may be what just expired.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	if c.deauth != nil {
		c.deauth.ForceLogout(ctx)
		return
	}
	if cl, ok := c.creds.(clearer); ok {
		if err := cl.Clear(ctx); err != nil {
			c.log.Error("failed to clear credential", zap.Error(err))
		}
	}
}

func noticeFor(e *Error) notice.Notice {
	switch e.Kind {
	case KindPermission:
		return notice.Error(notice.KeyNoPermission)
	case KindNotFound:
		return notice.Error(notice.KeyNotFound)
	case KindServer:
		return notice.Error(notice.KeyServerError)
	case KindTimeout:
		return notice.Error(notice.KeyTimeout)
	case KindNetwork:
		return notice.Error(notice.KeyNetworkError)
	default:
		return notice.Remote(e.Message)
	}
}
