package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Gateway issues read requests against the reporting backend.
type Gateway interface {
	Request(ctx context.Context, action string, params map[string]string) (json.RawMessage, error)
}

// Transport performs one GET and returns the JSON payload. Failures are *Error.
type Transport interface {
	Get(ctx context.Context, u *url.URL) (json.RawMessage, error)
}

type userKey struct{}

// WithUser attaches the session station code sent as the `user` parameter.
func WithUser(ctx context.Context, stationCode string) context.Context {
	return context.WithValue(ctx, userKey{}, stationCode)
}

// UserFrom returns the station code attached by WithUser.
func UserFrom(ctx context.Context) string {
	code, _ := ctx.Value(userKey{}).(string)
	return code
}

// Client implements Gateway on top of a Transport.
type Client struct {
	baseURL   *url.URL
	transport Transport
	log       *zap.Logger
}

// NewClient creates a gateway client for the backend at baseURL.
func NewClient(baseURL string, transport Transport, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q must be http or https", baseURL)
	}
	return &Client{baseURL: u, transport: transport, log: logger}, nil
}

// URL builds the request URL: action, every non-empty param, then user.
func (c *Client) URL(ctx context.Context, action string, params map[string]string) *url.URL {
	u := *c.baseURL
	q := u.Query()
	q.Set("action", action)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := params[k]; v != "" {
			q.Set(k, v)
		}
	}

	if user := UserFrom(ctx); user != "" {
		q.Set("user", user)
	}
	u.RawQuery = q.Encode()
	return &u
}

// Request performs action and returns the raw JSON payload.
func (c *Client) Request(ctx context.Context, action string, params map[string]string) (json.RawMessage, error) {
	u := c.URL(ctx, action, params)
	start := time.Now()

	payload, err := c.transport.Get(ctx, u)
	if err != nil {
		var ge *Error
		if !errors.As(err, &ge) {
			ge = &Error{Kind: KindTransport, Err: err}
		}
		ge.Action = action
		c.log.Warn("backend request failed",
			zap.String("action", action),
			zap.String("kind", ge.Kind.String()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(ge))
		return nil, ge
	}

	if msg, ok := applicationError(payload); ok {
		c.log.Info("backend returned an error",
			zap.String("action", action),
			zap.String("message", msg))
		return nil, &Error{Kind: KindApplication, Action: action, Message: msg}
	}

	c.log.Debug("backend request completed",
		zap.String("action", action),
		zap.Duration("elapsed", time.Since(start)))
	return payload, nil
}

// applicationError reports the `error` field of a JSON object payload.
func applicationError(payload json.RawMessage) (string, bool) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return "", false
	}
	raw, ok := envelope["error"]
	if !ok || string(raw) == "null" {
		return "", false
	}

	var msg string
	if err := json.Unmarshal(raw, &msg); err != nil {
		// Not a string; surface it as-is.
		return string(raw), true
	}
	if msg == "" {
		return "", false
	}
	return msg, true
}

// NewHTTPClient builds the client shared by the transports, honouring an
// optional proxy.
func NewHTTPClient(timeout time.Duration, httpProxy string, logger *zap.Logger) *http.Client {
	var transport http.RoundTripper = &http.Transport{Proxy: http.ProxyFromEnvironment}
	if httpProxy != "" {
		proxyURL, err := url.Parse(httpProxy)
		if err != nil {
			logger.Warn("invalid proxy url, gateway will not use a proxy",
				zap.String("proxy", httpProxy), zap.Error(err))
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
