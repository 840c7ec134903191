package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
)

// maxBodyBytes bounds how much of a backend response is read.
const maxBodyBytes = 16 << 20

// FetchTransport issues plain GET requests and expects a JSON body.
type FetchTransport struct {
	client *http.Client
}

// NewFetchTransport creates a direct-fetch transport.
func NewFetchTransport(client *http.Client) *FetchTransport {
	return &FetchTransport{client: client}
}

func (t *FetchTransport) Get(ctx context.Context, u *url.URL) (json.RawMessage, error) {
	body, err := get(ctx, t.client, u, "application/json")
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, &Error{Kind: KindTransport, Err: errors.New("response body is not JSON")}
	}
	return json.RawMessage(body), nil
}

// get performs the request and classifies failures into *Error.
func get(ctx context.Context, client *http.Client, u *url.URL, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &Error{Kind: KindTimeout, Err: err}
		}
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Kind: KindHTTP, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if isTimeout(err) {
			return nil, &Error{Kind: KindTimeout, Err: err}
		}
		return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
