package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ts-dashboard/internal/parse"
)

// DefaultJSONPTimeout bounds every JSONP call.
const DefaultJSONPTimeout = 10 * time.Second

var errUnexpectedCallback = errors.New("script invoked unexpected callback")

type callResult struct {
	payload json.RawMessage
	err     error
}

// pendingCall is one registered callback awaiting its script.
type pendingCall struct {
	name    string
	reg     *registry
	result  chan callResult
	settle  sync.Once
	release sync.Once
}

// resolve delivers the first outcome; later outcomes are dropped.
func (p *pendingCall) resolve(payload json.RawMessage, err error) {
	p.settle.Do(func() {
		p.result <- callResult{payload: payload, err: err}
	})
}

// close unregisters the callback. Safe to call more than once.
func (p *pendingCall) close() {
	p.release.Do(func() {
		p.reg.mu.Lock()
		delete(p.reg.pending, p.name)
		p.reg.mu.Unlock()
		p.reg.released.Add(1)
	})
}

// registry keeps callback names unique among in-flight calls and counts
// registrations and releases.
type registry struct {
	mu       sync.Mutex
	pending  map[string]*pendingCall
	opened   atomic.Int64
	released atomic.Int64
}

func newRegistry() *registry {
	return &registry{pending: make(map[string]*pendingCall)}
}

func (r *registry) open() *pendingCall {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		name := "jsonp_" + strings.ReplaceAll(uuid.NewString(), "-", "")
		if _, taken := r.pending[name]; taken {
			continue
		}
		p := &pendingCall{name: name, reg: r, result: make(chan callResult, 1)}
		r.pending[name] = p
		r.opened.Add(1)
		return p
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// JSONPTransport loads the request URL as a script that invokes a uniquely
// named callback with the JSON payload.
type JSONPTransport struct {
	client        *http.Client
	timeout       time.Duration
	callbackParam string
	reg           *registry
	log           *zap.Logger
}

// NewJSONPTransport creates a JSONP transport. A non-positive timeout uses
// DefaultJSONPTimeout.
func NewJSONPTransport(client *http.Client, timeout time.Duration, logger *zap.Logger) *JSONPTransport {
	if timeout <= 0 {
		timeout = DefaultJSONPTimeout
	}
	return &JSONPTransport{
		client:        client,
		timeout:       timeout,
		callbackParam: "callback",
		reg:           newRegistry(),
		log:           logger,
	}
}

// Pending returns the number of registered callbacks.
func (t *JSONPTransport) Pending() int {
	return t.reg.len()
}

// Stats returns how many callbacks were registered and released.
func (t *JSONPTransport) Stats() (opened, released int64) {
	return t.reg.opened.Load(), t.reg.released.Load()
}

func (t *JSONPTransport) Get(ctx context.Context, u *url.URL) (json.RawMessage, error) {
	call := t.reg.open()
	defer call.close()

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel() // aborts a script load still in flight

	scriptURL := *u
	q := scriptURL.Query()
	q.Set(t.callbackParam, call.name)
	scriptURL.RawQuery = q.Encode()

	go t.load(ctx, &scriptURL, call)

	select {
	case res := <-call.result:
		return res.payload, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &Error{Kind: KindTimeout, Err: fmt.Errorf("no callback within %s", t.timeout)}
		}
		return nil, &Error{Kind: KindTransport, Err: ctx.Err()}
	}
}

// load fetches and evaluates the script for call.
func (t *JSONPTransport) load(ctx context.Context, u *url.URL, call *pendingCall) {
	body, err := get(ctx, t.client, u, "application/javascript")
	if err != nil {
		call.resolve(nil, err)
		return
	}

	cb, err := parse.JSONP(body)
	if err != nil {
		call.resolve(nil, &Error{Kind: KindTransport, Err: err})
		return
	}

	// A script only ever answers the call it was fetched for.
	if cb.Name != call.name {
		t.log.Warn("jsonp script invoked an unexpected callback",
			zap.String("callback", cb.Name),
			zap.String("expected", call.name))
		call.resolve(nil, &Error{Kind: KindTransport, Err: fmt.Errorf("%w %q", errUnexpectedCallback, cb.Name)})
		return
	}
	call.resolve(cb.Payload, nil)
}
