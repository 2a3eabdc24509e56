package conduit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bhandras/fab/pkg/logger"
)

// Client calls Conduit methods on one Phabricator host.
//
// A Client is safe for concurrent use. It owns its HTTP client, so the
// underlying connection pool is shared by every call made through it.
type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time

	mu      sync.Mutex
	session *Session
}

// NewClient validates cfg and returns a Client for it. No request is sent:
// token clients hold their session immediately, certificate clients connect
// on first use.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.Token != "" {
		c.session = &Session{Token: cfg.Token}
	}
	return c, nil
}

// Host returns the normalized base URL of the client.
func (c *Client) Host() string {
	return c.cfg.Host
}

// Call invokes method with params and returns the envelope's result.
//
// The caller's params map is never modified; the session descriptor is added
// to a copy. Objects in the result are *orderedmap.OrderedMap values that keep
// the server's key order, and numbers are json.Number values.
func (c *Client) Call(ctx context.Context, method string, params map[string]any) (any, error) {
	env, err := c.call(ctx, method, params)
	if err != nil {
		return nil, err
	}
	return env.result(), nil
}

// CallInto invokes method like Call and decodes the result into out.
func (c *Client) CallInto(ctx context.Context, method string, params map[string]any, out any) error {
	env, err := c.call(ctx, method, params)
	if err != nil {
		return err
	}
	if isNull(env.rawResult) {
		return nil
	}
	if err := json.Unmarshal(env.rawResult, out); err != nil {
		return env.decodingError(err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, params map[string]any) (*envelope, error) {
	if strings.TrimSpace(method) == "" {
		return nil, errors.New("conduit: method name is required")
	}

	session, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}

	payload := make(map[string]any, len(params)+1)
	for k, v := range params {
		payload[k] = v
	}
	payload[conduitKey] = session.Value()

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("conduit: %s: encode params: %w", method, err)
	}
	form := url.Values{
		"params": {string(encoded)},
		"output": {"json"},
	}

	env, err := c.post(ctx, method, form)
	if err != nil {
		return nil, err
	}
	if err := env.serverError(); err != nil {
		logger.Debugf("conduit: %s failed: %v", method, err)
		return nil, err
	}
	return env, nil
}

// post sends form to {host}/api/{method} and decodes the response envelope.
func (c *Client) post(ctx context.Context, method string, form url.Values) (*envelope, error) {
	endpoint := fmt.Sprintf("%s/api/%s", c.cfg.Host, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &TransportError{Method: method, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, Err: err}
	}

	if logger.Enabled(logger.LevelTrace) {
		logger.Tracef("conduit: %s status=%d bytes=%d elapsed=%s",
			method, resp.StatusCode, len(body), time.Since(start))
	}
	return decodeEnvelope(method, resp.StatusCode, body)
}
