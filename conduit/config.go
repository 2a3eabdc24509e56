package conduit

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bhandras/fab/internal/version"
)

const (
	// defaultHTTPTimeout is the per-request timeout of the default HTTP client.
	defaultHTTPTimeout = 15 * time.Second
	// defaultClientName identifies this library to conduit.connect.
	defaultClientName = "fab"
)

// Config is the construction surface of a Client.
//
// Exactly one of Cert and Token must be set. Cert selects the signed
// conduit.connect handshake; Token sends a pre-issued API token with every
// call and never performs a handshake.
type Config struct {
	// Host is the base URL of the Phabricator install, e.g.
	// "https://phabricator.example.org". A trailing slash is stripped.
	Host string
	// User is the account name the session is opened for.
	User string
	// Cert is the Conduit certificate from the user's settings page.
	Cert string
	// Token is a static Conduit API token.
	Token string
	// UserAgent, when set, is sent as the User-Agent header of every request.
	UserAgent string

	// ClientName overrides the handshake client identifier.
	ClientName string
	// ClientDescription overrides the handshake client description.
	ClientDescription string
}

// normalize validates c and returns the copy the client keeps.
func (c Config) normalize() (Config, error) {
	c.Host = strings.TrimRight(strings.TrimSpace(c.Host), "/")
	if c.Host == "" {
		return Config{}, fmt.Errorf("%w: host is required", ErrConfiguration)
	}
	if strings.TrimSpace(c.User) == "" {
		return Config{}, fmt.Errorf("%w: user is required", ErrConfiguration)
	}
	switch {
	case c.Cert == "" && c.Token == "":
		return Config{}, fmt.Errorf("%w: either cert or token is required", ErrConfiguration)
	case c.Cert != "" && c.Token != "":
		return Config{}, fmt.Errorf("%w: cert and token are mutually exclusive", ErrConfiguration)
	}
	return c, nil
}

func (c Config) clientName() string {
	if c.ClientName != "" {
		return c.ClientName
	}
	return defaultClientName
}

func (c Config) clientDescription() string {
	if c.ClientDescription != "" {
		return c.ClientDescription
	}
	return "fab Conduit client " + version.RichVersion()
}

// Option customizes a Client at construction.
type Option func(*Client)

// WithHTTPClient makes the Client send requests through hc. The Client never
// modifies hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the overall timeout of each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithClock replaces the clock used to mint handshake auth tokens.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}
