package conduit

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"github.com/bhandras/fab/internal/crypto"
	"github.com/bhandras/fab/pkg/logger"
)

const (
	// connectMethod is the handshake endpoint.
	connectMethod = "conduit.connect"
	// conduitKey is the reserved parameter carrying the session descriptor.
	conduitKey = "__conduit__"
	// clientVersion is sent verbatim as the handshake clientVersion.
	clientVersion = 0
)

// Session identifies the caller's authenticated context. It is injected
// under __conduit__ into every call.
//
// A token session carries only Token. A certificate session carries the
// SessionKey and ConnectionID returned by conduit.connect.
type Session struct {
	Token        string
	SessionKey   string
	ConnectionID json.Number
}

// IsToken reports whether s wraps a static API token.
func (s Session) IsToken() bool {
	return s.Token != ""
}

// Value returns the __conduit__ payload for s.
func (s Session) Value() map[string]any {
	if s.IsToken() {
		return map[string]any{"token": s.Token}
	}
	return map[string]any{
		"sessionKey":   s.SessionKey,
		"connectionID": s.ConnectionID,
	}
}

// ConnectParams is the signed conduit.connect request body.
type ConnectParams struct {
	Client            string `json:"client"`
	ClientVersion     int    `json:"clientVersion"`
	ClientDescription string `json:"clientDescription"`
	User              string `json:"user"`
	Host              string `json:"host"`
	AuthToken         int64  `json:"authToken"`
	AuthSignature     string `json:"authSignature"`
}

// NewConnectParams builds handshake parameters signed with cfg.Cert for the
// Unix second of now.
func NewConnectParams(cfg Config, now time.Time) ConnectParams {
	token := now.Unix()
	return ConnectParams{
		Client:            cfg.clientName(),
		ClientVersion:     clientVersion,
		ClientDescription: cfg.clientDescription(),
		User:              cfg.User,
		Host:              cfg.Host,
		AuthToken:         token,
		AuthSignature:     crypto.SignAuthToken(crypto.AuthToken(token), cfg.Cert),
	}
}

// connectResult accepts connectionID as a JSON number or a numeric string.
// Either way it is stored as json.Number and sent back in __conduit__ as a
// bare number, which is how the server issues it.
type connectResult struct {
	SessionKey   string      `json:"sessionKey"`
	ConnectionID json.Number `json:"connectionID"`
}

// Connect establishes the session if it is not set yet and returns it.
//
// Concurrent callers share a single handshake. Once a session is set it is
// never replaced. A failed handshake leaves the client unconnected so the
// next Connect or Call tries again.
func (c *Client) Connect(ctx context.Context) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return *c.session, nil
	}

	session, err := c.handshake(ctx)
	if err != nil {
		return Session{}, err
	}
	c.session = &session
	return session, nil
}

// Session returns the established session, if any. It performs no I/O.
func (c *Client) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

func (c *Client) handshake(ctx context.Context) (Session, error) {
	params, err := json.Marshal(NewConnectParams(c.cfg, c.now()))
	if err != nil {
		return Session{}, err
	}
	form := url.Values{
		"params":   {string(params)},
		"output":   {"json"},
		conduitKey: {"true"},
	}

	logger.Debugf("conduit: connecting to %s as %s", c.cfg.Host, c.cfg.User)
	env, err := c.post(ctx, connectMethod, form)
	if err != nil {
		return Session{}, err
	}
	// The server rejects bad signatures through the envelope; report that as
	// the server's error rather than as missing session fields.
	if err := env.serverError(); err != nil {
		return Session{}, err
	}

	if isNull(env.rawResult) {
		return Session{}, env.decodingError(errMissingResult)
	}
	var result connectResult
	if err := json.Unmarshal(env.rawResult, &result); err != nil {
		return Session{}, env.decodingError(err)
	}
	if result.SessionKey == "" || result.ConnectionID == "" {
		return Session{}, env.decodingError(errors.New("result missing sessionKey or connectionID"))
	}

	logger.Debugf("conduit: connected to %s connectionID=%s", c.cfg.Host, result.ConnectionID)
	return Session{
		SessionKey:   result.SessionKey,
		ConnectionID: result.ConnectionID,
	}, nil
}
