package conduit

import (
	"errors"
	"fmt"

	"github.com/iancoleman/orderedmap"
)

// unknownErrorInfo is reported when the server sets error_code without an
// accompanying error_info.
const unknownErrorInfo = "UNKNOWN"

var (
	// ErrConfiguration is wrapped by every error NewClient returns.
	ErrConfiguration = errors.New("conduit: invalid configuration")

	errMissingResult = errors.New("response has no result")
)

// TransportError reports that the HTTP exchange itself failed: DNS, dial,
// TLS, timeouts, cancellation or a truncated body.
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("conduit: %s: transport: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodingError reports a response that arrived but could not be turned into
// a Conduit envelope, or a handshake result without session fields.
type DecodingError struct {
	Method     string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("conduit: %s: decode response (status %d): %v", e.Method, e.StatusCode, e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }

// PhabricatorError is a failure reported by the server through a non-null
// error_code in the response envelope.
type PhabricatorError struct {
	Method string
	Code   string
	Info   string
	// Envelope is the full decoded response, keys in server order.
	Envelope *orderedmap.OrderedMap
}

func (e *PhabricatorError) Error() string {
	return fmt.Sprintf("conduit: %s: %s: %s", e.Method, e.Code, e.Info)
}
