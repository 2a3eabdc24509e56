package conduit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/iancoleman/orderedmap"
)

// envelope is a decoded Conduit response:
//
//	{"result": ..., "error_code": ..., "error_info": ...}
type envelope struct {
	method     string
	statusCode int
	body       []byte

	rawResult json.RawMessage
	errorCode json.RawMessage
	errorInfo json.RawMessage

	// ordered is the whole response with object key order preserved.
	ordered *orderedmap.OrderedMap
}

type envelopeFields struct {
	Result    json.RawMessage `json:"result"`
	ErrorCode json.RawMessage `json:"error_code"`
	ErrorInfo json.RawMessage `json:"error_info"`
}

func decodeEnvelope(method string, statusCode int, body []byte) (*envelope, error) {
	env := &envelope{method: method, statusCode: statusCode, body: body}

	if !utf8.Valid(body) {
		return nil, env.decodingError(errors.New("body is not valid UTF-8"))
	}

	var fields envelopeFields
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, env.decodingError(err)
	}
	// A bare null decodes into the struct without error.
	if isNull(bytes.TrimSpace(body)) {
		return nil, env.decodingError(errors.New("body is not a JSON object"))
	}

	ordered, err := decodeOrdered(body)
	if err != nil {
		return nil, env.decodingError(err)
	}

	env.rawResult = fields.Result
	env.errorCode = fields.ErrorCode
	env.errorInfo = fields.ErrorInfo
	env.ordered = ordered
	return env, nil
}

// serverError returns a *PhabricatorError when error_code is set.
func (e *envelope) serverError() error {
	if isNull(e.errorCode) {
		return nil
	}
	info := unknownErrorInfo
	if !isNull(e.errorInfo) {
		info = jsonText(e.errorInfo)
	}
	return &PhabricatorError{
		Method:   e.method,
		Code:     jsonText(e.errorCode),
		Info:     info,
		Envelope: e.ordered,
	}
}

// result returns the order-preserving result value. Objects come back as
// *orderedmap.OrderedMap, arrays as []any, numbers as json.Number.
func (e *envelope) result() any {
	v, _ := e.ordered.Get("result")
	return v
}

func (e *envelope) decodingError(err error) *DecodingError {
	return &DecodingError{
		Method:     e.method,
		StatusCode: e.statusCode,
		Body:       e.body,
		Err:        err,
	}
}

// decodeOrdered decodes a JSON object keeping member order at every depth.
// Numbers stay json.Number so integers wider than 53 bits survive intact.
func decodeOrdered(body []byte) (*orderedmap.OrderedMap, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	m, ok := v.(*orderedmap.OrderedMap)
	if !ok {
		return nil, errors.New("body is not a JSON object")
	}
	return m, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		// string, json.Number, bool or nil
		return tok, nil
	}

	switch delim {
	case '{':
		m := orderedmap.New()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", keyTok)
			}
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			m.Set(key, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return m, nil
	case '[':
		list := make([]any, 0)
		for dec.More() {
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// jsonText renders a raw JSON scalar as text: strings are unquoted, anything
// else keeps its JSON spelling.
func jsonText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
