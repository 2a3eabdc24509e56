package conduit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeConduit is an in-process Conduit server that records every request.
type fakeConduit struct {
	t   *testing.T
	srv *httptest.Server

	mu        sync.Mutex
	calls     map[string]int
	forms     map[string][]url.Values
	headers   map[string][]http.Header
	responses map[string]string

	// connectDelay slows down conduit.connect to widen race windows.
	connectDelay time.Duration
}

const okConnect = `{"result":{"connectionID":42,"sessionKey":"sk-abc","userPHID":"PHID-USER-1"},"error_code":null,"error_info":null}`

func newFakeConduit(t *testing.T) *fakeConduit {
	t.Helper()

	f := &fakeConduit{
		t:         t,
		calls:     make(map[string]int),
		forms:     make(map[string][]url.Values),
		headers:   make(map[string][]http.Header),
		responses: map[string]string{connectMethod: okConnect},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeConduit) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || !strings.HasPrefix(r.URL.Path, "/api/") {
		http.NotFound(w, r)
		return
	}
	method := strings.TrimPrefix(r.URL.Path, "/api/")
	// Runs off the test goroutine: report bad forms as 400 instead of FailNow.
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.calls[method]++
	f.forms[method] = append(f.forms[method], r.PostForm)
	f.headers[method] = append(f.headers[method], r.Header.Clone())
	body, ok := f.responses[method]
	f.mu.Unlock()

	if method == connectMethod && f.connectDelay > 0 {
		time.Sleep(f.connectDelay)
	}
	if !ok {
		body = `{"result":null,"error_code":"ERR-CONDUIT-CALL","error_info":"Conduit method '` + method + `' does not exist."}`
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func (f *fakeConduit) respond(method, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[method] = body
}

func (f *fakeConduit) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeConduit) lastForm(method string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	forms := f.forms[method]
	require.NotEmpty(f.t, forms, "no request recorded for %s", method)
	return forms[len(forms)-1]
}

func (f *fakeConduit) lastHeader(method string) http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	headers := f.headers[method]
	require.NotEmpty(f.t, headers, "no request recorded for %s", method)
	return headers[len(headers)-1]
}

// lastParams decodes the params form field of the latest request to method.
func (f *fakeConduit) lastParams(method string) map[string]any {
	var params map[string]any
	require.NoError(f.t, json.Unmarshal([]byte(f.lastForm(method).Get("params")), &params))
	return params
}
