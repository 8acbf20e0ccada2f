package stockwatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"
)

// setupTestDB creates a temporary database for testing and returns a Core instance.
func setupTestDB(t *testing.T) *Core {
	t.Helper()

	core, err := OpenWithOptions(Options{
		DBPath:     filepath.Join(t.TempDir(), "test.db"),
		Logger:     discardLogger(),
		HTTPClient: &mockHTTPClient{status: http.StatusServiceUnavailable},
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { core.Close() })
	return core
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockHTTPClient implements HTTPDoer for testing. Bodies are GBK encoded the
// way the upstream feeds send them.
type mockHTTPClient struct {
	status int
	body   string
	err    error

	mu       sync.Mutex
	requests []*http.Request
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return gbkResponse(m.status, m.body), nil
}

func (m *mockHTTPClient) calls() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request(nil), m.requests...)
}

// routeClient answers by request host so one client can stand in for every feed.
type routeClient struct {
	mu     sync.Mutex
	routes map[string]func(*http.Request) (int, string, error)
	hits   map[string]int
	urls   []string
}

func newRouteClient() *routeClient {
	return &routeClient{
		routes: map[string]func(*http.Request) (int, string, error){},
		hits:   map[string]int{},
	}
}

func (r *routeClient) handle(host string, fn func(*http.Request) (int, string, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[host] = fn
}

func (r *routeClient) Do(req *http.Request) (*http.Response, error) {
	r.mu.Lock()
	r.hits[req.URL.Host]++
	r.urls = append(r.urls, req.URL.String())
	fn, ok := r.routes[req.URL.Host]
	r.mu.Unlock()
	if !ok {
		return nil, errors.New("no route for " + req.URL.Host)
	}
	status, body, err := fn(req)
	if err != nil {
		return nil, err
	}
	return gbkResponse(status, body), nil
}

func (r *routeClient) hitCount(host string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits[host]
}

func (r *routeClient) requestedURLs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.urls...)
}

func gbkResponse(status int, body string) *http.Response {
	encoded, err := simplifiedchinese.GBK.NewEncoder().String(body)
	if err != nil {
		encoded = body
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(encoded)),
		Header:     make(http.Header),
	}
}

var testEndpoints = Endpoints{
	AShare: "http://a.test/list=",
	HK:     "http://hk.test/q=",
	FX:     "http://fx.test/list=fx_shkdcny",
	KLine:  "http://kline.test",
}

// sinaRecord builds a 33-field Sina A-share record.
func sinaRecord(name, yesterdayClose, price string) string {
	fields := make([]string, 33)
	fields[aFieldName] = name
	fields[1] = yesterdayClose
	fields[aFieldYesterdayClose] = yesterdayClose
	fields[aFieldPrice] = price
	fields[aFieldHigh] = price
	fields[aFieldLow] = yesterdayClose
	fields[aFieldVolume] = "123456"
	fields[aFieldDate] = "2024-03-15"
	fields[aFieldTime] = "15:00:03"
	fields[32] = "00"
	return strings.Join(fields, ",")
}

func sinaPayload(records map[string]string) string {
	var b strings.Builder
	for symbol, record := range records {
		fmt.Fprintf(&b, "var hq_str_%s=\"%s\";\n", symbol, record)
	}
	return b.String()
}

// tencentRecord builds a 61-field Tencent HK record.
func tencentRecord(name, yesterdayClose, price, lotSize string) []string {
	fields := make([]string, 61)
	fields[0] = "100"
	fields[hkFieldName] = name
	fields[hkFieldPrice] = price
	fields[hkFieldYesterdayClose] = yesterdayClose
	fields[hkFieldDateTime] = "2024/03/15 16:08:10"
	fields[hkFieldHigh] = price
	fields[hkFieldLow] = yesterdayClose
	fields[hkFieldVolume] = "98765"
	fields[hkFieldLotSize] = lotSize
	return fields
}

func tencentPayload(t *testing.T, records map[string][]string) string {
	t.Helper()
	out := map[string][]string{}
	for symbol, fields := range records {
		out["r_"+symbol] = fields
	}
	b, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal tencent payload: %v", err)
	}
	return string(b)
}

func klinePayload(symbol string, days int, close string) string {
	return fmt.Sprintf(`/*<script>location.href='//sina.com';</script>*/
var _%s_%d=([{"day":"2024-03-08","open":"1.00","high":"1.00","low":"1.00","close":"%s","volume":"100"}]);`, symbol, days, close)
}

const fxPayload = `var hq_str_fx_shkdcny="15:29:59,0.9123,0.9125,0.9120,0.9130,0.9110,0.9115,0.9130,0.9110,港币人民币,2024-03-15";`

// fakeClock is a settable time source shared by the caches under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// assertNoError fails the test if err is not nil.
func assertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", msg, err)
	}
}

// assertErrorCode fails the test unless err carries code.
func assertErrorCode(t *testing.T, err error, code ErrorCode, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected %s error but got nil", msg, code)
	}
	if !IsErrorCode(err, code) {
		t.Fatalf("%s: expected %s, got %v", msg, code, err)
	}
}
