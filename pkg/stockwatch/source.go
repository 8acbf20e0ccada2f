package stockwatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// Upstream defaults. Every feed rejects requests without a Referer.
const (
	DefaultAShareURL = "https://hq.sinajs.cn/list="
	DefaultHKURL     = "https://qt.gtimg.cn/q="
	DefaultFXURL     = "http://hq.sinajs.cn/list=fx_shkdcny"
	DefaultKLineURL  = "https://quotes.sina.cn/cn/api/jsonp_v2.php"

	sinaReferer    = "http://finance.sina.com.cn/"
	tencentReferer = "http://stockhtm.finance.qq.com"
	klineReferer   = "https://finance.sina.com.cn"

	defaultHTTPTimeout = 5 * time.Second
)

// maxResponseSize limits external API responses to 1MB to prevent memory exhaustion.
const maxResponseSize = 1 << 20

var (
	reSinaRecord = regexp.MustCompile(`var hq_str_(\w+)="([^"]*)"`)
	reJSONArray  = regexp.MustCompile(`\[(.+)\]`)
)

// HTTPDoer is an interface for making HTTP requests. It enables dependency
// injection for testing without network calls.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Endpoints holds upstream base URLs. Empty fields fall back to the defaults.
type Endpoints struct {
	AShare string
	HK     string
	FX     string
	KLine  string
}

func (e Endpoints) withDefaults() Endpoints {
	if e.AShare == "" {
		e.AShare = DefaultAShareURL
	}
	if e.HK == "" {
		e.HK = DefaultHKURL
	}
	if e.FX == "" {
		e.FX = DefaultFXURL
	}
	if e.KLine == "" {
		e.KLine = DefaultKLineURL
	}
	return e
}

// SourceClient issues one batched request per market and decodes the GBK
// payloads. It performs no retries.
type SourceClient struct {
	client    HTTPDoer
	endpoints Endpoints
	timeout   time.Duration
}

// NewSourceClient creates a client. A nil client gets an http.Client bounded
// by timeout.
func NewSourceClient(client HTTPDoer, endpoints Endpoints, timeout time.Duration) *SourceClient {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &SourceClient{
		client:    client,
		endpoints: endpoints.withDefaults(),
		timeout:   timeout,
	}
}

// FetchRawA returns the decoded Sina payload for the given A-share symbols.
func (s *SourceClient) FetchRawA(ctx context.Context, symbols []string) (string, error) {
	url := s.endpoints.AShare + strings.Join(symbols, ",")
	return s.get(ctx, url, sinaReferer)
}

// FetchRawHK returns the parsed Tencent JSON object keyed by r_<symbol>.
func (s *SourceClient) FetchRawHK(ctx context.Context, symbols []string) (gjson.Result, error) {
	keys := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		keys = append(keys, "r_"+symbol)
	}
	url := s.endpoints.HK + strings.Join(keys, ",") + "&fmt=json"
	text, err := s.get(ctx, url, tencentReferer)
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.Valid(text) {
		return gjson.Result{}, NewError(ErrCodeUnparseable, "hk quote payload is not valid json")
	}
	return gjson.Parse(text), nil
}

// FetchFxRate returns the raw Sina HKD/CNY record.
func (s *SourceClient) FetchFxRate(ctx context.Context) (string, error) {
	return s.get(ctx, s.endpoints.FX, sinaReferer)
}

// FetchKLine returns the JSONP wrapped daily K-line history holding the last
// days records for symbol.
func (s *SourceClient) FetchKLine(ctx context.Context, symbol string, days int) (string, error) {
	url := fmt.Sprintf("%s/var%%20_%s_%d=/CN_MarketDataService.getKLineData?symbol=%s&scale=240&ma=no&datalen=%d",
		s.endpoints.KLine, symbol, days, symbol, days)
	return s.get(ctx, url, klineReferer)
}

func (s *SourceClient) get(ctx context.Context, url, referer string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", WrapError(ErrCodeInternal, "build request", err)
	}
	req.Header.Set("Referer", referer)
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", WrapError(ErrCodeUpstream, "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", WrapError(ErrCodeUpstream, fmt.Sprintf("http status %d", resp.StatusCode), ErrUnexpectedStatus)
	}
	reader := transform.NewReader(io.LimitReader(resp.Body, maxResponseSize), simplifiedchinese.GBK.NewDecoder())
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", WrapError(ErrCodeUnparseable, "decode gbk response", err)
	}
	return string(body), nil
}

// parseSinaRecords maps each symbol in a Sina payload to its record body.
// Symbols with an empty record are left out.
func parseSinaRecords(text string) map[string]string {
	records := map[string]string{}
	for _, match := range reSinaRecord.FindAllStringSubmatch(text, -1) {
		if match[2] == "" {
			continue
		}
		records[match[1]] = match[2]
	}
	return records
}

// parseFirstClose reads the close of the first record in a JSONP K-line
// payload. A payload without records yields ok=false and no error.
func parseFirstClose(text string) (float64, bool, error) {
	raw := reJSONArray.FindString(text)
	if raw == "" {
		return 0, false, nil
	}
	if !gjson.Valid(raw) {
		return 0, false, NewError(ErrCodeUnparseable, "kline payload is not valid json")
	}
	closeValue := gjson.Get(raw, "0.close")
	if !closeValue.Exists() {
		return 0, false, nil
	}
	price, ok := parseAmount(closeValue.String())
	if !ok {
		return 0, false, nil
	}
	f, _ := price.Float64()
	return f, true, nil
}

// jsonStrings flattens a JSON array into its string values.
func jsonStrings(arr gjson.Result) []string {
	items := arr.Array()
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.String())
	}
	return out
}
