// Package client provides the authenticated HTTP request layer for the
// Matchlight API.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/raphaelgruber/matchlight-go/internal/config"
	"github.com/raphaelgruber/matchlight-go/internal/metrics"
	"golang.org/x/time/rate"
)

// errRetryableStatus marks an attempt that got a 5xx worth retrying.
var errRetryableStatus = errors.New("retryable status")

// Client executes authenticated requests against the Matchlight API.
// A Client is safe for concurrent use; requests share one connection pool.
type Client struct {
	accessKey      string
	secretKey      string
	endpoint       string
	searchEndpoint string
	timeout        time.Duration
	maxRetries     int

	httpClient *http.Client
	limiter    *rate.Limiter
	newBackOff func() backoff.BackOff
	logger     *slog.Logger
	stats      *metrics.Collector
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (proxy and TLS settings
// from the config are then ignored).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithCollector records request timings into an existing collector.
func WithCollector(m *metrics.Collector) Option {
	return func(c *Client) { c.stats = m }
}

// WithBackOff overrides the retry delay policy. The retry count still comes
// from the config.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = f }
}

// New creates a Client. Credentials missing from cfg fall back to the
// MATCHLIGHT_ACCESS_KEY and MATCHLIGHT_SECRET_KEY environment variables;
// if either is still empty a *ConfigurationError is returned.
func New(cfg config.Config, opts ...Option) (*Client, error) {
	env := config.Load()
	if cfg.AccessKey == "" {
		cfg.AccessKey = env.AccessKey
	}
	if cfg.SecretKey == "" {
		cfg.SecretKey = env.SecretKey
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, &ConfigurationError{Msg: fmt.Sprintf(
			"access key and secret key must be passed in or set in %s and %s",
			config.EnvAccessKey, config.EnvSecretKey)}
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = config.DefaultEndpoint
	}
	if cfg.SearchEndpoint == "" {
		cfg.SearchEndpoint = config.DefaultSearchEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = config.DefaultMaxRetries
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}

	c := &Client{
		accessKey:      cfg.AccessKey,
		secretKey:      cfg.SecretKey,
		endpoint:       strings.TrimRight(cfg.Endpoint, "/"),
		searchEndpoint: strings.TrimRight(cfg.SearchEndpoint, "/"),
		timeout:        cfg.Timeout,
		maxRetries:     cfg.MaxRetries,
		newBackOff:     defaultBackOff,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	for _, o := range opts {
		o(c)
	}
	if c.httpClient == nil {
		hc, err := newHTTPClient(cfg)
		if err != nil {
			return nil, err
		}
		c.httpClient = hc
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.stats == nil {
		c.stats = metrics.NewCollector()
	}
	return c, nil
}

func newHTTPClient(cfg config.Config) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.HTTPSProxy != "" {
		proxy, err := url.Parse(cfg.HTTPSProxy)
		if err != nil {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("invalid https proxy %q: %v", cfg.HTTPSProxy, err)}
		}
		transport.Proxy = http.ProxyURL(proxy)
	}
	if cfg.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via config
	}
	return &http.Client{Transport: transport}, nil
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0 // bounded by the retry count instead
	return b
}

// Endpoint returns the primary API base URL.
func (c *Client) Endpoint() string { return c.endpoint }

// SearchEndpoint returns the base URL used by search requests.
func (c *Client) SearchEndpoint() string { return c.searchEndpoint }

// Stats returns a snapshot of request timings recorded so far.
func (c *Client) Stats() metrics.Snapshot { return c.stats.Snapshot() }

// Response is a successful (HTTP 200) API response with its body read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON decodes the response body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type requestOptions struct {
	endpoint string
	timeout  time.Duration
	query    url.Values
}

// RequestOption adjusts a single request.
type RequestOption func(*requestOptions)

// WithEndpoint sends the request to a different base URL.
func WithEndpoint(endpoint string) RequestOption {
	return func(o *requestOptions) { o.endpoint = strings.TrimRight(endpoint, "/") }
}

// WithTimeout sets the per-attempt timeout. Zero disables it.
func WithTimeout(d time.Duration) RequestOption {
	return func(o *requestOptions) { o.timeout = d }
}

// WithQuery adds query parameters. Empty values are dropped.
func WithQuery(q url.Values) RequestOption {
	return func(o *requestOptions) {
		if o.query == nil {
			o.query = url.Values{}
		}
		for k, vs := range q {
			for _, v := range vs {
				if v != "" {
					o.query.Add(k, v)
				}
			}
		}
	}
}

// Request sends an authenticated request to path under the configured
// endpoint. A nil data sends a GET, anything else a POST with a JSON body;
// []byte and json.RawMessage are sent as is.
//
// Only an HTTP 200 counts as success. Other statuses yield *APIError,
// exhausted retries or transport failures yield *ConnectionError.
func (c *Client) Request(ctx context.Context, path string, data any, opts ...RequestOption) (*Response, error) {
	o := requestOptions{endpoint: c.endpoint, timeout: c.timeout}
	for _, opt := range opts {
		opt(&o)
	}

	method := http.MethodGet
	var body []byte
	if data != nil {
		method = http.MethodPost
		switch v := data.(type) {
		case []byte:
			body = v
		case json.RawMessage:
			body = v
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("marshal request: %w", err)
			}
			body = b
		}
	}

	target := o.endpoint + path
	if len(o.query) > 0 {
		target += "?" + o.query.Encode()
	}

	return c.send(ctx, operationFor(path), method, target, body, o.timeout, true)
}

// Lookup performs a GET for a single resource. A 404 is reported as
// found == false with a nil error; every other failure is returned as is.
func (c *Client) Lookup(ctx context.Context, path string, opts ...RequestOption) (*Response, bool, error) {
	resp, err := c.Request(ctx, path, nil, opts...)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return resp, true, nil
}

// Fetch downloads a pre-signed URL. No credentials are attached; retry and
// error classification match Request. The context bounds the download.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.send(ctx, metrics.OpFeedFetch, http.MethodGet, rawURL, nil, 0, false)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) send(ctx context.Context, op, method, target string, body []byte, timeout time.Duration, auth bool) (*Response, error) {
	requestID := uuid.NewString()
	start := time.Now()
	attempts := 0

	var resp *Response
	attempt := func() error {
		attempts++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		r, err := c.do(ctx, method, target, body, timeout, auth, requestID)
		if err != nil {
			return err
		}
		resp = r
		if retryableStatus(r.StatusCode) {
			return errRetryableStatus
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries)), ctx)
	err := backoff.RetryNotify(attempt, policy, func(err error, wait time.Duration) {
		c.logger.Warn("retrying matchlight request",
			"request_id", requestID, "method", method, "op", op,
			"attempt", attempts, "wait", wait, "error", err)
	})

	elapsed := time.Since(start)
	retries := attempts - 1
	if err != nil {
		c.stats.RecordRequest(op, elapsed, retries, true)
		if errors.Is(err, errRetryableStatus) {
			c.logger.Error("matchlight request exhausted retries",
				"request_id", requestID, "op", op, "status", resp.StatusCode, "attempts", attempts)
			return nil, &ConnectionError{Msg: "matchlight api request failed with too many retries"}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &ConnectionError{Msg: "matchlight api request canceled", Err: ctxErr}
		}
		return nil, &ConnectionError{Msg: "matchlight api request failed with connection error", Err: err}
	}

	c.logger.Debug("matchlight request",
		"request_id", requestID, "method", method, "op", op,
		"status", resp.StatusCode, "attempts", attempts, "duration", elapsed)

	if resp.StatusCode != http.StatusOK {
		c.stats.RecordRequest(op, elapsed, retries, true)
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Reason:     http.StatusText(resp.StatusCode),
		}
		var parsed any
		if json.Unmarshal(resp.Body, &parsed) == nil {
			apiErr.Body = parsed
		}
		return nil, apiErr
	}

	c.stats.RecordRequest(op, elapsed, retries, false)
	return resp, nil
}

// do performs one physical attempt and reads the full body.
func (c *Client) do(ctx context.Context, method, target string, body []byte, timeout time.Duration, auth bool, requestID string) (*Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("X-Request-Id", requestID)
	if auth {
		req.Header.Set("Content-Type", "application/json")
		req.SetBasicAuth(c.accessKey, c.secretKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// operationFor maps a request path onto a metrics operation name.
func operationFor(path string) string {
	switch {
	case path == "/search":
		return metrics.OpSearch
	case path == "/artifact/details":
		return metrics.OpArtifactDetails
	case strings.HasPrefix(path, "/feed/") && strings.HasSuffix(path, "/prepare"):
		return metrics.OpFeedPrepare
	case strings.HasPrefix(path, "/feed/") && strings.HasSuffix(path, "/link"):
		return metrics.OpFeedLink
	case strings.HasPrefix(path, "/records/upload/"):
		return metrics.OpRecordUpload
	default:
		return metrics.OpOther
	}
}
