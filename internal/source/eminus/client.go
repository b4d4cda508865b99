package eminus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nhle/eminus-watch/internal/logger"
)

const (
	authPath       = "/eminusapi/api/auth"
	coursesPath    = "/eminusapi8/api/Course/getAllCourses"
	activitiesPath = "/eminusapi8/api/Activity/getActividadesEstudiante/{courseID}"

	// The portal rejects requests that do not look like they come from its
	// web frontend.
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	defaultTimeout      = 15 * time.Second
	defaultRetryCount   = 2
	defaultRetryWait    = 500 * time.Millisecond
	defaultRetryMaxWait = 5 * time.Second
)

// errMalformedBody marks a 2xx response whose body is not the expected JSON.
var errMalformedBody = errors.New("malformed response body")

// StatusError is returned for any non-2xx response that survived retries.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d on %s %s: %s", e.Status, e.Method, e.Path, e.Body)
}

// Client is a thin HTTP client for the Eminus REST API. It sends the browser
// headers the portal expects and retries 429 and 5xx responses with
// exponential backoff.
type Client struct {
	rc *resty.Client
}

// ClientOption configures NewClient.
type ClientOption func(*resty.Client)

// WithRetryWait overrides the backoff bounds between retries.
func WithRetryWait(wait, maxWait time.Duration) ClientOption {
	return func(rc *resty.Client) {
		rc.SetRetryWaitTime(wait).SetRetryMaxWaitTime(maxWait)
	}
}

// WithRetryCount sets how many times a request is retried after the first
// attempt.
func WithRetryCount(n int) ClientOption {
	return func(rc *resty.Client) {
		rc.SetRetryCount(n)
	}
}

// WithClientLogger routes resty's own diagnostics to l.
func WithClientLogger(l logger.Logger) ClientOption {
	return func(rc *resty.Client) {
		rc.SetLogger(l)
	}
}

// NewClient creates a client for the portal rooted at baseURL
// (e.g. https://eminus.uv.mx).
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json, text/plain, */*").
		SetHeader("User-Agent", browserUserAgent).
		SetHeader("Origin", baseURL).
		SetHeader("Referer", baseURL+"/").
		SetRetryCount(defaultRetryCount).
		SetRetryWaitTime(defaultRetryWait).
		SetRetryMaxWaitTime(defaultRetryMaxWait).
		AddRetryCondition(isRetriable).
		SetLogger(logger.Default())

	for _, opt := range opts {
		opt(rc)
	}

	return &Client{rc: rc}
}

// isRetriable retries transport failures, rate limiting and server errors.
func isRetriable(resp *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if resp == nil {
		return false
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// Get performs an authenticated GET and decodes the JSON response into result.
func (c *Client) Get(
	ctx context.Context,
	token string,
	path string,
	pathParams map[string]string,
	result any,
) error {
	req := c.rc.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetPathParams(pathParams)
	return c.do(req, http.MethodGet, path, result)
}

// Post performs an unauthenticated POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	req := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	return c.do(req, http.MethodPost, path, result)
}

func (c *Client) do(req *resty.Request, method, path string, result any) error {
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("executing request %s %s: %w", method, path, err)
	}

	if !resp.IsSuccess() {
		return &StatusError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode(),
			Body:   truncate(resp.String(), 200),
		}
	}

	if result == nil || len(resp.Body()) == 0 {
		return nil
	}

	if err := json.Unmarshal(resp.Body(), result); err != nil {
		return fmt.Errorf("%w from %s %s: %v", errMalformedBody, method, path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
