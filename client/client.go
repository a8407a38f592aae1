package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/afs/url"
	"github.com/viant/mailnotify"
	"github.com/viant/mailnotify/broadcast"
	"github.com/viant/mailnotify/credential"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"
)

const (
	bearerPrefix   = "Bearer "
	jsonMime       = "application/json"
	defaultTimeout = 30 * time.Second
	maxBodySize    = 8 << 20
)

// Client performs authenticated JSON requests against a single backend origin.
// An expired access token (401) is refreshed once per request and the request re-issued;
// a forbidden response (403), a failed refresh or a second 401 tears the session down:
// credentials are cleared and a SignedOut event is published.
type Client struct {
	origin       string
	apiURL       string
	httpClient   *http.Client
	store        credential.Store
	signedOut    *broadcast.Topic[broadcast.SignedOut]
	logger       mailnotify.Logger
	interceptors []Interceptor
	userAgent    string
	timeout      time.Duration
	refreshPath  string
	refreshes    singleflight.Group
	registerer   prometheus.Registerer
	metrics      *metrics
}

// New creates a client for the backend served at baseURL (scheme://host[:port][/path]).
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base URL was empty")
	}
	schema := url.Scheme(baseURL, "")
	if schema != "http" && schema != "https" {
		return nil, fmt.Errorf("unsupported base URL scheme: %v", baseURL)
	}
	if url.Host(baseURL) == "" {
		return nil, fmt.Errorf("base URL is missing host: %v", baseURL)
	}
	c := &Client{
		origin:      fmt.Sprintf("%s://%s", schema, url.Host(baseURL)),
		apiURL:      baseURL + mailnotify.APIPrefix,
		timeout:     defaultTimeout,
		refreshPath: mailnotify.RefreshPath,
		userAgent:   "mailnotify-go",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.httpClient = &http.Client{Jar: jar, Timeout: c.timeout}
	}
	if c.store == nil {
		c.store = credential.NewMemoryStore()
	}
	if c.signedOut == nil {
		c.signedOut = broadcast.NewTopic[broadcast.SignedOut]()
	}
	if c.logger == nil {
		c.logger = mailnotify.DefaultLogger
	}
	if c.registerer != nil {
		var err error
		if c.metrics, err = newMetrics(c.registerer); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	builtIn := []Interceptor{&bearer{c: c}, requestID{}, userAgent(c.userAgent)}
	c.interceptors = append(builtIn, c.interceptors...)
	return c, nil
}

// Store returns the credential store used by the client.
func (c *Client) Store() credential.Store {
	return c.store
}

// SignedOut returns the topic forced sign-outs are published to.
func (c *Client) SignedOut() *broadcast.Topic[broadcast.SignedOut] {
	return c.signedOut
}

// Origin returns scheme://host of the backend.
func (c *Client) Origin() string {
	return c.origin
}

// Get sends a GET request and decodes the JSON response into out (if not nil).
func (c *Client) Get(ctx context.Context, path string, out interface{}, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, out, opts...)
}

// Post sends a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, out, opts...)
}

// Put sends a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out interface{}, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, body, out, opts...)
}

// Patch sends a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out interface{}, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, path, body, out, opts...)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, out interface{}, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, out, opts...)
}

// Do sends a request to path (relative to the API prefix) and decodes the JSON response into out.
// Non-2xx responses are returned as errors; see mailnotify.StatusError.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}, opts ...RequestOption) (*Response, error) {
	aCall := &call{method: method, path: path}
	for _, opt := range opts {
		opt(aCall)
	}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		aCall.payload = payload
	}
	if aCall.anonymous {
		ctx = withAnonymous(ctx)
	}
	response, err := c.send(ctx, aCall)
	if err != nil {
		return nil, err
	}
	if out != nil && len(bytes.TrimSpace(response.Body)) > 0 {
		if err = json.Unmarshal(response.Body, out); err != nil {
			return response, fmt.Errorf("failed to decode %v %v response: %w", method, path, err)
		}
	}
	return response, nil
}

func (c *Client) send(ctx context.Context, aCall *call) (*Response, error) {
	response, sentToken, err := c.roundTrip(ctx, aCall)
	if err == nil || aCall.anonymous {
		return response, err
	}
	switch {
	case mailnotify.IsForbidden(err):
		c.signOut(ctx, broadcast.ReasonForbidden)
		return nil, fmt.Errorf("%w: %w", mailnotify.ErrSignedOut, err)
	case mailnotify.IsUnauthorized(err):
		if IsRetry(ctx) {
			c.signOut(ctx, broadcast.ReasonUnauthorizedAfterRetry)
			return nil, fmt.Errorf("%w: %w", mailnotify.ErrSignedOut, err)
		}
		return c.refreshAndRetry(ctx, aCall, sentToken, err)
	}
	return nil, err
}

// roundTrip sends a single attempt; it returns the access token the attempt carried.
func (c *Client) roundTrip(ctx context.Context, aCall *call) (*Response, string, error) {
	request, err := c.newRequest(ctx, aCall)
	if err != nil {
		return nil, "", err
	}
	for _, interceptor := range c.interceptors {
		if err = interceptor.Intercept(ctx, request); err != nil {
			return nil, "", fmt.Errorf("failed to prepare %v %v: %w", aCall.method, aCall.path, err)
		}
	}
	sentToken := strings.TrimPrefix(request.Header.Get("Authorization"), bearerPrefix)
	requestID := request.Header.Get(RequestIDHeader)
	c.logger.Debugf("%v %v (request id: %v, retry: %v)", aCall.method, request.URL.Path, requestID, IsRetry(ctx))

	resp, err := c.httpClient.Do(request)
	if err != nil {
		c.metrics.observeRequest(aCall.method, 0)
		return nil, sentToken, fmt.Errorf("failed to send %v %v: %w", aCall.method, aCall.path, err)
	}
	defer resp.Body.Close()
	c.metrics.observeRequest(aCall.method, resp.StatusCode)
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, sentToken, fmt.Errorf("failed to read %v %v response: %w", aCall.method, aCall.path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, sentToken, mailnotify.NewResponseError(mailnotify.NewStatusError(resp, body))
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body, RequestID: requestID}, sentToken, nil
}

func (c *Client) newRequest(ctx context.Context, aCall *call) (*http.Request, error) {
	URL := c.endpoint(aCall.path)
	if len(aCall.query) > 0 {
		URL += "?" + aCall.query.Encode()
	}
	var body io.Reader
	if aCall.payload != nil {
		body = bytes.NewReader(aCall.payload)
	}
	request, err := http.NewRequestWithContext(ctx, aCall.method, URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Accept", jsonMime)
	if aCall.payload != nil {
		request.Header.Set("Content-Type", jsonMime)
	}
	for k, v := range aCall.header {
		request.Header[k] = v
	}
	return request, nil
}

func (c *Client) endpoint(path string) string {
	return c.apiURL + "/" + strings.TrimLeft(path, "/")
}

// signOut clears credentials and publishes a SignedOut event.
func (c *Client) signOut(ctx context.Context, reason broadcast.Reason) {
	if err := c.store.Clear(context.WithoutCancel(ctx)); err != nil {
		c.logger.Errorf("failed to clear credentials: %v", err)
	}
	c.metrics.observeSignOut(reason)
	c.logger.Infof("session signed out: %v", reason)
	c.signedOut.Publish(broadcast.NewSignedOut(reason))
}
