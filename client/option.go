package client

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/mailnotify"
	"github.com/viant/mailnotify/broadcast"
	"github.com/viant/mailnotify/credential"
)

// Option mutates Client.
type Option func(c *Client)

// WithHTTPClient allows custom http.Client; it is used for regular calls and the refresh call.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithStore sets the credential store, defaults to an in-memory store.
func WithStore(store credential.Store) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithSignedOut sets the topic the client publishes forced sign-outs to.
func WithSignedOut(topic *broadcast.Topic[broadcast.SignedOut]) Option {
	return func(c *Client) {
		c.signedOut = topic
	}
}

// WithLogger sets the client logger.
func WithLogger(logger mailnotify.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout overrides the default transport timeout.
func WithTimeout(duration time.Duration) Option {
	return func(c *Client) {
		if duration <= 0 {
			return
		}
		c.timeout = duration
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		c.userAgent = agent
	}
}

// WithInterceptor appends a request interceptor after the built-in ones.
func WithInterceptor(interceptor Interceptor) Option {
	return func(c *Client) {
		c.interceptors = append(c.interceptors, interceptor)
	}
}

// WithRefreshPath overrides the refresh endpoint path, relative to the API prefix.
func WithRefreshPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.refreshPath = path
		}
	}
}

// WithMetrics registers client metrics with registerer.
func WithMetrics(registerer prometheus.Registerer) Option {
	return func(c *Client) {
		c.registerer = registerer
	}
}
