package client

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/mailnotify"
	"github.com/viant/mailnotify/broadcast"
	"github.com/viant/mailnotify/credential"
	"github.com/viant/mailnotify/internal/mockapi"
)

const (
	testEmail    = "a@b.com"
	testPassword = "password1"
)

type signOuts struct {
	mux     sync.Mutex
	reasons []broadcast.Reason
}

func (s *signOuts) record(event broadcast.SignedOut) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.reasons = append(s.reasons, event.Reason)
}

func (s *signOuts) list() []broadcast.Reason {
	s.mux.Lock()
	defer s.mux.Unlock()
	return append([]broadcast.Reason(nil), s.reasons...)
}

type fixture struct {
	server   *mockapi.Server
	client   *Client
	store    *credential.MemoryStore
	signOuts *signOuts
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	server := mockapi.New(testEmail, testPassword)
	t.Cleanup(server.Close)
	store := credential.NewMemoryStore()
	topic := broadcast.NewTopic[broadcast.SignedOut]()
	events := &signOuts{}
	topic.Subscribe(events.record)
	opts = append([]Option{WithStore(store), WithSignedOut(topic), WithLogger(mailnotify.NopLogger{})}, opts...)
	c, err := New(server.URL, opts...)
	require.NoError(t, err)
	return &fixture{server: server, client: c, store: store, signOuts: events}
}

// signIn stores a pair issued by the server, as a login would.
func (f *fixture) signIn(t *testing.T) (string, string) {
	accessToken, refreshToken := f.server.Issue(testEmail)
	require.NoError(t, f.store.Save(context.Background(), &credential.Pair{AccessToken: accessToken, RefreshToken: refreshToken}))
	return accessToken, refreshToken
}

func (f *fixture) pair(t *testing.T) *credential.Pair {
	pair, err := f.store.Load(context.Background())
	require.NoError(t, err)
	return pair
}

func TestNew(t *testing.T) {
	testCases := []struct {
		name    string
		baseURL string
		wantErr bool
		origin  string
	}{
		{name: "http origin", baseURL: "http://localhost:8080", origin: "http://localhost:8080"},
		{name: "trailing slash", baseURL: "https://api.example.com/", origin: "https://api.example.com"},
		{name: "empty", baseURL: "", wantErr: true},
		{name: "unsupported scheme", baseURL: "ftp://example.com", wantErr: true},
	}
	for _, tc := range testCases {
		c, err := New(tc.baseURL)
		if tc.wantErr {
			assert.Error(t, err, tc.name)
			continue
		}
		require.NoError(t, err, tc.name)
		assert.EqualValues(t, tc.origin, c.Origin(), tc.name)
	}
}

func TestClient_NoTokenNoAuthorizationHeader(t *testing.T) {
	f := newFixture(t)
	_, err := f.client.Get(context.Background(), "/users/me", nil)
	require.Error(t, err)

	headers := f.server.AuthHeaders()
	require.NotEmpty(t, headers)
	for _, header := range headers {
		assert.EqualValues(t, "", header)
	}
	assert.EqualValues(t, 0, f.server.Count("/auth/refresh"))
}

func TestClient_AttachesBearerToken(t *testing.T) {
	f := newFixture(t)
	accessToken, _ := f.signIn(t)

	profile := map[string]interface{}{}
	_, err := f.client.Get(context.Background(), "/users/me", &profile)
	require.NoError(t, err)
	assert.EqualValues(t, testEmail, profile["email"])
	assert.EqualValues(t, []string{"Bearer " + accessToken}, f.server.AuthHeaders())
}

func TestClient_RefreshAndRetryOnce(t *testing.T) {
	f := newFixture(t)
	_, oldRefresh := f.signIn(t)
	f.server.ExpireAccessTokens()

	profile := map[string]interface{}{}
	_, err := f.client.Get(context.Background(), "/users/me", &profile)
	require.NoError(t, err)
	assert.EqualValues(t, testEmail, profile["email"])

	assert.EqualValues(t, 1, f.server.Count("/auth/refresh"))
	assert.EqualValues(t, 2, f.server.Count("/users/me"))
	assert.EqualValues(t, []string{"Bearer A1", "Bearer A2"}, f.server.AuthHeaders(), "retry must carry the new access token")

	pair := f.pair(t)
	assert.EqualValues(t, "A2", pair.AccessToken)
	assert.EqualValues(t, "R2", pair.RefreshToken)
	assert.NotEqual(t, oldRefresh, pair.RefreshToken)
	assert.Empty(t, f.signOuts.list())
}

func TestClient_RetryBodyIsResent(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.server.ExpireAccessTokens()

	echo := map[string]interface{}{}
	_, err := f.client.Post(context.Background(), "/echo", map[string]string{"k": "v"}, &echo)
	require.NoError(t, err)
	assert.EqualValues(t, map[string]interface{}{"k": "v"}, echo["body"])
	assert.EqualValues(t, 2, f.server.Count("/echo"))
}

func TestClient_UnauthorizedAfterRetry(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.server.Configure(func(b *mockapi.Behavior) { b.AlwaysUnauthorized = true })

	_, err := f.client.Get(context.Background(), "/users/me", nil)
	require.Error(t, err)
	assert.True(t, mailnotify.IsSignedOut(err))
	assert.True(t, mailnotify.IsUnauthorized(err))

	assert.EqualValues(t, 1, f.server.Count("/auth/refresh"), "no second refresh")
	assert.EqualValues(t, 2, f.server.Count("/users/me"), "exactly one retry")
	assert.True(t, f.pair(t).IsEmpty())
	assert.EqualValues(t, []broadcast.Reason{broadcast.ReasonUnauthorizedAfterRetry}, f.signOuts.list())
}

func TestClient_ForbiddenSignsOut(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.server.Configure(func(b *mockapi.Behavior) { b.Forbidden = true })

	_, err := f.client.Get(context.Background(), "/users/me", nil)
	require.Error(t, err)
	assert.True(t, mailnotify.IsForbidden(err))
	assert.True(t, mailnotify.IsSignedOut(err))

	assert.EqualValues(t, 0, f.server.Count("/auth/refresh"))
	assert.EqualValues(t, 1, f.server.Count("/users/me"))
	assert.True(t, f.pair(t).IsEmpty())
	assert.EqualValues(t, []broadcast.Reason{broadcast.ReasonForbidden}, f.signOuts.list())
}

func TestClient_NoRefreshTokenSignsOut(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Save(context.Background(), &credential.Pair{AccessToken: "stale"}))

	_, err := f.client.Get(context.Background(), "/users/me", nil)
	require.Error(t, err)
	assert.True(t, mailnotify.IsUnauthorized(err))
	assert.True(t, mailnotify.IsSignedOut(err))
	assert.EqualValues(t, 0, f.server.Count("/auth/refresh"))
	assert.True(t, f.pair(t).IsEmpty())
	assert.EqualValues(t, []broadcast.Reason{broadcast.ReasonNoRefreshToken}, f.signOuts.list())
}

func TestClient_RefreshFailureSignsOut(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.server.ExpireAccessTokens()
	f.server.Configure(func(b *mockapi.Behavior) { b.RefreshFails = true })

	_, err := f.client.Get(context.Background(), "/users/me", nil)
	require.Error(t, err)
	assert.True(t, mailnotify.IsUnauthorized(err), "original 401 is returned")
	assert.True(t, mailnotify.IsSignedOut(err))
	statusErr, ok := mailnotify.AsStatusError(err)
	require.True(t, ok)
	assert.EqualValues(t, "/api/v1/users/me", statusErr.Path)

	assert.EqualValues(t, 1, f.server.Count("/auth/refresh"))
	assert.EqualValues(t, 1, f.server.Count("/users/me"))
	assert.True(t, f.pair(t).IsEmpty())
	assert.EqualValues(t, []broadcast.Reason{broadcast.ReasonRefreshFailed}, f.signOuts.list())
}

func TestClient_RefreshAfterTeardownIsNotSent(t *testing.T) {
	f := newFixture(t)
	_, refreshToken := f.signIn(t)
	require.NoError(t, f.store.Clear(context.Background()))

	_, err := f.client.refreshShared(context.Background(), refreshToken)
	assert.ErrorIs(t, err, errRefreshFailed)
	assert.EqualValues(t, 0, f.server.Count("/auth/refresh"))
	assert.Empty(t, f.signOuts.list(), "the earlier teardown already published")
}

func TestClient_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.server.ExpireAccessTokens()
	f.server.Configure(func(b *mockapi.Behavior) {
		b.HoldUnauthorized = 2
		b.RefreshDelay = 50 * time.Millisecond
	})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.client.Get(context.Background(), "/users/me", nil)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, f.server.Count("/auth/refresh"), "concurrent 401s are coalesced into one refresh")
	assert.EqualValues(t, 4, f.server.Count("/users/me"))
	headers := f.server.AuthHeaders()
	assert.EqualValues(t, []string{"Bearer A1", "Bearer A1"}, headers[:2])
	assert.EqualValues(t, []string{"Bearer A2", "Bearer A2"}, headers[2:])
	assert.EqualValues(t, "R2", f.pair(t).RefreshToken)
	assert.Empty(t, f.signOuts.list())
}

func TestClient_RotatedTokenSkipsRefresh(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.server.ExpireAccessTokens()
	// another caller already rotated the pair after this request carried A1
	rotated := false
	f.client.interceptors = append(f.client.interceptors, InterceptorFunc(func(ctx context.Context, request *http.Request) error {
		if rotated {
			return nil
		}
		rotated = true
		accessToken, refreshToken := f.server.Issue(testEmail)
		return f.store.Save(ctx, &credential.Pair{AccessToken: accessToken, RefreshToken: refreshToken})
	}))

	_, err := f.client.Get(context.Background(), "/users/me", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, f.server.Count("/auth/refresh"))
	assert.EqualValues(t, []string{"Bearer A1", "Bearer A2"}, f.server.AuthHeaders())
}

func TestClient_ErrorsPassThrough(t *testing.T) {
	testCases := []struct {
		name       string
		path       string
		statusCode int
		retryAfter time.Duration
	}{
		{name: "server error", path: "/status/500", statusCode: http.StatusInternalServerError},
		{name: "not found", path: "/status/404", statusCode: http.StatusNotFound},
		{name: "rate limited", path: "/status/429", statusCode: http.StatusTooManyRequests, retryAfter: 30 * time.Second},
		{name: "bad request", path: "/status/400", statusCode: http.StatusBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.signIn(t)
			_, err := f.client.Get(context.Background(), tc.path, nil)
			require.Error(t, err)
			statusErr, ok := mailnotify.AsStatusError(err)
			require.True(t, ok)
			assert.EqualValues(t, tc.statusCode, statusErr.StatusCode)
			assert.EqualValues(t, "scripted status", statusErr.Message)
			assert.EqualValues(t, tc.retryAfter, statusErr.RetryAfter)
			assert.False(t, mailnotify.IsSignedOut(err))
			assert.EqualValues(t, "A1", f.pair(t).AccessToken, "credentials are kept")
			assert.EqualValues(t, 0, f.server.Count("/auth/refresh"))
			assert.Empty(t, f.signOuts.list())
		})
	}
}

func TestClient_AnonymousSkipsSessionHandling(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	_, err := f.client.Get(context.Background(), "/users/me", nil, Anonymous())
	require.Error(t, err)
	assert.True(t, mailnotify.IsUnauthorized(err))
	assert.False(t, mailnotify.IsSignedOut(err))
	assert.EqualValues(t, []string{""}, f.server.AuthHeaders())
	assert.EqualValues(t, 0, f.server.Count("/auth/refresh"))
	assert.EqualValues(t, "A1", f.pair(t).AccessToken)
	assert.Empty(t, f.signOuts.list())
}

func TestClient_RequestShape(t *testing.T) {
	f := newFixture(t, WithUserAgent("tester/1.0"))
	f.signIn(t)

	echo := map[string]interface{}{}
	response, err := f.client.Patch(context.Background(), "echo", map[string]int{"n": 1}, &echo,
		WithQuery(url.Values{"page": []string{"2"}}), WithHeader(RequestIDHeader, "fixed-id"))
	require.NoError(t, err)
	assert.EqualValues(t, http.StatusOK, response.StatusCode)
	assert.EqualValues(t, "fixed-id", response.RequestID)
	assert.EqualValues(t, "PATCH", echo["method"])
	assert.EqualValues(t, "page=2", echo["query"])
	assert.EqualValues(t, "application/json", echo["contentType"])
	assert.EqualValues(t, "fixed-id", echo["requestId"])
	assert.EqualValues(t, "tester/1.0", echo["userAgent"])

	_, err = f.client.Get(context.Background(), "/echo", &echo)
	require.NoError(t, err)
	assert.NotEmpty(t, echo["requestId"], "request id is generated")
	assert.EqualValues(t, "", echo["contentType"], "no body, no content type")
}

func TestClient_EmptyBody(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	out := map[string]interface{}{}
	response, err := f.client.Delete(context.Background(), "/status/204", &out)
	require.NoError(t, err)
	assert.EqualValues(t, http.StatusNoContent, response.StatusCode)
	assert.Empty(t, out)
}

func TestClient_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	f := newFixture(t, WithMetrics(registry))
	f.signIn(t)
	f.server.ExpireAccessTokens()

	_, err := f.client.Get(context.Background(), "/users/me", nil)
	require.NoError(t, err)
	f.server.Configure(func(b *mockapi.Behavior) { b.Forbidden = true })
	_, err = f.client.Get(context.Background(), "/users/me", nil)
	require.Error(t, err)

	assert.EqualValues(t, 1, testutil.ToFloat64(f.client.metrics.requests.WithLabelValues("GET", "401")))
	assert.EqualValues(t, 1, testutil.ToFloat64(f.client.metrics.requests.WithLabelValues("GET", "200")))
	assert.EqualValues(t, 1, testutil.ToFloat64(f.client.metrics.requests.WithLabelValues("GET", "403")))
	assert.EqualValues(t, 1, testutil.ToFloat64(f.client.metrics.refresh.WithLabelValues(refreshSucceeded)))
	assert.EqualValues(t, 1, testutil.ToFloat64(f.client.metrics.signouts.WithLabelValues(string(broadcast.ReasonForbidden))))

	// a second client on the same registry reuses the collectors
	_, err = New(f.server.URL, WithMetrics(registry))
	assert.NoError(t, err)
}
