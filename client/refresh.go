package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/viant/mailnotify"
	"github.com/viant/mailnotify/broadcast"
	"github.com/viant/mailnotify/credential"
)

// errRefreshFailed marks a refresh flight that already tore the session down.
var errRefreshFailed = errors.New("token refresh failed")

// refreshAndRetry performs at most one refresh for a request rejected with 401 and re-issues it once.
// Concurrent 401s share one in-flight refresh. A request whose access token was already rotated
// by another refresh skips refreshing and retries with the current token.
func (c *Client) refreshAndRetry(ctx context.Context, aCall *call, sentToken string, cause error) (*Response, error) {
	pair, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Errorf("failed to load credentials: %v", err)
		pair = &credential.Pair{}
	}
	if pair.HasAccess() && sentToken != "" && pair.AccessToken != sentToken {
		c.metrics.observeRefresh(refreshSkipped)
		return c.send(withRetry(ctx, pair.AccessToken), aCall)
	}
	if !pair.HasRefresh() {
		c.signOut(ctx, broadcast.ReasonNoRefreshToken)
		return nil, fmt.Errorf("%w: %w", mailnotify.ErrSignedOut, cause)
	}
	refreshed, err := c.refreshShared(ctx, pair.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", mailnotify.ErrSignedOut, cause)
	}
	return c.send(withRetry(ctx, refreshed.AccessToken), aCall)
}

// refreshShared coalesces concurrent refreshes of the same refresh token into one call.
// On failure the session is torn down once per flight, not once per waiting request.
func (c *Client) refreshShared(ctx context.Context, refreshToken string) (*credential.Pair, error) {
	result, err, _ := c.refreshes.Do(refreshToken, func() (interface{}, error) {
		// the flight outlives a single caller's cancellation
		flightCtx := context.WithoutCancel(ctx)
		if current, err := c.store.Load(flightCtx); err == nil && current.RefreshToken != refreshToken {
			// a flight that completed after the caller loaded its pair either rotated or cleared it
			if !current.HasAccess() {
				return nil, errRefreshFailed
			}
			c.metrics.observeRefresh(refreshSkipped)
			return current, nil
		}
		pair, err := c.Refresh(flightCtx, refreshToken)
		if err != nil {
			c.metrics.observeRefresh(refreshFailed)
			c.logger.Errorf("failed to refresh access token: %v", err)
			c.signOut(flightCtx, broadcast.ReasonRefreshFailed)
			return nil, errRefreshFailed
		}
		c.metrics.observeRefresh(refreshSucceeded)
		return pair, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*credential.Pair), nil
}

// Refresh exchanges refreshToken for a new pair and persists it, replacing both prior tokens.
// The call bypasses the interceptor chain, so a failing refresh never triggers another refresh.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*credential.Pair, error) {
	payload, err := json.Marshal(map[string]string{mailnotify.RefreshTokenKey: refreshToken})
	if err != nil {
		return nil, err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.refreshPath), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh request: %w", err)
	}
	request.Header.Set("Content-Type", jsonMime)
	request.Header.Set("Accept", jsonMime)
	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to send refresh request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read refresh response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, mailnotify.NewResponseError(mailnotify.NewStatusError(resp, body))
	}
	pair := &credential.Pair{}
	if err = json.Unmarshal(body, pair); err != nil {
		return nil, fmt.Errorf("invalid refresh response: %w", err)
	}
	if err = c.store.Save(ctx, pair); err != nil {
		return nil, fmt.Errorf("failed to store refreshed credentials: %w", err)
	}
	c.logger.Infof("access token refreshed")
	return pair, nil
}
