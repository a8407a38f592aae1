package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/viant/mailnotify/client"
)

const (
	notificationsPath = "/notifications"
	// DefaultPageSize matches the backend default.
	DefaultPageSize = 20
)

// NotificationService reads the notification history.
type NotificationService struct {
	requester Requester
}

// List returns one page of history, newest first; page is zero based.
func (s *NotificationService) List(ctx context.Context, page, size int) (*Page[*Notification], error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))
	ret := &Page[*Notification]{}
	if _, err := s.requester.Do(ctx, http.MethodGet, notificationsPath, nil, ret, client.WithQuery(query)); err != nil {
		return nil, err
	}
	return ret, nil
}
