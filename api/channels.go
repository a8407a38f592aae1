package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const channelsPath = "/notification-channels"

// ChannelService manages Slack and WhatsApp channels.
type ChannelService struct {
	requester Requester
}

func (s *ChannelService) Create(ctx context.Context, request *ChannelRequest) (*Channel, error) {
	return s.write(ctx, http.MethodPost, channelsPath, request)
}

func (s *ChannelService) List(ctx context.Context) ([]*Channel, error) {
	var ret []*Channel
	if _, err := s.requester.Do(ctx, http.MethodGet, channelsPath, nil, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// Update patches an existing channel.
func (s *ChannelService) Update(ctx context.Context, id uuid.UUID, request *ChannelRequest) (*Channel, error) {
	return s.write(ctx, http.MethodPatch, channelsPath+"/"+id.String(), request)
}

func (s *ChannelService) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.requester.Do(ctx, http.MethodDelete, channelsPath+"/"+id.String(), nil, nil)
	return err
}

func (s *ChannelService) write(ctx context.Context, method, path string, request *ChannelRequest) (*Channel, error) {
	if err := Validate(request); err != nil {
		return nil, err
	}
	ret := &Channel{}
	if _, err := s.requester.Do(ctx, method, path, request, ret); err != nil {
		return nil, err
	}
	return ret, nil
}
