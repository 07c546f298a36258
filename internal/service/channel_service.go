package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitpay/internal/models"
	"github.com/mmynk/splitpay/internal/storage"
	"github.com/mmynk/splitpay/internal/validation"
	"github.com/mmynk/splitpay/pkg/api"
)

// ChannelService implements the ChannelService RPC interface.
type ChannelService struct {
	store   storage.ChannelStore
	gateway PaymentGateway
	logger  *slog.Logger
}

func NewChannelService(store storage.ChannelStore, gateway PaymentGateway, logger *slog.Logger) *ChannelService {
	return &ChannelService{store: store, gateway: gateway, logger: logger}
}

// CreateChannel registers a till or paybill on the platform and saves it.
// An owner's first channel becomes their default.
func (s *ChannelService) CreateChannel(ctx context.Context, req *connect.Request[api.CreateChannelRequest]) (*connect.Response[api.CreateChannelResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(req.Msg); err != nil {
		return nil, invalidArgument(err)
	}

	ch := &models.Channel{
		DisplayID: strings.TrimSpace(req.Msg.DisplayID),
		Name:      strings.TrimSpace(req.Msg.Name),
		OwnerID:   userID,
		IsDefault: req.Msg.IsDefault,
	}

	externalID, err := s.gateway.CreateChannel(ctx, ch.DisplayID, ch.Name)
	if err != nil {
		s.logger.Error("Failed to register channel", "display_id", ch.DisplayID, "error", err)
		return nil, toConnectError(err)
	}
	ch.ExternalID = externalID

	if err := s.store.CreateChannel(ctx, ch); err != nil {
		s.logger.Error("Failed to save channel", "display_id", ch.DisplayID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Channel created", "channel_id", ch.ID, "owner_id", userID, "is_default", ch.IsDefault)
	return connect.NewResponse(&api.CreateChannelResponse{Channel: toAPIChannel(ch)}), nil
}

// ListChannels returns the caller's channels, oldest first.
func (s *ChannelService) ListChannels(ctx context.Context, req *connect.Request[api.ListChannelsRequest]) (*connect.Response[api.ListChannelsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	channels, err := s.store.ListChannels(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list channels", "user_id", userID, "error", err)
		return nil, toConnectError(err)
	}

	out := make([]api.Channel, 0, len(channels))
	for i := range channels {
		out = append(out, *toAPIChannel(&channels[i]))
	}
	return connect.NewResponse(&api.ListChannelsResponse{Channels: out}), nil
}

// SetDefaultChannel makes one of the caller's channels the default.
func (s *ChannelService) SetDefaultChannel(ctx context.Context, req *connect.Request[api.SetDefaultChannelRequest]) (*connect.Response[api.SetDefaultChannelResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(req.Msg); err != nil {
		return nil, invalidArgument(err)
	}

	err = s.store.SetDefaultChannel(ctx, userID, req.Msg.ChannelID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound(errChannelNotFound)
	}
	if err != nil {
		s.logger.Error("Failed to set default channel", "channel_id", req.Msg.ChannelID, "error", err)
		return nil, toConnectError(err)
	}

	ch, err := s.store.GetChannel(ctx, userID, req.Msg.ChannelID)
	if err != nil {
		return nil, toConnectError(err)
	}

	s.logger.Info("Default channel changed", "channel_id", ch.ID, "owner_id", userID)
	return connect.NewResponse(&api.SetDefaultChannelResponse{Channel: toAPIChannel(ch)}), nil
}
