package service

import (
	"sync"
	"testing"

	"connectrpc.com/connect"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitpay/internal/payments"
	"github.com/mmynk/splitpay/pkg/api"
)

func TestCreateChannel(t *testing.T) {
	e := setupTestServer(t)
	tok := e.token(t, "user-1")

	first := e.createChannel(t, tok, "123456", "ext-1", false)
	assert.True(t, first.IsDefault, "first channel becomes the default")
	assert.Equal(t, "123456", first.DisplayID)

	second := e.createChannel(t, tok, "654321", "ext-2", false)
	assert.False(t, second.IsDefault)

	third := e.createChannel(t, tok, "777777", "ext-3", true)
	assert.True(t, third.IsDefault)

	resp, err := e.channels.ListChannels(t.Context(), authed(&api.ListChannelsRequest{}, tok))
	require.NoError(t, err)
	require.Len(t, resp.Msg.Channels, 3)

	var defaults []string
	for _, ch := range resp.Msg.Channels {
		if ch.IsDefault {
			defaults = append(defaults, ch.ID)
		}
	}
	assert.Equal(t, []string{third.ID}, defaults)
}

func TestCreateChannel_Validation(t *testing.T) {
	e := setupTestServer(t)
	tok := e.token(t, "user-1")

	tests := []struct {
		name string
		req  *api.CreateChannelRequest
	}{
		{name: "missing display id", req: &api.CreateChannelRequest{Name: "Shop"}},
		{name: "letters in display id", req: &api.CreateChannelRequest{DisplayID: "12ab56", Name: "Shop"}},
		{name: "missing name", req: &api.CreateChannelRequest{DisplayID: "123456"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.channels.CreateChannel(t.Context(), authed(tt.req, tok))
			assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
		})
	}
}

func TestCreateChannel_PlatformUnauthorized(t *testing.T) {
	e := setupTestServer(t)
	tok := e.token(t, "user-1")

	e.gateway.EXPECT().CreateChannel(gomock.Any(), "123456", "Shop").Return("", payments.ErrUpstreamUnauthorized)

	_, err := e.channels.CreateChannel(t.Context(), authed(&api.CreateChannelRequest{DisplayID: "123456", Name: "Shop"}, tok))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	resp, err := e.channels.ListChannels(t.Context(), authed(&api.ListChannelsRequest{}, tok))
	require.NoError(t, err)
	assert.Empty(t, resp.Msg.Channels)
}

func TestListChannels_ScopedToOwner(t *testing.T) {
	e := setupTestServer(t)
	e.createChannel(t, e.token(t, "user-1"), "123456", "ext-1", false)

	resp, err := e.channels.ListChannels(t.Context(), authed(&api.ListChannelsRequest{}, e.token(t, "user-2")))
	require.NoError(t, err)
	assert.Empty(t, resp.Msg.Channels)
}

func TestSetDefaultChannel(t *testing.T) {
	e := setupTestServer(t)
	tok := e.token(t, "user-1")
	first := e.createChannel(t, tok, "123456", "ext-1", false)
	second := e.createChannel(t, tok, "654321", "ext-2", false)

	resp, err := e.channels.SetDefaultChannel(t.Context(), authed(&api.SetDefaultChannelRequest{ChannelID: second.ID}, tok))
	require.NoError(t, err)
	assert.Equal(t, second.ID, resp.Msg.Channel.ID)
	assert.True(t, resp.Msg.Channel.IsDefault)

	def, err := e.store.GetDefaultChannel(t.Context(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, def.ID)

	t.Run("foreign channel", func(t *testing.T) {
		_, err := e.channels.SetDefaultChannel(t.Context(), authed(&api.SetDefaultChannelRequest{ChannelID: first.ID}, e.token(t, "user-2")))
		assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	})
}

func TestSetDefaultChannel_Concurrent(t *testing.T) {
	e := setupTestServer(t)
	tok := e.token(t, "user-1")

	var ids []string
	for _, display := range []string{"111111", "222222", "333333", "444444"} {
		ids = append(ids, e.createChannel(t, tok, display, "ext-"+display, false).ID)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := e.channels.SetDefaultChannel(t.Context(), authed(&api.SetDefaultChannelRequest{ChannelID: id}, tok))
			assert.NoError(t, err)
		}(ids[i%len(ids)])
	}
	wg.Wait()

	resp, err := e.channels.ListChannels(t.Context(), authed(&api.ListChannelsRequest{}, tok))
	require.NoError(t, err)
	defaults := 0
	for _, ch := range resp.Msg.Channels {
		if ch.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
}
