package service

import (
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitpay/pkg/api"
)

func TestRegisterAndLogin(t *testing.T) {
	e := setupTestServer(t)

	reg, err := e.auth.Register(t.Context(), connect.NewRequest(&api.RegisterRequest{
		Email:       "Amina@Example.com",
		DisplayName: "Amina",
		Password:    "correct horse",
	}))
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Msg.Token)
	assert.Equal(t, "amina@example.com", reg.Msg.User.Email)
	assert.NotZero(t, reg.Msg.ExpiresAt)

	login, err := e.auth.Login(t.Context(), connect.NewRequest(&api.LoginRequest{
		Email:    "amina@example.com",
		Password: "correct horse",
	}))
	require.NoError(t, err)
	assert.Equal(t, reg.Msg.User.ID, login.Msg.User.ID)

	me, err := e.auth.GetCurrentUser(t.Context(), authed(&api.GetCurrentUserRequest{}, login.Msg.Token))
	require.NoError(t, err)
	assert.Equal(t, "Amina", me.Msg.User.DisplayName)

	_, err = e.auth.Logout(t.Context(), authed(&api.LogoutRequest{}, login.Msg.Token))
	assert.NoError(t, err)
}

func TestRegister_Errors(t *testing.T) {
	e := setupTestServer(t)

	_, err := e.auth.Register(t.Context(), connect.NewRequest(&api.RegisterRequest{
		Email: "amina@example.com", DisplayName: "Amina", Password: "correct horse",
	}))
	require.NoError(t, err)

	tests := []struct {
		name string
		req  *api.RegisterRequest
		code connect.Code
	}{
		{name: "duplicate email", req: &api.RegisterRequest{Email: "AMINA@example.com", DisplayName: "A", Password: "another pass"}, code: connect.CodeAlreadyExists},
		{name: "weak password", req: &api.RegisterRequest{Email: "brian@example.com", DisplayName: "Brian", Password: "short"}, code: connect.CodeInvalidArgument},
		{name: "invalid email", req: &api.RegisterRequest{Email: "brian", DisplayName: "Brian", Password: "long enough"}, code: connect.CodeInvalidArgument},
		{name: "missing display name", req: &api.RegisterRequest{Email: "brian@example.com", Password: "long enough"}, code: connect.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.auth.Register(t.Context(), connect.NewRequest(tt.req))
			assert.Equal(t, tt.code, connect.CodeOf(err))
		})
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	e := setupTestServer(t)

	_, err := e.auth.Register(t.Context(), connect.NewRequest(&api.RegisterRequest{
		Email: "amina@example.com", DisplayName: "Amina", Password: "correct horse",
	}))
	require.NoError(t, err)

	_, err = e.auth.Login(t.Context(), connect.NewRequest(&api.LoginRequest{Email: "amina@example.com", Password: "wrong horse"}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	_, err = e.auth.Login(t.Context(), connect.NewRequest(&api.LoginRequest{Email: "nobody@example.com", Password: "whatever1"}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestGetCurrentUser(t *testing.T) {
	e := setupTestServer(t)

	t.Run("no token", func(t *testing.T) {
		_, err := e.auth.GetCurrentUser(t.Context(), connect.NewRequest(&api.GetCurrentUserRequest{}))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("token for deleted account", func(t *testing.T) {
		_, err := e.auth.GetCurrentUser(t.Context(), authed(&api.GetCurrentUserRequest{}, e.token(t, "ghost")))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})
}
