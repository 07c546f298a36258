package service

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitpay/internal/auth"
	"github.com/mmynk/splitpay/internal/metrics"
	"github.com/mmynk/splitpay/internal/middleware"
	"github.com/mmynk/splitpay/internal/models"
	mock_service "github.com/mmynk/splitpay/internal/service/mocks"
	"github.com/mmynk/splitpay/internal/storage/sqlite"
	"github.com/mmynk/splitpay/pkg/api"
	"github.com/mmynk/splitpay/pkg/api/apiconnect"
)

// testEnv is a full server over a temporary SQLite database with the
// payments platform replaced by a gomock gateway.
type testEnv struct {
	store    *sqlite.SQLiteStore
	gateway  *mock_service.MockPaymentGateway
	jwt      *auth.JWTManager
	metrics  *metrics.Metrics
	auth     *apiconnect.AuthServiceClient
	bills    *apiconnect.BillServiceClient
	channels *apiconnect.ChannelServiceClient
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctrl := gomock.NewController(t)
	gateway := mock_service.NewMockPaymentGateway(ctrl)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	m := metrics.New()
	logger := discardLogger()

	interceptors := connect.WithInterceptors(
		middleware.NewMetricsInterceptor(m),
		middleware.NewAuthInterceptor(jwtManager, apiconnect.PublicProcedures...),
	)

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewAuthServiceHandler(
		NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, store, logger), interceptors))
	mux.Handle(apiconnect.NewBillServiceHandler(
		NewBillService(store, gateway, m, WatchConfig{Interval: 20 * time.Millisecond, FetchTimeout: time.Second}, logger), interceptors))
	mux.Handle(apiconnect.NewChannelServiceHandler(
		NewChannelService(store, gateway, logger), interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{
		store:    store,
		gateway:  gateway,
		jwt:      jwtManager,
		metrics:  m,
		auth:     apiconnect.NewAuthServiceClient(http.DefaultClient, server.URL),
		bills:    apiconnect.NewBillServiceClient(http.DefaultClient, server.URL),
		channels: apiconnect.NewChannelServiceClient(http.DefaultClient, server.URL),
	}
}

// token issues a session for userID without registering an account.
func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	tok, _, err := e.jwt.Generate(&models.User{ID: userID, Email: userID + "@example.com"})
	require.NoError(t, err)
	return tok
}

func authed[T any](msg *T, token string) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// dinner is a 300 bill split evenly between three people.
func dinner() *api.CreateBillRequest {
	return &api.CreateBillRequest{
		Name: "Dinner",
		Goal: dec("300"),
		Participants: []api.Participant{
			{Name: "Amina", PhoneNumber: "0712345678", TargetAmount: dec("100")},
			{Name: "Brian", PhoneNumber: "+254 712 345 679", TargetAmount: dec("100")},
			{Name: "Carol", PhoneNumber: "0112345678", TargetAmount: dec("100")},
		},
	}
}

// createBill creates req through the RPC for the owner behind token.
func (e *testEnv) createBill(t *testing.T, token, accountID string, req *api.CreateBillRequest) *api.Bill {
	t.Helper()
	e.gateway.EXPECT().
		CreateAccount(gomock.Any(), gomock.Any(), req.Name, gomock.Any()).
		Return(accountID, nil)

	resp, err := e.bills.CreateBill(t.Context(), authed(req, token))
	require.NoError(t, err)
	return resp.Msg.Bill
}

// createChannel registers a channel through the RPC.
func (e *testEnv) createChannel(t *testing.T, token, displayID, externalID string, isDefault bool) *api.Channel {
	t.Helper()
	e.gateway.EXPECT().CreateChannel(gomock.Any(), displayID, gomock.Any()).Return(externalID, nil)

	resp, err := e.channels.CreateChannel(t.Context(), authed(&api.CreateChannelRequest{
		DisplayID: displayID,
		Name:      "Till " + displayID,
		IsDefault: isDefault,
	}, token))
	require.NoError(t, err)
	return resp.Msg.Channel
}

func attempt(id, phone, amount, status, ref string, at time.Time) models.PaymentAttempt {
	return models.PaymentAttempt{
		ID:            id,
		PhoneNumber:   phone,
		Amount:        dec(amount),
		RawStatus:     status,
		BillReference: ref,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
}
