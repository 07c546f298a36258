// Package apiconnect wires the splitpay.v1 messages to Connect handlers and
// clients.
package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitpay/pkg/api"
)

const (
	AuthServiceName    = "splitpay.v1.AuthService"
	BillServiceName    = "splitpay.v1.BillService"
	ChannelServiceName = "splitpay.v1.ChannelService"
)

const (
	AuthServiceRegisterProcedure       = "/splitpay.v1.AuthService/Register"
	AuthServiceLoginProcedure          = "/splitpay.v1.AuthService/Login"
	AuthServiceLogoutProcedure         = "/splitpay.v1.AuthService/Logout"
	AuthServiceGetCurrentUserProcedure = "/splitpay.v1.AuthService/GetCurrentUser"

	BillServiceCreateBillProcedure      = "/splitpay.v1.BillService/CreateBill"
	BillServiceListBillsProcedure       = "/splitpay.v1.BillService/ListBills"
	BillServiceGetBillProcedure         = "/splitpay.v1.BillService/GetBill"
	BillServiceGetProgressProcedure     = "/splitpay.v1.BillService/GetProgress"
	BillServiceRequestPaymentProcedure  = "/splitpay.v1.BillService/RequestPayment"
	BillServiceRequestPaymentsProcedure = "/splitpay.v1.BillService/RequestPayments"
	BillServiceSettleBillProcedure      = "/splitpay.v1.BillService/SettleBill"
	BillServiceWatchBillProcedure       = "/splitpay.v1.BillService/WatchBill"

	ChannelServiceCreateChannelProcedure     = "/splitpay.v1.ChannelService/CreateChannel"
	ChannelServiceListChannelsProcedure      = "/splitpay.v1.ChannelService/ListChannels"
	ChannelServiceSetDefaultChannelProcedure = "/splitpay.v1.ChannelService/SetDefaultChannel"
)

// PublicProcedures can be called without a session token.
var PublicProcedures = []string{
	AuthServiceRegisterProcedure,
	AuthServiceLoginProcedure,
}

type AuthServiceHandler interface {
	Register(context.Context, *connect.Request[api.RegisterRequest]) (*connect.Response[api.RegisterResponse], error)
	Login(context.Context, *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error)
	Logout(context.Context, *connect.Request[api.LogoutRequest]) (*connect.Response[api.LogoutResponse], error)
	GetCurrentUser(context.Context, *connect.Request[api.GetCurrentUserRequest]) (*connect.Response[api.GetCurrentUserResponse], error)
}

type BillServiceHandler interface {
	CreateBill(context.Context, *connect.Request[api.CreateBillRequest]) (*connect.Response[api.CreateBillResponse], error)
	ListBills(context.Context, *connect.Request[api.ListBillsRequest]) (*connect.Response[api.ListBillsResponse], error)
	GetBill(context.Context, *connect.Request[api.GetBillRequest]) (*connect.Response[api.GetBillResponse], error)
	GetProgress(context.Context, *connect.Request[api.GetProgressRequest]) (*connect.Response[api.GetProgressResponse], error)
	RequestPayment(context.Context, *connect.Request[api.RequestPaymentRequest]) (*connect.Response[api.RequestPaymentResponse], error)
	RequestPayments(context.Context, *connect.Request[api.RequestPaymentsRequest]) (*connect.Response[api.RequestPaymentsResponse], error)
	SettleBill(context.Context, *connect.Request[api.SettleBillRequest]) (*connect.Response[api.SettleBillResponse], error)
	WatchBill(context.Context, *connect.Request[api.WatchBillRequest], *connect.ServerStream[api.WatchBillResponse]) error
}

type ChannelServiceHandler interface {
	CreateChannel(context.Context, *connect.Request[api.CreateChannelRequest]) (*connect.Response[api.CreateChannelResponse], error)
	ListChannels(context.Context, *connect.Request[api.ListChannelsRequest]) (*connect.Response[api.ListChannelsResponse], error)
	SetDefaultChannel(context.Context, *connect.Request[api.SetDefaultChannelRequest]) (*connect.Response[api.SetDefaultChannelResponse], error)
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
}

// NewAuthServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and
// the handler itself.
func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(AuthServiceRegisterProcedure, connect.NewUnaryHandler(AuthServiceRegisterProcedure, svc.Register, opts...))
	mux.Handle(AuthServiceLoginProcedure, connect.NewUnaryHandler(AuthServiceLoginProcedure, svc.Login, opts...))
	mux.Handle(AuthServiceLogoutProcedure, connect.NewUnaryHandler(AuthServiceLogoutProcedure, svc.Logout, opts...))
	mux.Handle(AuthServiceGetCurrentUserProcedure, connect.NewUnaryHandler(AuthServiceGetCurrentUserProcedure, svc.GetCurrentUser, opts...))
	return "/" + AuthServiceName + "/", mux
}

func NewBillServiceHandler(svc BillServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(BillServiceCreateBillProcedure, connect.NewUnaryHandler(BillServiceCreateBillProcedure, svc.CreateBill, opts...))
	mux.Handle(BillServiceListBillsProcedure, connect.NewUnaryHandler(BillServiceListBillsProcedure, svc.ListBills, opts...))
	mux.Handle(BillServiceGetBillProcedure, connect.NewUnaryHandler(BillServiceGetBillProcedure, svc.GetBill, opts...))
	mux.Handle(BillServiceGetProgressProcedure, connect.NewUnaryHandler(BillServiceGetProgressProcedure, svc.GetProgress, opts...))
	mux.Handle(BillServiceRequestPaymentProcedure, connect.NewUnaryHandler(BillServiceRequestPaymentProcedure, svc.RequestPayment, opts...))
	mux.Handle(BillServiceRequestPaymentsProcedure, connect.NewUnaryHandler(BillServiceRequestPaymentsProcedure, svc.RequestPayments, opts...))
	mux.Handle(BillServiceSettleBillProcedure, connect.NewUnaryHandler(BillServiceSettleBillProcedure, svc.SettleBill, opts...))
	mux.Handle(BillServiceWatchBillProcedure, connect.NewServerStreamHandler(BillServiceWatchBillProcedure, svc.WatchBill, opts...))
	return "/" + BillServiceName + "/", mux
}

func NewChannelServiceHandler(svc ChannelServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(ChannelServiceCreateChannelProcedure, connect.NewUnaryHandler(ChannelServiceCreateChannelProcedure, svc.CreateChannel, opts...))
	mux.Handle(ChannelServiceListChannelsProcedure, connect.NewUnaryHandler(ChannelServiceListChannelsProcedure, svc.ListChannels, opts...))
	mux.Handle(ChannelServiceSetDefaultChannelProcedure, connect.NewUnaryHandler(ChannelServiceSetDefaultChannelProcedure, svc.SetDefaultChannel, opts...))
	return "/" + ChannelServiceName + "/", mux
}

// AuthServiceClient is a client for splitpay.v1.AuthService.
type AuthServiceClient struct {
	register       *connect.Client[api.RegisterRequest, api.RegisterResponse]
	login          *connect.Client[api.LoginRequest, api.LoginResponse]
	logout         *connect.Client[api.LogoutRequest, api.LogoutResponse]
	getCurrentUser *connect.Client[api.GetCurrentUserRequest, api.GetCurrentUserResponse]
}

func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AuthServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &AuthServiceClient{
		register:       connect.NewClient[api.RegisterRequest, api.RegisterResponse](httpClient, baseURL+AuthServiceRegisterProcedure, opts...),
		login:          connect.NewClient[api.LoginRequest, api.LoginResponse](httpClient, baseURL+AuthServiceLoginProcedure, opts...),
		logout:         connect.NewClient[api.LogoutRequest, api.LogoutResponse](httpClient, baseURL+AuthServiceLogoutProcedure, opts...),
		getCurrentUser: connect.NewClient[api.GetCurrentUserRequest, api.GetCurrentUserResponse](httpClient, baseURL+AuthServiceGetCurrentUserProcedure, opts...),
	}
}

func (c *AuthServiceClient) Register(ctx context.Context, req *connect.Request[api.RegisterRequest]) (*connect.Response[api.RegisterResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *AuthServiceClient) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *AuthServiceClient) Logout(ctx context.Context, req *connect.Request[api.LogoutRequest]) (*connect.Response[api.LogoutResponse], error) {
	return c.logout.CallUnary(ctx, req)
}

func (c *AuthServiceClient) GetCurrentUser(ctx context.Context, req *connect.Request[api.GetCurrentUserRequest]) (*connect.Response[api.GetCurrentUserResponse], error) {
	return c.getCurrentUser.CallUnary(ctx, req)
}

// BillServiceClient is a client for splitpay.v1.BillService.
type BillServiceClient struct {
	createBill      *connect.Client[api.CreateBillRequest, api.CreateBillResponse]
	listBills       *connect.Client[api.ListBillsRequest, api.ListBillsResponse]
	getBill         *connect.Client[api.GetBillRequest, api.GetBillResponse]
	getProgress     *connect.Client[api.GetProgressRequest, api.GetProgressResponse]
	requestPayment  *connect.Client[api.RequestPaymentRequest, api.RequestPaymentResponse]
	requestPayments *connect.Client[api.RequestPaymentsRequest, api.RequestPaymentsResponse]
	settleBill      *connect.Client[api.SettleBillRequest, api.SettleBillResponse]
	watchBill       *connect.Client[api.WatchBillRequest, api.WatchBillResponse]
}

func NewBillServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *BillServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &BillServiceClient{
		createBill:      connect.NewClient[api.CreateBillRequest, api.CreateBillResponse](httpClient, baseURL+BillServiceCreateBillProcedure, opts...),
		listBills:       connect.NewClient[api.ListBillsRequest, api.ListBillsResponse](httpClient, baseURL+BillServiceListBillsProcedure, opts...),
		getBill:         connect.NewClient[api.GetBillRequest, api.GetBillResponse](httpClient, baseURL+BillServiceGetBillProcedure, opts...),
		getProgress:     connect.NewClient[api.GetProgressRequest, api.GetProgressResponse](httpClient, baseURL+BillServiceGetProgressProcedure, opts...),
		requestPayment:  connect.NewClient[api.RequestPaymentRequest, api.RequestPaymentResponse](httpClient, baseURL+BillServiceRequestPaymentProcedure, opts...),
		requestPayments: connect.NewClient[api.RequestPaymentsRequest, api.RequestPaymentsResponse](httpClient, baseURL+BillServiceRequestPaymentsProcedure, opts...),
		settleBill:      connect.NewClient[api.SettleBillRequest, api.SettleBillResponse](httpClient, baseURL+BillServiceSettleBillProcedure, opts...),
		watchBill:       connect.NewClient[api.WatchBillRequest, api.WatchBillResponse](httpClient, baseURL+BillServiceWatchBillProcedure, opts...),
	}
}

func (c *BillServiceClient) CreateBill(ctx context.Context, req *connect.Request[api.CreateBillRequest]) (*connect.Response[api.CreateBillResponse], error) {
	return c.createBill.CallUnary(ctx, req)
}

func (c *BillServiceClient) ListBills(ctx context.Context, req *connect.Request[api.ListBillsRequest]) (*connect.Response[api.ListBillsResponse], error) {
	return c.listBills.CallUnary(ctx, req)
}

func (c *BillServiceClient) GetBill(ctx context.Context, req *connect.Request[api.GetBillRequest]) (*connect.Response[api.GetBillResponse], error) {
	return c.getBill.CallUnary(ctx, req)
}

func (c *BillServiceClient) GetProgress(ctx context.Context, req *connect.Request[api.GetProgressRequest]) (*connect.Response[api.GetProgressResponse], error) {
	return c.getProgress.CallUnary(ctx, req)
}

func (c *BillServiceClient) RequestPayment(ctx context.Context, req *connect.Request[api.RequestPaymentRequest]) (*connect.Response[api.RequestPaymentResponse], error) {
	return c.requestPayment.CallUnary(ctx, req)
}

func (c *BillServiceClient) RequestPayments(ctx context.Context, req *connect.Request[api.RequestPaymentsRequest]) (*connect.Response[api.RequestPaymentsResponse], error) {
	return c.requestPayments.CallUnary(ctx, req)
}

func (c *BillServiceClient) SettleBill(ctx context.Context, req *connect.Request[api.SettleBillRequest]) (*connect.Response[api.SettleBillResponse], error) {
	return c.settleBill.CallUnary(ctx, req)
}

func (c *BillServiceClient) WatchBill(ctx context.Context, req *connect.Request[api.WatchBillRequest]) (*connect.ServerStreamForClient[api.WatchBillResponse], error) {
	return c.watchBill.CallServerStream(ctx, req)
}

// ChannelServiceClient is a client for splitpay.v1.ChannelService.
type ChannelServiceClient struct {
	createChannel     *connect.Client[api.CreateChannelRequest, api.CreateChannelResponse]
	listChannels      *connect.Client[api.ListChannelsRequest, api.ListChannelsResponse]
	setDefaultChannel *connect.Client[api.SetDefaultChannelRequest, api.SetDefaultChannelResponse]
}

func NewChannelServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ChannelServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &ChannelServiceClient{
		createChannel:     connect.NewClient[api.CreateChannelRequest, api.CreateChannelResponse](httpClient, baseURL+ChannelServiceCreateChannelProcedure, opts...),
		listChannels:      connect.NewClient[api.ListChannelsRequest, api.ListChannelsResponse](httpClient, baseURL+ChannelServiceListChannelsProcedure, opts...),
		setDefaultChannel: connect.NewClient[api.SetDefaultChannelRequest, api.SetDefaultChannelResponse](httpClient, baseURL+ChannelServiceSetDefaultChannelProcedure, opts...),
	}
}

func (c *ChannelServiceClient) CreateChannel(ctx context.Context, req *connect.Request[api.CreateChannelRequest]) (*connect.Response[api.CreateChannelResponse], error) {
	return c.createChannel.CallUnary(ctx, req)
}

func (c *ChannelServiceClient) ListChannels(ctx context.Context, req *connect.Request[api.ListChannelsRequest]) (*connect.Response[api.ListChannelsResponse], error) {
	return c.listChannels.CallUnary(ctx, req)
}

func (c *ChannelServiceClient) SetDefaultChannel(ctx context.Context, req *connect.Request[api.SetDefaultChannelRequest]) (*connect.Response[api.SetDefaultChannelResponse], error) {
	return c.setDefaultChannel.CallUnary(ctx, req)
}
