package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/splitpay/internal/auth"
	"github.com/mmynk/splitpay/internal/config"
	"github.com/mmynk/splitpay/internal/httpx"
	"github.com/mmynk/splitpay/internal/metrics"
	"github.com/mmynk/splitpay/internal/middleware"
	"github.com/mmynk/splitpay/internal/payments"
	"github.com/mmynk/splitpay/internal/service"
	"github.com/mmynk/splitpay/internal/storage/sqlite"
	"github.com/mmynk/splitpay/pkg/api/apiconnect"
	"github.com/mmynk/splitpay/pkg/logging"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	var tokenCache payments.TokenCache = payments.NewMemoryTokenCache()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("Redis unreachable, caching platform token in memory", "addr", cfg.Redis.Addr, "error", err)
		} else {
			tokenCache = payments.NewRedisTokenCache(rdb)
			slog.Info("Sharing platform token through Redis", "addr", cfg.Redis.Addr)
		}
	}

	gateway := payments.NewClient(payments.Config{
		BaseURL:         cfg.Payments.BaseURL,
		AnonKey:         cfg.Payments.AnonKey,
		Email:           cfg.Payments.Email,
		Password:        cfg.Payments.Password,
		PlatformID:      cfg.Payments.PlatformID,
		PlatformUID:     cfg.Payments.PlatformUID,
		ParentChannelID: cfg.Payments.ParentChannelID,
		Cache:           tokenCache,
	})
	if cfg.Payments.WebhookSecret == "" {
		slog.Warn("PAYMENTS_WEBHOOK_SECRET not set, webhooks are accepted unsigned")
	}

	m := metrics.New()
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)
	logger := slog.Default()

	interceptors := connect.WithInterceptors(
		middleware.NewMetricsInterceptor(m),
		middleware.NewAuthInterceptor(jwtManager, apiconnect.PublicProcedures...),
		middleware.LoggingInterceptor{Logger: logger},
	)

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewAuthServiceHandler(
		service.NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, store, logger), interceptors))
	mux.Handle(apiconnect.NewBillServiceHandler(
		service.NewBillService(store, gateway, m, service.WatchConfig{
			Interval:     cfg.WatchInterval,
			FetchTimeout: cfg.WatchFetchTimeout,
		}, logger), interceptors))
	mux.Handle(apiconnect.NewChannelServiceHandler(
		service.NewChannelService(store, gateway, logger), interceptors))

	mux.Handle("POST /hooks/payments", service.NewWebhookHandler(store, cfg.Payments.WebhookSecret, m, logger))
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.OK(w)
	})

	handler := middleware.Recover(middleware.Logging(middleware.CORS(mux)))

	// Wrap with h2c for HTTP/2 without TLS (required for Connect streaming)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		// Open WatchBill streams end when the process is asked to stop.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", srv.Addr, "url", "http://localhost"+srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
