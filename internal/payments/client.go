// Package payments talks to the hosted mobile-money platform: accounts,
// channels, payment records, STK charges and payouts.
//
// The platform is a Supabase project. Table access goes through its REST
// API and money movement through edge functions; both need a session token
// obtained with the platform's service credentials, which never leave this
// package.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/mmynk/splitpay/internal/models"
)

var (
	// ErrUpstreamUnavailable is returned for network failures, timeouts and 5xx/429 answers.
	ErrUpstreamUnavailable = errors.New("payment platform unavailable")

	// ErrUpstreamUnauthorized is returned when the platform refuses our credentials.
	ErrUpstreamUnauthorized = errors.New("payment platform rejected credentials")

	// ErrUpstreamRejected is returned for any other non-2xx answer.
	ErrUpstreamRejected = errors.New("payment platform rejected the request")

	// ErrNotFound is returned when the platform has no such record.
	ErrNotFound = errors.New("payment platform record not found")
)

const (
	defaultTimeout     = 15 * time.Second
	defaultMaxAttempts = 3
	defaultBackoff     = 200 * time.Millisecond

	// referenceLimit is the longest reference M-Pesa accepts on a charge or payout.
	referenceLimit = 12

	appSource = "SplitPay"
)

// Config holds the platform endpoint and service credentials.
type Config struct {
	BaseURL  string
	AnonKey  string
	Email    string
	Password string

	// PlatformID scopes account and channel rows (the platform's p_id).
	PlatformID string
	// PlatformUID is sent as x-platform-uid on edge function calls.
	PlatformUID string
	// ParentChannelID is the platform channel new child channels hang off.
	ParentChannelID string

	HTTPClient *http.Client
	Cache      TokenCache

	// MaxAttempts bounds retries of idempotent reads. Zero means 3.
	MaxAttempts int
	// Backoff is the first retry delay; it doubles per attempt. Zero means 200ms.
	Backoff time.Duration
}

// Client is an HTTP client for the payments platform.
type Client struct {
	baseURL         string
	anonKey         string
	email           string
	password        string
	platformID      string
	platformUID     string
	parentChannelID string

	httpClient  *http.Client
	cache       TokenCache
	tokens      singleflight.Group
	maxAttempts int
	backoff     time.Duration
}

// NewClient creates a platform client. A nil Cache falls back to an
// in-process cache.
func NewClient(cfg Config) *Client {
	c := &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		anonKey:         cfg.AnonKey,
		email:           cfg.Email,
		password:        cfg.Password,
		platformID:      cfg.PlatformID,
		platformUID:     cfg.PlatformUID,
		parentChannelID: cfg.ParentChannelID,
		httpClient:      cfg.HTTPClient,
		cache:           cfg.Cache,
		maxAttempts:     cfg.MaxAttempts,
		backoff:         cfg.Backoff,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if c.cache == nil {
		c.cache = NewMemoryTokenCache()
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	if c.backoff <= 0 {
		c.backoff = defaultBackoff
	}
	return c
}

// ChargeRequest asks the platform to push an STK prompt to a phone.
type ChargeRequest struct {
	Phone        string
	Amount       decimal.Decimal
	Reference    string
	AccountID    string
	ChannelID    string
	CustomerName string
}

// PayoutRequest sends collected money to a business paybill.
type PayoutRequest struct {
	Amount      decimal.Decimal
	Destination string
	Reference   string
	Remarks     string
}

// CreateAccount registers a bill as a platform account and returns its ID.
func (c *Client) CreateAccount(ctx context.Context, slug, name string, goal decimal.Decimal) (string, error) {
	payload := map[string]any{
		"uid":  slug,
		"slug": slug,
		"type": "bill",
		"p_id": numericOrString(c.platformID),
		"data": map[string]any{
			"name":       name,
			"total_goal": goal.InexactFloat64(),
		},
		"balance": 0,
		"status":  "active",
	}

	var rows []json.RawMessage
	err := c.send(ctx, call{
		method: http.MethodPost,
		path:   "/rest/v1/accounts",
		body:   payload,
		header: http.Header{"Prefer": {"return=representation"}},
	}, &rows)
	if err != nil {
		return "", fmt.Errorf("create account %s: %w", slug, err)
	}

	id := firstRowID(rows)
	if id == "" {
		return "", fmt.Errorf("create account %s: %w: response has no id", slug, ErrUpstreamRejected)
	}
	return id, nil
}

// ListAccounts returns every bill account under the configured platform ID.
// Callers filter the result by local ownership.
func (c *Client) ListAccounts(ctx context.Context) ([]models.ExternalAccount, error) {
	q := url.Values{}
	q.Set("p_id", "eq."+c.platformID)
	q.Set("select", "*")
	q.Set("order", "created_at.desc")

	var rows []json.RawMessage
	if err := c.send(ctx, call{method: http.MethodGet, path: "/rest/v1/accounts", query: q, idempotent: true}, &rows); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	accounts := make([]models.ExternalAccount, 0, len(rows))
	for _, raw := range rows {
		rec, ok := decodeRecord(raw)
		if !ok {
			continue
		}
		accounts = append(accounts, accountFromRecord(rec))
	}
	return accounts, nil
}

// ListAttempts returns payment records credited to accountID or carrying
// reference, newest first.
func (c *Client) ListAttempts(ctx context.Context, accountID, reference string) ([]models.PaymentAttempt, error) {
	q := url.Values{}
	switch {
	case accountID != "" && reference != "":
		q.Set("or", fmt.Sprintf("(to_ac_id.eq.%s,reference.eq.%s)", accountID, reference))
	case accountID != "":
		q.Set("to_ac_id", "eq."+accountID)
	default:
		q.Set("reference", "eq."+reference)
	}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")

	var rows []json.RawMessage
	if err := c.send(ctx, call{method: http.MethodGet, path: "/rest/v1/payments", query: q, idempotent: true}, &rows); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	attempts := make([]models.PaymentAttempt, 0, len(rows))
	for _, raw := range rows {
		rec, ok := decodeRecord(raw)
		if !ok {
			slog.Debug("Skipping undecodable payment record", "size", len(raw))
			continue
		}
		attempts = append(attempts, attemptFromRecord(rec))
	}
	return attempts, nil
}

// CreateChannel registers a child collection channel for a paybill or till
// number and returns the platform's channel ID.
func (c *Client) CreateChannel(ctx context.Context, displayID, name string) (string, error) {
	payload := map[string]any{
		"p_id":              numericOrString(c.platformID),
		"uid":               displayID,
		"name":              name,
		"provider":          "mpesa",
		"category":          "inbound",
		"mode":              "child",
		"parent_channel_id": numericOrString(c.parentChannelID),
		"status":            "active",
	}

	var rows []json.RawMessage
	err := c.send(ctx, call{
		method: http.MethodPost,
		path:   "/rest/v1/channels",
		body:   payload,
		header: http.Header{"Prefer": {"return=representation"}},
	}, &rows)
	if err != nil {
		return "", fmt.Errorf("create channel %s: %w", displayID, err)
	}

	id := firstRowID(rows)
	if id == "" {
		return "", fmt.Errorf("create channel %s: %w: response has no id", displayID, ErrUpstreamRejected)
	}
	return id, nil
}

// ChannelKey fetches the API key the charge endpoint needs for a channel.
func (c *Client) ChannelKey(ctx context.Context, channelID string) (string, error) {
	q := url.Values{}
	q.Set("id", "eq."+channelID)
	q.Set("select", "api_key")

	var rows []json.RawMessage
	if err := c.send(ctx, call{method: http.MethodGet, path: "/rest/v1/channels", query: q, idempotent: true}, &rows); err != nil {
		return "", fmt.Errorf("channel key %s: %w", channelID, err)
	}
	for _, raw := range rows {
		if rec, ok := decodeRecord(raw); ok {
			if key := stringAt(rec, "api_key"); key != "" {
				return key, nil
			}
		}
	}
	return "", fmt.Errorf("channel key %s: %w", channelID, ErrNotFound)
}

// Charge sends an STK push and returns the platform's attempt ID, which may
// be empty if the platform only acknowledged the request.
// Charges are never retried: a lost response may still have prompted the
// payer, and a second prompt would double-charge them.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (string, error) {
	amount := req.Amount.Floor()
	if !amount.IsPositive() {
		return "", fmt.Errorf("charge %s: %w: amount must be at least 1", req.Phone, ErrUpstreamRejected)
	}

	key, err := c.ChannelKey(ctx, req.ChannelID)
	if err != nil {
		return "", err
	}

	payload := map[string]any{
		"customer_no": req.Phone,
		"amount":      amount.IntPart(),
		"reference":   truncate(req.Reference, referenceLimit),
		"details": map[string]any{
			"customer_name": req.CustomerName,
			"app_source":    appSource,
		},
	}
	if req.AccountID != "" {
		payload["to_ac_id"] = numericOrString(req.AccountID)
	}

	q := url.Values{}
	q.Set("api_key", key)

	var resp json.RawMessage
	err = c.send(ctx, call{
		method: http.MethodPost,
		path:   "/functions/v1/api-public-channels-mpesa-charge-req",
		query:  q,
		body:   payload,
		header: c.platformHeader(),
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("charge %s: %w", req.Phone, err)
	}

	rec, _ := decodeRecord(resp)
	return firstString(rec, []string{"data", "id"}, []string{"id"}, []string{"txn_id"}, []string{"data", "txn_id"}), nil
}

// Payout moves amount to a business paybill. Like charges, payouts are
// never retried.
func (c *Client) Payout(ctx context.Context, req PayoutRequest) error {
	amount := req.Amount.Floor()
	if !amount.IsPositive() {
		return fmt.Errorf("payout to %s: %w: amount must be at least 1", req.Destination, ErrUpstreamRejected)
	}

	payload := map[string]any{
		"amount":        amount.IntPart(),
		"customer_no":   req.Destination,
		"customer_type": "business_paybill",
		"reference":     truncate(req.Reference, referenceLimit),
		"remarks":       req.Remarks,
	}

	err := c.send(ctx, call{
		method: http.MethodPost,
		path:   "/functions/v1/api-channels-mpesa-payout",
		body:   payload,
		header: c.platformHeader(),
	}, nil)
	if err != nil {
		return fmt.Errorf("payout to %s: %w", req.Destination, err)
	}
	return nil
}

func (c *Client) platformHeader() http.Header {
	return http.Header{"X-Platform-Uid": {c.platformUID}}
}

// call describes one platform request.
type call struct {
	method     string
	path       string
	query      url.Values
	body       any
	header     http.Header
	idempotent bool
}

// send performs cl, retrying idempotent calls on ErrUpstreamUnavailable
// with exponential backoff. out, if non-nil, receives the decoded JSON body.
func (c *Client) send(ctx context.Context, cl call, out any) error {
	attempts := 1
	if cl.idempotent {
		attempts = c.maxAttempts
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			wait := c.backoff << (i - 1)
			slog.Debug("Retrying platform request", "path", cl.path, "attempt", i+1, "wait", wait, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		err = c.sendOnce(ctx, cl, out)
		if err == nil || !errors.Is(err, ErrUpstreamUnavailable) {
			return err
		}
	}
	return err
}

func (c *Client) sendOnce(ctx context.Context, cl call, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range cl.header {
		req.Header[k] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err := statusError(resp.StatusCode, data); err != nil {
		if errors.Is(err, ErrUpstreamUnauthorized) {
			if derr := c.cache.Delete(ctx, c.cacheKey()); derr != nil {
				slog.Warn("Failed to drop platform token", "error", derr)
			}
		}
		return err
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: undecodable response: %v", ErrUpstreamRejected, err)
	}
	return nil
}

func statusError(code int, body []byte) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return fmt.Errorf("%w: status=%d", ErrUpstreamUnauthorized, code)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: status=%d", ErrNotFound, code)
	case code == http.StatusTooManyRequests, code >= 500:
		return fmt.Errorf("%w: status=%d", ErrUpstreamUnavailable, code)
	default:
		return fmt.Errorf("%w: status=%d body=%s", ErrUpstreamRejected, code, truncate(string(body), 200))
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) cacheKey() string {
	return "splitpay:platform-token:" + c.email
}

// token returns a cached session token or signs in with the service
// credentials. Concurrent misses share one sign-in, which is not tied to
// any single caller's context; each caller stops waiting when its own
// context ends.
func (c *Client) token(ctx context.Context) (string, error) {
	if tok, ok, err := c.cache.Get(ctx, c.cacheKey()); err != nil {
		slog.Warn("Platform token cache read failed", "error", err)
	} else if ok {
		return tok, nil
	}

	ch := c.tokens.DoChan(c.cacheKey(), func() (any, error) {
		signInCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultTimeout)
		defer cancel()
		return c.signIn(signInCtx)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) signIn(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{"email": c.email, "password": c.password})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/token?grant_type=password", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: sign in: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := statusError(resp.StatusCode, data); err != nil {
		if errors.Is(err, ErrUpstreamRejected) {
			// The auth endpoint answers 400 for bad credentials.
			return "", fmt.Errorf("%w: sign in status=%d", ErrUpstreamUnauthorized, resp.StatusCode)
		}
		return "", fmt.Errorf("sign in: %w", err)
	}

	var out tokenResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("%w: sign in response: %v", ErrUpstreamRejected, err)
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return "", fmt.Errorf("%w: sign in returned empty access_token", ErrUpstreamUnauthorized)
	}

	if err := c.cache.Set(ctx, c.cacheKey(), out.AccessToken, tokenTTL(out.ExpiresIn)); err != nil {
		slog.Warn("Platform token cache write failed", "error", err)
	}
	slog.Debug("Signed in to payment platform", "expires_in", out.ExpiresIn)
	return out.AccessToken, nil
}

// tokenTTL keeps a token until a minute before it expires.
func tokenTTL(expiresIn int) time.Duration {
	ttl := time.Duration(expiresIn)*time.Second - time.Minute
	if ttl <= 0 {
		ttl = time.Duration(expiresIn) * time.Second / 2
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return ttl
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// numericOrString sends numeric IDs as JSON numbers, which the platform's
// integer columns expect.
func numericOrString(id string) any {
	if d, err := decimal.NewFromString(id); err == nil && d.IsInteger() {
		return json.Number(d.String())
	}
	return id
}

func firstRowID(rows []json.RawMessage) string {
	for _, raw := range rows {
		if rec, ok := decodeRecord(raw); ok {
			if id := stringAt(rec, "id"); id != "" {
				return id
			}
		}
	}
	return ""
}
