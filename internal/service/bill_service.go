package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/splitpay/internal/auth"
	"github.com/mmynk/splitpay/internal/calculator"
	"github.com/mmynk/splitpay/internal/metrics"
	"github.com/mmynk/splitpay/internal/middleware"
	"github.com/mmynk/splitpay/internal/models"
	"github.com/mmynk/splitpay/internal/payments"
	"github.com/mmynk/splitpay/internal/reconcile"
	"github.com/mmynk/splitpay/internal/storage"
	"github.com/mmynk/splitpay/internal/tracker"
	"github.com/mmynk/splitpay/internal/validation"
	"github.com/mmynk/splitpay/pkg/api"
)

const (
	slugLength = 10

	// fanOut bounds concurrent platform calls made by one RPC.
	fanOut = 4
)

// WatchConfig tunes the WatchBill refresh loop. Zero values use the
// tracker defaults.
type WatchConfig struct {
	Interval     time.Duration
	FetchTimeout time.Duration
}

// BillService implements the BillService RPC interface.
type BillService struct {
	store   storage.Store
	gateway PaymentGateway
	metrics *metrics.Metrics
	watch   WatchConfig
	logger  *slog.Logger
}

func NewBillService(store storage.Store, gateway PaymentGateway, m *metrics.Metrics, watch WatchConfig, logger *slog.Logger) *BillService {
	return &BillService{
		store:   store,
		gateway: gateway,
		metrics: m,
		watch:   watch,
		logger:  logger,
	}
}

func requireUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}

// newSlug returns a random reference short enough to survive the
// platform's 12 character limit intact.
func newSlug() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:slugLength]
}

// fillEvenShares splits the goal evenly when no participant was given an
// amount. Any explicit amount leaves the request as it is.
func fillEvenShares(req *api.CreateBillRequest) error {
	for _, p := range req.Participants {
		if !p.TargetAmount.IsZero() {
			return nil
		}
	}
	shares, err := calculator.SplitEvenly(req.Goal, len(req.Participants))
	if err != nil {
		return err
	}
	for i := range req.Participants {
		req.Participants[i].TargetAmount = shares[i]
	}
	return nil
}

// validateShares checks what struct tags cannot: the shares add up to the
// goal and no phone number appears twice.
func validateShares(req *api.CreateBillRequest) error {
	total := decimal.Zero
	seen := make(map[string]bool, len(req.Participants))
	for i, p := range req.Participants {
		total = total.Add(p.TargetAmount)
		phone := reconcile.NormalizePhone(p.PhoneNumber)
		if seen[phone] {
			return fmt.Errorf("participants[%d].phone_number duplicates another participant", i)
		}
		seen[phone] = true
	}
	if !total.Equal(req.Goal) {
		return fmt.Errorf("participant amounts add up to %s but the goal is %s", total, req.Goal)
	}
	return nil
}

// CreateBill registers the bill on the payments platform and then records
// it locally. The local row is what makes the bill visible to its owner.
func (s *BillService) CreateBill(ctx context.Context, req *connect.Request[api.CreateBillRequest]) (*connect.Response[api.CreateBillResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := validation.Struct(req.Msg); err != nil {
		return nil, invalidArgument(err)
	}
	if err := fillEvenShares(req.Msg); err != nil {
		return nil, invalidArgument(err)
	}
	if err := validateShares(req.Msg); err != nil {
		return nil, invalidArgument(err)
	}

	bill := &models.Bill{
		Slug:    newSlug(),
		Name:    strings.TrimSpace(req.Msg.Name),
		Goal:    req.Msg.Goal,
		OwnerID: userID,
		Status:  models.BillStatusActive,
	}
	for _, p := range req.Msg.Participants {
		bill.Participants = append(bill.Participants, models.Participant{
			Name:         strings.TrimSpace(p.Name),
			PhoneNumber:  reconcile.NormalizePhone(p.PhoneNumber),
			TargetAmount: p.TargetAmount,
		})
	}

	accountID, err := s.gateway.CreateAccount(ctx, bill.Slug, bill.Name, bill.Goal)
	if err != nil {
		s.logger.Error("Failed to create platform account", "slug", bill.Slug, "error", err)
		return nil, toConnectError(err)
	}
	bill.ExternalAccountID = accountID

	if err := s.store.CreateBill(ctx, bill); err != nil {
		// The platform account stays behind without a local row, which
		// keeps it invisible to everyone.
		s.logger.Error("Failed to save bill", "slug", bill.Slug, "account_id", accountID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to save bill: %w", err))
	}

	s.logger.Info("Bill created", "bill_id", bill.ID, "slug", bill.Slug, "owner_id", userID, "participants", len(bill.Participants))
	return connect.NewResponse(&api.CreateBillResponse{Bill: toAPIBill(bill)}), nil
}

// ListBills returns the caller's bills with their collection progress.
func (s *BillService) ListBills(ctx context.Context, req *connect.Request[api.ListBillsRequest]) (*connect.Response[api.ListBillsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	ownership, err := s.store.ListOwnership(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list ownership", "user_id", userID, "error", err)
		return nil, toConnectError(err)
	}
	if len(ownership) == 0 {
		return connect.NewResponse(&api.ListBillsResponse{Bills: []api.BillOverview{}}), nil
	}

	accounts, err := s.gateway.ListAccounts(ctx)
	if err != nil {
		s.logger.Error("Failed to list platform accounts", "user_id", userID, "error", err)
		return nil, toConnectError(err)
	}
	visible := reconcile.VisibleBills(userID, ownership, accounts)

	bills := make([]*models.Bill, len(visible))
	summaries := make([]reconcile.Summary, len(visible))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for i, account := range visible {
		g.Go(func() error {
			bill, err := s.store.GetBillBySlug(gctx, account.Slug)
			if err != nil {
				return fmt.Errorf("bill %s: %w", account.Slug, err)
			}
			if bill.ExternalAccountID == "" {
				bill.ExternalAccountID = account.ID
			}
			summary, err := s.summarize(gctx, bill)
			if err != nil {
				return err
			}
			bills[i] = bill
			summaries[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to reconcile bills", "user_id", userID, "error", err)
		return nil, toConnectError(err)
	}

	out := make([]api.BillOverview, 0, len(bills))
	for i, b := range bills {
		overview := api.BillOverview{Bill: *toAPIBill(b), Progress: toAPIProgress(summaries[i].Progress)}
		overview.Bill.Participants = nil
		out = append(out, overview)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Bill.CreatedAt > out[j].Bill.CreatedAt })

	return connect.NewResponse(&api.ListBillsResponse{Bills: out}), nil
}

// GetBill returns a bill, its participants and the reconciled summary.
func (s *BillService) GetBill(ctx context.Context, req *connect.Request[api.GetBillRequest]) (*connect.Response[api.GetBillResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(req.Msg); err != nil {
		return nil, invalidArgument(err)
	}

	var bill *models.Bill
	if req.Msg.BillID != "" {
		bill, err = s.ownedBill(ctx, userID, req.Msg.BillID)
	} else {
		bill, err = s.ownedBillBySlug(ctx, userID, req.Msg.Slug)
	}
	if err != nil {
		return nil, err
	}

	summary, err := s.summarize(ctx, bill)
	if err != nil {
		s.logger.Error("Failed to reconcile bill", "bill_id", bill.ID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.GetBillResponse{
		Bill:    toAPIBill(bill),
		Summary: toAPISummary(summary),
	}), nil
}

// GetProgress returns only the reconciled summary of a bill.
func (s *BillService) GetProgress(ctx context.Context, req *connect.Request[api.GetProgressRequest]) (*connect.Response[api.GetProgressResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(req.Msg); err != nil {
		return nil, invalidArgument(err)
	}

	bill, err := s.ownedBill(ctx, userID, req.Msg.BillID)
	if err != nil {
		return nil, err
	}

	summary, err := s.summarize(ctx, bill)
	if err != nil {
		s.logger.Error("Failed to reconcile bill", "bill_id", bill.ID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetProgressResponse{Summary: toAPISummary(summary)}), nil
}

// RequestPayment sends a payment prompt for what a participant still owes.
func (s *BillService) RequestPayment(ctx context.Context, req *connect.Request[api.RequestPaymentRequest]) (*connect.Response[api.RequestPaymentResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(req.Msg); err != nil {
		return nil, invalidArgument(err)
	}

	bill, err := s.collectableBill(ctx, userID, req.Msg.BillID)
	if err != nil {
		return nil, err
	}

	var participant *models.Participant
	for i := range bill.Participants {
		if bill.Participants[i].ID == req.Msg.ParticipantID {
			participant = &bill.Participants[i]
			break
		}
	}
	if participant == nil {
		return nil, notFound(errUnknownPayer)
	}

	channel, err := s.resolveChannel(ctx, userID, req.Msg.ChannelID)
	if err != nil {
		return nil, err
	}

	summary, err := s.summarize(ctx, bill)
	if err != nil {
		s.logger.Error("Failed to reconcile bill", "bill_id", bill.ID, "error", err)
		return nil, toConnectError(err)
	}
	owed := decimal.Zero
	for _, ps := range summary.Participants {
		if ps.Participant.ID == participant.ID {
			owed = outstanding(ps)
		}
	}
	if !owed.IsPositive() {
		return nil, failedPrecondition(errNothingOwed)
	}

	attemptID, err := s.charge(ctx, bill, *participant, channel, owed)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.RequestPaymentResponse{AttemptID: attemptID, Amount: owed}), nil
}

// RequestPayments prompts every participant who still owes money. A failed
// prompt is reported in its result and does not stop the others.
func (s *BillService) RequestPayments(ctx context.Context, req *connect.Request[api.RequestPaymentsRequest]) (*connect.Response[api.RequestPaymentsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(req.Msg); err != nil {
		return nil, invalidArgument(err)
	}

	bill, err := s.collectableBill(ctx, userID, req.Msg.BillID)
	if err != nil {
		return nil, err
	}
	channel, err := s.resolveChannel(ctx, userID, req.Msg.ChannelID)
	if err != nil {
		return nil, err
	}

	summary, err := s.summarize(ctx, bill)
	if err != nil {
		s.logger.Error("Failed to reconcile bill", "bill_id", bill.ID, "error", err)
		return nil, toConnectError(err)
	}

	var due []reconcile.ParticipantStatus
	for _, ps := range summary.Participants {
		if outstanding(ps).IsPositive() {
			due = append(due, ps)
		}
	}

	results := make([]api.PaymentResult, len(due))
	var g errgroup.Group
	g.SetLimit(fanOut)
	for i, ps := range due {
		g.Go(func() error {
			amount := outstanding(ps)
			res := api.PaymentResult{ParticipantID: ps.Participant.ID, Amount: amount}
			attemptID, err := s.charge(ctx, bill, ps.Participant, channel, amount)
			if err != nil {
				res.Error = err.Error()
			}
			res.AttemptID = attemptID
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("Payment prompts sent", "bill_id", bill.ID, "count", len(results))
	return connect.NewResponse(&api.RequestPaymentsResponse{Results: results}), nil
}

// SettleBill pays the collected amount out to the owner's default channel
// and closes the bill.
func (s *BillService) SettleBill(ctx context.Context, req *connect.Request[api.SettleBillRequest]) (*connect.Response[api.SettleBillResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(req.Msg); err != nil {
		return nil, invalidArgument(err)
	}

	bill, err := s.collectableBill(ctx, userID, req.Msg.BillID)
	if err != nil {
		return nil, err
	}

	summary, err := s.summarize(ctx, bill)
	if err != nil {
		s.logger.Error("Failed to reconcile bill", "bill_id", bill.ID, "error", err)
		return nil, toConnectError(err)
	}
	if !summary.Progress.IsComplete {
		return nil, failedPrecondition(errNotComplete)
	}

	channel, err := s.resolveChannel(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	// Claim the bill before moving money so a concurrent settle sees it
	// as pending and backs off.
	if err := s.store.TransitionBillStatus(ctx, bill.ID, models.BillStatusActive, models.BillStatusPending); err != nil {
		if errors.Is(err, storage.ErrStatusChanged) {
			return nil, failedPrecondition(errSettling)
		}
		s.logger.Error("Failed to claim bill for settlement", "bill_id", bill.ID, "error", err)
		return nil, toConnectError(err)
	}

	// From here on the caller going away must not leave the claim
	// unresolved or cut a payout short.
	bg := context.WithoutCancel(ctx)

	amount := summary.Progress.Collected
	err = s.gateway.Payout(bg, payments.PayoutRequest{
		Amount:      amount,
		Destination: channel.DisplayID,
		Reference:   bill.Slug,
		Remarks:     bill.Name,
	})
	if err != nil {
		s.logger.Error("Payout failed", "bill_id", bill.ID, "channel_id", channel.ID, "error", err)
		if rerr := s.store.TransitionBillStatus(bg, bill.ID, models.BillStatusPending, models.BillStatusActive); rerr != nil {
			s.logger.Error("Failed to release settlement claim", "bill_id", bill.ID, "error", rerr)
		}
		return nil, toConnectError(err)
	}

	if err := s.store.TransitionBillStatus(bg, bill.ID, models.BillStatusPending, models.BillStatusCompleted); err != nil {
		// The money has moved and the bill stays pending, which still
		// blocks another payout.
		s.logger.Error("Failed to mark bill completed after payout", "bill_id", bill.ID, "error", err)
		return nil, toConnectError(err)
	}
	bill.Status = models.BillStatusCompleted

	s.logger.Info("Bill settled", "bill_id", bill.ID, "amount", amount.String(), "destination", channel.DisplayID)
	return connect.NewResponse(&api.SettleBillResponse{Bill: toAPIBill(bill), Amount: amount}), nil
}

// WatchBill streams a fresh summary on every refresh until the client
// goes away.
func (s *BillService) WatchBill(ctx context.Context, req *connect.Request[api.WatchBillRequest], stream *connect.ServerStream[api.WatchBillResponse]) error {
	userID, err := requireUser(ctx)
	if err != nil {
		return err
	}
	if err := validation.Struct(req.Msg); err != nil {
		return invalidArgument(err)
	}

	bill, err := s.ownedBill(ctx, userID, req.Msg.BillID)
	if err != nil {
		return err
	}

	done := s.metrics.WatchStarted()
	defer done()
	s.logger.Debug("Watch started", "bill_id", bill.ID, "user_id", userID)

	poller := &tracker.Poller[reconcile.Summary]{
		Interval:     s.watch.Interval,
		FetchTimeout: s.watch.FetchTimeout,
		Fetch: func(ctx context.Context) (reconcile.Summary, error) {
			return s.summarize(ctx, bill)
		},
	}
	err = poller.Run(ctx, func(u tracker.Update[reconcile.Summary]) error {
		msg := &api.WatchBillResponse{Seq: u.Seq, At: time.Now().Unix()}
		if u.Err != nil {
			msg.Error = refreshError(u.Err)
		} else {
			msg.Summary = toAPISummary(u.Value)
		}
		return stream.Send(msg)
	})
	s.logger.Debug("Watch stopped", "bill_id", bill.ID, "user_id", userID)
	if err != nil && ctx.Err() == nil {
		return toConnectError(err)
	}
	return nil
}

// refreshError is the banner text shown while the last view goes stale.
func refreshError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "refresh timed out; retrying"
	case errors.Is(err, payments.ErrUpstreamUnavailable):
		return "payment service unavailable; retrying"
	}
	return "refresh failed; retrying"
}

// ownedBill loads a bill and fails with NotFound unless userID owns it.
// Foreign bills are indistinguishable from missing ones.
func (s *BillService) ownedBill(ctx context.Context, userID, billID string) (*models.Bill, error) {
	bill, err := s.store.GetBill(ctx, billID)
	return s.checkOwner(userID, bill, err)
}

func (s *BillService) ownedBillBySlug(ctx context.Context, userID, slug string) (*models.Bill, error) {
	bill, err := s.store.GetBillBySlug(ctx, slug)
	return s.checkOwner(userID, bill, err)
}

func (s *BillService) checkOwner(userID string, bill *models.Bill, err error) (*models.Bill, error) {
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound(errBillNotFound)
	}
	if err != nil {
		s.logger.Error("Failed to load bill", "error", err)
		return nil, toConnectError(err)
	}
	if bill.OwnerID != userID {
		s.logger.Warn("Bill access denied", "bill_id", bill.ID, "user_id", userID)
		return nil, notFound(errBillNotFound)
	}
	return bill, nil
}

// collectableBill is ownedBill for operations that move money.
func (s *BillService) collectableBill(ctx context.Context, userID, billID string) (*models.Bill, error) {
	bill, err := s.ownedBill(ctx, userID, billID)
	if err != nil {
		return nil, err
	}
	switch bill.Status {
	case models.BillStatusCompleted:
		return nil, failedPrecondition(errAlreadySettled)
	case models.BillStatusPending:
		return nil, failedPrecondition(errSettling)
	}
	return bill, nil
}

// resolveChannel returns the named channel or, when channelID is empty,
// the owner's default.
func (s *BillService) resolveChannel(ctx context.Context, userID, channelID string) (*models.Channel, error) {
	if channelID != "" {
		ch, err := s.store.GetChannel(ctx, userID, channelID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFound(errChannelNotFound)
		}
		if err != nil {
			return nil, toConnectError(err)
		}
		return ch, nil
	}

	ch, err := s.store.GetDefaultChannel(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, failedPrecondition(errNoChannel)
	}
	if err != nil {
		return nil, toConnectError(err)
	}
	return ch, nil
}

func (s *BillService) charge(ctx context.Context, bill *models.Bill, p models.Participant, ch *models.Channel, amount decimal.Decimal) (string, error) {
	attemptID, err := s.gateway.Charge(ctx, payments.ChargeRequest{
		Phone:        reconcile.NormalizePhone(p.PhoneNumber),
		Amount:       amount,
		Reference:    bill.Slug,
		AccountID:    bill.ExternalAccountID,
		ChannelID:    ch.ExternalID,
		CustomerName: p.Name,
	})
	if err != nil {
		s.metrics.PaymentRequested("failed")
		s.logger.Warn("Payment request failed", "bill_id", bill.ID, "participant_id", p.ID, "error", err)
		return "", err
	}
	s.metrics.PaymentRequested("sent")
	s.logger.Info("Payment requested", "bill_id", bill.ID, "participant_id", p.ID, "attempt_id", attemptID, "amount", amount.String())
	return attemptID, nil
}

// summarize fetches the bill's attempts, overlays webhook events and runs
// the reconcile pipeline.
func (s *BillService) summarize(ctx context.Context, bill *models.Bill) (reconcile.Summary, error) {
	attempts, err := s.gateway.ListAttempts(ctx, bill.ExternalAccountID, bill.Slug)
	if err != nil {
		return reconcile.Summary{}, fmt.Errorf("list attempts for %s: %w", bill.Slug, err)
	}

	ids := make([]string, 0, len(attempts))
	for _, a := range attempts {
		if a.ID != "" {
			ids = append(ids, a.ID)
		}
	}
	events, err := s.store.ListPaymentEvents(ctx, bill.Slug, ids)
	if err != nil {
		return reconcile.Summary{}, fmt.Errorf("list payment events for %s: %w", bill.Slug, err)
	}

	s.metrics.Reconciled()
	return reconcile.Reconcile(bill, bill.Participants, reconcile.ApplyEvents(attempts, events)), nil
}

// outstanding is what a participant still owes against their share.
func outstanding(ps reconcile.ParticipantStatus) decimal.Decimal {
	owed := ps.Participant.TargetAmount.Sub(ps.Paid)
	if owed.IsNegative() {
		return decimal.Zero
	}
	return owed
}
