package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitpay/internal/models"
	"github.com/mmynk/splitpay/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testBill(owner, slug string) *models.Bill {
	return &models.Bill{
		Slug:    slug,
		Name:    "Dinner at Mama Oliech",
		Goal:    decimal.NewFromInt(3000),
		OwnerID: owner,
		Participants: []models.Participant{
			{Name: "Wanjiru", PhoneNumber: "254711111111", TargetAmount: decimal.NewFromInt(1500)},
			{Name: "Otieno", PhoneNumber: "254722222222", TargetAmount: decimal.RequireFromString("1500.00")},
		},
	}
}

func TestSQLiteStore_Bills(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateBill fills generated fields", func(t *testing.T) {
		bill := testBill("owner-1", "abc123def456")
		require.NoError(t, store.CreateBill(ctx, bill))

		assert.NotEmpty(t, bill.ID)
		assert.NotZero(t, bill.CreatedAt)
		assert.Equal(t, models.BillStatusActive, bill.Status)
		for _, p := range bill.Participants {
			assert.NotEmpty(t, p.ID)
			assert.Equal(t, bill.ID, p.BillID)
		}
	})

	t.Run("GetBill and GetBillBySlug return participants in order", func(t *testing.T) {
		original := testBill("owner-1", "slug-get-0001")
		original.ExternalAccountID = "77"
		require.NoError(t, store.CreateBill(ctx, original))

		byID, err := store.GetBill(ctx, original.ID)
		require.NoError(t, err)
		bySlug, err := store.GetBillBySlug(ctx, original.Slug)
		require.NoError(t, err)

		for _, got := range []*models.Bill{byID, bySlug} {
			assert.Equal(t, original.ID, got.ID)
			assert.Equal(t, "77", got.ExternalAccountID)
			assert.True(t, got.Goal.Equal(original.Goal))
			require.Len(t, got.Participants, 2)
			assert.Equal(t, "Wanjiru", got.Participants[0].Name)
			assert.Equal(t, "Otieno", got.Participants[1].Name)
			assert.True(t, got.Participants[1].TargetAmount.Equal(decimal.NewFromInt(1500)))
		}
	})

	t.Run("missing bill is ErrNotFound", func(t *testing.T) {
		_, err := store.GetBill(ctx, "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = store.GetBillBySlug(ctx, "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("duplicate slug is ErrConflict and leaves no participants behind", func(t *testing.T) {
		first := testBill("owner-1", "dupe-slug")
		require.NoError(t, store.CreateBill(ctx, first))

		second := testBill("owner-2", "dupe-slug")
		err := store.CreateBill(ctx, second)
		assert.ErrorIs(t, err, storage.ErrConflict)

		_, err = store.GetBill(ctx, second.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("duplicate phone rolls back the whole bill", func(t *testing.T) {
		bill := testBill("owner-1", "dupe-phone")
		bill.Participants[1].PhoneNumber = bill.Participants[0].PhoneNumber

		err := store.CreateBill(ctx, bill)
		assert.ErrorIs(t, err, storage.ErrConflict)

		_, err = store.GetBillBySlug(ctx, "dupe-phone")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ownership is scoped to the owner", func(t *testing.T) {
		require.NoError(t, store.CreateBill(ctx, testBill("owner-3", "o3-a")))
		require.NoError(t, store.CreateBill(ctx, testBill("owner-3", "o3-b")))
		require.NoError(t, store.CreateBill(ctx, testBill("owner-4", "o4-a")))

		owned, err := store.ListOwnership(ctx, "owner-3")
		require.NoError(t, err)
		require.Len(t, owned, 2)
		for _, o := range owned {
			assert.Equal(t, "owner-3", o.OwnerID)
			assert.NotEmpty(t, o.BillID)
		}

		none, err := store.ListOwnership(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("TransitionBillStatus", func(t *testing.T) {
		bill := testBill("owner-1", "status-slug")
		require.NoError(t, store.CreateBill(ctx, bill))

		require.NoError(t, store.TransitionBillStatus(ctx, bill.ID, models.BillStatusActive, models.BillStatusPending))
		got, err := store.GetBill(ctx, bill.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BillStatusPending, got.Status)

		err = store.TransitionBillStatus(ctx, bill.ID, models.BillStatusActive, models.BillStatusPending)
		assert.ErrorIs(t, err, storage.ErrStatusChanged)

		require.NoError(t, store.TransitionBillStatus(ctx, bill.ID, models.BillStatusPending, models.BillStatusCompleted))

		err = store.TransitionBillStatus(ctx, "missing", models.BillStatusActive, models.BillStatusCompleted)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestSQLiteStore_TransitionBillStatusConcurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bill := testBill("owner-1", "race-slug")
	require.NoError(t, store.CreateBill(ctx, bill))

	const workers = 8
	var wg sync.WaitGroup
	var won atomic.Int32
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.TransitionBillStatus(ctx, bill.ID, models.BillStatusActive, models.BillStatusPending)
			if err == nil {
				won.Add(1)
				return
			}
			assert.ErrorIs(t, err, storage.ErrStatusChanged)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), won.Load(), "exactly one caller claims the bill")
}

func TestSQLiteStore_Channels(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &models.Channel{OwnerID: "owner-1", DisplayID: "247247", Name: "Equity paybill"}
	second := &models.Channel{OwnerID: "owner-1", DisplayID: "522522", Name: "KCB paybill"}
	other := &models.Channel{OwnerID: "owner-2", DisplayID: "400200", Name: "Other"}
	require.NoError(t, store.CreateChannel(ctx, first))
	require.NoError(t, store.CreateChannel(ctx, second))
	require.NoError(t, store.CreateChannel(ctx, other))

	t.Run("first channel becomes default", func(t *testing.T) {
		assert.True(t, first.IsDefault)
		assert.False(t, second.IsDefault)

		def, err := store.GetDefaultChannel(ctx, "owner-1")
		require.NoError(t, err)
		assert.Equal(t, first.ID, def.ID)
	})

	t.Run("ListChannels is scoped and ordered", func(t *testing.T) {
		got, err := store.ListChannels(ctx, "owner-1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, first.ID, got[0].ID)
		assert.Equal(t, second.ID, got[1].ID)
	})

	t.Run("GetChannel hides other owners' channels", func(t *testing.T) {
		_, err := store.GetChannel(ctx, "owner-1", other.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		got, err := store.GetChannel(ctx, "owner-2", other.ID)
		require.NoError(t, err)
		assert.Equal(t, "400200", got.DisplayID)
	})

	t.Run("SetDefaultChannel moves the flag", func(t *testing.T) {
		require.NoError(t, store.SetDefaultChannel(ctx, "owner-1", second.ID))

		channels, err := store.ListChannels(ctx, "owner-1")
		require.NoError(t, err)
		assert.Equal(t, 1, countDefaults(channels))

		def, err := store.GetDefaultChannel(ctx, "owner-1")
		require.NoError(t, err)
		assert.Equal(t, second.ID, def.ID)

		otherDef, err := store.GetDefaultChannel(ctx, "owner-2")
		require.NoError(t, err)
		assert.Equal(t, other.ID, otherDef.ID, "other owners are untouched")
	})

	t.Run("SetDefaultChannel rejects foreign channel", func(t *testing.T) {
		err := store.SetDefaultChannel(ctx, "owner-1", other.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		def, err := store.GetDefaultChannel(ctx, "owner-1")
		require.NoError(t, err)
		assert.Equal(t, second.ID, def.ID)
	})

	t.Run("no default channel", func(t *testing.T) {
		_, err := store.GetDefaultChannel(ctx, "owner-without-channels")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestSQLiteStore_SetDefaultChannelConcurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		ch := &models.Channel{OwnerID: "owner-1", DisplayID: fmt.Sprintf("10000%d", i), Name: fmt.Sprintf("ch-%d", i)}
		require.NoError(t, store.CreateChannel(ctx, ch))
		ids = append(ids, ch.ID)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			errs <- store.SetDefaultChannel(ctx, "owner-1", id)
		}(ids[i%len(ids)])
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	channels, err := store.ListChannels(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 1, countDefaults(channels))
}

func TestSQLiteStore_PaymentEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	events := []*models.PaymentEvent{
		{AttemptID: "a1", BillReference: "slug-1", RawStatus: "PENDING", SignatureValid: true, Payload: "{}", ReceivedAt: 100},
		{AttemptID: "a1", BillReference: "slug-1", RawStatus: "SUCCESS", SignatureValid: true, Payload: "{}", ReceivedAt: 200, Amount: decimal.NewFromInt(500)},
		{AttemptID: "a2", BillReference: "", RawStatus: "FAILED", SignatureValid: true, Payload: "{}", ReceivedAt: 150},
		{AttemptID: "a3", BillReference: "slug-1", RawStatus: "SUCCESS", SignatureValid: false, Payload: "{}", ReceivedAt: 300},
		{AttemptID: "a4", BillReference: "slug-2", RawStatus: "SUCCESS", SignatureValid: true, Payload: "{}", ReceivedAt: 400},
	}
	for _, e := range events {
		require.NoError(t, store.RecordPaymentEvent(ctx, e))
		assert.NotEmpty(t, e.ID)
	}

	t.Run("by reference, newest first, trusted only", func(t *testing.T) {
		got, err := store.ListPaymentEvents(ctx, "slug-1", nil)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "SUCCESS", got[0].RawStatus)
		assert.True(t, got[0].Amount.Equal(decimal.NewFromInt(500)))
		assert.Equal(t, "PENDING", got[1].RawStatus)
	})

	t.Run("by reference or attempt id", func(t *testing.T) {
		got, err := store.ListPaymentEvents(ctx, "slug-1", []string{"a2"})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"a1", "a2", "a1"}, []string{got[0].AttemptID, got[1].AttemptID, got[2].AttemptID})
	})

	t.Run("unknown reference", func(t *testing.T) {
		got, err := store.ListPaymentEvents(ctx, "nothing", nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestSQLiteStore_Users(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := models.NewUser("amina@example.com", "Amina", "hash")
	require.NoError(t, store.CreateUser(ctx, user))

	byEmail, err := store.GetUserByEmail(ctx, "amina@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Amina", byID.DisplayName)

	_, err = store.GetUserByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	dupe := models.NewUser("amina@example.com", "Other", "hash")
	assert.ErrorIs(t, store.CreateUser(ctx, dupe), storage.ErrConflict)
}

func TestNew_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	store, err := New(path)
	require.NoError(t, err)
	require.NoError(t, store.CreateBill(ctx, testBill("owner-1", "persisted")))
	require.NoError(t, store.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetBillBySlug(ctx, "persisted")
	require.NoError(t, err)
	assert.Len(t, got.Participants, 2)
}

func countDefaults(channels []models.Channel) int {
	n := 0
	for _, ch := range channels {
		if ch.IsDefault {
			n++
		}
	}
	return n
}
