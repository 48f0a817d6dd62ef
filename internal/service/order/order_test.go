package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/swiftkart/storefront/internal/cache"
	"github.com/swiftkart/storefront/internal/docstore"
	"github.com/swiftkart/storefront/internal/models"
)

type recordedEvent struct {
	Channel string
	Event   string
	Payload map[string]any
}

type fakeSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeSink) Publish(_ context.Context, channel, event string, payload map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{Channel: channel, Event: event, Payload: payload})
	return nil
}

func (f *fakeSink) Events() []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedEvent(nil), f.events...)
}

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) Now() time.Time { return f.t }

func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

type testEnv struct {
	Svc   *Service
	Store docstore.Store
	Sink  *fakeSink
	Clock *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	store, err := docstore.NewGormStore(db)
	require.NoError(t, err)

	clock := &fakeClock{t: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)}
	sink := &fakeSink{}
	svc := NewService(
		store,
		cache.NewWithClock[models.Order](60*time.Second, clock.Now),
		cache.NewWithClock[[]models.Order](60*time.Second, clock.Now),
		sink,
	)
	return &testEnv{Svc: svc, Store: store, Sink: sink, Clock: clock}
}

func validInput(userID string) CreateInput {
	return CreateInput{
		UserID: userID,
		Items: []models.CartLineItem{
			{ProductID: "p1", Name: "Kurta", UnitPrice: 100, Quantity: 2},
		},
		ShippingAddress: models.ShippingAddress{
			FullName: "Asha Rao", Line1: "14 MG Road", City: "Bengaluru", State: "KA", PostalCode: "560001",
		},
		PaymentMethod:  "cod",
		ShippingCost:   20,
		DiscountAmount: 10,
		TotalAmount:    210,
	}
}

func TestCreate_PersistsAndNotifies(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	o, err := env.Svc.Create(ctx, validInput("u1"))
	require.NoError(t, err)
	require.NotEmpty(t, o.ID)
	assert.Equal(t, models.StatusPending, o.Status)
	assert.Equal(t, int64(200), o.Subtotal)
	assert.Equal(t, int64(210), o.TotalAmount)
	assert.False(t, o.IsTestOrder)

	got, err := env.Svc.GetByID(ctx, o.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, o.Items, got.Items)

	events := env.Sink.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "order-created", events[0].Event)
	assert.Equal(t, "user_u1", events[0].Channel)
	assert.Equal(t, "admin_orders", events[1].Channel)
	assert.Equal(t, o.ID, events[0].Payload["orderId"])
}

func TestCreate_SnapshotsItems(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	in := validInput("u1")
	o, err := env.Svc.Create(ctx, in)
	require.NoError(t, err)

	// Mutating the caller's slice after checkout must not reach the
	// persisted order.
	in.Items[0].Quantity = 99

	got, err := env.Svc.GetByID(ctx, o.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Items[0].Quantity)
}

func TestCreate_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{name: "missing user", mutate: func(in *CreateInput) { in.UserID = "" }},
		{name: "empty items", mutate: func(in *CreateInput) { in.Items = nil }},
		{name: "missing address", mutate: func(in *CreateInput) { in.ShippingAddress = models.ShippingAddress{} }},
		{name: "missing payment method", mutate: func(in *CreateInput) { in.PaymentMethod = "" }},
		{name: "missing total", mutate: func(in *CreateInput) { in.TotalAmount = 0 }},
		{name: "mismatched total", mutate: func(in *CreateInput) { in.TotalAmount = 200 }},
		{name: "zero quantity line", mutate: func(in *CreateInput) { in.Items[0].Quantity = 0 }},
		{name: "negative price line", mutate: func(in *CreateInput) { in.Items[0].UnitPrice = -1 }},
		{name: "negative discount", mutate: func(in *CreateInput) { in.DiscountAmount = -10 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput("u1")
			tt.mutate(&in)

			_, err := env.Svc.Create(ctx, in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	// Nothing was persisted and nothing was published.
	orders, err := env.Svc.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, env.Sink.Events())
}

func TestGetByID_OwnershipMismatchReadsAsNotFound(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	o, err := env.Svc.Create(ctx, validInput("userA"))
	require.NoError(t, err)

	_, err = env.Svc.GetByID(ctx, o.ID, "userB")
	assert.ErrorIs(t, err, ErrNotFound)

	// The cached copy must not leak either.
	_, err = env.Svc.GetByID(ctx, o.ID, "userA")
	require.NoError(t, err)
	_, err = env.Svc.GetByID(ctx, o.ID, "userB")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetByID_UnknownOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, err := env.Svc.GetByID(context.Background(), "no-such-order", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListByUser_FirstOrderVisibleImmediately(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	// Empty result: must not be cached.
	orders, err := env.Svc.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, orders)

	o, err := env.Svc.Create(ctx, validInput("u1"))
	require.NoError(t, err)

	orders, err = env.Svc.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, o.ID, orders[0].ID)
}

func TestListByUser_ExcludesTestOrdersSortsNewestFirst(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.Svc.Create(ctx, validInput("u1"))
	require.NoError(t, err)

	testIn := validInput("u1")
	testIn.IsTestOrder = true
	_, err = env.Svc.Create(ctx, testIn)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond) // distinct createdAt
	second, err := env.Svc.Create(ctx, validInput("u1"))
	require.NoError(t, err)

	orders, err := env.Svc.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
}

func TestListByUser_ServedFromCacheWithinTTL(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	o, err := env.Svc.Create(ctx, validInput("u1"))
	require.NoError(t, err)

	_, err = env.Svc.ListByUser(ctx, "u1")
	require.NoError(t, err)

	// Delete behind the cache's back; a cached list still shows the
	// order until the TTL lapses.
	require.NoError(t, env.Store.Delete(ctx, Collection, o.ID))

	orders, err := env.Svc.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	env.Clock.Advance(61 * time.Second)
	orders, err = env.Svc.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestUpdateStatus_InvalidatesOrderCache(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	o, err := env.Svc.Create(ctx, validInput("u1"))
	require.NoError(t, err)

	// Force the cache-hit path before updating.
	_, err = env.Svc.GetByID(ctx, o.ID, "u1")
	require.NoError(t, err)

	_, err = env.Svc.UpdateStatus(ctx, o.ID, models.StatusProcessing, "")
	require.NoError(t, err)

	got, err := env.Svc.GetByID(ctx, o.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)
}

func TestUpdateStatus_EnforcesTransitionTable(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	o, err := env.Svc.Create(ctx, validInput("u1"))
	require.NoError(t, err)

	_, err = env.Svc.UpdateStatus(ctx, o.ID, models.StatusShipped, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIllegalState)

	for _, next := range []models.OrderStatus{models.StatusProcessing, models.StatusShipped, models.StatusDelivered} {
		_, err = env.Svc.UpdateStatus(ctx, o.ID, next, "")
		require.NoError(t, err)
	}

	// Delivered is terminal.
	_, err = env.Svc.UpdateStatus(ctx, o.ID, models.StatusPending, "")
	assert.ErrorIs(t, err, ErrIllegalState)

	got, err := env.Svc.GetByID(ctx, o.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, got.Status)
}

func TestUpdateStatus_UnknownStatusRejected(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	o, err := env.Svc.Create(ctx, validInput("u1"))
	require.NoError(t, err)

	_, err = env.Svc.UpdateStatus(ctx, o.ID, models.OrderStatus("refunded"), "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateStatus_PublishesOrderUpdated(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	o, err := env.Svc.Create(ctx, validInput("u1"))
	require.NoError(t, err)

	_, err = env.Svc.UpdateStatus(ctx, o.ID, models.StatusProcessing, "")
	require.NoError(t, err)

	events := env.Sink.Events()
	require.Len(t, events, 4) // created x2 channels, updated x2 channels
	assert.Equal(t, "order-updated", events[2].Event)
	assert.Equal(t, "processing", events[2].Payload["status"])
}

func TestCancel_Gate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  models.OrderStatus
		wantErr bool
	}{
		{name: "pending cancellable", status: models.StatusPending, wantErr: false},
		{name: "processing cancellable", status: models.StatusProcessing, wantErr: false},
		{name: "shipped not cancellable", status: models.StatusShipped, wantErr: true},
		{name: "delivered not cancellable", status: models.StatusDelivered, wantErr: true},
		{name: "cancelled not cancellable again", status: models.StatusCancelled, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			ctx := context.Background()

			o, err := env.Svc.Create(ctx, validInput("u1"))
			require.NoError(t, err)

			// Walk the order into the starting status through the
			// store so the gate is exercised in isolation.
			require.NoError(t, env.Store.Update(ctx, Collection, o.ID, docstore.Document{"status": string(tt.status)}))

			got, err := env.Svc.Cancel(ctx, o.ID, "u1")
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrIllegalState)

				// Status is untouched on rejection.
				cur, err := env.Svc.GetByID(ctx, o.ID, "u1")
				require.NoError(t, err)
				assert.Equal(t, tt.status, cur.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.StatusCancelled, got.Status)
		})
	}
}

func TestCancel_OwnershipRequired(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	o, err := env.Svc.Create(ctx, validInput("userA"))
	require.NoError(t, err)

	_, err = env.Svc.Cancel(ctx, o.ID, "userB")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.Svc.Cancel(ctx, o.ID, "")
	assert.ErrorIs(t, err, ErrValidation)

	got, err := env.Svc.GetByID(ctx, o.ID, "userA")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestCountsByStatus(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.Svc.Create(ctx, validInput("u1"))
		require.NoError(t, err)
	}
	o, err := env.Svc.Create(ctx, validInput("u1"))
	require.NoError(t, err)
	_, err = env.Svc.Cancel(ctx, o.ID, "u1")
	require.NoError(t, err)

	_, err = env.Svc.Create(ctx, validInput("someone-else"))
	require.NoError(t, err)

	counts, err := env.Svc.CountsByStatus(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, counts[models.StatusPending])
	assert.Equal(t, 1, counts[models.StatusCancelled])
	assert.Zero(t, counts[models.StatusShipped])
}
