package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dimmoon69/booktime/internal/models"
	"github.com/dimmoon69/booktime/internal/port"
	"github.com/dimmoon69/booktime/internal/repo"
	"github.com/dimmoon69/booktime/internal/testdb"
	"github.com/dimmoon69/booktime/pkg/events"
)

type checkoutFixture struct {
	db       *gorm.DB
	repo     *repo.GormRepo
	svc      *OrderService
	events   *events.Recorder
	user     models.User
	billing  models.Address
	shipping models.Address
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	gdb := testdb.Open(t)
	r := repo.New(gdb)
	rec := &events.Recorder{}
	u := testdb.User(t, gdb)
	return &checkoutFixture{
		db:       gdb,
		repo:     r,
		svc:      NewOrderService(r, rec),
		events:   rec,
		user:     u,
		billing:  testdb.Address(t, gdb, u.ID),
		shipping: testdb.Address(t, gdb, u.ID),
	}
}

type line struct {
	product  uuid.UUID
	quantity int
}

// basketWith inserts lines one by one so their order is deterministic.
func (f *checkoutFixture) basketWith(t *testing.T, owner *uuid.UUID, lines ...line) models.Basket {
	t.Helper()
	b := testdb.Basket(t, f.db, owner, nil)
	for _, l := range lines {
		_, err := f.repo.AddLine(context.Background(), b.ID, l.product, l.quantity)
		require.NoError(t, err)
	}
	return b
}

func (f *checkoutFixture) basketStatus(t *testing.T, id uuid.UUID) models.BasketStatus {
	t.Helper()
	var b models.Basket
	require.NoError(t, f.db.First(&b, "id = ?", id).Error)
	return b.Status
}

func (f *checkoutFixture) orderCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&n).Error)
	return n
}

func TestCreateOrder_OneLinePerUnit(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	a := testdb.Product(t, f.db, true)
	b := testdb.Product(t, f.db, true)
	basket := f.basketWith(t, &f.user.ID, line{a.ID, 2}, line{b.ID, 1})

	order, err := f.svc.CreateOrder(ctx, basket.ID, f.billing, f.shipping)
	require.NoError(t, err)

	assert.Equal(t, models.OrderNew, order.Status)
	assert.Equal(t, f.user.ID, order.UserID)

	stored, err := f.repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 3)

	got := make([]uuid.UUID, 0, 3)
	for i, l := range stored.Lines {
		assert.Equal(t, i, l.Position)
		assert.Equal(t, models.LineNew, l.Status)
		got = append(got, l.ProductID)
	}
	assert.Empty(t, cmp.Diff([]uuid.UUID{a.ID, a.ID, b.ID}, got))

	assert.Equal(t, models.BasketSubmitted, f.basketStatus(t, basket.ID))
	require.Len(t, f.events.Events(events.TopicOrders), 1)
	assert.Equal(t, "order_created", f.events.Events(events.TopicOrders)[0].Event["type"])
}

func TestCreateOrder_AnonymousBasketStaysOpen(t *testing.T) {
	f := newCheckoutFixture(t)
	p := testdb.Product(t, f.db, true)
	basket := f.basketWith(t, nil, line{p.ID, 1})

	_, err := f.svc.CreateOrder(context.Background(), basket.ID, f.billing, f.shipping)
	assert.ErrorIs(t, err, ErrAnonymousBasket)
	assert.Equal(t, models.BasketOpen, f.basketStatus(t, basket.ID))
	assert.Zero(t, f.orderCount(t))
}

func TestCreateOrder_EmptyBasket(t *testing.T) {
	f := newCheckoutFixture(t)
	basket := f.basketWith(t, &f.user.ID)

	_, err := f.svc.CreateOrder(context.Background(), basket.ID, f.billing, f.shipping)
	assert.ErrorIs(t, err, ErrEmptyBasket)
	assert.Equal(t, models.BasketOpen, f.basketStatus(t, basket.ID))
}

func TestCreateOrder_SecondCheckoutFails(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	p := testdb.Product(t, f.db, true)
	basket := f.basketWith(t, &f.user.ID, line{p.ID, 1})

	_, err := f.svc.CreateOrder(ctx, basket.ID, f.billing, f.shipping)
	require.NoError(t, err)

	_, err = f.svc.CreateOrder(ctx, basket.ID, f.billing, f.shipping)
	assert.ErrorIs(t, err, ErrBasketSubmitted)
	assert.EqualValues(t, 1, f.orderCount(t))
}

func TestCreateOrder_ForeignAddressRejected(t *testing.T) {
	f := newCheckoutFixture(t)
	p := testdb.Product(t, f.db, true)
	basket := f.basketWith(t, &f.user.ID, line{p.ID, 1})

	stranger := testdb.User(t, f.db)
	foreign := testdb.Address(t, f.db, stranger.ID)

	_, err := f.svc.CreateOrder(context.Background(), basket.ID, foreign, f.shipping)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, models.BasketOpen, f.basketStatus(t, basket.ID))
}

func TestCreateOrder_UnknownBasket(t *testing.T) {
	f := newCheckoutFixture(t)
	_, err := f.svc.CreateOrder(context.Background(), uuid.New(), f.billing, f.shipping)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateOrder_ConcurrentCheckoutsOneWins(t *testing.T) {
	f := newCheckoutFixture(t)
	p := testdb.Product(t, f.db, true)
	basket := f.basketWith(t, &f.user.ID, line{p.ID, 3})

	const workers = 6
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateOrder(context.Background(), basket.ID, f.billing, f.shipping)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	success := 0
	for _, err := range errs {
		if err == nil {
			success++
			continue
		}
		assert.ErrorIs(t, err, ErrBasketSubmitted)
	}
	assert.Equal(t, 1, success)
	assert.EqualValues(t, 1, f.orderCount(t))
}

// failingRepo breaks the last step of checkout to prove the earlier writes
// are rolled back.
type failingRepo struct {
	*repo.GormRepo
	err error
}

type failingTx struct {
	port.CheckoutTx
	err error
}

func (r failingRepo) InTx(ctx context.Context, fn func(tx port.CheckoutTx) error) error {
	return r.GormRepo.InTx(ctx, func(tx port.CheckoutTx) error {
		return fn(failingTx{CheckoutTx: tx, err: r.err})
	})
}

func (t failingTx) SubmitBasket(context.Context, uuid.UUID) error { return t.err }

func TestCreateOrder_FailureRollsBack(t *testing.T) {
	f := newCheckoutFixture(t)
	p := testdb.Product(t, f.db, true)
	basket := f.basketWith(t, &f.user.ID, line{p.ID, 2})

	boom := errors.New("disk full")
	svc := NewOrderService(failingRepo{GormRepo: f.repo, err: boom}, f.events)

	_, err := svc.CreateOrder(context.Background(), basket.ID, f.billing, f.shipping)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, f.orderCount(t))

	var lines int64
	require.NoError(t, f.db.Model(&models.OrderLine{}).Count(&lines).Error)
	assert.Zero(t, lines)
	assert.Equal(t, models.BasketOpen, f.basketStatus(t, basket.ID))
	assert.Empty(t, f.events.Events(events.TopicOrders))
}

func TestCreateOrder_AddressSnapshotIsIndependent(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	p := testdb.Product(t, f.db, true)
	basket := f.basketWith(t, &f.user.ID, line{p.ID, 1})

	order, err := f.svc.CreateOrder(ctx, basket.ID, f.billing, f.shipping)
	require.NoError(t, err)

	edited := f.billing
	edited.City = "Somewhere Else"
	edited.Address1 = "99 New Street"
	require.NoError(t, f.repo.UpdateAddress(ctx, &edited))

	stored, err := f.repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, f.billing.Snapshot(), stored.Billing)
	assert.Equal(t, f.shipping.Snapshot(), stored.Shipping)
}

func TestOrderService_StatusUpdates(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	p := testdb.Product(t, f.db, true)
	basket := f.basketWith(t, &f.user.ID, line{p.ID, 1})
	order, err := f.svc.CreateOrder(ctx, basket.ID, f.billing, f.shipping)
	require.NoError(t, err)

	_, err = f.svc.SetOrderStatus(ctx, order.ID, "shipped")
	assert.ErrorIs(t, err, ErrValidation)

	updated, err := f.svc.SetOrderStatus(ctx, order.ID, "paid")
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, updated.Status)

	l, err := f.svc.SetOrderLineStatus(ctx, order.ID, updated.Lines[0].ID, "processing")
	require.NoError(t, err)
	assert.Equal(t, models.LineProcessing, l.Status)

	other := uuid.New()
	_, err = f.svc.GetOrder(ctx, order.ID, &other)
	assert.ErrorIs(t, err, ErrNotFound)

	total, orders, err := f.svc.ListOrders(ctx, &f.user.ID, "paid", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, order.ID, orders[0].ID)
}
