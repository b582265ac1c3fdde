package service

import (
	"context"
	"sync"
	"testing"

	"github.com/avkuzmin/logistics-backend/internal/model"
	"github.com/avkuzmin/logistics-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	client  = Actor{ID: 1, Role: model.RoleClient}
	manager = Actor{ID: 100, Role: model.RoleManager}
	rival   = Actor{ID: 200, Role: model.RoleManager}
	admin   = Actor{ID: 900, Role: model.RoleAdmin}
)

type fixture struct {
	store   *repository.Memory
	orders  OrderService
	offers  OfferService
	tickets TicketService
	chat    ChatService
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemory()
	notifications := NewNotificationService(store.Notifications(), nil)
	return &fixture{
		store:   store,
		orders:  NewOrderService(store.Orders(), store.Tracking(), notifications),
		offers:  NewOfferService(store.Orders(), notifications),
		tickets: NewTicketService(store.Tickets(), store.Orders(), notifications),
		chat:    NewChatService(store.Chat(), store.Orders(), notifications),
	}
}

func (f *fixture) createOrder(t *testing.T) *model.Order {
	t.Helper()
	o, err := f.orders.Create(context.Background(), client, CreateOrderInput{
		Description: "two boxes",
		FromAddress: "A",
		ToAddress:   "B",
		Weight:      10,
		Price:       500,
	})
	require.NoError(t, err)
	return o
}

func TestOrderLifecycle(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o := f.createOrder(t)
	assert.Equal(t, model.OrderStatusPending, o.Status)

	// claim
	o, err := f.orders.Claim(ctx, manager, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusAccepted, o.Status)
	require.NotNil(t, o.ManagerID)
	assert.Equal(t, manager.ID, *o.ManagerID)
	assert.Len(t, o.TrackingNumber, 10)
	assert.NotContains(t, o.TrackingNumber, "-")

	tracking, err := f.orders.Tracking(ctx, client, o.ID)
	require.NoError(t, err)
	assert.Len(t, tracking, 1)

	// offer
	o, err = f.offers.Send(ctx, manager, o.ID, OfferInput{Price: 100, Currency: "USD", DeliveryDays: 3})
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusSent, o.OfferStatus)

	o, err = f.offers.Respond(ctx, client, o.ID, "accept")
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusAccepted, o.OfferStatus)
	// accepting the offer does not advance the order status
	assert.Equal(t, model.OrderStatusAccepted, o.Status)

	// delivery path, one step at a time
	for _, status := range []model.OrderStatus{
		model.OrderStatusInTransit,
		model.OrderStatusOutForDelivery,
		model.OrderStatusDelivered,
		model.OrderStatusCompleted,
	} {
		o, err = f.orders.UpdateStatus(ctx, manager, o.ID, status)
		require.NoError(t, err)
		assert.Equal(t, status, o.Status)
	}

	assert.Equal(t, model.OfferStatusAccepted, o.OfferStatus)
	tracking, err = f.orders.Tracking(ctx, client, o.ID)
	require.NoError(t, err)
	assert.Len(t, tracking, 5)

	// terminal: no further writes
	_, err = f.orders.UpdateStatus(ctx, manager, o.ID, model.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestConcurrentClaimSingleWinner(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o := f.createOrder(t)

	const managers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	var winners, losers int
	for i := 0; i < managers; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			_, err := f.orders.Claim(ctx, Actor{ID: id, Role: model.RoleManager}, o.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners++
			} else {
				assert.ErrorIs(t, err, ErrAlreadyAssigned)
				losers++
			}
		}(uint64(1000 + i))
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, managers-1, losers)
}

func TestClaimReentrant(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o := f.createOrder(t)

	_, err := f.orders.Claim(ctx, manager, o.ID)
	require.NoError(t, err)

	// same manager again is a no-op success
	again, err := f.orders.Claim(ctx, manager, o.ID)
	require.NoError(t, err)
	assert.Equal(t, manager.ID, *again.ManagerID)

	// a different manager loses
	_, err = f.orders.Claim(ctx, rival, o.ID)
	assert.ErrorIs(t, err, ErrAlreadyAssigned)
}

func TestClaimCancelledOrder(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o := f.createOrder(t)

	_, err := f.orders.UpdateStatus(ctx, client, o.ID, model.OrderStatusCancelled)
	require.NoError(t, err)

	_, err = f.orders.Claim(ctx, manager, o.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStatusSkipRules(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o := f.createOrder(t)
	_, err := f.orders.Claim(ctx, manager, o.ID)
	require.NoError(t, err)

	// manager may not jump over states
	_, err = f.orders.UpdateStatus(ctx, manager, o.ID, model.OrderStatusDelivered)
	assert.ErrorIs(t, err, ErrInvalidState)

	// admin may
	o2, err := f.orders.UpdateStatus(ctx, admin, o.ID, model.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, o2.Status)
}

func TestStatusBackwardsRejected(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o := f.createOrder(t)
	_, err := f.orders.Claim(ctx, manager, o.ID)
	require.NoError(t, err)
	_, err = f.orders.UpdateStatus(ctx, manager, o.ID, model.OrderStatusInTransit)
	require.NoError(t, err)

	_, err = f.orders.UpdateStatus(ctx, admin, o.ID, model.OrderStatusAccepted)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCancelAuthorization(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o := f.createOrder(t)
	_, err := f.orders.Claim(ctx, manager, o.ID)
	require.NoError(t, err)

	// a stranger client cannot cancel
	_, err = f.orders.UpdateStatus(ctx, Actor{ID: 2, Role: model.RoleClient}, o.ID, model.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrForbidden)

	// an unassigned manager cannot cancel
	_, err = f.orders.UpdateStatus(ctx, rival, o.ID, model.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrForbidden)

	// the owner can
	o2, err := f.orders.UpdateStatus(ctx, client, o.ID, model.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, o2.Status)
}

func TestClientsOnlyCancel(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o := f.createOrder(t)
	_, err := f.orders.Claim(ctx, manager, o.ID)
	require.NoError(t, err)

	_, err = f.orders.UpdateStatus(ctx, client, o.ID, model.OrderStatusInTransit)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.orders.Create(ctx, client, CreateOrderInput{FromAddress: "A", ToAddress: "B"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = f.orders.Create(ctx, manager, CreateOrderInput{Description: "x", FromAddress: "A", ToAddress: "B"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.orders.Create(ctx, client, CreateOrderInput{Description: "x", FromAddress: "A", ToAddress: "B", Weight: -1})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestListScopes(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o1 := f.createOrder(t)
	f.createOrder(t)

	_, err := f.orders.Claim(ctx, manager, o1.ID)
	require.NoError(t, err)

	incoming, err := f.orders.List(ctx, manager, "incoming")
	require.NoError(t, err)
	assert.Len(t, incoming, 1)

	assigned, err := f.orders.List(ctx, manager, "assigned")
	require.NoError(t, err)
	assert.Len(t, assigned, 1)
	assert.Equal(t, o1.ID, assigned[0].ID)

	mine, err := f.orders.List(ctx, client, "")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	all, err := f.orders.List(ctx, admin, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.orders.List(ctx, manager, "bogus")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGetHidesForeignOrders(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o := f.createOrder(t)

	_, err := f.orders.Get(ctx, Actor{ID: 2, Role: model.RoleClient}, o.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.orders.Get(ctx, manager, o.ID)
	assert.NoError(t, err, "managers can inspect incoming orders")

	_, err = f.orders.Get(ctx, client, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}
