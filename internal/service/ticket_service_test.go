package service

import (
	"context"
	"testing"

	"github.com/avkuzmin/logistics-backend/internal/model"
	"github.com/avkuzmin/logistics-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketCreate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o := f.createOrder(t)

	tk, err := f.tickets.Create(ctx, client, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusNew, tk.Status)
	assert.Equal(t, client.ID, tk.ClientID)

	// a second request returns the open ticket instead of stacking
	again, err := f.tickets.Create(ctx, client, o.ID)
	require.NoError(t, err)
	assert.Equal(t, tk.ID, again.ID)

	// only the order's owner may open one
	_, err = f.tickets.Create(ctx, Actor{ID: 2, Role: model.RoleClient}, o.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestTicketCreateOnClosedOrder(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o := f.createOrder(t)
	_, err := f.orders.UpdateStatus(ctx, client, o.ID, model.OrderStatusCancelled)
	require.NoError(t, err)

	_, err = f.tickets.Create(ctx, client, o.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestTicketAcceptBindsUnownedOrder(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o := f.createOrder(t)
	tk, err := f.tickets.Create(ctx, client, o.ID)
	require.NoError(t, err)

	got, err := f.tickets.Accept(ctx, manager, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusAccepted, got.Status)
	require.NotNil(t, got.ManagerID)
	assert.Equal(t, manager.ID, *got.ManagerID)

	// first touch also binds the order
	order, err := f.store.Orders().FindByID(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, order.ManagerID)
	assert.Equal(t, manager.ID, *order.ManagerID)
}

func TestTicketAcceptSecondManagerLoses(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o := f.createOrder(t)
	tk, err := f.tickets.Create(ctx, client, o.ID)
	require.NoError(t, err)

	_, err = f.tickets.Accept(ctx, manager, tk.ID)
	require.NoError(t, err)

	_, err = f.tickets.Accept(ctx, rival, tk.ID)
	assert.ErrorIs(t, err, ErrAlreadyAssigned)

	// the winner may re-accept without error
	again, err := f.tickets.Accept(ctx, manager, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, manager.ID, *again.ManagerID)
}

func TestTicketNeverStealsClaimedOrder(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o := f.createOrder(t)
	_, err := f.orders.Claim(ctx, manager, o.ID)
	require.NoError(t, err)

	tk, err := f.tickets.Create(ctx, client, o.ID)
	require.NoError(t, err)

	// a manager who does not own the order cannot take its ticket
	_, err = f.tickets.Accept(ctx, rival, tk.ID)
	assert.ErrorIs(t, err, ErrAlreadyAssigned)

	// the order's manager can
	got, err := f.tickets.Accept(ctx, manager, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, manager.ID, *got.ManagerID)

	order, err := f.store.Orders().FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, manager.ID, *order.ManagerID)
}

// interleavedTickets fires a callback after the ticket read, opening the
// window in which a rival order claim can land mid-accept.
type interleavedTickets struct {
	repository.TicketRepository
	afterFind func()
}

func (r *interleavedTickets) FindByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	tk, err := r.TicketRepository.FindByID(ctx, id)
	if r.afterFind != nil {
		hook := r.afterFind
		r.afterFind = nil
		hook()
	}
	return tk, err
}

func TestTicketAcceptLosesToMidflightClaim(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o := f.createOrder(t)
	tk, err := f.tickets.Create(ctx, client, o.ID)
	require.NoError(t, err)

	// rival claims the order between Accept's ticket read and its writes
	tickets := &interleavedTickets{TicketRepository: f.store.Tickets()}
	tickets.afterFind = func() {
		ok, err := f.store.Orders().Claim(ctx, o.ID, rival.ID)
		require.NoError(t, err)
		require.True(t, ok)
	}
	svc := NewTicketService(tickets, f.store.Orders(), NewNotificationService(f.store.Notifications(), nil))

	_, err = svc.Accept(ctx, manager, tk.ID)
	assert.ErrorIs(t, err, ErrAlreadyAssigned)

	// no split ownership: the ticket stays unowned, the order stays the rival's
	got, err := f.store.Tickets().FindByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ManagerID)
	assert.Equal(t, model.TicketStatusNew, got.Status)

	order, err := f.store.Orders().FindByID(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, order.ManagerID)
	assert.Equal(t, rival.ID, *order.ManagerID)

	// the rival itself may then take the ticket
	got, err = svc.Accept(ctx, rival, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, rival.ID, *got.ManagerID)
}

func TestTicketClose(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o := f.createOrder(t)
	tk, err := f.tickets.Create(ctx, client, o.ID)
	require.NoError(t, err)
	_, err = f.tickets.Accept(ctx, manager, tk.ID)
	require.NoError(t, err)

	// only the handling manager or admin closes
	_, err = f.tickets.Close(ctx, rival, tk.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.tickets.Close(ctx, client, tk.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	closed, err := f.tickets.Close(ctx, manager, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusClosed, closed.Status)

	// idempotent
	again, err := f.tickets.Close(ctx, manager, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusClosed, again.Status)

	// a closed ticket cannot be accepted
	_, err = f.tickets.Accept(ctx, manager, tk.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestTicketListForbiddenToClients(t *testing.T) {
	f := setup(t)
	_, err := f.tickets.List(context.Background(), client, "")
	assert.ErrorIs(t, err, ErrForbidden)
}
