package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avkuzmin/logistics-backend/internal/model"
	"github.com/avkuzmin/logistics-backend/internal/notify"
	"github.com/avkuzmin/logistics-backend/internal/repository"
	"gorm.io/gorm"
)

type TicketService interface {
	// Create opens a support ticket on an in-flight order owned by the caller.
	// An already open ticket for the order is returned instead of stacking a
	// second one.
	Create(ctx context.Context, actor Actor, orderID uint64) (*model.Ticket, error)

	// Accept claims the ticket for the calling manager. On success the order's
	// manager becomes the caller if it was unset; a different existing manager
	// fails the call with ErrAlreadyAssigned.
	Accept(ctx context.Context, actor Actor, ticketID uint64) (*model.Ticket, error)

	// Close is manager/admin-only and idempotent.
	Close(ctx context.Context, actor Actor, ticketID uint64) (*model.Ticket, error)

	List(ctx context.Context, actor Actor, status model.TicketStatus) ([]model.Ticket, error)
}

type ticketService struct {
	tickets repository.TicketRepository
	orders  repository.OrderRepository
	notify  NotificationService
}

func NewTicketService(tickets repository.TicketRepository, orders repository.OrderRepository, notify NotificationService) TicketService {
	return &ticketService{tickets: tickets, orders: orders, notify: notify}
}

func (s *ticketService) Create(ctx context.Context, actor Actor, orderID uint64) (*model.Ticket, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, storeErr(err)
	}
	if o.ClientID != actor.ID {
		return nil, ErrForbidden
	}
	if o.Status.Terminal() {
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidState, o.Status)
	}

	if existing, err := s.tickets.FindOpenByOrder(ctx, orderID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeErr(err)
	}

	t := &model.Ticket{
		OrderID:  orderID,
		ClientID: actor.ID,
		Status:   model.TicketStatusNew,
	}
	if err := s.tickets.Create(ctx, t); err != nil {
		return nil, storeErr(err)
	}
	s.notify.Notify(ctx, actor.ID, notify.EventTicketCreated, "Support request created",
		"A manager will pick up your request shortly", &orderID, &t.ID)
	return t, nil
}

func (s *ticketService) Accept(ctx context.Context, actor Actor, ticketID uint64) (*model.Ticket, error) {
	if actor.Role != model.RoleManager && actor.Role != model.RoleAdmin {
		return nil, fmt.Errorf("%w: only managers accept tickets", ErrForbidden)
	}
	t, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		return nil, storeErr(err)
	}
	if t.Status == model.TicketStatusClosed {
		return nil, fmt.Errorf("%w: ticket is closed", ErrInvalidState)
	}
	if t.ManagerID != nil {
		if *t.ManagerID == actor.ID {
			return t, nil // re-entrant accept by the owner
		}
		return nil, ErrAlreadyAssigned
	}

	// Ticket accept and the first-touch order binding commit as one unit in
	// the repository: an order claimed by a different manager, even one whose
	// claim lands mid-flight, refuses the accept. The ticket lane never steals
	// or splits ownership established through the claim lane.
	ok, err := s.tickets.AcceptIf(ctx, t.ID, t.OrderID, actor.ID)
	if err != nil {
		return nil, storeErr(err)
	}
	if !ok {
		t, err = s.tickets.FindByID(ctx, ticketID)
		if err != nil {
			return nil, storeErr(err)
		}
		if t.ManagerID != nil && *t.ManagerID == actor.ID {
			return t, nil
		}
		return nil, ErrAlreadyAssigned
	}

	t, err = s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		return nil, storeErr(err)
	}
	s.notify.Notify(ctx, t.ClientID, notify.EventTicketAccepted, "Support request accepted",
		"A manager is now handling your request", &t.OrderID, &t.ID)
	return t, nil
}

func (s *ticketService) Close(ctx context.Context, actor Actor, ticketID uint64) (*model.Ticket, error) {
	if actor.Role != model.RoleManager && actor.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}
	t, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		return nil, storeErr(err)
	}
	if actor.Role == model.RoleManager && t.ManagerID != nil && *t.ManagerID != actor.ID {
		return nil, ErrForbidden
	}
	if t.Status == model.TicketStatusClosed {
		return t, nil
	}
	if _, err := s.tickets.CloseIf(ctx, ticketID); err != nil {
		return nil, storeErr(err)
	}
	t.Status = model.TicketStatusClosed
	return t, nil
}

func (s *ticketService) List(ctx context.Context, actor Actor, status model.TicketStatus) ([]model.Ticket, error) {
	if actor.Role != model.RoleManager && actor.Role != model.RoleAdmin {
		return nil, fmt.Errorf("%w: only managers view tickets", ErrForbidden)
	}
	if status != "" && status != model.TicketStatusNew && status != model.TicketStatusAccepted && status != model.TicketStatusClosed {
		return nil, fmt.Errorf("%w: unknown ticket status %q", ErrInvalidArgument, status)
	}
	list, err := s.tickets.ListForManager(ctx, actor.ID, status)
	if err != nil {
		return nil, storeErr(err)
	}
	return list, nil
}
