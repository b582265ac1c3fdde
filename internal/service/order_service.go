package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/avkuzmin/logistics-backend/internal/model"
	"github.com/avkuzmin/logistics-backend/internal/notify"
	"github.com/avkuzmin/logistics-backend/internal/repository"
)

// Actor is the authenticated principal an operation runs as.
type Actor struct {
	ID   uint64
	Role model.Role
}

type CreateOrderInput struct {
	Description string
	FromAddress string
	ToAddress   string
	FromContact string
	ToContact   string
	Weight      float64
	Price       float64
}

type OrderService interface {
	Create(ctx context.Context, actor Actor, in CreateOrderInput) (*model.Order, error)
	Get(ctx context.Context, actor Actor, orderID uint64) (*model.Order, error)
	List(ctx context.Context, actor Actor, listType string) ([]model.Order, error)

	// Claim binds the calling manager as the exclusive handler of a pending
	// order. Exactly one concurrent claimant wins; losers get ErrAlreadyAssigned
	// with no side effects. Re-claiming an order the caller already owns is a
	// no-op success.
	Claim(ctx context.Context, actor Actor, orderID uint64) (*model.Order, error)

	UpdateStatus(ctx context.Context, actor Actor, orderID uint64, status model.OrderStatus) (*model.Order, error)
	Tracking(ctx context.Context, actor Actor, orderID uint64) ([]model.TrackingEvent, error)
}

type orderService struct {
	orders   repository.OrderRepository
	tracking repository.TrackingRepository
	notify   NotificationService
}

func NewOrderService(orders repository.OrderRepository, tracking repository.TrackingRepository, notify NotificationService) OrderService {
	return &orderService{orders: orders, tracking: tracking, notify: notify}
}

func (s *orderService) Create(ctx context.Context, actor Actor, in CreateOrderInput) (*model.Order, error) {
	if actor.Role != model.RoleClient {
		return nil, fmt.Errorf("%w: only clients can create orders", ErrForbidden)
	}
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(in.FromAddress) == "" || strings.TrimSpace(in.ToAddress) == "" {
		return nil, fmt.Errorf("%w: pickup and delivery addresses are required", ErrInvalidArgument)
	}
	if in.Weight < 0 || in.Price < 0 {
		return nil, fmt.Errorf("%w: weight and price must not be negative", ErrInvalidArgument)
	}
	o := &model.Order{
		ClientID:    actor.ID,
		Status:      model.OrderStatusPending,
		OfferStatus: model.OfferStatusDraft,
		Description: in.Description,
		FromAddress: in.FromAddress,
		ToAddress:   in.ToAddress,
		FromContact: in.FromContact,
		ToContact:   in.ToContact,
		Weight:      in.Weight,
		Price:       in.Price,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, storeErr(err)
	}
	s.notify.Notify(ctx, actor.ID, notify.EventOrderCreated, "Order created",
		"Your order is waiting for a manager", &o.ID, nil)
	return o, nil
}

func (s *orderService) Get(ctx context.Context, actor Actor, orderID uint64) (*model.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, storeErr(err)
	}
	if err := canViewOrder(actor, o); err != nil {
		return nil, err
	}
	return o, nil
}

// canViewOrder: clients see only their own orders; managers and admin see
// everything (a manager has to inspect an incoming order before claiming it).
func canViewOrder(actor Actor, o *model.Order) error {
	if actor.Role == model.RoleClient && o.ClientID != actor.ID {
		return ErrForbidden
	}
	return nil
}

func (s *orderService) List(ctx context.Context, actor Actor, listType string) ([]model.Order, error) {
	var scope repository.OrderListScope
	switch actor.Role {
	case model.RoleAdmin:
		scope.All = true
	case model.RoleManager:
		switch listType {
		case "incoming":
			scope.Incoming = true
		case "assigned", "":
			scope.ManagerID = actor.ID
		default:
			return nil, fmt.Errorf("%w: unknown list type %q", ErrInvalidArgument, listType)
		}
	default:
		scope.ClientID = actor.ID
	}
	list, err := s.orders.List(ctx, scope)
	if err != nil {
		return nil, storeErr(err)
	}
	return list, nil
}

func (s *orderService) Claim(ctx context.Context, actor Actor, orderID uint64) (*model.Order, error) {
	if actor.Role != model.RoleManager && actor.Role != model.RoleAdmin {
		return nil, fmt.Errorf("%w: only managers can claim orders", ErrForbidden)
	}
	ok, err := s.orders.Claim(ctx, orderID, actor.ID)
	if err != nil {
		return nil, storeErr(err)
	}
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, storeErr(err)
	}
	if !ok {
		switch {
		case o.AssignedTo(actor.ID):
			// re-entrant claim by the current owner
			return o, nil
		case o.Status.Terminal():
			return nil, fmt.Errorf("%w: order is %s", ErrInvalidState, o.Status)
		default:
			return nil, ErrAlreadyAssigned
		}
	}
	s.notify.Notify(ctx, o.ClientID, notify.EventOrderClaimed, "Order accepted",
		"A manager has taken your order", &o.ID, nil)
	return o, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, actor Actor, orderID uint64, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() || status == model.OrderStatusPending {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, status)
	}
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, storeErr(err)
	}
	if o.Status.Terminal() {
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidState, o.Status)
	}

	if status == model.OrderStatusCancelled {
		return s.cancel(ctx, actor, o)
	}

	// Forward moves: only the assigned manager or admin; managers go one step
	// at a time, admin may skip states.
	switch actor.Role {
	case model.RoleAdmin:
	case model.RoleManager:
		if !o.AssignedTo(actor.ID) {
			return nil, ErrForbidden
		}
	default:
		return nil, fmt.Errorf("%w: clients can only cancel", ErrForbidden)
	}
	steps := o.Status.StepsForward(status)
	if steps < 0 {
		return nil, fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidState, o.Status, status)
	}
	if steps > 1 && actor.Role != model.RoleAdmin {
		return nil, fmt.Errorf("%w: cannot skip from %s to %s", ErrInvalidState, o.Status, status)
	}

	ev := &model.TrackingEvent{
		OrderID:     o.ID,
		Status:      status,
		Description: model.TrackingDescription(status),
	}
	ok, err := s.orders.UpdateStatusIf(ctx, o.ID, o.Status, status, ev)
	if err != nil {
		return nil, storeErr(err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: order changed concurrently", ErrConflict)
	}
	o.Status = status
	s.notify.Notify(ctx, o.ClientID, notify.EventStatusChanged, "Order status updated",
		model.TrackingDescription(status), &o.ID, nil)
	return o, nil
}

func (s *orderService) cancel(ctx context.Context, actor Actor, o *model.Order) (*model.Order, error) {
	switch actor.Role {
	case model.RoleAdmin:
	case model.RoleManager:
		if !o.AssignedTo(actor.ID) {
			return nil, ErrForbidden
		}
	default:
		if o.ClientID != actor.ID {
			return nil, ErrForbidden
		}
	}
	ev := &model.TrackingEvent{
		OrderID:     o.ID,
		Status:      model.OrderStatusCancelled,
		Description: model.TrackingDescription(model.OrderStatusCancelled),
	}
	ok, err := s.orders.CancelIf(ctx, o.ID, ev)
	if err != nil {
		return nil, storeErr(err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: order is already closed", ErrInvalidState)
	}
	o.Status = model.OrderStatusCancelled
	s.notify.Notify(ctx, o.ClientID, notify.EventStatusChanged, "Order cancelled",
		model.TrackingDescription(model.OrderStatusCancelled), &o.ID, nil)
	return o, nil
}

func (s *orderService) Tracking(ctx context.Context, actor Actor, orderID uint64) ([]model.TrackingEvent, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, storeErr(err)
	}
	if err := canViewOrder(actor, o); err != nil {
		return nil, err
	}
	list, err := s.tracking.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, storeErr(err)
	}
	return list, nil
}
