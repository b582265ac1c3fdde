package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/avkuzmin/logistics-backend/internal/model"
	"github.com/avkuzmin/logistics-backend/internal/notify"
	"github.com/avkuzmin/logistics-backend/internal/repository"
)

// recognized offer currencies
var offerCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "RUB": true,
	"KZT": true, "UZS": true, "CNY": true, "AED": true, "TRY": true,
}

type OfferInput struct {
	Price        float64
	Currency     string
	DeliveryDays int
	Comment      string
}

type OfferService interface {
	// Send creates or overwrites the live offer and marks it sent. Re-sending
	// while a prior offer is sent or rejected replaces it and resets any client
	// decision; an accepted offer can no longer be replaced.
	Send(ctx context.Context, actor Actor, orderID uint64, in OfferInput) (*model.Order, error)

	// Respond records the client's accept/reject while the offer is sent.
	// Accepting does not advance the order status; that stays with the manager.
	Respond(ctx context.Context, actor Actor, orderID uint64, decision string) (*model.Order, error)
}

type offerService struct {
	orders repository.OrderRepository
	notify NotificationService
}

func NewOfferService(orders repository.OrderRepository, notify NotificationService) OfferService {
	return &offerService{orders: orders, notify: notify}
}

func (s *offerService) Send(ctx context.Context, actor Actor, orderID uint64, in OfferInput) (*model.Order, error) {
	if actor.Role != model.RoleManager {
		return nil, fmt.Errorf("%w: only managers send offers", ErrForbidden)
	}
	if in.Price <= 0 {
		return nil, fmt.Errorf("%w: offer price must be positive", ErrInvalidArgument)
	}
	if in.DeliveryDays < 1 {
		return nil, fmt.Errorf("%w: delivery days must be at least 1", ErrInvalidArgument)
	}
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if !offerCurrencies[in.Currency] {
		return nil, fmt.Errorf("%w: unrecognized currency %q", ErrInvalidArgument, in.Currency)
	}

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, storeErr(err)
	}
	if !o.AssignedTo(actor.ID) {
		return nil, ErrForbidden
	}
	if o.Status.Terminal() {
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidState, o.Status)
	}
	if o.OfferStatus == model.OfferStatusAccepted {
		return nil, fmt.Errorf("%w: offer already accepted", ErrInvalidState)
	}

	ok, err := s.orders.UpdateOfferIf(ctx, orderID, actor.ID, model.Order{
		OfferPrice:        in.Price,
		OfferCurrency:     in.Currency,
		OfferDeliveryDays: in.DeliveryDays,
		OfferComment:      in.Comment,
	})
	if err != nil {
		return nil, storeErr(err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: order changed concurrently", ErrConflict)
	}

	o, err = s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, storeErr(err)
	}
	s.notify.Notify(ctx, o.ClientID, notify.EventOfferSent, "New offer",
		fmt.Sprintf("Offer: %.2f %s, delivery in %d days", in.Price, in.Currency, in.DeliveryDays),
		&o.ID, nil)
	return o, nil
}

func (s *offerService) Respond(ctx context.Context, actor Actor, orderID uint64, decision string) (*model.Order, error) {
	var target model.OfferStatus
	switch decision {
	case "accept":
		target = model.OfferStatusAccepted
	case "reject":
		target = model.OfferStatusRejected
	default:
		return nil, fmt.Errorf("%w: decision must be accept or reject", ErrInvalidArgument)
	}

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, storeErr(err)
	}
	if o.ClientID != actor.ID {
		return nil, ErrForbidden
	}
	if o.OfferStatus != model.OfferStatusSent {
		return nil, fmt.Errorf("%w: no offer awaiting response", ErrInvalidState)
	}

	ok, err := s.orders.RespondOfferIf(ctx, orderID, actor.ID, target)
	if err != nil {
		return nil, storeErr(err)
	}
	if !ok {
		// lost to a concurrent response or a resend; the caller re-reads
		return nil, fmt.Errorf("%w: no offer awaiting response", ErrInvalidState)
	}
	o.OfferStatus = target

	if o.ManagerID != nil {
		verb := "accepted"
		if target == model.OfferStatusRejected {
			verb = "rejected"
		}
		s.notify.Notify(ctx, *o.ManagerID, notify.EventOfferDecided, "Offer "+verb,
			fmt.Sprintf("The client %s your offer on order #%d", verb, o.ID), &o.ID, nil)
	}
	return o, nil
}
