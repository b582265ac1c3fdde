package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/avkuzmin/logistics-backend/internal/model"
	"github.com/avkuzmin/logistics-backend/internal/notify"
	"github.com/avkuzmin/logistics-backend/internal/repository"
)

type ChatService interface {
	Post(ctx context.Context, actor Actor, orderID uint64, text string) (*model.ChatMessage, error)

	// List returns messages with id > sinceID in ascending id order; sinceID=0
	// returns the full history. Reads are side-effect free, so overlapping
	// polls are safe.
	List(ctx context.Context, actor Actor, orderID, sinceID uint64) ([]model.ChatMessage, error)
}

type chatService struct {
	chat   repository.ChatRepository
	orders repository.OrderRepository
	notify NotificationService
}

func NewChatService(chat repository.ChatRepository, orders repository.OrderRepository, notify NotificationService) ChatService {
	return &chatService{chat: chat, orders: orders, notify: notify}
}

// canChat restricts the channel to the order's client, its assigned manager,
// and admin. A manager without the assignment has no access.
func canChat(actor Actor, o *model.Order) error {
	switch actor.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleManager:
		if o.AssignedTo(actor.ID) {
			return nil
		}
	default:
		if o.ClientID == actor.ID {
			return nil
		}
	}
	return ErrForbidden
}

func (s *chatService) Post(ctx context.Context, actor Actor, orderID uint64, text string) (*model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message is empty", ErrInvalidArgument)
	}
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, storeErr(err)
	}
	if err := canChat(actor, o); err != nil {
		return nil, err
	}
	msg := &model.ChatMessage{
		OrderID:    orderID,
		SenderID:   actor.ID,
		SenderRole: actor.Role,
		Message:    text,
	}
	if err := s.chat.Append(ctx, msg); err != nil {
		return nil, storeErr(err)
	}

	// notify the other side of the channel
	if actor.Role == model.RoleClient {
		if o.ManagerID != nil {
			s.notify.Notify(ctx, *o.ManagerID, notify.EventChatMessage, "New message",
				fmt.Sprintf("New message on order #%d", o.ID), &o.ID, nil)
		}
	} else {
		s.notify.Notify(ctx, o.ClientID, notify.EventChatMessage, "New message",
			fmt.Sprintf("New message on order #%d", o.ID), &o.ID, nil)
	}
	return msg, nil
}

func (s *chatService) List(ctx context.Context, actor Actor, orderID, sinceID uint64) ([]model.ChatMessage, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, storeErr(err)
	}
	if err := canChat(actor, o); err != nil {
		return nil, err
	}
	list, err := s.chat.ListSince(ctx, orderID, sinceID)
	if err != nil {
		return nil, storeErr(err)
	}
	return list, nil
}
