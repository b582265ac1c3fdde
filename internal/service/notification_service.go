package service

import (
	"context"

	"github.com/avkuzmin/logistics-backend/internal/model"
	"github.com/avkuzmin/logistics-backend/internal/notify"
	"github.com/avkuzmin/logistics-backend/internal/repository"
)

type NotificationService interface {
	// Notify is best-effort: it persists the in-app row and publishes to the
	// external sink, but never fails the main flow.
	Notify(ctx context.Context, userID uint64, typ, title, body string, orderID, ticketID *uint64)
	List(ctx context.Context, userID uint64, unreadOnly bool, limit int) ([]model.Notification, int64, error)
	MarkAllRead(ctx context.Context, userID uint64) error
}

type notificationService struct {
	repo repository.NotificationRepository
	sink notify.Notifier
}

func NewNotificationService(repo repository.NotificationRepository, sink notify.Notifier) NotificationService {
	if sink == nil {
		sink = notify.Noop{}
	}
	return &notificationService{repo: repo, sink: sink}
}

func (s *notificationService) Notify(ctx context.Context, userID uint64, typ, title, body string, orderID, ticketID *uint64) {
	if userID == 0 || typ == "" {
		return
	}
	n := &model.Notification{
		UserID:   userID,
		Type:     typ,
		Title:    title,
		Body:     body,
		OrderID:  orderID,
		TicketID: ticketID,
	}
	_ = s.repo.Create(ctx, n)

	ev := notify.Event{Type: typ, Recipient: userID, Title: title, Body: body}
	if orderID != nil {
		ev.OrderID = *orderID
	}
	if ticketID != nil {
		ev.TicketID = *ticketID
	}
	_ = s.sink.Publish(ctx, ev)
}

func (s *notificationService) List(ctx context.Context, userID uint64, unreadOnly bool, limit int) ([]model.Notification, int64, error) {
	list, err := s.repo.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, 0, storeErr(err)
	}
	cnt, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return list, 0, storeErr(err)
	}
	return list, cnt, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uint64) error {
	return storeErr(s.repo.MarkAllRead(ctx, userID))
}
