// Package notify delivers lifecycle events to an external sink. Push to the
// end user (Telegram bot, etc.) is consumed downstream of the sink; this
// service only publishes.
package notify

import (
	"context"
	"time"
)

const (
	EventOrderCreated   = "order_created"
	EventOrderClaimed   = "order_claimed"
	EventStatusChanged  = "status_changed"
	EventOfferSent      = "offer_sent"
	EventOfferDecided   = "offer_decided"
	EventTicketCreated  = "ticket_created"
	EventTicketAccepted = "ticket_accepted"
	EventChatMessage    = "chat_message"
)

type Event struct {
	Type      string    `json:"type"`
	Recipient uint64    `json:"recipient"`
	OrderID   uint64    `json:"order_id,omitempty"`
	TicketID  uint64    `json:"ticket_id,omitempty"`
	Title     string    `json:"title,omitempty"`
	Body      string    `json:"body,omitempty"`
	At        time.Time `json:"at"`
}

type Notifier interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Noop is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(ctx context.Context, ev Event) error { return nil }
func (Noop) Close() error                                { return nil }
