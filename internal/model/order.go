package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusAccepted       OrderStatus = "accepted"
	OrderStatusInTransit      OrderStatus = "in_transit"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// statusRank orders the forward delivery path. Cancelled sits outside the
// path and is reachable from any non-terminal status.
var statusRank = map[OrderStatus]int{
	OrderStatusPending:        0,
	OrderStatusAccepted:       1,
	OrderStatusInTransit:      2,
	OrderStatusOutForDelivery: 3,
	OrderStatusDelivered:      4,
	OrderStatusCompleted:      5,
}

func (s OrderStatus) Valid() bool {
	if s == OrderStatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// StepsForward returns how many positions ahead of s the target is on the
// forward path, or -1 when the move is not a forward move at all.
func (s OrderStatus) StepsForward(to OrderStatus) int {
	from, ok := statusRank[s]
	if !ok {
		return -1
	}
	t, ok := statusRank[to]
	if !ok || t <= from {
		return -1
	}
	return t - from
}

type OfferStatus string

const (
	OfferStatusDraft    OfferStatus = "draft"
	OfferStatusSent     OfferStatus = "sent"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusRejected OfferStatus = "rejected"
)

type Order struct {
	ID        uint64      `gorm:"primaryKey;autoIncrement"`
	ClientID  uint64      `gorm:"column:client_id;index;not null"`
	ManagerID *uint64     `gorm:"column:manager_id;index"`
	Status    OrderStatus `gorm:"size:32;not null;default:pending;index"`

	Description string  `gorm:"type:text"`
	FromAddress string  `gorm:"column:from_address;size:255"`
	ToAddress   string  `gorm:"column:to_address;size:255"`
	FromContact string  `gorm:"column:from_contact;size:128"`
	ToContact   string  `gorm:"column:to_contact;size:128"`
	Weight      float64 `gorm:"column:weight"`
	Price       float64 `gorm:"column:price"`

	OfferStatus       OfferStatus `gorm:"column:offer_status;size:16;not null;default:draft"`
	OfferPrice        float64     `gorm:"column:offer_price"`
	OfferCurrency     string      `gorm:"column:offer_currency;size:3"`
	OfferDeliveryDays int         `gorm:"column:offer_delivery_days"`
	OfferComment      string      `gorm:"column:offer_comment;type:text"`

	TrackingNumber string    `gorm:"column:tracking_number;size:36;uniqueIndex"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) AssignedTo(managerID uint64) bool {
	return o.ManagerID != nil && *o.ManagerID == managerID
}

// NewTrackingNumber mints the 10-character public tracking code stamped on an
// order when a manager claims it.
func NewTrackingNumber() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:10]
}
