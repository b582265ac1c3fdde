package model

import "time"

// TrackingEvent is append-only; rows are never updated or deleted.
type TrackingEvent struct {
	ID          uint64      `gorm:"primaryKey;autoIncrement"`
	OrderID     uint64      `gorm:"column:order_id;index;not null"`
	Status      OrderStatus `gorm:"size:32;not null"`
	Location    string      `gorm:"size:255"`
	Description string      `gorm:"type:text"`
	CreatedAt   time.Time   `gorm:"autoCreateTime"`
}

func (TrackingEvent) TableName() string {
	return "tracking_events"
}

// trackingDescriptions mirrors the wording shown to clients in the timeline.
var trackingDescriptions = map[OrderStatus]string{
	OrderStatusPending:        "Order created and waiting for a manager",
	OrderStatusAccepted:       "Order accepted by a manager",
	OrderStatusInTransit:      "Shipment is in transit",
	OrderStatusOutForDelivery: "Shipment is out for delivery",
	OrderStatusDelivered:      "Shipment delivered",
	OrderStatusCompleted:      "Order completed",
	OrderStatusCancelled:      "Order cancelled",
}

func TrackingDescription(s OrderStatus) string {
	if d, ok := trackingDescriptions[s]; ok {
		return d
	}
	return string(s)
}
