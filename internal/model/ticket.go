package model

import "time"

type TicketStatus string

const (
	TicketStatusNew      TicketStatus = "new"
	TicketStatusAccepted TicketStatus = "accepted"
	TicketStatusClosed   TicketStatus = "closed"
)

type Ticket struct {
	ID         uint64       `gorm:"primaryKey;autoIncrement"`
	OrderID    uint64       `gorm:"column:order_id;index;not null"`
	ClientID   uint64       `gorm:"column:client_id;index;not null"`
	ManagerID  *uint64      `gorm:"column:manager_id;index"`
	Status     TicketStatus `gorm:"size:16;not null;default:new;index"`
	CreatedAt  time.Time    `gorm:"autoCreateTime"`
	AcceptedAt *time.Time   `gorm:"column:accepted_at"`
}

func (Ticket) TableName() string {
	return "tickets"
}
