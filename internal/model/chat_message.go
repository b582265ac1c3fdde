package model

import "time"

type ChatMessage struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	OrderID    uint64    `gorm:"column:order_id;index;not null"`
	SenderID   uint64    `gorm:"column:sender_id;index;not null"`
	SenderRole Role      `gorm:"column:sender_role;size:16;not null"`
	Message    string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
