package models

import (
	"time"

	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
)

// InboxMessage archives an inbound chat event for audit.
type InboxMessage struct {
	ID                uint64            `gorm:"column:id;primaryKey;autoIncrement"`
	Phone             string            `gorm:"column:phone;not null;index:idx_inbox_messages_phone"`
	Kind              enums.InboundKind `gorm:"column:kind;not null"`
	Body              string            `gorm:"column:body"`
	ProviderMessageID string            `gorm:"column:provider_message_id"`
	HandedOff         bool              `gorm:"column:handed_off;not null;default:false"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (InboxMessage) TableName() string { return "inbox_messages" }
