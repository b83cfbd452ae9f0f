package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
)

// Transaction records the resolved outcome of one payment attempt.
type Transaction struct {
	ID                uint64                  `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID           uint64                  `gorm:"column:order_id;not null;index:idx_transactions_order_id"`
	TxRef             string                  `gorm:"column:tx_ref;not null;uniqueIndex:idx_transactions_tx_ref"`
	Attempt           int                     `gorm:"column:attempt;not null"`
	Amount            decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency          enums.Currency          `gorm:"column:currency;not null"`
	Provider          enums.PaymentProvider   `gorm:"column:provider;type:payment_provider"`
	Status            enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null"`
	ProviderReference string                  `gorm:"column:provider_reference"`
	ResponseData      json.RawMessage         `gorm:"column:response_data;type:jsonb"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (Transaction) TableName() string { return "transactions" }
