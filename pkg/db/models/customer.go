package models

import "time"

// Customer is a person known by their chat phone number.
type Customer struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string    `gorm:"column:name;not null"`
	Email       string    `gorm:"column:email;not null"`
	PhoneNumber string    `gorm:"column:phone_number;not null;uniqueIndex:idx_customers_phone_number"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Customer) TableName() string { return "customers" }
