package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OrderItem is written once together with its order and never updated.
type OrderItem struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	OrderID uint `gorm:"not null;index" json:"order_id"`
	// Omitting Order field from JSON to avoid recursive nesting
	Order          Order                               `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	ProductID      uint                                `gorm:"not null" json:"product_id"`
	ProductName    string                              `gorm:"type:varchar(255);not null" json:"product_name"`
	Quantity       int                                 `gorm:"not null" json:"quantity"`
	Price          decimal.Decimal                     `gorm:"type:decimal(10,2);not null" json:"price"`
	OptionsDetails datatypes.JSONSlice[SelectedOption] `gorm:"type:json" json:"options_details"`
	CreatedAt      time.Time                           `gorm:"not null" json:"created_at"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
