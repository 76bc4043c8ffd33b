package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	OrderStatusNew       = "new"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
)

const (
	OrderTypeDineIn    = "dine_in"
	OrderTypeCarPickup = "car_pickup"
	OrderTypeOnline    = "online"
)

const PaymentStatusPaid = "paid"

type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	BranchID        uint            `gorm:"not null;index:idx_orders_branch_status" json:"branch_id"`
	Branch          Branch          `gorm:"foreignKey:BranchID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	CustomerName    string          `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerPhone   string          `gorm:"type:varchar(50)" json:"customer_phone"`
	OrderType       string          `gorm:"type:varchar(20);not null" json:"order_type"`
	TableNumber     *string         `gorm:"type:varchar(20)" json:"table_number,omitempty"`
	CarType         *string         `gorm:"type:varchar(100)" json:"car_type,omitempty"`
	CarColor        *string         `gorm:"type:varchar(50)" json:"car_color,omitempty"`
	CarPlate        *string         `gorm:"type:varchar(50)" json:"car_plate,omitempty"`
	MetaData        datatypes.JSON  `gorm:"type:json" json:"meta_data,omitempty"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"subtotal"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"discount_amount"`
	PromotionCode   *string         `gorm:"type:varchar(50)" json:"promotion_code,omitempty"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	PaymentMethod   string          `gorm:"type:varchar(30)" json:"payment_method"`
	PaymentStatus   string          `gorm:"type:varchar(20);not null" json:"payment_status"`
	TransactionID   string          `gorm:"type:varchar(100);not null;uniqueIndex" json:"transaction_id"`
	Status          string          `gorm:"type:varchar(20);not null;default:'new';index:idx_orders_branch_status" json:"status"`
	PrepTimeMinutes *int            `json:"prep_time_minutes,omitempty"`
	OrderItems      []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt       time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null" json:"updated_at"`
}

// CarDetails renders the pickup vehicle the way the kitchen display shows it.
func (o *Order) CarDetails() string {
	if o.OrderType != OrderTypeCarPickup {
		return ""
	}
	return fmt.Sprintf("%s - %s (%s)", deref(o.CarType), deref(o.CarColor), deref(o.CarPlate))
}

// BranchChannel and OrderChannel name the realtime channels an order publishes to.
func BranchChannel(branchID uint) string { return fmt.Sprintf("branch_%d", branchID) }

func OrderChannel(orderID uint) string { return fmt.Sprintf("order_%d", orderID) }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
