package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	BranchID     uint            `gorm:"not null;index" json:"branch_id"`
	CategoryID   uint            `gorm:"not null;index" json:"category_id"`
	Category     Category        `gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Description  string          `gorm:"type:text" json:"description"`
	Image        *string         `gorm:"type:varchar(255)" json:"image,omitempty"`
	BasePrice    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"base_price"`
	IsAvailable  bool            `gorm:"not null;default:true" json:"is_available"`
	OptionGroups []OptionGroup   `gorm:"foreignKey:ProductID" json:"options"`
	CreatedAt    time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updated_at"`
}
