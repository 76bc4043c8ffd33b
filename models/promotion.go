package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PromotionTypePercentage = "percentage"
	PromotionTypeFixed      = "fixed"
)

const (
	PromotionTargetOrder    = "order"
	PromotionTargetCategory = "category"
	PromotionTargetProduct  = "product"
)

type Promotion struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	BranchID      uint            `gorm:"not null;uniqueIndex:idx_promotions_branch_code" json:"branch_id"`
	Branch        Branch          `gorm:"foreignKey:BranchID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Code          string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_promotions_branch_code" json:"code"`
	Type          string          `gorm:"type:varchar(20);not null" json:"type"`
	Value         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"value"`
	StartDate     *time.Time      `gorm:"type:date" json:"start_date,omitempty"`
	EndDate       *time.Time      `gorm:"type:date" json:"end_date,omitempty"`
	IsActive      bool            `gorm:"not null" json:"is_active"`
	IsAutoApplied bool            `gorm:"not null;default:false" json:"is_auto_applied"`
	TargetType    string          `gorm:"type:varchar(20);not null;default:'order'" json:"target_type"`
	TargetID      *uint           `json:"target_id,omitempty"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
}

// ActiveOn reports whether the promotion is switched on and its validity
// window covers the calendar day of now. Bounds are inclusive.
func (p Promotion) ActiveOn(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	today := civilDate(now)
	if p.StartDate != nil && civilDate(*p.StartDate) > today {
		return false
	}
	if p.EndDate != nil && civilDate(*p.EndDate) < today {
		return false
	}
	return true
}

// Targets reports whether a product in the given category falls under the promotion.
func (p Promotion) Targets(productID, categoryID uint) bool {
	if p.TargetID == nil {
		return false
	}
	switch p.TargetType {
	case PromotionTargetProduct:
		return *p.TargetID == productID
	case PromotionTargetCategory:
		return *p.TargetID == categoryID
	}
	return false
}

func civilDate(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
