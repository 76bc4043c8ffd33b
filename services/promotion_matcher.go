package services

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yeremiapane/branch-ordering/models"
)

var hundred = decimal.NewFromInt(100)

// MatchOutcome describes how a promo code lookup ended.
type MatchOutcome string

const (
	OutcomeApplied       MatchOutcome = "applied"
	OutcomeNotFound      MatchOutcome = "not_found"
	OutcomeNotApplicable MatchOutcome = "not_applicable"
	OutcomeEmptyCart     MatchOutcome = "empty_cart"
)

// CartLine is a priced line of a cart. UnitPrice already includes any
// auto-applied discount and the selected option deltas.
type CartLine struct {
	ProductID   uint                    `json:"product_id"`
	CategoryID  uint                    `json:"category_id"`
	ProductName string                  `json:"product_name"`
	Quantity    int                     `json:"quantity"`
	UnitPrice   decimal.Decimal         `json:"price"`
	Options     []models.SelectedOption `json:"options"`
}

func (l CartLine) Total() decimal.Decimal {
	return LineTotal(l.UnitPrice, l.Quantity)
}

type RedemptionResult struct {
	Outcome   MatchOutcome
	Promotion *models.Promotion
	Discount  decimal.Decimal
	NewTotal  decimal.Decimal
}

func (r RedemptionResult) Applied() bool { return r.Outcome == OutcomeApplied }

func (r RedemptionResult) Message() string {
	switch r.Outcome {
	case OutcomeApplied:
		return "Promo code applied!"
	case OutcomeNotApplicable:
		return "Promo code not applicable to any items in cart"
	case OutcomeEmptyCart:
		return "Cart is empty"
	}
	return "Invalid or expired promo code"
}

// EligiblePromotions keeps the promotions that are active on now's calendar day.
func EligiblePromotions(promos []models.Promotion, now time.Time) []models.Promotion {
	eligible := make([]models.Promotion, 0, len(promos))
	for _, p := range promos {
		if p.ActiveOn(now) {
			eligible = append(eligible, p)
		}
	}
	return eligible
}

// AutoPromotionFor picks the auto-applied promotion shown for a product.
// Product-targeted promotions take priority over category-targeted ones.
// Within a tier the largest discount on the product's base price wins,
// ties going to the lowest promotion id.
func AutoPromotionFor(promos []models.Promotion, product models.Product, now time.Time) *models.Promotion {
	var byProduct, byCategory []models.Promotion
	for _, p := range promos {
		if !p.IsAutoApplied || !p.ActiveOn(now) || p.TargetID == nil {
			continue
		}
		switch {
		case p.TargetType == models.PromotionTargetProduct && *p.TargetID == product.ID:
			byProduct = append(byProduct, p)
		case p.TargetType == models.PromotionTargetCategory && *p.TargetID == product.CategoryID:
			byCategory = append(byCategory, p)
		}
	}
	if best := bestFor(byProduct, product.BasePrice); best != nil {
		return best
	}
	return bestFor(byCategory, product.BasePrice)
}

func bestFor(candidates []models.Promotion, price decimal.Decimal) *models.Promotion {
	var best *models.Promotion
	var bestDiscount decimal.Decimal
	for i := range candidates {
		c := &candidates[i]
		d := unitDiscount(*c, price)
		if best == nil || d.GreaterThan(bestDiscount) || (d.Equal(bestDiscount) && c.ID < best.ID) {
			best, bestDiscount = c, d
		}
	}
	return best
}

// unitDiscount is the discount a promotion takes off a single unit.
func unitDiscount(p models.Promotion, price decimal.Decimal) decimal.Decimal {
	switch p.Type {
	case models.PromotionTypePercentage:
		return price.Mul(p.Value).Div(hundred)
	case models.PromotionTypeFixed:
		return p.Value
	}
	return decimal.Zero
}

// RedeemCode evaluates a customer-entered code against the cart.
func RedeemCode(promos []models.Promotion, code string, lines []CartLine, cartTotal decimal.Decimal, now time.Time) RedemptionResult {
	result := RedemptionResult{Outcome: OutcomeNotFound, Discount: decimal.Zero, NewTotal: cartTotal}

	code = strings.TrimSpace(code)
	if code == "" {
		return result
	}

	var promo *models.Promotion
	for i := range promos {
		if promos[i].Code == code && promos[i].ActiveOn(now) {
			promo = &promos[i]
			break
		}
	}
	if promo == nil {
		return result
	}
	result.Promotion = promo

	var discount decimal.Decimal
	switch promo.TargetType {
	case models.PromotionTargetOrder:
		if promo.Type == models.PromotionTypePercentage {
			discount = cartTotal.Mul(promo.Value).Div(hundred)
		} else {
			discount = promo.Value
		}
	case models.PromotionTargetCategory, models.PromotionTargetProduct:
		if len(lines) == 0 {
			result.Outcome = OutcomeEmptyCart
			return result
		}
		matched := false
		for _, l := range lines {
			if l.Quantity < 1 || !promo.Targets(l.ProductID, l.CategoryID) {
				continue
			}
			matched = true
			if promo.Type == models.PromotionTypePercentage {
				discount = discount.Add(l.Total().Mul(promo.Value).Div(hundred))
			} else {
				discount = discount.Add(promo.Value.Mul(decimal.NewFromInt(int64(l.Quantity))))
			}
		}
		if !matched {
			result.Outcome = OutcomeNotApplicable
			return result
		}
	default:
		result.Outcome = OutcomeNotApplicable
		return result
	}

	if discount.GreaterThan(cartTotal) {
		discount = cartTotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	result.Outcome = OutcomeApplied
	result.Discount = discount.Round(2)
	result.NewTotal = cartTotal.Sub(result.Discount)
	return result
}
