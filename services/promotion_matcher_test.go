package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/branch-ordering/models"
)

var matcherNow = time.Date(2026, 3, 15, 18, 30, 0, 0, time.UTC)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func promo(id uint, code, typ, value, target string, targetID *uint) models.Promotion {
	return models.Promotion{
		ID:         id,
		BranchID:   1,
		Code:       code,
		Type:       typ,
		Value:      decimal.RequireFromString(value),
		IsActive:   true,
		TargetType: target,
		TargetID:   targetID,
	}
}

func TestRedeemCode_PercentageRoundsAndCaps(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		cartTotal string
		discount  string
		newTotal  string
	}{
		{"rounds half up to cents", "15", "33.33", "5.00", "28.33"},
		{"plain ten percent", "10", "50", "5.00", "45.00"},
		{"hundred percent equals total", "100", "12.34", "12.34", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := promo(1, "SAVE", models.PromotionTypePercentage, tt.value, models.PromotionTargetOrder, nil)
			r := RedeemCode([]models.Promotion{p}, "SAVE", nil, dec(tt.cartTotal), matcherNow)

			require.Equal(t, OutcomeApplied, r.Outcome)
			assert.Equal(t, tt.discount, r.Discount.StringFixed(2))
			assert.Equal(t, tt.newTotal, r.NewTotal.StringFixed(2))
			assert.True(t, r.Discount.LessThanOrEqual(dec(tt.cartTotal)))
		})
	}
}

func TestRedeemCode_FixedScopes(t *testing.T) {
	productA := uintPtr(1)
	lines := []CartLine{
		{ProductID: 1, CategoryID: 10, Quantity: 3, UnitPrice: dec("4.00")},
		{ProductID: 2, CategoryID: 10, Quantity: 1, UnitPrice: dec("8.00")},
	}

	t.Run("order scope takes value once", func(t *testing.T) {
		p := promo(1, "FIVE", models.PromotionTypeFixed, "5", models.PromotionTargetOrder, nil)
		r := RedeemCode([]models.Promotion{p}, "FIVE", lines, dec("20.00"), matcherNow)
		assert.Equal(t, "5.00", r.Discount.StringFixed(2))
		assert.Equal(t, "15.00", r.NewTotal.StringFixed(2))
	})

	t.Run("order scope capped at cart total", func(t *testing.T) {
		p := promo(1, "BIG", models.PromotionTypeFixed, "50", models.PromotionTargetOrder, nil)
		r := RedeemCode([]models.Promotion{p}, "BIG", lines, dec("20.00"), matcherNow)
		assert.Equal(t, "20.00", r.Discount.StringFixed(2))
		assert.True(t, r.NewTotal.IsZero())
	})

	t.Run("item scope multiplies by quantity", func(t *testing.T) {
		p := promo(1, "ONE", models.PromotionTypeFixed, "1", models.PromotionTargetProduct, productA)
		r := RedeemCode([]models.Promotion{p}, "ONE", lines, dec("20.00"), matcherNow)
		assert.Equal(t, "3.00", r.Discount.StringFixed(2))
	})

	t.Run("category scope covers every line of the category", func(t *testing.T) {
		p := promo(1, "CAT", models.PromotionTypeFixed, "1", models.PromotionTargetCategory, uintPtr(10))
		r := RedeemCode([]models.Promotion{p}, "CAT", lines, dec("20.00"), matcherNow)
		assert.Equal(t, "4.00", r.Discount.StringFixed(2))
	})
}

func TestRedeemCode_ProductTargetSkipsOtherLines(t *testing.T) {
	lines := []CartLine{
		{ProductID: 1, CategoryID: 10, Quantity: 1, UnitPrice: dec("10.00")},
		{ProductID: 2, CategoryID: 10, Quantity: 1, UnitPrice: dec("8.00")},
	}
	p := promo(1, "LATTE10", models.PromotionTypePercentage, "10", models.PromotionTargetProduct, uintPtr(1))

	r := RedeemCode([]models.Promotion{p}, "LATTE10", lines, dec("18.00"), matcherNow)

	require.True(t, r.Applied())
	assert.Equal(t, "1.00", r.Discount.StringFixed(2))
	assert.Equal(t, "17.00", r.NewTotal.StringFixed(2))
}

func TestRedeemCode_Outcomes(t *testing.T) {
	product := promo(1, "PROD", models.PromotionTypeFixed, "1", models.PromotionTargetProduct, uintPtr(99))
	inactive := promo(2, "OFF", models.PromotionTypeFixed, "1", models.PromotionTargetOrder, nil)
	inactive.IsActive = false
	promos := []models.Promotion{product, inactive}
	lines := []CartLine{{ProductID: 1, CategoryID: 10, Quantity: 1, UnitPrice: dec("5.00")}}

	tests := []struct {
		name    string
		code    string
		lines   []CartLine
		outcome MatchOutcome
	}{
		{"unknown code", "NOPE", lines, OutcomeNotFound},
		{"blank code", "  ", lines, OutcomeNotFound},
		{"inactive promotion", "OFF", lines, OutcomeNotFound},
		{"item promotion on empty cart", "PROD", nil, OutcomeEmptyCart},
		{"item promotion without matching line", "PROD", lines, OutcomeNotApplicable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := RedeemCode(promos, tt.code, tt.lines, dec("5.00"), matcherNow)
			assert.Equal(t, tt.outcome, r.Outcome)
			assert.True(t, r.Discount.IsZero())
			assert.Equal(t, "5.00", r.NewTotal.StringFixed(2))
			assert.NotEmpty(t, r.Message())
		})
	}
}

func TestRedeemCode_IgnoresNonPositiveQuantities(t *testing.T) {
	p := promo(1, "LATTE3", models.PromotionTypeFixed, "3", models.PromotionTargetProduct, uintPtr(1))
	neg := []CartLine{{ProductID: 1, CategoryID: 10, Quantity: -2, UnitPrice: dec("10.00")}}

	r := RedeemCode([]models.Promotion{p}, "LATTE3", neg, dec("20.00"), matcherNow)
	assert.Equal(t, OutcomeNotApplicable, r.Outcome)
	assert.True(t, r.Discount.IsZero())
	assert.Equal(t, "20.00", r.NewTotal.StringFixed(2))

	mixed := append(neg, CartLine{ProductID: 1, CategoryID: 10, Quantity: 1, UnitPrice: dec("10.00")})
	r = RedeemCode([]models.Promotion{p}, "LATTE3", mixed, dec("20.00"), matcherNow)
	require.True(t, r.Applied())
	assert.Equal(t, "3.00", r.Discount.StringFixed(2))
	assert.Equal(t, "17.00", r.NewTotal.StringFixed(2))
}

func TestExpiredPromotionNeverMatches(t *testing.T) {
	product := models.Product{ID: 1, CategoryID: 10, BasePrice: dec("10.00")}

	expired := promo(1, "OLD", models.PromotionTypeFixed, "2", models.PromotionTargetProduct, uintPtr(1))
	expired.IsAutoApplied = true
	expired.EndDate = day(2026, 3, 14)

	notYet := promo(2, "SOON", models.PromotionTypeFixed, "2", models.PromotionTargetProduct, uintPtr(1))
	notYet.IsAutoApplied = true
	notYet.StartDate = day(2026, 3, 16)

	promos := []models.Promotion{expired, notYet}
	lines := []CartLine{{ProductID: 1, CategoryID: 10, Quantity: 1, UnitPrice: dec("10.00")}}

	assert.Nil(t, AutoPromotionFor(promos, product, matcherNow))
	assert.Equal(t, OutcomeNotFound, RedeemCode(promos, "OLD", lines, dec("10.00"), matcherNow).Outcome)
	assert.Equal(t, OutcomeNotFound, RedeemCode(promos, "SOON", lines, dec("10.00"), matcherNow).Outcome)
	assert.Empty(t, EligiblePromotions(promos, matcherNow))
}

func TestPromotionWindowIsInclusiveByDay(t *testing.T) {
	p := promo(1, "TODAY", models.PromotionTypeFixed, "1", models.PromotionTargetOrder, nil)
	p.StartDate = day(2026, 3, 15)
	p.EndDate = day(2026, 3, 15)

	assert.True(t, p.ActiveOn(time.Date(2026, 3, 15, 0, 0, 1, 0, time.UTC)))
	assert.True(t, p.ActiveOn(time.Date(2026, 3, 15, 23, 59, 59, 0, time.UTC)))
	assert.False(t, p.ActiveOn(time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)))
}

func TestAutoPromotionFor(t *testing.T) {
	product := models.Product{ID: 1, CategoryID: 10, BasePrice: dec("20.00")}

	byCategory := promo(1, "CAT", models.PromotionTypePercentage, "50", models.PromotionTargetCategory, uintPtr(10))
	byCategory.IsAutoApplied = true
	byProduct := promo(2, "PROD", models.PromotionTypeFixed, "1", models.PromotionTargetProduct, uintPtr(1))
	byProduct.IsAutoApplied = true
	codeOnly := promo(3, "CODE", models.PromotionTypeFixed, "15", models.PromotionTargetProduct, uintPtr(1))

	t.Run("product target wins over a larger category discount", func(t *testing.T) {
		got := AutoPromotionFor([]models.Promotion{byCategory, byProduct, codeOnly}, product, matcherNow)
		require.NotNil(t, got)
		assert.Equal(t, uint(2), got.ID)
	})

	t.Run("falls back to category", func(t *testing.T) {
		got := AutoPromotionFor([]models.Promotion{byCategory, codeOnly}, product, matcherNow)
		require.NotNil(t, got)
		assert.Equal(t, uint(1), got.ID)
	})

	t.Run("largest discount wins within a tier", func(t *testing.T) {
		bigger := promo(4, "PROD2", models.PromotionTypePercentage, "25", models.PromotionTargetProduct, uintPtr(1))
		bigger.IsAutoApplied = true
		got := AutoPromotionFor([]models.Promotion{byProduct, bigger}, product, matcherNow)
		require.NotNil(t, got)
		assert.Equal(t, uint(4), got.ID)
	})

	t.Run("equal discounts go to the lowest id", func(t *testing.T) {
		same := promo(7, "SAME", models.PromotionTypePercentage, "5", models.PromotionTargetProduct, uintPtr(1))
		same.IsAutoApplied = true
		got := AutoPromotionFor([]models.Promotion{same, byProduct}, product, matcherNow)
		require.NotNil(t, got)
		assert.Equal(t, uint(2), got.ID)
	})

	t.Run("code-only promotions are ignored", func(t *testing.T) {
		assert.Nil(t, AutoPromotionFor([]models.Promotion{codeOnly}, product, matcherNow))
	})
}

// Fixed 3.00 off product A priced 10.00, two in the cart.
func TestFixedProductPromotionScenario(t *testing.T) {
	productA := models.Product{ID: 1, CategoryID: 10, Name: "A", BasePrice: dec("10.00")}
	p := promo(1, "A3", models.PromotionTypeFixed, "3", models.PromotionTargetProduct, uintPtr(1))
	p.IsAutoApplied = true

	price := PriceProduct(productA, AutoPromotionFor([]models.Promotion{p}, productA, matcherNow))
	assert.Equal(t, "7.00", price.DiscountedPrice.StringFixed(2))
	assert.True(t, price.HasDiscount)
	assert.Equal(t, "14.00", LineTotal(UnitPrice(price.DiscountedPrice, nil), 2).StringFixed(2))

	lines := []CartLine{{ProductID: 1, CategoryID: 10, Quantity: 2, UnitPrice: dec("10.00")}}
	r := RedeemCode([]models.Promotion{p}, "A3", lines, dec("20.00"), matcherNow)
	require.True(t, r.Applied())
	assert.Equal(t, "6.00", r.Discount.StringFixed(2))
	assert.Equal(t, "14.00", r.NewTotal.StringFixed(2))
}

func TestCategoryPercentageScenario(t *testing.T) {
	productP := models.Product{ID: 5, CategoryID: 10, BasePrice: dec("50.00")}
	p := promo(1, "X10", models.PromotionTypePercentage, "10", models.PromotionTargetCategory, uintPtr(10))
	p.IsAutoApplied = true

	price := PriceProduct(productP, AutoPromotionFor([]models.Promotion{p}, productP, matcherNow))

	assert.Equal(t, "50.00", price.OriginalPrice.StringFixed(2))
	assert.Equal(t, "45.00", price.DiscountedPrice.StringFixed(2))
	assert.True(t, price.HasDiscount)
}
