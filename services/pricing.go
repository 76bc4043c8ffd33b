package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yeremiapane/branch-ordering/models"
)

// ProductPrice is the menu price of a product after its auto-applied promotion.
type ProductPrice struct {
	OriginalPrice   decimal.Decimal `json:"original_price"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	HasDiscount     bool            `json:"has_discount"`
}

func PriceProduct(product models.Product, promo *models.Promotion) ProductPrice {
	discount := decimal.Zero
	if promo != nil {
		discount = unitDiscount(*promo, product.BasePrice)
	}
	discounted := product.BasePrice.Sub(discount)
	if discounted.IsNegative() {
		discounted = decimal.Zero
	}
	return ProductPrice{
		OriginalPrice:   product.BasePrice.Round(2),
		DiscountedPrice: discounted.Round(2),
		HasDiscount:     discount.IsPositive(),
	}
}

func UnitPrice(effective decimal.Decimal, options []models.SelectedOption) decimal.Decimal {
	unit := effective
	for _, o := range options {
		unit = unit.Add(o.Price)
	}
	return unit
}

func LineTotal(unit decimal.Decimal, quantity int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(quantity)))
}

// CartItemInput is a cart line as submitted by the customer. Price is the
// client's unit price and is only used for mismatch logging.
type CartItemInput struct {
	ProductID uint                    `json:"product_id"`
	Quantity  int                     `json:"quantity"`
	Price     decimal.Decimal         `json:"price"`
	Options   []models.SelectedOption `json:"options"`
}

type ResolvedCart struct {
	Lines    []CartLine
	Subtotal decimal.Decimal
}

// ResolveCart prices a submitted cart from the branch's current menu.
func ResolveCart(ctx context.Context, db *gorm.DB, branchID uint, items []CartItemInput, promos []models.Promotion, now time.Time) (*ResolvedCart, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}

	var products []models.Product
	err := db.WithContext(ctx).
		Preload("OptionGroups").
		Where("branch_id = ? AND id IN ?", branchID, ids).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("load cart products: %w", err)
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	cart := &ResolvedCart{Subtotal: decimal.Zero}
	for _, it := range items {
		if it.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		product, ok := byID[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrProductNotFound, it.ProductID)
		}
		if !product.IsAvailable {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, product.Name)
		}
		options, err := ResolveOptions(product.OptionGroups, it.Options)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", product.Name, err)
		}

		price := PriceProduct(product, AutoPromotionFor(promos, product, now))
		line := CartLine{
			ProductID:   product.ID,
			CategoryID:  product.CategoryID,
			ProductName: product.Name,
			Quantity:    it.Quantity,
			UnitPrice:   UnitPrice(price.DiscountedPrice, options),
			Options:     options,
		}
		cart.Lines = append(cart.Lines, line)
		cart.Subtotal = cart.Subtotal.Add(line.Total())
	}
	return cart, nil
}

// ResolveOptions maps the customer's selections onto the product's option
// groups and replaces client prices with the configured deltas.
func ResolveOptions(groups []models.OptionGroup, selected []models.SelectedOption) ([]models.SelectedOption, error) {
	counts := make(map[uint]int, len(groups))
	resolved := make([]models.SelectedOption, 0, len(selected))

	for _, sel := range selected {
		name := strings.TrimSpace(sel.Name)
		group, choice, err := findChoice(groups, strings.TrimSpace(sel.Group), name)
		if err != nil {
			return nil, err
		}
		counts[group.ID]++
		if limit := group.Kind.MaxSelections(); limit > 0 && counts[group.ID] > limit {
			return nil, fmt.Errorf("%w: %s accepts a single choice", ErrInvalidOption, group.Name)
		}
		resolved = append(resolved, models.SelectedOption{
			Group: group.Name,
			Name:  choice.Name,
			Price: choice.Price,
		})
	}

	for _, g := range groups {
		if g.IsRequired && counts[g.ID] == 0 {
			return nil, fmt.Errorf("%w: %s is required", ErrInvalidOption, g.Name)
		}
	}
	return resolved, nil
}

func findChoice(groups []models.OptionGroup, groupName, choiceName string) (*models.OptionGroup, *models.OptionChoice, error) {
	for i := range groups {
		g := &groups[i]
		if groupName != "" && !strings.EqualFold(g.Name, groupName) {
			continue
		}
		if c, ok := g.Choice(choiceName); ok {
			return g, &c, nil
		}
	}
	if groupName != "" {
		return nil, nil, fmt.Errorf("%w: %q in %q", ErrInvalidOption, choiceName, groupName)
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrInvalidOption, choiceName)
}

// isNotFound reports whether err is gorm's record-not-found.
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
