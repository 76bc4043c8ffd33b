package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yeremiapane/branch-ordering/models"
	"github.com/yeremiapane/branch-ordering/utils"
)

// CheckoutInput is the order payload a customer submits, directly or via the
// payment provider's metadata.
type CheckoutInput struct {
	CustomerName  string            `json:"customer_name"`
	CustomerPhone string            `json:"customer_phone"`
	OrderType     string            `json:"order_type"`
	MetaData      datatypes.JSONMap `json:"meta_data"`
	CartItems     []CartItemInput   `json:"cart_items"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	PaymentMethod string            `json:"payment_method"`
	PromoCode     string            `json:"promo_code"`
}

func (in CheckoutInput) Validate() error {
	if strings.TrimSpace(in.CustomerName) == "" {
		return fmt.Errorf("%w: customer_name is required", ErrInvalidCheckout)
	}
	switch in.OrderType {
	case models.OrderTypeDineIn, models.OrderTypeCarPickup, models.OrderTypeOnline:
	default:
		return fmt.Errorf("%w: unknown order_type %q", ErrInvalidCheckout, in.OrderType)
	}
	if len(in.CartItems) == 0 {
		return ErrEmptyCart
	}
	return nil
}

func (in CheckoutInput) meta(key string) *string {
	v, ok := in.MetaData[key]
	if !ok || v == nil {
		return nil
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return nil
	}
	return &s
}

// PromoCartItem is a cart line as sent to the promo preview endpoint.
type PromoCartItem struct {
	ProductID uint            `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type CheckoutService struct {
	db         *gorm.DB
	promotions PromotionSource
	orders     *OrderService
	tolerance  decimal.Decimal
	now        func() time.Time
}

func NewCheckoutService(db *gorm.DB, promotions PromotionSource, orders *OrderService, tolerance decimal.Decimal) *CheckoutService {
	return &CheckoutService{
		db:         db,
		promotions: promotions,
		orders:     orders,
		tolerance:  tolerance,
		now:        time.Now,
	}
}

// ValidatePromo previews a promo code against the customer's cart. The
// result is advisory; PlaceOrder evaluates the code again.
func (s *CheckoutService) ValidatePromo(ctx context.Context, branchID uint, code string, cartTotal decimal.Decimal, items []PromoCartItem) (RedemptionResult, error) {
	promos, err := s.promotions.ActivePromotions(ctx, branchID)
	if err != nil {
		return RedemptionResult{}, err
	}

	ids := make([]uint, 0, len(items))
	for _, it := range items {
		if it.Quantity < 1 {
			return RedemptionResult{}, ErrInvalidQuantity
		}
		ids = append(ids, it.ProductID)
	}
	categories := make(map[uint]uint, len(ids))
	if len(ids) > 0 {
		var products []models.Product
		if err := s.db.WithContext(ctx).Select("id", "category_id").Where("branch_id = ? AND id IN ?", branchID, ids).Find(&products).Error; err != nil {
			return RedemptionResult{}, err
		}
		for _, p := range products {
			categories[p.ID] = p.CategoryID
		}
	}

	lines := make([]CartLine, 0, len(items))
	for _, it := range items {
		category, ok := categories[it.ProductID]
		if !ok {
			continue
		}
		lines = append(lines, CartLine{
			ProductID:  it.ProductID,
			CategoryID: category,
			Quantity:   it.Quantity,
			UnitPrice:  it.Price,
		})
	}
	return RedeemCode(promos, code, lines, cartTotal, s.now()), nil
}

// PlaceOrder verifies the payment, prices the cart from the current menu and
// promotions, and stores the order only when the server total agrees with
// the amount paid.
func (s *CheckoutService) PlaceOrder(ctx context.Context, branchID uint, verifier PaymentVerifier, ref PaymentReference) (*models.Order, error) {
	payment, err := verifier.Verify(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("verify payment: %w", err)
	}
	if payment.BranchID != 0 && payment.BranchID != branchID {
		return nil, fmt.Errorf("%w: payment is for branch %d", ErrBranchMismatch, payment.BranchID)
	}

	// The customer may reload the callback after the menu or promotions
	// changed; a recorded payment keeps its order.
	if existing, err := s.orders.FindByTransaction(ctx, branchID, payment.TransactionID); err == nil {
		s.orders.logReplay(existing)
		return existing, nil
	} else if !errors.Is(err, ErrOrderNotFound) {
		return nil, err
	}

	in := payment.Order
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	promos, err := s.promotions.ActivePromotions(ctx, branchID)
	if err != nil {
		return nil, err
	}
	cart, err := ResolveCart(ctx, s.db, branchID, in.CartItems, promos, now)
	if err != nil {
		return nil, err
	}

	total := cart.Subtotal
	discount := decimal.Zero
	var promoCode *string
	if code := strings.TrimSpace(in.PromoCode); code != "" {
		r := RedeemCode(promos, code, cart.Lines, cart.Subtotal, now)
		if !r.Applied() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPromoCode, r.Message())
		}
		total, discount = r.NewTotal, r.Discount
		promoCode = &r.Promotion.Code
	}

	fields := logrus.Fields{
		"branch_id":      branchID,
		"transaction_id": payment.TransactionID,
		"server_total":   total.StringFixed(2),
		"paid_total":     payment.Amount.StringFixed(2),
	}
	if total.Sub(payment.Amount).Abs().GreaterThan(s.tolerance) {
		utils.ErrorLogger.WithFields(fields).Warn("rejecting order: total mismatch")
		return nil, ErrTotalMismatch
	}
	logClientPrices(fields, in.CartItems, cart.Lines)

	if in.MetaData == nil {
		in.MetaData = datatypes.JSONMap{}
	}
	meta, err := json.Marshal(in.MetaData)
	if err != nil {
		return nil, fmt.Errorf("%w: meta_data: %v", ErrInvalidCheckout, err)
	}

	return s.orders.CreateOrder(ctx, NewOrder{
		BranchID:      branchID,
		CustomerName:  strings.TrimSpace(in.CustomerName),
		CustomerPhone: strings.TrimSpace(in.CustomerPhone),
		OrderType:     in.OrderType,
		TableNumber:   in.meta("table_no"),
		CarType:       in.meta("car_type"),
		CarColor:      in.meta("color"),
		CarPlate:      in.meta("plate"),
		MetaData:      datatypes.JSON(meta),
		Lines:         cart.Lines,
		Subtotal:      cart.Subtotal,
		Discount:      discount,
		PromotionCode: promoCode,
		TotalAmount:   total,
		PaymentMethod: payment.Method,
		PaymentStatus: models.PaymentStatusPaid,
		TransactionID: payment.TransactionID,
	})
}

// logClientPrices records lines whose client price differs from the server's.
// The server price is the one charged.
func logClientPrices(fields logrus.Fields, items []CartItemInput, lines []CartLine) {
	for i, it := range items {
		if i >= len(lines) || it.Price.IsZero() || it.Price.Equal(lines[i].UnitPrice) {
			continue
		}
		utils.InfoLogger.WithFields(fields).WithFields(logrus.Fields{
			"product_id":   it.ProductID,
			"client_price": it.Price.StringFixed(2),
			"server_price": lines[i].UnitPrice.StringFixed(2),
		}).Info("client price differs from menu price")
	}
}
