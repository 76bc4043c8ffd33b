package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/yeremiapane/branch-ordering/models"
)

func newCheckout(m *testMenu, pub *recordingPublisher) *CheckoutService {
	orders := NewOrderService(m.db, NewOrderNotifier(pub), time.Second)
	svc := NewCheckoutService(m.db, NewDBPromotionSource(m.db), orders, dec("0.01"))
	svc.now = func() time.Time { return matcherNow }
	return svc
}

func latteCheckout(m *testMenu, total string) *CheckoutInput {
	return &CheckoutInput{
		CustomerName:  "Noura",
		CustomerPhone: "0509999999",
		OrderType:     models.OrderTypeCarPickup,
		MetaData:      datatypes.JSONMap{"car_type": "Tahoe", "color": "Black", "plate": "XYZ 9"},
		CartItems: []CartItemInput{
			{ProductID: m.latte.ID, Quantity: 2, Price: dec("10.00"), Options: []models.SelectedOption{{Name: "Small"}}},
		},
		TotalAmount:   dec(total),
		PaymentMethod: "card",
	}
}

func TestPlaceOrder_FixedProductPromotion(t *testing.T) {
	m := seedMenu(t)
	seedPromotion(t, m.db, models.Promotion{
		BranchID: m.branch.ID, Code: "A3", Type: models.PromotionTypeFixed, Value: dec("3"),
		IsActive: true, TargetType: models.PromotionTargetProduct, TargetID: &m.latte.ID,
	})
	pub := &recordingPublisher{}
	svc := newCheckout(m, pub)

	in := latteCheckout(m, "14.00")
	in.PromoCode = "A3"
	order, err := svc.PlaceOrder(context.Background(), m.branch.ID, MockPaymentVerifier{}, PaymentReference{Checkout: in})
	require.NoError(t, err)

	assert.Equal(t, "20.00", order.Subtotal.StringFixed(2))
	assert.Equal(t, "6.00", order.DiscountAmount.StringFixed(2))
	assert.Equal(t, "14.00", order.TotalAmount.StringFixed(2))
	require.NotNil(t, order.PromotionCode)
	assert.Equal(t, "A3", *order.PromotionCode)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Contains(t, order.TransactionID, "MOCK_")
	assert.Equal(t, "Tahoe - Black (XYZ 9)", order.CarDetails())
	assert.Len(t, pub.Messages(), 1)
}

func TestPlaceOrder_RejectsTotalMismatch(t *testing.T) {
	m := seedMenu(t)
	pub := &recordingPublisher{}
	svc := newCheckout(m, pub)

	// Client claims the latte costs 1.00.
	in := latteCheckout(m, "2.00")
	in.CartItems[0].Price = dec("1.00")
	_, err := svc.PlaceOrder(context.Background(), m.branch.ID, MockPaymentVerifier{}, PaymentReference{Checkout: in})
	require.ErrorIs(t, err, ErrTotalMismatch)

	orders, items := countOrders(t, m.db)
	assert.Zero(t, orders)
	assert.Zero(t, items)
	assert.Empty(t, pub.Messages())
}

func TestPlaceOrder_ToleratesRoundingDifference(t *testing.T) {
	m := seedMenu(t)
	svc := newCheckout(m, &recordingPublisher{})

	order, err := svc.PlaceOrder(context.Background(), m.branch.ID, MockPaymentVerifier{}, PaymentReference{Checkout: latteCheckout(m, "20.01")})
	require.NoError(t, err)
	assert.Equal(t, "20.00", order.TotalAmount.StringFixed(2))
}

func TestPlaceOrder_Rejections(t *testing.T) {
	m := seedMenu(t)
	svc := newCheckout(m, &recordingPublisher{})

	badCode := latteCheckout(m, "20.00")
	badCode.PromoCode = "GHOST"
	noName := latteCheckout(m, "20.00")
	noName.CustomerName = " "
	badType := latteCheckout(m, "20.00")
	badType.OrderType = "delivery"

	tests := []struct {
		name string
		in   *CheckoutInput
		want error
	}{
		{"unknown promo code", badCode, ErrInvalidPromoCode},
		{"missing customer name", noName, ErrInvalidCheckout},
		{"unknown order type", badType, ErrInvalidCheckout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PlaceOrder(context.Background(), m.branch.ID, MockPaymentVerifier{}, PaymentReference{Checkout: tt.in})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPlaceOrder_ProviderCallback(t *testing.T) {
	m := seedMenu(t)
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	body = fmt.Sprintf(`{"id":"pay_777","status":"paid","amount":1200,"source":{"type":"applepay"},"metadata":{
		"branch_id":"%d","customer_name":"Faisal","order_type":"dine_in","table_number":"4",
		"cart_items":"[{\"product_id\":%d,\"quantity\":2,\"price\":6}]"}}`, m.branch.ID, m.tea.ID)

	pub := &recordingPublisher{}
	svc := newCheckout(m, pub)
	verifier := NewProviderPaymentVerifier(ProviderConfig{BaseURL: server.URL, SecretKey: "sk"})

	order, err := svc.PlaceOrder(context.Background(), m.branch.ID, verifier, PaymentReference{PaymentID: "pay_777"})
	require.NoError(t, err)
	assert.Equal(t, "pay_777", order.TransactionID)
	assert.Equal(t, "applepay", order.PaymentMethod)
	assert.Equal(t, "12.00", order.TotalAmount.StringFixed(2))
	require.NotNil(t, order.TableNumber)
	assert.Equal(t, "4", *order.TableNumber)

	// A replayed callback returns the same order and does not notify again,
	// even after the menu changed.
	require.NoError(t, m.db.Model(&m.tea).Update("is_available", false).Error)
	again, err := svc.PlaceOrder(context.Background(), m.branch.ID, verifier, PaymentReference{PaymentID: "pay_777"})
	require.NoError(t, err)
	assert.Equal(t, order.ID, again.ID)
	assert.Len(t, again.OrderItems, 1)
	assert.Len(t, pub.Messages(), 1)

	other := seedBranch(t, m.db, "abha")
	_, err = svc.PlaceOrder(context.Background(), other.ID, verifier, PaymentReference{PaymentID: "pay_777"})
	assert.ErrorIs(t, err, ErrBranchMismatch)
}

func TestValidatePromo(t *testing.T) {
	m := seedMenu(t)
	seedPromotion(t, m.db, models.Promotion{
		BranchID: m.branch.ID, Code: "DRINKS10", Type: models.PromotionTypePercentage, Value: dec("10"),
		IsActive: true, TargetType: models.PromotionTargetCategory, TargetID: &m.drinks.ID,
	})
	svc := newCheckout(m, &recordingPublisher{})

	r, err := svc.ValidatePromo(context.Background(), m.branch.ID, "DRINKS10", dec("26.00"), []PromoCartItem{
		{ProductID: m.latte.ID, Price: dec("10.00"), Quantity: 2},
		{ProductID: m.tea.ID, Price: dec("6.00"), Quantity: 1},
	})
	require.NoError(t, err)
	require.True(t, r.Applied())
	assert.Equal(t, "2.60", r.Discount.StringFixed(2))
	assert.Equal(t, "23.40", r.NewTotal.StringFixed(2))

	r, err = svc.ValidatePromo(context.Background(), m.branch.ID, "DRINKS10", dec("0"), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeEmptyCart, r.Outcome)

	_, err = svc.ValidatePromo(context.Background(), m.branch.ID, "DRINKS10", dec("20.00"), []PromoCartItem{
		{ProductID: m.latte.ID, Price: dec("10.00"), Quantity: -2},
	})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}
