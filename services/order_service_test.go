package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yeremiapane/branch-ordering/kds"
	"github.com/yeremiapane/branch-ordering/models"
)

func newOrderInput(m *testMenu, transactionID string) NewOrder {
	return NewOrder{
		BranchID:      m.branch.ID,
		CustomerName:  "Sara",
		CustomerPhone: "0500000000",
		OrderType:     models.OrderTypeDineIn,
		TableNumber:   strPtr("7"),
		Lines: []CartLine{
			{ProductID: m.latte.ID, CategoryID: m.drinks.ID, ProductName: "Latte", Quantity: 2, UnitPrice: dec("12.00"),
				Options: []models.SelectedOption{{Group: "Size", Name: "Large", Price: dec("2.00")}}},
			{ProductID: m.tea.ID, CategoryID: m.drinks.ID, ProductName: "Tea", Quantity: 1, UnitPrice: dec("6.00")},
			{ProductID: m.tea.ID, CategoryID: m.drinks.ID, ProductName: "Tea", Quantity: 3, UnitPrice: dec("6.00")},
		},
		Subtotal:      dec("48.00"),
		Discount:      dec("0"),
		TotalAmount:   dec("48.00"),
		PaymentMethod: "card",
		PaymentStatus: models.PaymentStatusPaid,
		TransactionID: transactionID,
	}
}

func strPtr(s string) *string { return &s }

func countOrders(t *testing.T, db *gorm.DB) (orders, items int64) {
	t.Helper()
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	require.NoError(t, db.Model(&models.OrderItem{}).Count(&items).Error)
	return orders, items
}

func TestCreateOrder_WritesOrderAndItems(t *testing.T) {
	m := seedMenu(t)
	pub := &recordingPublisher{}
	svc := NewOrderService(m.db, NewOrderNotifier(pub), time.Second)

	order, err := svc.CreateOrder(context.Background(), newOrderInput(m, "MOCK_1"))
	require.NoError(t, err)

	orders, items := countOrders(t, m.db)
	assert.Equal(t, int64(1), orders)
	assert.Equal(t, int64(3), items)
	assert.Equal(t, models.OrderStatusNew, order.Status)

	stored, err := svc.GetOrder(context.Background(), m.branch.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "48.00", stored.TotalAmount.StringFixed(2))
	require.Len(t, stored.OrderItems, 3)
	assert.Equal(t, "Large", stored.OrderItems[0].OptionsDetails[0].Name)
	assert.Equal(t, "12.00", stored.OrderItems[0].Price.StringFixed(2))

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "branch_1", msgs[0].Channel)
	assert.Equal(t, kds.EventNewOrder, msgs[0].Event)
}

func TestCreateOrder_RollsBackOnMidTransactionFailure(t *testing.T) {
	m := seedMenu(t)
	pub := &recordingPublisher{}
	svc := NewOrderService(m.db, NewOrderNotifier(pub), time.Second)

	inserted := 0
	err := m.db.Callback().Create().Before("gorm:create").Register("test:fail_second_item", func(tx *gorm.DB) {
		if tx.Statement.Table != "order_items" {
			return
		}
		inserted++
		if inserted == 2 {
			tx.AddError(errors.New("disk full"))
		}
	})
	require.NoError(t, err)
	t.Cleanup(func() { m.db.Callback().Create().Remove("test:fail_second_item") })

	_, err = svc.CreateOrder(context.Background(), newOrderInput(m, "MOCK_2"))
	require.Error(t, err)

	orders, items := countOrders(t, m.db)
	assert.Zero(t, orders)
	assert.Zero(t, items)
	assert.Empty(t, pub.Messages())
}

func TestCreateOrder_ReplayedTransactionReturnsExistingOrder(t *testing.T) {
	m := seedMenu(t)
	pub := &recordingPublisher{}
	svc := NewOrderService(m.db, NewOrderNotifier(pub), time.Second)

	first, err := svc.CreateOrder(context.Background(), newOrderInput(m, "pay_123"))
	require.NoError(t, err)
	second, err := svc.CreateOrder(context.Background(), newOrderInput(m, "pay_123"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	orders, items := countOrders(t, m.db)
	assert.Equal(t, int64(1), orders)
	assert.Equal(t, int64(3), items)
	assert.Len(t, pub.Messages(), 1)
}

func TestCreateOrder_NotifierFailureKeepsOrder(t *testing.T) {
	tests := []struct {
		name string
		pub  *recordingPublisher
	}{
		{"publisher error", &recordingPublisher{err: errBrokerDown}},
		{"publisher panic", &recordingPublisher{panicMsg: "socket closed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := seedMenu(t)
			svc := NewOrderService(m.db, NewOrderNotifier(tt.pub), time.Second)

			order, err := svc.CreateOrder(context.Background(), newOrderInput(m, "MOCK_3"))
			require.NoError(t, err)
			require.NotZero(t, order.ID)

			orders, items := countOrders(t, m.db)
			assert.Equal(t, int64(1), orders)
			assert.Equal(t, int64(3), items)
		})
	}
}

func TestCreateOrder_RejectsEmptyCart(t *testing.T) {
	m := seedMenu(t)
	svc := NewOrderService(m.db, nil, time.Second)

	in := newOrderInput(m, "MOCK_4")
	in.Lines = nil
	_, err := svc.CreateOrder(context.Background(), in)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestGetOrder_ScopedToBranch(t *testing.T) {
	m := seedMenu(t)
	other := seedBranch(t, m.db, "dammam")
	svc := NewOrderService(m.db, nil, time.Second)

	order, err := svc.CreateOrder(context.Background(), newOrderInput(m, "MOCK_5"))
	require.NoError(t, err)

	_, err = svc.GetOrder(context.Background(), other.ID, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
