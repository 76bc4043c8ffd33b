package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/branch-ordering/kds"
	"github.com/yeremiapane/branch-ordering/models"
	"github.com/yeremiapane/branch-ordering/utils"
)

const notifyTimeout = 5 * time.Second

// OrderNotifier pushes order events to kitchen staff and customers. Delivery
// is best effort: failures are logged and never reach the caller.
type OrderNotifier struct {
	publisher kds.Publisher
}

func NewOrderNotifier(p kds.Publisher) *OrderNotifier {
	return &OrderNotifier{publisher: p}
}

type newOrderEvent struct {
	OrderID      uint               `json:"order_id"`
	CustomerName string             `json:"customer_name"`
	TotalAmount  string             `json:"total_amount"`
	Items        []models.OrderItem `json:"items"`
	OrderType    string             `json:"order_type"`
	TableNumber  *string            `json:"table_number"`
	CarDetails   *string            `json:"car_details"`
}

type statusEvent struct {
	OrderID  uint   `json:"order_id"`
	Status   string `json:"status"`
	PrepTime *int   `json:"prep_time"`
}

func (n *OrderNotifier) NewOrder(ctx context.Context, order *models.Order) {
	event := newOrderEvent{
		OrderID:      order.ID,
		CustomerName: order.CustomerName,
		TotalAmount:  utils.FormatAmount(order.TotalAmount),
		Items:        order.OrderItems,
		OrderType:    order.OrderType,
		TableNumber:  order.TableNumber,
	}
	if details := order.CarDetails(); details != "" {
		event.CarDetails = &details
	}
	n.publish(ctx, models.BranchChannel(order.BranchID), kds.EventNewOrder, event)
}

func (n *OrderNotifier) StatusChanged(ctx context.Context, order *models.Order) {
	n.publish(ctx, models.OrderChannel(order.ID), kds.EventOrderStatus, statusEvent{
		OrderID:  order.ID,
		Status:   order.Status,
		PrepTime: order.PrepTimeMinutes,
	})
	if order.Status == models.OrderStatusReady {
		n.publish(ctx, models.BranchChannel(order.BranchID), kds.EventOrderReady, map[string]uint{
			"order_id": order.ID,
		})
	}
}

func (n *OrderNotifier) publish(ctx context.Context, channel, event string, data interface{}) {
	if n == nil || n.publisher == nil {
		return
	}
	fields := logrus.Fields{"channel": channel, "event": event}
	defer func() {
		if r := recover(); r != nil {
			utils.ErrorLogger.WithFields(fields).Errorf("notifier panic: %v", r)
		}
	}()

	// The request may finish before slow publishers do.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := n.publisher.Publish(ctx, channel, event, data); err != nil {
		utils.ErrorLogger.WithFields(fields).Errorf("failed to publish notification: %v", err)
		return
	}
	utils.InfoLogger.WithFields(fields).Debug("notification published")
}
