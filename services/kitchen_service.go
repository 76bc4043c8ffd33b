package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/branch-ordering/models"
	"github.com/yeremiapane/branch-ordering/utils"
)

// previousStatus maps each target status to the only status it may be reached from.
var previousStatus = map[string]string{
	models.OrderStatusPreparing: models.OrderStatusNew,
	models.OrderStatusReady:     models.OrderStatusPreparing,
}

type StatusChange struct {
	OrderID       uint
	StaffBranchID uint
	Status        string
	PrepTime      *int
}

type KitchenService struct {
	db       *gorm.DB
	notifier *OrderNotifier
}

func NewKitchenService(db *gorm.DB, notifier *OrderNotifier) *KitchenService {
	return &KitchenService{db: db, notifier: notifier}
}

// ActiveOrders lists the branch's new and preparing orders, oldest first.
func (s *KitchenService) ActiveOrders(ctx context.Context, branchID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("OrderItems").
		Where("branch_id = ? AND status IN ?", branchID, []string{models.OrderStatusNew, models.OrderStatusPreparing}).
		Order("created_at ASC, id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("load active orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus moves an order one step along new -> preparing -> ready.
func (s *KitchenService) UpdateStatus(ctx context.Context, change StatusChange) (*models.Order, error) {
	switch change.Status {
	case models.OrderStatusNew, models.OrderStatusPreparing, models.OrderStatusReady:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, change.Status)
	}
	from, ok := previousStatus[change.Status]
	if !ok {
		return nil, fmt.Errorf("%w: cannot move an order back to %s", ErrInvalidTransition, change.Status)
	}

	updates := map[string]interface{}{
		"status":     change.Status,
		"updated_at": time.Now(),
	}
	if change.Status == models.OrderStatusPreparing && change.PrepTime != nil {
		if *change.PrepTime <= 0 {
			return nil, ErrInvalidPrepTime
		}
		updates["prep_time_minutes"] = *change.PrepTime
	}

	// The status guard in the WHERE clause makes concurrent updates race safely:
	// only one of them can match the row.
	res := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND branch_id = ? AND status = ?", change.OrderID, change.StaffBranchID, from).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update order status: %w", res.Error)
	}

	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, change.OrderID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if res.RowsAffected == 0 {
		fields := logrus.Fields{
			"order_id":        change.OrderID,
			"staff_branch_id": change.StaffBranchID,
			"status":          change.Status,
		}
		if order.BranchID != change.StaffBranchID {
			utils.ErrorLogger.WithFields(fields).Warn("status update rejected: branch mismatch")
			return nil, ErrBranchMismatch
		}
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidTransition, order.Status)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"status":   order.Status,
	}).Info("order status updated")

	s.notifier.StatusChanged(ctx, &order)
	return &order, nil
}
