package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yeremiapane/branch-ordering/models"
	"github.com/yeremiapane/branch-ordering/utils"
)

// NewOrder carries everything needed to persist a paid order. TotalAmount is
// stored as given.
type NewOrder struct {
	BranchID      uint
	CustomerName  string
	CustomerPhone string
	OrderType     string
	TableNumber   *string
	CarType       *string
	CarColor      *string
	CarPlate      *string
	MetaData      datatypes.JSON
	Lines         []CartLine
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	PromotionCode *string
	TotalAmount   decimal.Decimal
	PaymentMethod string
	PaymentStatus string
	TransactionID string
}

type OrderService struct {
	db        *gorm.DB
	notifier  *OrderNotifier
	txTimeout time.Duration
}

func NewOrderService(db *gorm.DB, notifier *OrderNotifier, txTimeout time.Duration) *OrderService {
	if txTimeout <= 0 {
		txTimeout = 10 * time.Second
	}
	return &OrderService{db: db, notifier: notifier, txTimeout: txTimeout}
}

// CreateOrder writes the order and its items in one transaction and then
// announces it on the branch channel. A transaction id that was already
// stored returns the existing order and announces nothing.
func (s *OrderService) CreateOrder(ctx context.Context, in NewOrder) (*models.Order, error) {
	if len(in.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	if in.TransactionID == "" {
		return nil, errors.New("transaction id is required")
	}

	if existing, err := s.FindByTransaction(ctx, in.BranchID, in.TransactionID); err == nil {
		s.logReplay(existing)
		return existing, nil
	} else if !errors.Is(err, ErrOrderNotFound) {
		return nil, err
	}

	order := models.Order{
		BranchID:       in.BranchID,
		CustomerName:   in.CustomerName,
		CustomerPhone:  in.CustomerPhone,
		OrderType:      in.OrderType,
		TableNumber:    in.TableNumber,
		CarType:        in.CarType,
		CarColor:       in.CarColor,
		CarPlate:       in.CarPlate,
		MetaData:       in.MetaData,
		Subtotal:       in.Subtotal,
		DiscountAmount: in.Discount,
		PromotionCode:  in.PromotionCode,
		TotalAmount:    in.TotalAmount,
		PaymentMethod:  in.PaymentMethod,
		PaymentStatus:  in.PaymentStatus,
		TransactionID:  in.TransactionID,
		Status:         models.OrderStatusNew,
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	err := s.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("OrderItems").Create(&order).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		items := make([]models.OrderItem, 0, len(in.Lines))
		for _, l := range in.Lines {
			item := models.OrderItem{
				OrderID:        order.ID,
				ProductID:      l.ProductID,
				ProductName:    l.ProductName,
				Quantity:       l.Quantity,
				Price:          l.UnitPrice,
				OptionsDetails: l.Options,
			}
			if err := tx.Omit("Order").Create(&item).Error; err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
			items = append(items, item)
		}
		order.OrderItems = items
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a race with a concurrent replay of the same payment.
			if existing, findErr := s.FindByTransaction(ctx, in.BranchID, in.TransactionID); findErr == nil {
				s.logReplay(existing)
				return existing, nil
			}
		}
		utils.ErrorLogger.WithFields(logrus.Fields{
			"branch_id":      in.BranchID,
			"transaction_id": in.TransactionID,
		}).Errorf("order transaction rolled back: %v", err)
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"branch_id": order.BranchID,
		"total":     order.TotalAmount.StringFixed(2),
		"items":     len(order.OrderItems),
	}).Info("order created")

	s.notifier.NewOrder(ctx, &order)
	return &order, nil
}

// GetOrder loads an order of the branch together with its items.
func (s *OrderService) GetOrder(ctx context.Context, branchID, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("OrderItems").
		Where("id = ? AND branch_id = ?", orderID, branchID).
		First(&order).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByTransaction returns the branch's order paid by transactionID.
func (s *OrderService) FindByTransaction(ctx context.Context, branchID uint, transactionID string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("OrderItems").
		Where("branch_id = ? AND transaction_id = ?", branchID, transactionID).
		First(&order).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("look up transaction: %w", err)
	}
	return &order, nil
}

func (s *OrderService) logReplay(order *models.Order) {
	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id":       order.ID,
		"transaction_id": order.TransactionID,
	}).Info("payment already recorded, returning existing order")
}
