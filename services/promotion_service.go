package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/branch-ordering/models"
	"github.com/yeremiapane/branch-ordering/utils"
)

const dateLayout = "2006-01-02"

// PromotionInput is the admin form for a promotion. Dates use YYYY-MM-DD and
// may be empty.
type PromotionInput struct {
	Code          string          `json:"code"`
	Type          string          `json:"type"`
	Value         decimal.Decimal `json:"value"`
	StartDate     string          `json:"start_date"`
	EndDate       string          `json:"end_date"`
	IsActive      *bool           `json:"is_active"`
	IsAutoApplied bool            `json:"is_auto_applied"`
	TargetType    string          `json:"target_type"`
	TargetID      *uint           `json:"target_id"`
}

type PromotionService struct {
	db          *gorm.DB
	invalidator PromotionInvalidator
}

func NewPromotionService(db *gorm.DB, invalidator PromotionInvalidator) *PromotionService {
	return &PromotionService{db: db, invalidator: invalidator}
}

func (s *PromotionService) List(ctx context.Context, branchID uint) ([]models.Promotion, error) {
	var promos []models.Promotion
	if err := s.db.WithContext(ctx).Where("branch_id = ?", branchID).Order("created_at DESC, id DESC").Find(&promos).Error; err != nil {
		return nil, err
	}
	return promos, nil
}

func (s *PromotionService) Create(ctx context.Context, branchID uint, in PromotionInput) (*models.Promotion, error) {
	promo := models.Promotion{BranchID: branchID, IsActive: true}
	if err := s.apply(ctx, &promo, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&promo).Error; err != nil {
		return nil, translatePromoErr(err)
	}
	s.invalidate(ctx, branchID, "created", promo.ID)
	return &promo, nil
}

func (s *PromotionService) Update(ctx context.Context, branchID, id uint, in PromotionInput) (*models.Promotion, error) {
	promo, err := s.find(ctx, branchID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, promo, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Omit("Branch").Save(promo).Error; err != nil {
		return nil, translatePromoErr(err)
	}
	s.invalidate(ctx, branchID, "updated", promo.ID)
	return promo, nil
}

func (s *PromotionService) Delete(ctx context.Context, branchID, id uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND branch_id = ?", id, branchID).Delete(&models.Promotion{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPromotionNotFound
	}
	s.invalidate(ctx, branchID, "deleted", id)
	return nil
}

func (s *PromotionService) find(ctx context.Context, branchID, id uint) (*models.Promotion, error) {
	var promo models.Promotion
	if err := s.db.WithContext(ctx).Where("id = ? AND branch_id = ?", id, branchID).First(&promo).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrPromotionNotFound
		}
		return nil, err
	}
	return &promo, nil
}

// apply validates in and copies it onto promo.
func (s *PromotionService) apply(ctx context.Context, promo *models.Promotion, in PromotionInput) error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalidPromotion, fmt.Sprintf(format, args...))
	}

	switch in.Type {
	case models.PromotionTypePercentage:
		if in.Value.GreaterThan(hundred) {
			return invalid("percentage cannot exceed 100")
		}
	case models.PromotionTypeFixed:
	default:
		return invalid("type must be percentage or fixed")
	}
	if in.Value.IsNegative() {
		return invalid("value cannot be negative")
	}

	targetType := in.TargetType
	if targetType == "" {
		targetType = models.PromotionTargetOrder
	}
	var targetID *uint
	switch targetType {
	case models.PromotionTargetOrder:
	case models.PromotionTargetCategory, models.PromotionTargetProduct:
		if in.TargetID == nil {
			return invalid("target_id is required for %s promotions", targetType)
		}
		if err := s.checkTarget(ctx, promo.BranchID, targetType, *in.TargetID); err != nil {
			return err
		}
		id := *in.TargetID
		targetID = &id
	default:
		return invalid("target_type must be order, category or product")
	}

	start, err := parseDate(in.StartDate)
	if err != nil {
		return invalid("start_date: %v", err)
	}
	end, err := parseDate(in.EndDate)
	if err != nil {
		return invalid("end_date: %v", err)
	}
	if start != nil && end != nil && end.Before(*start) {
		return invalid("end_date is before start_date")
	}

	code := strings.TrimSpace(in.Code)
	if code == "" {
		if !in.IsAutoApplied {
			return invalid("code is required unless the promotion is auto-applied")
		}
		code = generateAutoCode()
	}
	var taken int64
	err = s.db.WithContext(ctx).Model(&models.Promotion{}).
		Where("branch_id = ? AND code = ? AND id <> ?", promo.BranchID, code, promo.ID).
		Count(&taken).Error
	if err != nil {
		return err
	}
	if taken > 0 {
		return ErrDuplicatePromo
	}

	promo.Code = code
	promo.Type = in.Type
	promo.Value = in.Value
	promo.StartDate = start
	promo.EndDate = end
	promo.IsAutoApplied = in.IsAutoApplied
	promo.TargetType = targetType
	promo.TargetID = targetID
	if in.IsActive != nil {
		promo.IsActive = *in.IsActive
	}
	return nil
}

func (s *PromotionService) checkTarget(ctx context.Context, branchID uint, targetType string, targetID uint) error {
	var model interface{} = &models.Category{}
	if targetType == models.PromotionTargetProduct {
		model = &models.Product{}
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(model).Where("id = ? AND branch_id = ?", targetID, branchID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %d does not exist in this branch", ErrInvalidPromotion, targetType, targetID)
	}
	return nil
}

func (s *PromotionService) invalidate(ctx context.Context, branchID uint, action string, promoID uint) {
	utils.InfoLogger.WithFields(logrus.Fields{
		"branch_id":    branchID,
		"promotion_id": promoID,
	}).Infof("promotion %s", action)

	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, branchID); err != nil {
		utils.ErrorLogger.WithField("branch_id", branchID).Errorf("promotion cache invalidation failed: %v", err)
	}
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// generateAutoCode returns AUTO- followed by six uppercase characters.
func generateAutoCode() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "AUTO-" + strings.ToUpper(id[:6])
}

func translatePromoErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicatePromo
	}
	return err
}
