package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/branch-ordering/models"
)

type MenuProduct struct {
	models.Product
	ProductPrice
}

type MenuCategory struct {
	models.Category
	Products []MenuProduct `json:"products"`
}

type Menu struct {
	Branch     models.Branch  `json:"branch"`
	Categories []MenuCategory `json:"categories"`
}

// OptionGroupInput is the admin form for an option group: parallel lists of
// choice names and prices.
type OptionGroupInput struct {
	Name         string   `json:"name" form:"name"`
	Type         string   `json:"type" form:"type"`
	IsRequired   bool     `json:"is_required" form:"is_required"`
	ChoiceNames  []string `json:"choice_names" form:"choice_names[]"`
	ChoicePrices []string `json:"choice_prices" form:"choice_prices[]"`
}

type MenuService struct {
	db         *gorm.DB
	promotions PromotionSource
	now        func() time.Time
}

func NewMenuService(db *gorm.DB, promotions PromotionSource) *MenuService {
	return &MenuService{db: db, promotions: promotions, now: time.Now}
}

// Menu lists the branch's available products by category, priced with the
// auto-applied promotions of today.
func (s *MenuService) Menu(ctx context.Context, branch models.Branch) (*Menu, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Where("branch_id = ?", branch.ID).Order("sort_order ASC, id ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	var products []models.Product
	err := s.db.WithContext(ctx).
		Preload("OptionGroups", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("branch_id = ? AND is_available = ?", branch.ID, true).
		Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	promos, err := s.promotions.ActivePromotions(ctx, branch.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	byCategory := make(map[uint][]MenuProduct)
	for _, p := range products {
		byCategory[p.CategoryID] = append(byCategory[p.CategoryID], MenuProduct{
			Product:      p,
			ProductPrice: PriceProduct(p, AutoPromotionFor(promos, p, now)),
		})
	}

	menu := &Menu{Branch: branch, Categories: make([]MenuCategory, 0, len(categories))}
	for _, c := range categories {
		menu.Categories = append(menu.Categories, MenuCategory{
			Category: c,
			Products: append([]MenuProduct{}, byCategory[c.ID]...),
		})
	}
	return menu, nil
}

// AddOptionGroup attaches an option group to a product of the branch.
func (s *MenuService) AddOptionGroup(ctx context.Context, branchID, productID uint, in OptionGroupInput) (*models.OptionGroup, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: option name is required", ErrInvalidOption)
	}
	kind, err := models.ParseOptionKind(in.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}
	choices := models.ParseChoices(in.ChoiceNames, in.ChoicePrices)
	if len(choices) == 0 {
		return nil, fmt.Errorf("%w: at least one choice is required", ErrInvalidOption)
	}

	var product models.Product
	if err := s.db.WithContext(ctx).Where("id = ? AND branch_id = ?", productID, branchID).First(&product).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	group := models.OptionGroup{
		ProductID:  product.ID,
		Name:       name,
		Kind:       kind,
		IsRequired: in.IsRequired,
		Choices:    choices,
	}
	if err := s.db.WithContext(ctx).Create(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}
