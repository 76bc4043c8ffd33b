package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/branch-ordering/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Branch{},
		&models.Category{},
		&models.Product{},
		&models.OptionGroup{},
		&models.Promotion{},
		&models.Order{},
		&models.OrderItem{},
		&models.User{},
	))
	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func uintPtr(v uint) *uint { return &v }

func intPtr(v int) *int { return &v }

func seedBranch(t *testing.T, db *gorm.DB, subdomain string) models.Branch {
	t.Helper()
	b := models.Branch{Name: "Branch " + subdomain, Subdomain: subdomain, IsActive: true}
	require.NoError(t, db.Create(&b).Error)
	return b
}

func seedCategory(t *testing.T, db *gorm.DB, branchID uint, name string) models.Category {
	t.Helper()
	c := models.Category{BranchID: branchID, Name: name}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func seedProduct(t *testing.T, db *gorm.DB, branchID, categoryID uint, name, price string) models.Product {
	t.Helper()
	p := models.Product{BranchID: branchID, CategoryID: categoryID, Name: name, BasePrice: dec(price), IsAvailable: true}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func seedPromotion(t *testing.T, db *gorm.DB, p models.Promotion) models.Promotion {
	t.Helper()
	require.NoError(t, db.Create(&p).Error)
	return p
}

type publishedMessage struct {
	Channel string
	Event   string
	Data    interface{}
}

// recordingPublisher captures published messages and can be told to fail.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	err      error
	panicMsg string
}

func (p *recordingPublisher) Publish(_ context.Context, channel, event string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, publishedMessage{Channel: channel, Event: event, Data: data})
	return nil
}

func (p *recordingPublisher) Messages() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedMessage(nil), p.messages...)
}

var errBrokerDown = errors.New("broker down")

type testMenu struct {
	db     *gorm.DB
	branch models.Branch
	drinks models.Category
	latte  models.Product
	tea    models.Product
}

// seedMenu creates one branch with a latte (required size, optional extras)
// and a plain tea.
func seedMenu(t *testing.T) *testMenu {
	t.Helper()
	db := setupTestDB(t)
	branch := seedBranch(t, db, "riyadh")
	drinks := seedCategory(t, db, branch.ID, "Drinks")
	latte := seedProduct(t, db, branch.ID, drinks.ID, "Latte", "10.00")
	tea := seedProduct(t, db, branch.ID, drinks.ID, "Tea", "6.00")

	size := models.OptionGroup{
		ProductID:  latte.ID,
		Name:       "Size",
		Kind:       models.OptionKindSize,
		IsRequired: true,
		Choices: []models.OptionChoice{
			{Name: "Small", Price: dec("0")},
			{Name: "Large", Price: dec("2.00")},
		},
	}
	extras := models.OptionGroup{
		ProductID: latte.ID,
		Name:      "Extras",
		Kind:      models.OptionKindAddon,
		Choices: []models.OptionChoice{
			{Name: "Vanilla", Price: dec("0.50")},
			{Name: "Extra shot", Price: dec("1.00")},
		},
	}
	require.NoError(t, db.Create(&size).Error)
	require.NoError(t, db.Create(&extras).Error)

	return &testMenu{db: db, branch: branch, drinks: drinks, latte: latte, tea: tea}
}
