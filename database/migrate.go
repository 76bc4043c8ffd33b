package database

import (
	"gorm.io/gorm"

	"github.com/yeremiapane/branch-ordering/models"
	"github.com/yeremiapane/branch-ordering/utils"
)

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Branch{},
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.OptionGroup{},
		&models.Promotion{},
		&models.Order{},
		&models.OrderItem{},
	)
	if err != nil {
		return err
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}
