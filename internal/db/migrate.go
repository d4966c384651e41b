package db

import (
	"fmt"

	"github.com/payda-app/payda/internal/models"
	"gorm.io/gorm"
)

// ledgerModels lists every table owned by the ledger, parents before children.
func ledgerModels() []any {
	return []any{
		&models.Setting{},
		&models.User{},
		&models.Merchant{},
		&models.CouponType{},
		&models.Pool{},
		&models.Coupon{},
		&models.Donation{},
		&models.Transfer{},
		&models.MoneyFlow{},
		&models.Need{},
		&models.MerchantDailyEarnings{},
		&models.AutoDonationRule{},
		&models.RuleRun{},
	}
}

// Migrate creates or updates the ledger schema.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	for _, model := range ledgerModels() {
		if errMigrate := conn.AutoMigrate(model); errMigrate != nil {
			return fmt.Errorf("db: migrate %T: %w", model, errMigrate)
		}
	}
	return nil
}
