package seed

import (
	"testing"

	"github.com/payda-app/payda/internal/db"
	"github.com/payda-app/payda/internal/ledger"
	"github.com/payda-app/payda/internal/models"
	"github.com/payda-app/payda/internal/security"
	"github.com/shopspring/decimal"
)

func newEngine(t *testing.T) *ledger.Engine {
	t.Helper()
	conn, errOpen := db.Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	t.Cleanup(func() {
		if sqlDB, errDB := conn.DB(); errDB == nil {
			_ = sqlDB.Close()
		}
	})
	return ledger.NewEngine(conn)
}

func TestDemoPopulatesEmptyDatabase(t *testing.T) {
	engine := newEngine(t)

	summary, errSeed := Demo(t.Context(), engine, "")
	if errSeed != nil {
		t.Fatalf("seed: %v", errSeed)
	}
	if summary.Skipped {
		t.Fatalf("expected seed to run on empty database")
	}
	if summary.Users != len(demoUsers) || summary.Merchants != len(demoMerchants) || summary.CouponTypes != len(demoCouponTypes) {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	var donor models.User
	if errFind := engine.DB().Where("email = ?", "ahmet@payda.local").First(&donor).Error; errFind != nil {
		t.Fatalf("find donor: %v", errFind)
	}
	if !donor.Balance.Equal(decimal.RequireFromString("3780")) {
		t.Fatalf("expected donor balance 3780 after demo donations, got %s", donor.Balance)
	}
	if !security.CheckPassword(donor.Password, DefaultPassword) {
		t.Fatalf("expected demo password to verify")
	}

	var coupons int64
	if errCount := engine.DB().Model(&models.Coupon{}).Count(&coupons).Error; errCount != nil {
		t.Fatalf("count coupons: %v", errCount)
	}
	// 120 into a 50 pool mints two; 300 into a 150 pool mints two.
	if coupons != 4 {
		t.Fatalf("expected 4 minted coupons, got %d", coupons)
	}
}

func TestDemoSkipsPopulatedDatabase(t *testing.T) {
	engine := newEngine(t)
	if errCreate := engine.DB().Create(&models.User{Name: "existing", Role: models.RoleDonor}).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}

	summary, errSeed := Demo(t.Context(), engine, "pw")
	if errSeed != nil {
		t.Fatalf("seed: %v", errSeed)
	}
	if !summary.Skipped {
		t.Fatalf("expected seed to skip populated database")
	}
	var merchants int64
	engine.DB().Model(&models.Merchant{}).Count(&merchants)
	if merchants != 0 {
		t.Fatalf("expected no merchants, got %d", merchants)
	}
}
