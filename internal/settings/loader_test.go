package settings

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/payda-app/payda/internal/models"
	"gorm.io/gorm"
)

func openSettingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		t.Fatalf("sql db: %v", errDB)
	}
	sqlDB.SetMaxOpenConns(1)
	if errMigrate := conn.AutoMigrate(&models.Setting{}); errMigrate != nil {
		t.Fatalf("migrate settings: %v", errMigrate)
	}
	return conn
}

func TestPutRefreshesSnapshot(t *testing.T) {
	t.Cleanup(func() { StoreDBConfig(time.Time{}, nil) })
	conn := openSettingsTestDB(t)
	ctx := context.Background()

	if errPut := Put(ctx, conn, MerchantDailyLimitKey, 3000); errPut != nil {
		t.Fatalf("put: %v", errPut)
	}
	if got := IntValue(MerchantDailyLimitKey, DefaultMerchantDailyLimit); got != 3000 {
		t.Fatalf("expected 3000, got %d", got)
	}

	if errPut := Put(ctx, conn, MerchantDailyLimitKey, 4500); errPut != nil {
		t.Fatalf("put overwrite: %v", errPut)
	}
	if got := IntValue(MerchantDailyLimitKey, DefaultMerchantDailyLimit); got != 4500 {
		t.Fatalf("expected 4500 after overwrite, got %d", got)
	}

	var count int64
	if errCount := conn.Model(&models.Setting{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count settings: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected a single settings row, got %d", count)
	}
}

func TestRefreshDBConfigSnapshotRejectsNilDB(t *testing.T) {
	if err := RefreshDBConfigSnapshot(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil db")
	}
}
