package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MerchantDailyEarnings tracks one merchant's redemption revenue for one calendar day.
type MerchantDailyEarnings struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	MerchantID uint64 `gorm:"not null;uniqueIndex:idx_merchant_daily_earnings_day,priority:1"`                  // Merchant.
	Day        string `gorm:"type:varchar(10);not null;uniqueIndex:idx_merchant_daily_earnings_day,priority:2"` // Calendar day, YYYY-MM-DD.

	DailyEarnings    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`    // Revenue today.
	DailyLimit       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:2000"` // Cap for today.
	TotalEarnings    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`    // Revenue recorded on this row.
	TotalDonatedBack decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`    // Backflow recorded on this row.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
