package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// AutoDonationRule replays a fixed donation on behalf of a user.
type AutoDonationRule struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID       uint64 `gorm:"not null;index"` // Donor.
	CouponTypeID uint64 `gorm:"not null;index"` // Target pool's coupon type.

	Amount    decimal.Decimal `gorm:"type:decimal(20,4);not null"`             // Amount per run.
	Frequency string          `gorm:"type:varchar(16);not null;default:daily"` // daily, weekly or monthly.
	IsActive  bool            `gorm:"not null;default:true;index"`             // Whether the runner picks it up.
	LastRun   *time.Time      // Last processing time, regardless of outcome.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// RuleRun stores the outcome of one auto-donation runner pass.
type RuleRun struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Total     int `gorm:"not null;default:0"` // Rules processed.
	Succeeded int `gorm:"not null;default:0"` // Rules that donated.
	Failed    int `gorm:"not null;default:0"` // Rules that errored.

	Results datatypes.JSON `gorm:"type:jsonb"` // Per-rule results.

	StartedAt  time.Time `gorm:"not null;index"` // Pass start.
	FinishedAt time.Time `gorm:"not null"`       // Pass end.
}
