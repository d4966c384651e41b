package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is an account-bearing participant: donor, beneficiary, merchant account or staff.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name     string `gorm:"type:text;not null;index"` // Display name.
	Email    string `gorm:"type:text;index"`          // Contact email.
	Password string `gorm:"type:text"`                // Bcrypt hash, empty when login is disabled.

	Role       Role            `gorm:"type:varchar(32);not null;default:donor;index"` // Account role.
	Balance    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`         // Wallet balance, never negative.
	Priority   int             `gorm:"not null;default:0;index"`                      // Urgency score 0-100.
	IsVerified bool            `gorm:"not null;default:false"`                        // Poverty/identity verification flag.

	Phone   string `gorm:"type:text"` // Optional phone.
	Address string `gorm:"type:text"` // Optional address.
	Bio     string `gorm:"type:text"` // Optional profile text.

	MaxDailyDonation decimal.Decimal `gorm:"type:decimal(20,4);not null;default:1000"` // Informational daily cap, not enforced.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
