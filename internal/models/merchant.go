package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Merchant is a shop that accepts coupons.
type Merchant struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name string `gorm:"type:text;not null;index"` // Display name.

	// BackflowRate is the merchant's own configurable share returned to its pools.
	// It is distinct from the fixed redemption backflow routed to needs.
	BackflowRate decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0.1"`

	UserID *uint64 `gorm:"index"` // Account credited on redemption; defaults to the user sharing the merchant ID.

	CouponTypes []CouponType `gorm:"foreignKey:MerchantID"` // Offered coupon types.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// AccountID returns the ID of the user account that receives redemption revenue.
func (m *Merchant) AccountID() uint64 {
	if m.UserID != nil {
		return *m.UserID
	}
	return m.ID
}
