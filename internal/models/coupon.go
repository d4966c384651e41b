package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CouponType defines a merchant's unit coupon.
type CouponType struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	MerchantID uint64    `gorm:"not null;index"`        // Owning merchant.
	Merchant   *Merchant `gorm:"foreignKey:MerchantID"` // Owning merchant record.

	Name     string          `gorm:"type:text;not null"`              // Display name.
	Amount   decimal.Decimal `gorm:"type:decimal(20,4);not null"`     // Face value of one coupon.
	Category string          `gorm:"type:varchar(64);not null;index"` // Spending category.

	Pool *Pool `gorm:"foreignKey:CouponTypeID"` // Funding pool (1:1).

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// Pool accumulates donations for one coupon type.
type Pool struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	CouponTypeID uint64 `gorm:"not null;uniqueIndex"` // Owning coupon type.

	TargetAmount   decimal.Decimal `gorm:"type:decimal(20,4);not null"`           // Funding required per coupon.
	CurrentBalance decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"` // Uncommitted funding.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// CouponStatus is the coupon lifecycle state.
type CouponStatus string

// Coupon lifecycle states.
const (
	// CouponCreated is minted and unassigned.
	CouponCreated CouponStatus = "created"
	// CouponAssigned is bound to a beneficiary.
	CouponAssigned CouponStatus = "assigned"
	// CouponUsed is redeemed and terminal.
	CouponUsed CouponStatus = "used"
)

// Coupon is one redeemable unit of merchant value.
type Coupon struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Code string `gorm:"type:varchar(36);not null;uniqueIndex"` // Redemption code.

	CouponTypeID uint64      `gorm:"not null;index"`          // Coupon type.
	CouponType   *CouponType `gorm:"foreignKey:CouponTypeID"` // Coupon type record.

	BeneficiaryID *uint64 `gorm:"index"`                    // Assigned beneficiary.
	Beneficiary   *User   `gorm:"foreignKey:BeneficiaryID"` // Assigned beneficiary record.

	NeedID *uint64 `gorm:"index"` // Need that produced this coupon, if any.

	Status CouponStatus `gorm:"type:varchar(16);not null;default:created;index"` // Lifecycle state.

	CreatedAt time.Time  `gorm:"not null;autoCreateTime"` // Mint timestamp.
	UsedAt    *time.Time // Redemption timestamp.
}
