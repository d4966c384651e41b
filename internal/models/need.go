package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NeedStatus is the lifecycle state of a need.
type NeedStatus string

// Need states.
const (
	NeedActive    NeedStatus = "active"
	NeedCompleted NeedStatus = "completed"
	NeedCancelled NeedStatus = "cancelled"
)

// Need is a standalone funding target created by a beneficiary.
type Need struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Requesting user.
	User   *User  `gorm:"foreignKey:UserID"` // Requesting user record.

	Title       string `gorm:"type:text;not null"`              // Short title.
	Description string `gorm:"type:text"`                       // Details.
	Category    string `gorm:"type:varchar(64);not null;index"` // Spending category.

	TargetAmount  decimal.Decimal `gorm:"type:decimal(20,4);not null"`           // Amount required.
	CurrentAmount decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"` // Amount raised.

	Status NeedStatus `gorm:"type:varchar(16);not null;default:active;index"` // Lifecycle state.

	CreatedAt   time.Time  `gorm:"not null;autoCreateTime"` // Creation timestamp.
	CompletedAt *time.Time // Completion timestamp.
}

// Remaining returns how much is still needed, never negative.
func (n *Need) Remaining() decimal.Decimal {
	gap := n.TargetAmount.Sub(n.CurrentAmount)
	if gap.IsNegative() {
		return decimal.Zero
	}
	return gap
}
