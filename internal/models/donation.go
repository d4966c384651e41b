package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Donation is an append-only record of a donor debit.
type Donation struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID       uint64  `gorm:"not null;index"` // Donor.
	CouponTypeID *uint64 `gorm:"index"`          // Target pool's coupon type; nil for need donations.
	NeedID       *uint64 `gorm:"index"`          // Target need, when directed at one.

	Amount decimal.Decimal `gorm:"type:decimal(20,4);not null"` // Donated amount.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}

// Transfer is an append-only record of a peer balance movement.
type Transfer struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	SenderID   uint64 `gorm:"not null;index"` // Debited account.
	ReceiverID uint64 `gorm:"not null;index"` // Credited account.

	Amount decimal.Decimal `gorm:"type:decimal(20,4);not null"` // Moved amount.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// MoneyFlow types recorded in the audit trail.
const (
	FlowDonation     = "donation"
	FlowNeedDonation = "need_donation"
	FlowTransferOut  = "transfer_out"
	FlowTransferIn   = "transfer_in"
	FlowTopUp        = "topup"
	FlowRedemption   = "redemption"
)

// MoneyFlow records a single balance mutation with before/after snapshots.
type MoneyFlow struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID          *uint64 `gorm:"index"`                           // Affected account.
	TransactionType string  `gorm:"type:varchar(32);not null;index"` // Flow type.

	Amount        decimal.Decimal `gorm:"type:decimal(20,4);not null"` // Mutation size.
	BalanceBefore decimal.Decimal `gorm:"type:decimal(20,4);not null"` // Balance before the mutation.
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(20,4);not null"` // Balance after the mutation.

	RelatedID   *uint64 // Related record (donation, transfer, coupon).
	Description string  `gorm:"type:text"` // Human readable note.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}
