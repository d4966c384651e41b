package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/payda-app/payda/internal/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DefaultMerchantBackflowRate is the backflow rate given to merchants created
// without an explicit one.
var DefaultMerchantBackflowRate = decimal.RequireFromString("0.10")

// CouponTypeSpec describes a new coupon type and its pool.
type CouponTypeSpec struct {
	MerchantID   uint64
	Name         string
	Category     string
	Amount       decimal.Decimal
	TargetAmount decimal.Decimal // Defaults to Amount when zero.
}

// CreateCouponType registers a coupon type together with its empty pool.
func (e *Engine) CreateCouponType(ctx context.Context, spec CouponTypeSpec) (*models.CouponType, error) {
	name := strings.TrimSpace(spec.Name)
	category := strings.TrimSpace(spec.Category)
	target := spec.TargetAmount
	if target.IsZero() {
		target = spec.Amount
	}
	if name == "" || category == "" || !spec.Amount.IsPositive() || !target.IsPositive() {
		return nil, ErrInvalidCouponTypeSpec
	}

	var couponType models.CouponType
	errTx := e.inTx(ctx, func(tx *gorm.DB) error {
		merchant, err := findMerchant(tx, spec.MerchantID)
		if err != nil {
			return err
		}
		couponType = models.CouponType{
			MerchantID: merchant.ID,
			Name:       name,
			Amount:     spec.Amount,
			Category:   category,
		}
		if errCreate := tx.Create(&couponType).Error; errCreate != nil {
			return errCreate
		}
		pool := models.Pool{CouponTypeID: couponType.ID, TargetAmount: target, CurrentBalance: decimal.Zero}
		if errCreate := tx.Create(&pool).Error; errCreate != nil {
			return errCreate
		}
		couponType.Merchant = merchant
		couponType.Pool = &pool
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return &couponType, nil
}

// CreateMerchant registers a merchant, optionally linked to the account that
// receives its redemption revenue.
func (e *Engine) CreateMerchant(ctx context.Context, name string, accountID *uint64, backflowRate decimal.Decimal) (*models.Merchant, error) {
	name = strings.TrimSpace(name)
	if backflowRate.IsZero() {
		backflowRate = DefaultMerchantBackflowRate
	}
	if name == "" || backflowRate.IsNegative() || backflowRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, ErrInvalidMerchantSpec
	}
	merchant := models.Merchant{Name: name, UserID: accountID, BackflowRate: backflowRate}
	errTx := e.inTx(ctx, func(tx *gorm.DB) error {
		if accountID != nil {
			if _, err := lockUser(tx, *accountID); err != nil {
				return err
			}
		}
		return tx.Create(&merchant).Error
	})
	if errTx != nil {
		return nil, errTx
	}
	return &merchant, nil
}

// BackflowResult is returned by MerchantBackflow.
type BackflowResult struct {
	CouponID       uint64          `json:"coupon_id"`
	PoolID         uint64          `json:"pool_id"`
	BackflowAmount decimal.Decimal `json:"backflow_amount"`
	PoolBalance    decimal.Decimal `json:"pool_balance"`
	MintedCoupons  []MintedCoupon  `json:"minted_coupons"`
}

// MerchantBackflow returns the merchant's configured share of a used coupon's value
// to that coupon type's pool. The merchant's balance is not debited.
func (e *Engine) MerchantBackflow(ctx context.Context, couponID uint64) (*BackflowResult, error) {
	var result *BackflowResult
	errTx := e.inTx(ctx, func(tx *gorm.DB) error {
		coupon, err := lockCoupon(tx, couponID)
		if err != nil {
			return err
		}
		if coupon.Status != models.CouponUsed {
			return ErrCouponNotUsed.withf("coupon %d is %s", coupon.ID, coupon.Status)
		}
		couponType, err := findCouponType(tx, coupon.CouponTypeID)
		if err != nil {
			return err
		}
		if couponType.Merchant == nil {
			return ErrMerchantNotFound.withf("merchant %d not found", couponType.MerchantID)
		}
		pool, err := lockPool(tx, couponType.ID)
		if err != nil {
			return err
		}

		backflow := couponType.Amount.Mul(couponType.Merchant.BackflowRate)
		Accumulate(pool, backflow)
		minted, err := Settle(pool, e.minterFor(tx, couponType.ID))
		if err != nil {
			return err
		}
		if errSave := savePool(tx, pool); errSave != nil {
			return errSave
		}
		result = &BackflowResult{
			CouponID:       coupon.ID,
			PoolID:         pool.ID,
			BackflowAmount: backflow,
			PoolBalance:    pool.CurrentBalance,
			MintedCoupons:  summarize(minted),
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	if e.recorder != nil {
		e.recorder.CouponsMinted("backflow", len(result.MintedCoupons))
	}
	log.WithFields(log.Fields{
		"coupon_id": couponID,
		"pool_id":   result.PoolID,
		"amount":    result.BackflowAmount.String(),
	}).Info("merchant backflow committed")
	return result, nil
}

// MerchantEarnings is a read model of a merchant's revenue.
type MerchantEarnings struct {
	MerchantID       uint64          `json:"merchant_id"`
	MerchantName     string          `json:"merchant_name"`
	Day              string          `json:"day"`
	DailyEarnings    decimal.Decimal `json:"daily_earnings"`
	DailyLimit       decimal.Decimal `json:"daily_limit"`
	RemainingToday   decimal.Decimal `json:"remaining_today"`
	TotalEarnings    decimal.Decimal `json:"total_earnings"`
	TotalDonatedBack decimal.Decimal `json:"total_donated_back"`
	BackflowRate     decimal.Decimal `json:"backflow_rate"`
	Balance          decimal.Decimal `json:"balance"`
}

// GetMerchantEarnings reports today's earnings against the cap and all-time totals.
// Today's row is created on first access.
func (e *Engine) GetMerchantEarnings(ctx context.Context, merchantID uint64) (*MerchantEarnings, error) {
	var out *MerchantEarnings
	errTx := e.inTx(ctx, func(tx *gorm.DB) error {
		merchant, err := findMerchant(tx, merchantID)
		if err != nil {
			return err
		}
		day, _ := e.today()
		row, err := e.lockEarnings(tx, merchant.ID, day)
		if err != nil {
			return err
		}
		var rows []models.MerchantDailyEarnings
		if errFind := tx.Where("merchant_id = ?", merchant.ID).Find(&rows).Error; errFind != nil {
			return errFind
		}
		total, donatedBack := decimal.Zero, decimal.Zero
		for _, r := range rows {
			total = total.Add(r.TotalEarnings)
			donatedBack = donatedBack.Add(r.TotalDonatedBack)
		}
		balance := decimal.Zero
		var account models.User
		errAccount := tx.First(&account, merchant.AccountID()).Error
		switch {
		case errAccount == nil:
			balance = account.Balance
		case !errors.Is(errAccount, gorm.ErrRecordNotFound):
			return errAccount
		}
		remaining := row.DailyLimit.Sub(row.DailyEarnings)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		out = &MerchantEarnings{
			MerchantID:       merchant.ID,
			MerchantName:     merchant.Name,
			Day:              day,
			DailyEarnings:    row.DailyEarnings,
			DailyLimit:       row.DailyLimit,
			RemainingToday:   remaining,
			TotalEarnings:    total,
			TotalDonatedBack: donatedBack,
			BackflowRate:     merchant.BackflowRate,
			Balance:          balance,
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return out, nil
}

// ResetDailyLimit changes today's cap for a merchant and optionally clears today's
// earnings. A nil limit keeps the current cap.
func (e *Engine) ResetDailyLimit(ctx context.Context, merchantID uint64, limit *decimal.Decimal, resetEarnings bool) (*models.MerchantDailyEarnings, error) {
	if limit != nil && limit.IsNegative() {
		return nil, ErrInvalidAmount.withf("daily limit must not be negative, got %s", limit.String())
	}
	var out *models.MerchantDailyEarnings
	errTx := e.inTx(ctx, func(tx *gorm.DB) error {
		if _, err := findMerchant(tx, merchantID); err != nil {
			return err
		}
		day, _ := e.today()
		row, err := e.lockEarnings(tx, merchantID, day)
		if err != nil {
			return err
		}
		updates := map[string]any{}
		if limit != nil {
			row.DailyLimit = *limit
			updates["daily_limit"] = row.DailyLimit
		}
		if resetEarnings {
			row.DailyEarnings = decimal.Zero
			updates["daily_earnings"] = row.DailyEarnings
		}
		out = row
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(row).Updates(updates).Error
	})
	if errTx != nil {
		return nil, errTx
	}
	return out, nil
}

// PoolView is a pool joined with its coupon type and merchant.
type PoolView struct {
	PoolID         uint64          `json:"pool_id"`
	CouponTypeID   uint64          `json:"coupon_type_id"`
	CouponTypeName string          `json:"coupon_type_name"`
	Category       string          `json:"category"`
	MerchantID     uint64          `json:"merchant_id"`
	MerchantName   string          `json:"merchant_name"`
	CouponAmount   decimal.Decimal `json:"coupon_amount"`
	TargetAmount   decimal.Decimal `json:"target_amount"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
}

// PoolFilter narrows ListPools.
type PoolFilter struct {
	MerchantID *uint64
	Category   string
}

// ListPools returns pools ordered by coupon type ID.
func (e *Engine) ListPools(ctx context.Context, filter PoolFilter) ([]PoolView, error) {
	q := e.db.WithContext(ctx).Model(&models.CouponType{}).Preload("Merchant").Preload("Pool")
	if filter.MerchantID != nil {
		q = q.Where("merchant_id = ?", *filter.MerchantID)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	var types []models.CouponType
	if errFind := q.Order("id ASC").Find(&types).Error; errFind != nil {
		return nil, errFind
	}
	out := make([]PoolView, 0, len(types))
	for _, ct := range types {
		if ct.Pool == nil {
			continue
		}
		view := PoolView{
			PoolID:         ct.Pool.ID,
			CouponTypeID:   ct.ID,
			CouponTypeName: ct.Name,
			Category:       ct.Category,
			MerchantID:     ct.MerchantID,
			CouponAmount:   ct.Amount,
			TargetAmount:   ct.Pool.TargetAmount,
			CurrentBalance: ct.Pool.CurrentBalance,
		}
		if ct.Merchant != nil {
			view.MerchantName = ct.Merchant.Name
		}
		out = append(out, view)
	}
	return out, nil
}
