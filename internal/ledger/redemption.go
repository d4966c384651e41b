package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/payda-app/payda/internal/models"
	"github.com/payda-app/payda/internal/settings"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RedemptionResult is returned by RedeemCoupon.
type RedemptionResult struct {
	CouponID         uint64          `json:"coupon_id"`
	MerchantID       uint64          `json:"merchant_id"`
	MerchantEarnings decimal.Decimal `json:"merchant_earnings"`
	DailyEarnings    decimal.Decimal `json:"daily_earnings"`
	DailyLimit       decimal.Decimal `json:"daily_limit"`
	BackflowAmount   decimal.Decimal `json:"backflow_amount"`
	BackflowNeedID   *uint64         `json:"backflow_need_id,omitempty"`
	NeedCompleted    bool            `json:"need_completed"`
	MerchantBalance  decimal.Decimal `json:"merchant_balance"`
}

// RedeemCoupon pays the owning merchant the coupon's face value within the merchant's
// daily cap, routes the fixed redemption backflow to the nearest-to-completion need
// and marks the coupon used. A cap violation leaves the coupon redeemable.
func (e *Engine) RedeemCoupon(ctx context.Context, couponID uint64) (*RedemptionResult, error) {
	var result *RedemptionResult
	errTx := e.inTx(ctx, func(tx *gorm.DB) error {
		coupon, err := lockCoupon(tx, couponID)
		if err != nil {
			return err
		}
		switch coupon.Status {
		case models.CouponUsed:
			return ErrCouponAlreadyUsed.withf("coupon %d already used", coupon.ID)
		case models.CouponCreated:
			return ErrCouponNotAssigned.withf("coupon %d is not assigned to a beneficiary", coupon.ID)
		}

		couponType, err := findCouponType(tx, coupon.CouponTypeID)
		if err != nil {
			return err
		}
		merchant := couponType.Merchant
		if merchant == nil {
			return ErrMerchantNotFound.withf("merchant %d not found", couponType.MerchantID)
		}
		account, err := lockUser(tx, merchant.AccountID())
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return ErrMerchantNotFound.withf("merchant account %d not found", merchant.AccountID())
			}
			return err
		}

		day, now := e.today()
		earnings, err := e.lockEarnings(tx, merchant.ID, day)
		if err != nil {
			return err
		}
		value := couponType.Amount
		if earnings.DailyEarnings.Add(value).GreaterThan(earnings.DailyLimit) {
			return ErrDailyLimitExceeded.withf(
				"daily earnings limit exceeded: limit %s, earned today %s",
				earnings.DailyLimit.StringFixed(2), earnings.DailyEarnings.StringFixed(2),
			)
		}

		before := account.Balance
		Credit(account, value)
		if errSave := saveBalance(tx, account, before, models.FlowRedemption, &coupon.ID, fmt.Sprintf("redeemed coupon %d", coupon.ID)); errSave != nil {
			return errSave
		}

		backflow := value.Mul(RedemptionBackflowRate)
		earnings.DailyEarnings = earnings.DailyEarnings.Add(value)
		earnings.TotalEarnings = earnings.TotalEarnings.Add(value)
		earnings.TotalDonatedBack = earnings.TotalDonatedBack.Add(backflow)
		if errUpdate := tx.Model(earnings).Updates(map[string]any{
			"daily_earnings":     earnings.DailyEarnings,
			"total_earnings":     earnings.TotalEarnings,
			"total_donated_back": earnings.TotalDonatedBack,
		}).Error; errUpdate != nil {
			return errUpdate
		}

		result = &RedemptionResult{
			CouponID:         coupon.ID,
			MerchantID:       merchant.ID,
			MerchantEarnings: value,
			DailyEarnings:    earnings.DailyEarnings,
			DailyLimit:       earnings.DailyLimit,
			BackflowAmount:   backflow,
			MerchantBalance:  account.Balance,
		}

		need, err := nearestActiveNeed(tx)
		if err != nil {
			return err
		}
		if need != nil && backflow.IsPositive() {
			minted, errCredit := e.creditNeed(tx, need, backflow)
			if errCredit != nil {
				return errCredit
			}
			needID := need.ID
			result.BackflowNeedID = &needID
			result.NeedCompleted = minted != nil
		}

		coupon.Status = models.CouponUsed
		coupon.UsedAt = &now
		return tx.Model(coupon).Updates(map[string]any{
			"status":  string(models.CouponUsed),
			"used_at": now,
		}).Error
	})
	if errTx != nil {
		if e.recorder != nil {
			if be, ok := AsError(errTx); ok {
				e.recorder.RedemptionRejected(be.Code)
			}
		}
		return nil, errTx
	}

	if e.recorder != nil {
		e.recorder.RedemptionCommitted(result.MerchantEarnings, result.BackflowAmount)
		if result.NeedCompleted {
			e.recorder.CouponsMinted("need", 1)
		}
	}
	log.WithFields(log.Fields{
		"coupon_id":   couponID,
		"merchant_id": result.MerchantID,
		"value":       result.MerchantEarnings.String(),
		"backflow":    result.BackflowAmount.String(),
	}).Info("coupon redeemed")
	return result, nil
}

// lockEarnings locks the merchant's earnings row for day, creating it with the
// configured default limit on first use. Concurrent first calls converge on one
// row through the unique (merchant_id, day) index.
func (e *Engine) lockEarnings(tx *gorm.DB, merchantID uint64, day string) (*models.MerchantDailyEarnings, error) {
	var row models.MerchantDailyEarnings
	errFind := forUpdate(tx).Where("merchant_id = ? AND day = ?", merchantID, day).First(&row).Error
	if errFind == nil {
		return &row, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, errFind
	}
	seed := models.MerchantDailyEarnings{
		MerchantID:       merchantID,
		Day:              day,
		DailyEarnings:    decimal.Zero,
		DailyLimit:       defaultDailyLimit(),
		TotalEarnings:    decimal.Zero,
		TotalDonatedBack: decimal.Zero,
	}
	errCreate := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "merchant_id"}, {Name: "day"}},
		DoNothing: true,
	}).Create(&seed).Error
	if errCreate != nil {
		return nil, errCreate
	}
	if errLock := forUpdate(tx).Where("merchant_id = ? AND day = ?", merchantID, day).First(&row).Error; errLock != nil {
		return nil, errLock
	}
	return &row, nil
}

func defaultDailyLimit() decimal.Decimal {
	return settings.DecimalValue(settings.MerchantDailyLimitKey, decimal.NewFromInt(settings.DefaultMerchantDailyLimit))
}
