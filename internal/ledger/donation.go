package ledger

import (
	"context"
	"fmt"

	"github.com/payda-app/payda/internal/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DonationCapacityCheck decides whether donor may give amount right now.
// Returning an error aborts the donation before any write.
type DonationCapacityCheck func(tx *gorm.DB, donor *models.User, amount decimal.Decimal) error

// UnlimitedDonations is the default capacity check. The per-donor daily cap is
// disabled: volunteers may donate without limit.
func UnlimitedDonations(*gorm.DB, *models.User, decimal.Decimal) error { return nil }

// DonationResult is returned by Donate.
type DonationResult struct {
	DonationID     uint64          `json:"donation_id"`
	DonorBalance   decimal.Decimal `json:"donor_balance"`
	PoolBalance    decimal.Decimal `json:"pool_balance"`
	CouponTypeName string          `json:"coupon_type_name"`
	MerchantName   string          `json:"merchant_name"`
	MintedCoupons  []MintedCoupon  `json:"minted_coupons"`
}

// Donate debits donorID by amount, records the donation, feeds the coupon type's
// pool and mints one coupon per full threshold crossed.
func (e *Engine) Donate(ctx context.Context, donorID uint64, amount decimal.Decimal, couponTypeID uint64) (*DonationResult, error) {
	if err := requirePositive(amount); err != nil {
		return nil, err
	}

	var result *DonationResult
	errTx := e.inTx(ctx, func(tx *gorm.DB) error {
		donor, err := lockUser(tx, donorID)
		if err != nil {
			return err
		}
		if errCap := e.capacity(tx, donor, amount); errCap != nil {
			return errCap
		}
		before := donor.Balance
		if errDebit := Debit(donor, amount); errDebit != nil {
			return errDebit
		}

		ctID := couponTypeID
		donation := models.Donation{UserID: donor.ID, CouponTypeID: &ctID, Amount: amount}
		if errCreate := tx.Create(&donation).Error; errCreate != nil {
			return errCreate
		}
		if errSave := saveBalance(tx, donor, before, models.FlowDonation, &donation.ID, fmt.Sprintf("donation to coupon type %d", couponTypeID)); errSave != nil {
			return errSave
		}

		couponType, err := findCouponType(tx, couponTypeID)
		if err != nil {
			return err
		}
		pool, err := lockPool(tx, couponTypeID)
		if err != nil {
			return err
		}

		Accumulate(pool, amount)
		minted, err := Settle(pool, e.minterFor(tx, couponTypeID))
		if err != nil {
			return err
		}
		if errSave := savePool(tx, pool); errSave != nil {
			return errSave
		}

		result = &DonationResult{
			DonationID:     donation.ID,
			DonorBalance:   donor.Balance,
			PoolBalance:    pool.CurrentBalance,
			CouponTypeName: couponType.Name,
			MintedCoupons:  summarize(minted),
		}
		if couponType.Merchant != nil {
			result.MerchantName = couponType.Merchant.Name
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	if e.recorder != nil {
		e.recorder.DonationCommitted(amount, len(result.MintedCoupons))
		e.recorder.CouponsMinted("pool", len(result.MintedCoupons))
	}
	log.WithFields(log.Fields{
		"donor_id":       donorID,
		"coupon_type_id": couponTypeID,
		"amount":         amount.String(),
		"minted":         len(result.MintedCoupons),
	}).Info("donation committed")
	return result, nil
}

// NeedDonationResult is returned by DonateToNeed.
type NeedDonationResult struct {
	DonationID    uint64            `json:"donation_id"`
	DonorBalance  decimal.Decimal   `json:"donor_balance"`
	NeedID        uint64            `json:"need_id"`
	CurrentAmount decimal.Decimal   `json:"current_amount"`
	TargetAmount  decimal.Decimal   `json:"target_amount"`
	Status        models.NeedStatus `json:"status"`
	Completed     bool              `json:"need_completed"`
	Coupon        *MintedCoupon     `json:"coupon,omitempty"`
}

// DonateToNeed debits donorID and credits an active need directly, bypassing pools.
// Completing the need mints a coupon assigned to the need's owner.
func (e *Engine) DonateToNeed(ctx context.Context, needID, donorID uint64, amount decimal.Decimal) (*NeedDonationResult, error) {
	if err := requirePositive(amount); err != nil {
		return nil, err
	}

	var result *NeedDonationResult
	errTx := e.inTx(ctx, func(tx *gorm.DB) error {
		need, err := lockNeed(tx, needID)
		if err != nil {
			return err
		}
		if need.Status != models.NeedActive {
			return ErrNeedNotActive.withf("need %d is %s", need.ID, need.Status)
		}
		donor, err := lockUser(tx, donorID)
		if err != nil {
			return err
		}
		if errCap := e.capacity(tx, donor, amount); errCap != nil {
			return errCap
		}
		before := donor.Balance
		if errDebit := Debit(donor, amount); errDebit != nil {
			return errDebit
		}

		nID := need.ID
		donation := models.Donation{UserID: donor.ID, NeedID: &nID, Amount: amount}
		if errCreate := tx.Create(&donation).Error; errCreate != nil {
			return errCreate
		}
		if errSave := saveBalance(tx, donor, before, models.FlowNeedDonation, &donation.ID, fmt.Sprintf("donation to need %d", need.ID)); errSave != nil {
			return errSave
		}

		coupon, err := e.creditNeed(tx, need, amount)
		if err != nil {
			return err
		}

		result = &NeedDonationResult{
			DonationID:    donation.ID,
			DonorBalance:  donor.Balance,
			NeedID:        need.ID,
			CurrentAmount: need.CurrentAmount,
			TargetAmount:  need.TargetAmount,
			Status:        need.Status,
			Completed:     coupon != nil,
		}
		if coupon != nil {
			summary := summarize([]models.Coupon{*coupon})[0]
			result.Coupon = &summary
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	if e.recorder != nil {
		minted := 0
		if result.Coupon != nil {
			minted = 1
		}
		e.recorder.DonationCommitted(amount, minted)
		e.recorder.CouponsMinted("need", minted)
	}
	return result, nil
}
