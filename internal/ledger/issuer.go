package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/payda-app/payda/internal/models"
	"gorm.io/gorm"
)

// MintedCoupon summarizes a coupon produced by an operation.
type MintedCoupon struct {
	ID            uint64              `json:"id"`
	Code          string              `json:"code"`
	BeneficiaryID *uint64             `json:"beneficiary_id"`
	Status        models.CouponStatus `json:"status"`
}

func summarize(coupons []models.Coupon) []MintedCoupon {
	out := make([]MintedCoupon, 0, len(coupons))
	for _, c := range coupons {
		out = append(out, MintedCoupon{ID: c.ID, Code: c.Code, BeneficiaryID: c.BeneficiaryID, Status: c.Status})
	}
	return out
}

// issue mints one coupon of couponTypeID and assigns it through the selector.
// When nobody is eligible the coupon stays in the created state.
func (e *Engine) issue(tx *gorm.DB, couponTypeID uint64) (*models.Coupon, error) {
	beneficiary, err := e.selector.Select(tx)
	if err != nil {
		return nil, err
	}
	coupon := models.Coupon{
		Code:         uuid.NewString(),
		CouponTypeID: couponTypeID,
		Status:       models.CouponCreated,
	}
	if beneficiary != nil {
		id := beneficiary.ID
		coupon.BeneficiaryID = &id
		coupon.Status = models.CouponAssigned
	}
	if errCreate := tx.Create(&coupon).Error; errCreate != nil {
		return nil, errCreate
	}
	return &coupon, nil
}

// minterFor binds issue to a coupon type for Settle.
func (e *Engine) minterFor(tx *gorm.DB, couponTypeID uint64) Minter {
	return func() (*models.Coupon, error) { return e.issue(tx, couponTypeID) }
}

// IssueCoupon mints a single coupon of the given type outside of pool settlement.
func (e *Engine) IssueCoupon(ctx context.Context, couponTypeID uint64) (*models.Coupon, error) {
	var coupon *models.Coupon
	errTx := e.inTx(ctx, func(tx *gorm.DB) error {
		if _, err := findCouponType(tx, couponTypeID); err != nil {
			return err
		}
		issued, err := e.issue(tx, couponTypeID)
		if err != nil {
			return err
		}
		coupon = issued
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	if e.recorder != nil {
		e.recorder.CouponsMinted("manual", 1)
	}
	return coupon, nil
}
