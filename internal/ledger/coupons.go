package ledger

import (
	"context"
	"errors"

	"github.com/payda-app/payda/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AssignCoupon binds a created coupon to a beneficiary. A beneficiary holds at most
// one assigned or used coupon of each type.
func (e *Engine) AssignCoupon(ctx context.Context, couponID, beneficiaryID uint64) (*models.Coupon, error) {
	var coupon *models.Coupon
	errTx := e.inTx(ctx, func(tx *gorm.DB) error {
		locked, err := lockCoupon(tx, couponID)
		if err != nil {
			return err
		}
		if locked.Status != models.CouponCreated {
			return ErrCouponNotAssignable.withf("coupon %d is %s", locked.ID, locked.Status)
		}
		beneficiary, err := lockUser(tx, beneficiaryID)
		if err != nil {
			return err
		}
		if !beneficiary.Role.CanReceiveCoupon() {
			return ErrNotEligible.withf("user %d with role %s cannot receive coupons", beneficiary.ID, beneficiary.Role)
		}

		var held int64
		if errCount := tx.Model(&models.Coupon{}).
			Where("coupon_type_id = ? AND beneficiary_id = ? AND status IN ?", locked.CouponTypeID, beneficiary.ID,
				[]string{string(models.CouponAssigned), string(models.CouponUsed)}).
			Count(&held).Error; errCount != nil {
			return errCount
		}
		if held > 0 {
			return ErrDuplicateCouponType.withf("user %d already holds a coupon of type %d", beneficiary.ID, locked.CouponTypeID)
		}

		id := beneficiary.ID
		locked.BeneficiaryID = &id
		locked.Status = models.CouponAssigned
		coupon = locked
		return tx.Model(locked).Updates(map[string]any{
			"beneficiary_id": id,
			"status":         string(models.CouponAssigned),
		}).Error
	})
	if errTx != nil {
		return nil, errTx
	}
	log.WithFields(log.Fields{"coupon_id": couponID, "beneficiary_id": beneficiaryID}).Info("coupon assigned")
	return coupon, nil
}

// Eligibility reports how many coupons a user may still receive.
type Eligibility struct {
	UserID     uint64      `json:"user_id"`
	Role       models.Role `json:"role"`
	Priority   int         `json:"priority"`
	IsVerified bool        `json:"is_verified"`
	MaxCoupons int         `json:"max_coupons"`
	Received   int64       `json:"received"`
	CanReceive bool        `json:"can_receive"`
}

// MaxCouponsForPriority returns the coupon allowance of a priority band.
func MaxCouponsForPriority(priority int) int {
	switch {
	case priority > 60:
		return 10
	case priority > 30:
		return 5
	default:
		return 3
	}
}

// CheckEligibility reports a user's coupon allowance against what they already hold.
func (e *Engine) CheckEligibility(ctx context.Context, userID uint64) (*Eligibility, error) {
	conn := e.db.WithContext(ctx)
	var user models.User
	if errFind := conn.First(&user, userID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound.withf("user %d not found", userID)
		}
		return nil, errFind
	}
	var received int64
	if errCount := conn.Model(&models.Coupon{}).Where("beneficiary_id = ?", user.ID).Count(&received).Error; errCount != nil {
		return nil, errCount
	}
	maxCoupons := MaxCouponsForPriority(user.Priority)
	return &Eligibility{
		UserID:     user.ID,
		Role:       user.Role,
		Priority:   user.Priority,
		IsVerified: user.IsVerified,
		MaxCoupons: maxCoupons,
		Received:   received,
		CanReceive: user.IsVerified && user.Role.CanReceiveCoupon() && received < int64(maxCoupons),
	}, nil
}

// CouponFilter narrows ListCoupons.
type CouponFilter struct {
	BeneficiaryID *uint64
	CouponTypeID  *uint64
	MerchantID    *uint64
	Status        models.CouponStatus
	Limit         int
}

// ListCoupons returns coupons newest first with their coupon type and merchant.
func (e *Engine) ListCoupons(ctx context.Context, filter CouponFilter) ([]models.Coupon, error) {
	q := e.db.WithContext(ctx).Model(&models.Coupon{}).Preload("CouponType.Merchant")
	if filter.BeneficiaryID != nil {
		q = q.Where("beneficiary_id = ?", *filter.BeneficiaryID)
	}
	if filter.CouponTypeID != nil {
		q = q.Where("coupon_type_id = ?", *filter.CouponTypeID)
	}
	if filter.MerchantID != nil {
		q = q.Where("coupon_type_id IN (?)", e.db.Model(&models.CouponType{}).Select("id").Where("merchant_id = ?", *filter.MerchantID))
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var coupons []models.Coupon
	if errFind := q.Order("created_at DESC").Order("id DESC").Find(&coupons).Error; errFind != nil {
		return nil, errFind
	}
	return coupons, nil
}

// ListDonations returns a donor's donations newest first. A zero userID lists all.
func (e *Engine) ListDonations(ctx context.Context, userID uint64, limit int) ([]models.Donation, error) {
	q := e.db.WithContext(ctx).Model(&models.Donation{})
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var donations []models.Donation
	if errFind := q.Order("created_at DESC").Order("id DESC").Find(&donations).Error; errFind != nil {
		return nil, errFind
	}
	return donations, nil
}
