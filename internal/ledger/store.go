package ledger

import (
	"errors"
	"sort"

	"github.com/payda-app/payda/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate scopes a query to lock the selected rows until the unit of work ends.
// SQLite ignores the clause; its database-level write lock serializes writers instead.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func lockUser(tx *gorm.DB, id uint64) (*models.User, error) {
	var user models.User
	if errFind := forUpdate(tx).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound.withf("user %d not found", id)
		}
		return nil, errFind
	}
	return &user, nil
}

// lockUsers locks accounts in ascending ID order so two transfers between the
// same pair never wait on each other in opposite orders.
func lockUsers(tx *gorm.DB, ids ...uint64) (map[uint64]*models.User, error) {
	ordered := append([]uint64(nil), ids...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })
	out := make(map[uint64]*models.User, len(ordered))
	for _, id := range ordered {
		if _, seen := out[id]; seen {
			continue
		}
		user, err := lockUser(tx, id)
		if err != nil {
			return nil, err
		}
		out[id] = user
	}
	return out, nil
}

func findCouponType(tx *gorm.DB, id uint64) (*models.CouponType, error) {
	var couponType models.CouponType
	if errFind := tx.Preload("Merchant").First(&couponType, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrCouponTypeNotFound.withf("coupon type %d not found", id)
		}
		return nil, errFind
	}
	return &couponType, nil
}

func lockPool(tx *gorm.DB, couponTypeID uint64) (*models.Pool, error) {
	var pool models.Pool
	if errFind := forUpdate(tx).Where("coupon_type_id = ?", couponTypeID).First(&pool).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrPoolNotFound.withf("pool for coupon type %d not found", couponTypeID)
		}
		return nil, errFind
	}
	return &pool, nil
}

func savePool(tx *gorm.DB, pool *models.Pool) error {
	return tx.Model(pool).Update("current_balance", pool.CurrentBalance).Error
}

func lockCoupon(tx *gorm.DB, id uint64) (*models.Coupon, error) {
	var coupon models.Coupon
	if errFind := forUpdate(tx).First(&coupon, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound.withf("coupon %d not found", id)
		}
		return nil, errFind
	}
	return &coupon, nil
}

func lockNeed(tx *gorm.DB, id uint64) (*models.Need, error) {
	var need models.Need
	if errFind := forUpdate(tx).First(&need, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNeedNotFound.withf("need %d not found", id)
		}
		return nil, errFind
	}
	return &need, nil
}

func findMerchant(tx *gorm.DB, id uint64) (*models.Merchant, error) {
	var merchant models.Merchant
	if errFind := tx.First(&merchant, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrMerchantNotFound.withf("merchant %d not found", id)
		}
		return nil, errFind
	}
	return &merchant, nil
}
