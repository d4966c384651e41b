package ledger

import (
	"github.com/payda-app/payda/internal/models"
	"github.com/shopspring/decimal"
)

// Minter mints one coupon for a pool crossing.
type Minter func() (*models.Coupon, error)

// Accumulate adds amount to the pool's uncommitted balance.
func Accumulate(pool *models.Pool, amount decimal.Decimal) {
	pool.CurrentBalance = pool.CurrentBalance.Add(amount)
}

// Settle drains every full threshold multiple from the pool, minting one coupon per
// multiple, and leaves 0 <= CurrentBalance < TargetAmount. A non-positive target is
// a configuration error.
func Settle(pool *models.Pool, mint Minter) ([]models.Coupon, error) {
	if !pool.TargetAmount.IsPositive() {
		return nil, ErrInvalidPoolTarget.withf("pool %d has non-positive target %s", pool.ID, pool.TargetAmount.String())
	}
	var minted []models.Coupon
	for pool.CurrentBalance.GreaterThanOrEqual(pool.TargetAmount) {
		pool.CurrentBalance = pool.CurrentBalance.Sub(pool.TargetAmount)
		coupon, err := mint()
		if err != nil {
			return nil, err
		}
		minted = append(minted, *coupon)
	}
	return minted, nil
}
