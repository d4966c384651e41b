// Package ledger implements the giving ledger: balance mutation, pool accumulation,
// threshold-triggered coupon minting, beneficiary selection and merchant redemption.
//
// Every public Engine method runs as one unit of work. All reads and writes inside
// it commit together or roll back together, and the rows it mutates are read with
// row-level locks so concurrent operations on the same account or pool serialize.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RedemptionBackflowRate is the fixed share of every redeemed coupon routed to the
// most nearly completed active need. It is independent of Merchant.BackflowRate.
var RedemptionBackflowRate = decimal.RequireFromString("0.10")

// Recorder receives counters for committed ledger events. Implementations must be safe
// for concurrent use.
type Recorder interface {
	DonationCommitted(amount decimal.Decimal, minted int)
	TransferCommitted(amount decimal.Decimal)
	RedemptionCommitted(amount, backflow decimal.Decimal)
	RedemptionRejected(reason string)
	CouponsMinted(source string, n int)
	RuleRunCompleted(succeeded, failed int)
}

// Engine executes ledger operations against a single data store.
type Engine struct {
	db       *gorm.DB
	selector BeneficiarySelector
	capacity DonationCapacityCheck
	recorder Recorder
	now      func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithSelector replaces the beneficiary selector.
func WithSelector(selector BeneficiarySelector) Option {
	return func(e *Engine) {
		if selector != nil {
			e.selector = selector
		}
	}
}

// WithCapacityCheck installs a donor capacity check. The default allows every donation.
func WithCapacityCheck(check DonationCapacityCheck) Option {
	return func(e *Engine) {
		if check != nil {
			e.capacity = check
		}
	}
}

// WithRecorder installs a metrics recorder.
func WithRecorder(recorder Recorder) Option {
	return func(e *Engine) { e.recorder = recorder }
}

// WithClock overrides the time source. Calendar days are taken in the clock's location.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine constructs an Engine bound to db.
func NewEngine(db *gorm.DB, opts ...Option) *Engine {
	e := &Engine{
		db:       db,
		selector: PrioritySelector{},
		capacity: UnlimitedDonations,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DB returns the underlying connection for read-only collaborators.
func (e *Engine) DB() *gorm.DB { return e.db }

// inTx runs fn as one unit of work. Any error or panic rolls every write back.
func (e *Engine) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if e == nil || e.db == nil {
		return errors.New("ledger: nil engine")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return e.db.WithContext(ctx).Transaction(fn)
}

// today returns the current calendar day key and timestamp.
func (e *Engine) today() (string, time.Time) {
	now := e.now()
	return now.Format("2006-01-02"), now
}

func requirePositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount.withf("amount must be positive, got %s", amount.String())
	}
	return nil
}
