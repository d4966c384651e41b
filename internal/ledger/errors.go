package ledger

import (
	"errors"
	"fmt"
)

// Error kinds. Every business failure unwraps to exactly one of these.
var (
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientFunds indicates a balance below the required amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidState indicates the entity is not in a state that allows the operation.
	ErrInvalidState = errors.New("invalid state")
	// ErrLimitExceeded indicates a configured cap would be exceeded.
	ErrLimitExceeded = errors.New("limit exceeded")
	// ErrInvalidArgument indicates malformed input such as a non-positive amount.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error is a business-rule failure carrying a stable code and a user-facing message.
type Error struct {
	Kind    error  // One of the Err* kinds above.
	Code    string // Stable machine-readable code.
	Message string // User-facing message.
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap exposes the error kind to errors.Is.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Kind
}

// Is matches another *Error by code, so contextualized copies still match their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// withf returns a copy of e with a formatted message.
func (e *Error) withf(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

func newError(kind error, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Sentinel business errors.
var (
	ErrUserNotFound       = newError(ErrNotFound, "user_not_found", "user not found")
	ErrMerchantNotFound   = newError(ErrNotFound, "merchant_not_found", "merchant not found")
	ErrCouponNotFound     = newError(ErrNotFound, "coupon_not_found", "coupon not found")
	ErrCouponTypeNotFound = newError(ErrNotFound, "coupon_type_not_found", "coupon type not found")
	ErrPoolNotFound       = newError(ErrNotFound, "pool_not_found", "pool not found")
	ErrNeedNotFound       = newError(ErrNotFound, "need_not_found", "need not found")
	ErrRuleNotFound       = newError(ErrNotFound, "rule_not_found", "auto donation rule not found")

	ErrInsufficientBalance = newError(ErrInsufficientFunds, "insufficient_funds", "insufficient balance")

	ErrCouponAlreadyUsed     = newError(ErrInvalidState, "coupon_already_used", "coupon already used")
	ErrCouponNotAssigned     = newError(ErrInvalidState, "coupon_not_assigned", "coupon is not assigned to a beneficiary")
	ErrCouponNotAssignable   = newError(ErrInvalidState, "coupon_not_assignable", "only created coupons can be assigned")
	ErrCouponNotUsed         = newError(ErrInvalidState, "coupon_not_used", "only used coupons can flow back")
	ErrDuplicateCouponType   = newError(ErrInvalidState, "duplicate_coupon_type", "beneficiary already holds a coupon of this type")
	ErrNotEligible           = newError(ErrInvalidState, "not_eligible", "user cannot receive coupons")
	ErrNeedNotActive         = newError(ErrInvalidState, "need_not_active", "only active needs accept donations")
	ErrNeedNotCancellable    = newError(ErrInvalidState, "need_not_cancellable", "only active needs can be cancelled")
	ErrInvalidPoolTarget     = newError(ErrInvalidState, "invalid_pool_target", "pool target amount must be positive")
	ErrDonationNotPermitted  = newError(ErrInvalidState, "donation_not_permitted", "donation not permitted")
	ErrDailyLimitExceeded    = newError(ErrLimitExceeded, "daily_limit_exceeded", "merchant daily earnings limit exceeded")
	ErrInvalidAmount         = newError(ErrInvalidArgument, "invalid_amount", "amount must be positive")
	ErrSelfTransfer          = newError(ErrInvalidArgument, "self_transfer", "sender and receiver must differ")
	ErrInvalidCouponTypeSpec = newError(ErrInvalidArgument, "invalid_coupon_type", "coupon type requires a name, category and positive amounts")
	ErrInvalidNeedSpec       = newError(ErrInvalidArgument, "invalid_need", "need requires a title, category and positive target")
	ErrInvalidMerchantSpec   = newError(ErrInvalidArgument, "invalid_merchant", "merchant requires a name and a backflow rate between 0 and 1")
	ErrInvalidRuleSpec       = newError(ErrInvalidArgument, "invalid_rule", "rule requires a positive amount and a daily, weekly or monthly frequency")
)

// AsError extracts the business error from err, if any.
func AsError(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
