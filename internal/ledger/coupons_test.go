package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/payda-app/payda/internal/models"
)

func TestAssignCouponRules(t *testing.T) {
	e, conn := newTestEngine(t)
	ctx := context.Background()
	s := createShop(t, e, conn, "100", "")

	first, err := e.IssueCoupon(ctx, s.couponType.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, err := e.IssueCoupon(ctx, s.couponType.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	beneficiary := createUser(t, conn, "Derya", models.RoleBeneficiary, "0")
	donor := createUser(t, conn, "Tolga", models.RoleDonor, "0")

	if _, err := e.AssignCoupon(ctx, first.ID, donor.ID); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible for donor, got %v", err)
	}
	assigned, err := e.AssignCoupon(ctx, first.ID, beneficiary.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned.Status != models.CouponAssigned || assigned.BeneficiaryID == nil || *assigned.BeneficiaryID != beneficiary.ID {
		t.Fatalf("unexpected assigned coupon: %+v", assigned)
	}
	if _, err := e.AssignCoupon(ctx, first.ID, beneficiary.ID); !errors.Is(err, ErrCouponNotAssignable) {
		t.Fatalf("expected ErrCouponNotAssignable on reassign, got %v", err)
	}
	if _, err := e.AssignCoupon(ctx, second.ID, beneficiary.ID); !errors.Is(err, ErrDuplicateCouponType) {
		t.Fatalf("expected ErrDuplicateCouponType, got %v", err)
	}
	if stored := reloadCoupon(t, conn, second.ID); stored.Status != models.CouponCreated {
		t.Fatalf("second coupon changed: %+v", stored)
	}
	if _, err := e.AssignCoupon(ctx, 777, beneficiary.ID); !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("expected ErrCouponNotFound, got %v", err)
	}
}

func TestMaxCouponsForPriorityBands(t *testing.T) {
	cases := map[int]int{0: 3, 30: 3, 31: 5, 60: 5, 61: 10, 100: 10}
	for priority, want := range cases {
		if got := MaxCouponsForPriority(priority); got != want {
			t.Fatalf("priority %d: expected %d, got %d", priority, want, got)
		}
	}
}

func TestCheckEligibility(t *testing.T) {
	e, conn := newTestEngine(t)
	ctx := context.Background()
	s := createShop(t, e, conn, "100", "")
	user := createUser(t, conn, "Gül", models.RoleBeneficiary, "0", verified(), withPriority(10))

	for i := 0; i < 3; i++ {
		if _, err := e.IssueCoupon(ctx, s.couponType.ID); err != nil {
			t.Fatalf("issue: %v", err)
		}
	}
	got, err := e.CheckEligibility(ctx, user.ID)
	if err != nil {
		t.Fatalf("eligibility: %v", err)
	}
	if got.MaxCoupons != 3 || got.Received != 3 || got.CanReceive {
		t.Fatalf("unexpected eligibility at cap: %+v", got)
	}

	if errUpdate := conn.Model(user).Update("priority", 45).Error; errUpdate != nil {
		t.Fatalf("update priority: %v", errUpdate)
	}
	got, err = e.CheckEligibility(ctx, user.ID)
	if err != nil {
		t.Fatalf("eligibility: %v", err)
	}
	if got.MaxCoupons != 5 || !got.CanReceive {
		t.Fatalf("expected room in higher band: %+v", got)
	}
	if _, err := e.CheckEligibility(ctx, 4040); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestListCouponsFilters(t *testing.T) {
	e, conn := newTestEngine(t)
	ctx := context.Background()
	s := createShop(t, e, conn, "100", "")
	user := createUser(t, conn, "Gül", models.RoleBeneficiary, "0", verified())
	assigned := issueAssigned(t, e, s.couponType.ID)
	if errUpdate := conn.Model(user).Update("is_verified", false).Error; errUpdate != nil {
		t.Fatalf("unverify: %v", errUpdate)
	}
	if _, err := e.IssueCoupon(ctx, s.couponType.ID); err != nil {
		t.Fatalf("issue: %v", err)
	}

	mine, err := e.ListCoupons(ctx, CouponFilter{BeneficiaryID: &user.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != assigned.ID {
		t.Fatalf("unexpected beneficiary coupons: %+v", mine)
	}
	if mine[0].CouponType == nil || mine[0].CouponType.Merchant == nil {
		t.Fatalf("expected coupon type and merchant preloaded")
	}
	created, err := e.ListCoupons(ctx, CouponFilter{Status: models.CouponCreated})
	if err != nil {
		t.Fatalf("list created: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected one created coupon, got %d", len(created))
	}
	byMerchant, err := e.ListCoupons(ctx, CouponFilter{MerchantID: &s.merchant.ID})
	if err != nil {
		t.Fatalf("list by merchant: %v", err)
	}
	if len(byMerchant) != 2 {
		t.Fatalf("expected two merchant coupons, got %d", len(byMerchant))
	}
}
