package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/payda-app/payda/internal/models"
)

func TestRunAutoDonationRulesIsolatesFailures(t *testing.T) {
	rec := newRecordingRecorder()
	e, conn := newTestEngine(t, WithRecorder(rec))
	ctx := context.Background()
	s := createShop(t, e, conn, "100", "")
	rich := createUser(t, conn, "Rich", models.RoleDonor, "1000")
	poor := createUser(t, conn, "Poor", models.RoleDonor, "5")

	failing, err := e.CreateAutoDonationRule(ctx, RuleSpec{UserID: poor.ID, CouponTypeID: s.couponType.ID, Amount: dec("50")})
	if err != nil {
		t.Fatalf("create failing rule: %v", err)
	}
	passing, err := e.CreateAutoDonationRule(ctx, RuleSpec{UserID: rich.ID, CouponTypeID: s.couponType.ID, Amount: dec("150"), Frequency: "Weekly"})
	if err != nil {
		t.Fatalf("create passing rule: %v", err)
	}
	paused, err := e.CreateAutoDonationRule(ctx, RuleSpec{UserID: rich.ID, CouponTypeID: s.couponType.ID, Amount: dec("10")})
	if err != nil {
		t.Fatalf("create paused rule: %v", err)
	}
	if errPause := e.SetRuleActive(ctx, paused.ID, false); errPause != nil {
		t.Fatalf("pause: %v", errPause)
	}

	results, err := e.RunAutoDonationRules(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected two processed rules, got %d", len(results))
	}
	if results[0].RuleID != failing.ID || results[0].Status != RuleFailed || results[0].Code != ErrInsufficientBalance.Code {
		t.Fatalf("unexpected failing result: %+v", results[0])
	}
	if results[1].RuleID != passing.ID || results[1].Status != RuleSucceeded || results[1].Result == nil {
		t.Fatalf("unexpected passing result: %+v", results[1])
	}
	if len(results[1].Result.MintedCoupons) != 1 {
		t.Fatalf("expected one coupon from the passing rule, got %d", len(results[1].Result.MintedCoupons))
	}
	if got := reloadUser(t, conn, rich.ID).Balance; !got.Equal(dec("850")) {
		t.Fatalf("rich balance %s", got)
	}

	var rules []models.AutoDonationRule
	if errFind := conn.Order("id ASC").Find(&rules).Error; errFind != nil {
		t.Fatalf("load rules: %v", errFind)
	}
	for _, rule := range rules {
		stamped := rule.LastRun != nil
		if rule.ID == paused.ID && stamped {
			t.Fatalf("inactive rule %d stamped", rule.ID)
		}
		if rule.ID != paused.ID && !stamped {
			t.Fatalf("rule %d not stamped", rule.ID)
		}
	}
	if rules[1].Frequency != FrequencyWeekly {
		t.Fatalf("expected normalized frequency, got %q", rules[1].Frequency)
	}

	run, err := e.LatestRuleRun(ctx)
	if err != nil || run == nil {
		t.Fatalf("latest run: %v %v", run, err)
	}
	if run.Total != 2 || run.Succeeded != 1 || run.Failed != 1 {
		t.Fatalf("unexpected run counters: %+v", run)
	}
	var stored []RuleResult
	if errUnmarshal := json.Unmarshal(run.Results, &stored); errUnmarshal != nil {
		t.Fatalf("decode run results: %v", errUnmarshal)
	}
	if len(stored) != 2 || stored[0].Error == "" {
		t.Fatalf("unexpected stored results: %+v", stored)
	}
	if rec.ruleRuns != 1 || rec.ruleFailed != 1 {
		t.Fatalf("unexpected recorder: runs=%d failed=%d", rec.ruleRuns, rec.ruleFailed)
	}
}

func TestCreateAutoDonationRuleValidates(t *testing.T) {
	e, conn := newTestEngine(t)
	ctx := context.Background()
	s := createShop(t, e, conn, "100", "")
	user := createUser(t, conn, "U", models.RoleDonor, "0")

	if _, err := e.CreateAutoDonationRule(ctx, RuleSpec{UserID: user.ID, CouponTypeID: s.couponType.ID, Amount: dec("10"), Frequency: "hourly"}); !errors.Is(err, ErrInvalidRuleSpec) {
		t.Fatalf("expected ErrInvalidRuleSpec, got %v", err)
	}
	if _, err := e.CreateAutoDonationRule(ctx, RuleSpec{UserID: user.ID, CouponTypeID: 404, Amount: dec("10")}); !errors.Is(err, ErrCouponTypeNotFound) {
		t.Fatalf("expected ErrCouponTypeNotFound, got %v", err)
	}
	if err := e.SetRuleActive(ctx, 9090, true); !errors.Is(err, ErrRuleNotFound) {
		t.Fatalf("expected ErrRuleNotFound, got %v", err)
	}
}
