package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/payda-app/payda/internal/ledger"
)

type fakeRuleRunner struct {
	calls atomic.Int64
	err   error
}

func (f *fakeRuleRunner) RunAutoDonationRules(context.Context) ([]ledger.RuleResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []ledger.RuleResult{{RuleID: 1, Status: ledger.RuleSucceeded}, {RuleID: 2, Status: ledger.RuleFailed}}, nil
}

func TestNewAutoDonationRunnerNil(t *testing.T) {
	if NewAutoDonationRunner(nil) != nil {
		t.Fatalf("expected nil runner for nil rule runner")
	}
	var r *AutoDonationRunner
	r.Start(context.Background())
	r.RunOnce(context.Background())
	if r.Passes() != 0 {
		t.Fatalf("expected zero passes on nil runner")
	}
}

func TestRunOnceCountsPassesEvenOnError(t *testing.T) {
	fake := &fakeRuleRunner{err: errors.New("db down")}
	r := NewAutoDonationRunner(fake)
	r.RunOnce(context.Background())
	if fake.calls.Load() != 1 || r.Passes() != 1 {
		t.Fatalf("expected one call and pass, got calls=%d passes=%d", fake.calls.Load(), r.Passes())
	}
}

func TestLoopRunsOnConfiguredInterval(t *testing.T) {
	fake := &fakeRuleRunner{}
	r := NewAutoDonationRunner(fake)
	r.interval = func() time.Duration { return 5 * time.Millisecond }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for fake.calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected at least 3 passes, got %d", fake.calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLoopIdlesWhenIntervalDisabled(t *testing.T) {
	fake := &fakeRuleRunner{}
	r := NewAutoDonationRunner(fake)
	r.interval = func() time.Duration { return 0 }
	r.idlePoll = 2 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	cancel()

	if got := fake.calls.Load(); got != 0 {
		t.Fatalf("expected no passes while disabled, got %d", got)
	}
}
