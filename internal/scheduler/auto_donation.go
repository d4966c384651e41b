// Package scheduler drives recurring ledger work in the background.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/payda-app/payda/internal/ledger"
	"github.com/payda-app/payda/internal/settings"
	log "github.com/sirupsen/logrus"
)

const defaultIdlePoll = time.Minute

// RuleRunner replays auto-donation rules.
type RuleRunner interface {
	RunAutoDonationRules(ctx context.Context) ([]ledger.RuleResult, error)
}

// AutoDonationRunner periodically replays active auto-donation rules. The interval
// is read from settings before every wait, so changes apply without a restart; an
// interval of zero parks the loop until one is configured.
type AutoDonationRunner struct {
	runner   RuleRunner
	idlePoll time.Duration
	interval func() time.Duration
	passes   atomic.Int64
}

// NewAutoDonationRunner returns a runner bound to r, or nil when r is nil.
func NewAutoDonationRunner(r RuleRunner) *AutoDonationRunner {
	if r == nil {
		return nil
	}
	return &AutoDonationRunner{
		runner:   r,
		idlePoll: defaultIdlePoll,
		interval: configuredInterval,
	}
}

func configuredInterval() time.Duration {
	seconds := settings.IntValue(settings.AutoDonationIntervalSecondsKey, settings.DefaultAutoDonationIntervalSeconds)
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// Passes reports how many runner passes completed.
func (r *AutoDonationRunner) Passes() int64 {
	if r == nil {
		return 0
	}
	return r.passes.Load()
}

// Start launches the loop in a background goroutine.
func (r *AutoDonationRunner) Start(ctx context.Context) {
	if r == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go r.run(ctx)
	log.Infof("auto donation runner started (interval=%s)", r.interval())
}

func (r *AutoDonationRunner) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		wait := r.interval()
		if wait <= 0 {
			wait = r.idlePoll
		} else {
			r.RunOnce(ctx)
		}
		if ctx.Err() != nil {
			return
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// RunOnce executes a single pass and logs the outcome.
func (r *AutoDonationRunner) RunOnce(ctx context.Context) {
	if r == nil || r.runner == nil {
		return
	}
	results, err := r.runner.RunAutoDonationRules(ctx)
	r.passes.Add(1)
	if err != nil {
		log.WithError(err).Warn("auto donation runner: pass failed")
		return
	}
	failed := 0
	for _, res := range results {
		if res.Status == ledger.RuleFailed {
			failed++
		}
	}
	if len(results) > 0 {
		log.Infof("auto donation runner: %d rules processed, %d failed", len(results), failed)
	}
}
