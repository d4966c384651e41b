package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/payda-app/payda/internal/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Rule frequencies. The runner replays every active rule on each pass; the
// frequency is recorded for display only.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// RuleSpec describes a new auto-donation rule.
type RuleSpec struct {
	UserID       uint64
	CouponTypeID uint64
	Amount       decimal.Decimal
	Frequency    string
}

// CreateAutoDonationRule registers an active rule for spec.UserID.
func (e *Engine) CreateAutoDonationRule(ctx context.Context, spec RuleSpec) (*models.AutoDonationRule, error) {
	frequency := strings.ToLower(strings.TrimSpace(spec.Frequency))
	if frequency == "" {
		frequency = FrequencyDaily
	}
	switch frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
	default:
		return nil, ErrInvalidRuleSpec.withf("unknown frequency %q", spec.Frequency)
	}
	if !spec.Amount.IsPositive() {
		return nil, ErrInvalidRuleSpec
	}

	var rule models.AutoDonationRule
	errTx := e.inTx(ctx, func(tx *gorm.DB) error {
		if _, err := lockUser(tx, spec.UserID); err != nil {
			return err
		}
		if _, err := findCouponType(tx, spec.CouponTypeID); err != nil {
			return err
		}
		rule = models.AutoDonationRule{
			UserID:       spec.UserID,
			CouponTypeID: spec.CouponTypeID,
			Amount:       spec.Amount,
			Frequency:    frequency,
			IsActive:     true,
		}
		return tx.Create(&rule).Error
	})
	if errTx != nil {
		return nil, errTx
	}
	return &rule, nil
}

// SetRuleActive enables or disables a rule.
func (e *Engine) SetRuleActive(ctx context.Context, ruleID uint64, active bool) error {
	res := e.db.WithContext(ctx).Model(&models.AutoDonationRule{}).Where("id = ?", ruleID).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRuleNotFound.withf("auto donation rule %d not found", ruleID)
	}
	return nil
}

// RuleResult is the outcome of one rule in a runner pass.
type RuleResult struct {
	RuleID uint64          `json:"rule_id"`
	UserID uint64          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
	Result *DonationResult `json:"result,omitempty"`
}

// Rule result statuses.
const (
	RuleSucceeded = "success"
	RuleFailed    = "failed"
)

// RunAutoDonationRules replays every active rule once through Donate. Each donation
// is its own unit of work: a failing rule is recorded and the pass continues.
// Every processed rule has last_run stamped regardless of outcome, and the pass is
// persisted as a RuleRun.
func (e *Engine) RunAutoDonationRules(ctx context.Context) ([]RuleResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	_, started := e.today()

	var rules []models.AutoDonationRule
	if errFind := e.db.WithContext(ctx).Where("is_active = ?", true).Order("id ASC").Find(&rules).Error; errFind != nil {
		return nil, errFind
	}

	results := make([]RuleResult, 0, len(rules))
	succeeded, failed := 0, 0
	for _, rule := range rules {
		if errCtx := ctx.Err(); errCtx != nil {
			return results, errCtx
		}
		entry := RuleResult{RuleID: rule.ID, UserID: rule.UserID, Amount: rule.Amount}
		donation, errDonate := e.Donate(ctx, rule.UserID, rule.Amount, rule.CouponTypeID)
		if errDonate != nil {
			entry.Status = RuleFailed
			entry.Error = errDonate.Error()
			if be, ok := AsError(errDonate); ok {
				entry.Code = be.Code
			}
			failed++
			log.WithError(errDonate).WithField("rule_id", rule.ID).Warn("auto donation rule failed")
		} else {
			entry.Status = RuleSucceeded
			entry.Result = donation
			succeeded++
		}

		_, ranAt := e.today()
		if errStamp := e.db.WithContext(ctx).Model(&models.AutoDonationRule{}).
			Where("id = ?", rule.ID).Update("last_run", ranAt).Error; errStamp != nil {
			return results, errStamp
		}
		results = append(results, entry)
	}

	_, finished := e.today()
	if errSave := e.saveRuleRun(ctx, results, succeeded, failed, started, finished); errSave != nil {
		log.WithError(errSave).Warn("auto donation: persist run failed")
	}
	if e.recorder != nil {
		e.recorder.RuleRunCompleted(succeeded, failed)
	}
	log.Infof("auto donation: processed %d rules (%d succeeded, %d failed)", len(results), succeeded, failed)
	return results, nil
}

func (e *Engine) saveRuleRun(ctx context.Context, results []RuleResult, succeeded, failed int, started, finished time.Time) error {
	payload, errMarshal := json.Marshal(results)
	if errMarshal != nil {
		return errMarshal
	}
	run := models.RuleRun{
		Total:      len(results),
		Succeeded:  succeeded,
		Failed:     failed,
		Results:    datatypes.JSON(payload),
		StartedAt:  started,
		FinishedAt: finished,
	}
	return e.db.WithContext(ctx).Create(&run).Error
}

// LatestRuleRun returns the most recent persisted runner pass.
func (e *Engine) LatestRuleRun(ctx context.Context) (*models.RuleRun, error) {
	var run models.RuleRun
	if errFind := e.db.WithContext(ctx).Order("id DESC").First(&run).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errFind
	}
	return &run, nil
}
