package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/payda-app/payda/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// categoryMerchants names the house merchant that backs coupons synthesized for a
// completed need in each category.
var categoryMerchants = map[string]string{
	"gıda":      "Genel Gıda Marketi",
	"kırtasiye": "Genel Kırtasiye",
	"ulaşım":    "Genel Ulaşım",
	"tech":      "Genel Teknoloji",
	"giyim":     "Genel Giyim",
	"eğitim":    "Genel Eğitim",
}

const fallbackCategoryMerchant = "Genel Destek"

// CategoryMerchantName returns the house merchant name for a need category.
func CategoryMerchantName(category string) string {
	if name, ok := categoryMerchants[strings.ToLower(strings.TrimSpace(category))]; ok {
		return name
	}
	return fallbackCategoryMerchant
}

// NeedSpec describes a new need.
type NeedSpec struct {
	UserID       uint64
	Title        string
	Description  string
	Category     string
	TargetAmount decimal.Decimal
}

// CreateNeed opens a funding target owned by spec.UserID.
func (e *Engine) CreateNeed(ctx context.Context, spec NeedSpec) (*models.Need, error) {
	title := strings.TrimSpace(spec.Title)
	category := strings.TrimSpace(spec.Category)
	if title == "" || category == "" || !spec.TargetAmount.IsPositive() {
		return nil, ErrInvalidNeedSpec
	}

	var need models.Need
	errTx := e.inTx(ctx, func(tx *gorm.DB) error {
		if _, err := lockUser(tx, spec.UserID); err != nil {
			return err
		}
		need = models.Need{
			UserID:        spec.UserID,
			Title:         title,
			Description:   strings.TrimSpace(spec.Description),
			Category:      category,
			TargetAmount:  spec.TargetAmount,
			CurrentAmount: decimal.Zero,
			Status:        models.NeedActive,
		}
		return tx.Create(&need).Error
	})
	if errTx != nil {
		return nil, errTx
	}
	return &need, nil
}

// CancelNeed closes an active need without minting anything. Raised funds stay recorded.
func (e *Engine) CancelNeed(ctx context.Context, needID uint64) (*models.Need, error) {
	var need *models.Need
	errTx := e.inTx(ctx, func(tx *gorm.DB) error {
		locked, err := lockNeed(tx, needID)
		if err != nil {
			return err
		}
		if locked.Status != models.NeedActive {
			return ErrNeedNotCancellable.withf("need %d is %s", locked.ID, locked.Status)
		}
		locked.Status = models.NeedCancelled
		need = locked
		return tx.Model(locked).Update("status", locked.Status).Error
	})
	if errTx != nil {
		return nil, errTx
	}
	return need, nil
}

// GetNeed loads one need.
func (e *Engine) GetNeed(ctx context.Context, needID uint64) (*models.Need, error) {
	var need models.Need
	if errFind := e.db.WithContext(ctx).First(&need, needID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNeedNotFound.withf("need %d not found", needID)
		}
		return nil, errFind
	}
	return &need, nil
}

// NeedFilter narrows ListNeeds.
type NeedFilter struct {
	UserID   *uint64
	Status   models.NeedStatus
	Category string
}

// ListNeeds returns needs newest first.
func (e *Engine) ListNeeds(ctx context.Context, filter NeedFilter) ([]models.Need, error) {
	q := e.db.WithContext(ctx).Model(&models.Need{})
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	var needs []models.Need
	if errFind := q.Order("created_at DESC").Order("id DESC").Find(&needs).Error; errFind != nil {
		return nil, errFind
	}
	return needs, nil
}

// nearestActiveNeed locks the active need with the smallest remaining gap.
// Equal gaps resolve to the oldest need.
func nearestActiveNeed(tx *gorm.DB) (*models.Need, error) {
	var need models.Need
	errFind := forUpdate(tx).
		Where("status = ?", string(models.NeedActive)).
		Order("target_amount - current_amount ASC").
		Order("id ASC").
		First(&need).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errFind
	}
	return &need, nil
}

// creditNeed adds amount to need and completes it when the target is reached.
// It returns the coupon minted on completion, if any.
func (e *Engine) creditNeed(tx *gorm.DB, need *models.Need, amount decimal.Decimal) (*models.Coupon, error) {
	need.CurrentAmount = need.CurrentAmount.Add(amount)
	if need.CurrentAmount.LessThan(need.TargetAmount) || need.Status != models.NeedActive {
		return nil, tx.Model(need).Update("current_amount", need.CurrentAmount).Error
	}
	return e.completeNeed(tx, need)
}

// completeNeed marks need completed and synthesizes a one-off coupon type, pool and
// coupon in the need's category, assigned to the need's owner.
func (e *Engine) completeNeed(tx *gorm.DB, need *models.Need) (*models.Coupon, error) {
	_, now := e.today()
	need.Status = models.NeedCompleted
	need.CompletedAt = &now
	if errUpdate := tx.Model(need).Updates(map[string]any{
		"current_amount": need.CurrentAmount,
		"status":         string(need.Status),
		"completed_at":   now,
	}).Error; errUpdate != nil {
		return nil, errUpdate
	}

	merchant, err := findOrCreateMerchant(tx, CategoryMerchantName(need.Category))
	if err != nil {
		return nil, err
	}
	couponType := models.CouponType{
		MerchantID: merchant.ID,
		Name:       fmt.Sprintf("%s - İhtiyaç Desteği", need.Title),
		Amount:     need.TargetAmount,
		Category:   need.Category,
	}
	if errCreate := tx.Create(&couponType).Error; errCreate != nil {
		return nil, errCreate
	}
	// The need's funds paid for this coupon already; the pool starts settled.
	pool := models.Pool{CouponTypeID: couponType.ID, TargetAmount: need.TargetAmount, CurrentBalance: decimal.Zero}
	if errCreate := tx.Create(&pool).Error; errCreate != nil {
		return nil, errCreate
	}

	ownerID := need.UserID
	needID := need.ID
	coupon := models.Coupon{
		Code:          uuid.NewString(),
		CouponTypeID:  couponType.ID,
		BeneficiaryID: &ownerID,
		NeedID:        &needID,
		Status:        models.CouponAssigned,
	}
	if errCreate := tx.Create(&coupon).Error; errCreate != nil {
		return nil, errCreate
	}
	return &coupon, nil
}

func findOrCreateMerchant(tx *gorm.DB, name string) (*models.Merchant, error) {
	var merchant models.Merchant
	errFind := tx.Where("name = ?", name).Order("id ASC").First(&merchant).Error
	if errFind == nil {
		return &merchant, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, errFind
	}
	merchant = models.Merchant{Name: name, BackflowRate: DefaultMerchantBackflowRate}
	if errCreate := tx.Create(&merchant).Error; errCreate != nil {
		return nil, errCreate
	}
	return &merchant, nil
}
