package ledger

import (
	"errors"

	"github.com/payda-app/payda/internal/models"
	"gorm.io/gorm"
)

// BeneficiarySelector picks the recipient for a newly minted coupon.
// It returns (nil, nil) when nobody is eligible.
type BeneficiarySelector interface {
	Select(tx *gorm.DB) (*models.User, error)
}

// PrioritySelector picks the verified coupon-eligible account with the highest
// priority. Ties go to the earliest registered account, then the lowest ID.
type PrioritySelector struct{}

// Select implements BeneficiarySelector.
func (PrioritySelector) Select(tx *gorm.DB) (*models.User, error) {
	var user models.User
	errFind := tx.
		Where("role IN ? AND is_verified = ?", receivingRoles(), true).
		Order("priority DESC").
		Order("created_at ASC").
		Order("id ASC").
		First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errFind
	}
	return &user, nil
}

func receivingRoles() []string {
	roles := models.RolesWhere(models.Role.CanReceiveCoupon)
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		out = append(out, string(role))
	}
	return out
}
