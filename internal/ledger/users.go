package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/payda-app/payda/internal/db"
	"github.com/payda-app/payda/internal/models"
	"gorm.io/gorm"
)

// GetUser loads an account by ID.
func (e *Engine) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if errFind := e.db.WithContext(ctx).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound.withf("user %d not found", id)
		}
		return nil, errFind
	}
	return &user, nil
}

// FindUsers looks accounts up by a case-insensitive name fragment.
func (e *Engine) FindUsers(ctx context.Context, name string, role models.Role) ([]models.User, error) {
	conn := e.db.WithContext(ctx)
	q := conn.Model(&models.User{})
	if name = strings.TrimSpace(name); name != "" {
		expr, pattern := db.ContainsFold(conn, "name", name)
		q = q.Where(expr, pattern)
	}
	if role != "" {
		q = q.Where("role = ?", string(role))
	}
	var users []models.User
	if errFind := q.Order("id ASC").Limit(50).Find(&users).Error; errFind != nil {
		return nil, errFind
	}
	return users, nil
}

// ListMoneyFlows returns an account's balance audit trail, newest first.
func (e *Engine) ListMoneyFlows(ctx context.Context, userID uint64, limit int) ([]models.MoneyFlow, error) {
	q := e.db.WithContext(ctx).Where("user_id = ?", userID)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var flows []models.MoneyFlow
	if errFind := q.Order("id DESC").Find(&flows).Error; errFind != nil {
		return nil, errFind
	}
	return flows, nil
}
