// Package seed loads a small demo dataset through the ledger engine.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/payda-app/payda/internal/ledger"
	"github.com/payda-app/payda/internal/models"
	"github.com/payda-app/payda/internal/security"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// DefaultPassword is used for every demo account when none is given.
const DefaultPassword = "payda123"

// Summary reports what Demo created.
type Summary struct {
	Skipped     bool `json:"skipped"`
	Users       int  `json:"users"`
	Merchants   int  `json:"merchants"`
	CouponTypes int  `json:"coupon_types"`
	Donations   int  `json:"donations"`
	Needs       int  `json:"needs"`
}

type demoUser struct {
	name     string
	email    string
	role     models.Role
	balance  string
	priority int
}

type demoMerchant struct {
	name    string
	account string
	rate    string
}

type demoCouponType struct {
	merchant string
	name     string
	category string
	amount   string
}

var demoUsers = []demoUser{
	{name: "admin", email: "admin@payda.local", role: models.RoleAdmin, balance: "10000"},
	{name: "Ahmet Bağışçı", email: "ahmet@payda.local", role: models.RoleDonor, balance: "5000"},
	{name: "Elif Gönüllü", email: "elif@payda.local", role: models.RoleVolunteer, balance: "1500"},
	{name: "Ayşe İhtiyaç", email: "ayse@payda.local", role: models.RoleBeneficiary, priority: 80},
	{name: "Mehmet T.", email: "mehmet@payda.local", role: models.RoleBeneficiary, priority: 55},
	{name: "Zeynep S.", email: "zeynep@payda.local", role: models.RoleBeneficiary, priority: 25},
	{name: "Lezzet Dünyası Kasa", email: "lezzet@payda.local", role: models.RoleMerchant},
	{name: "TeknoStore Kasa", email: "tekno@payda.local", role: models.RoleMerchant},
	{name: "Dost Kitabevi Kasa", email: "dost@payda.local", role: models.RoleMerchant},
	{name: "Moda Evi Kasa", email: "moda@payda.local", role: models.RoleMerchant},
}

var demoMerchants = []demoMerchant{
	{name: "Lezzet Dünyası", account: "lezzet@payda.local", rate: "0.10"},
	{name: "TeknoStore", account: "tekno@payda.local", rate: "0.05"},
	{name: "Dost Kitabevi", account: "dost@payda.local", rate: "0.08"},
	{name: "Moda Evi", account: "moda@payda.local", rate: "0.12"},
}

var demoCouponTypes = []demoCouponType{
	{merchant: "Lezzet Dünyası", name: "Öğrenci Menüsü Desteği", category: "food", amount: "50"},
	{merchant: "TeknoStore", name: "Tablet Bağışı", category: "tech", amount: "2000"},
	{merchant: "Dost Kitabevi", name: "Kitap Seti Desteği", category: "kırtasiye", amount: "150"},
	{merchant: "Moda Evi", name: "Okul Kıyafeti Desteği", category: "giyim", amount: "300"},
	{merchant: "Lezzet Dünyası", name: "Yemek Kartı", category: "food", amount: "200"},
	{merchant: "TeknoStore", name: "Laptop Desteği", category: "tech", amount: "5000"},
}

// Demo populates an empty database. A database that already holds users is left alone.
func Demo(ctx context.Context, engine *ledger.Engine, password string) (*Summary, error) {
	if engine == nil {
		return nil, errors.New("seed: nil engine")
	}
	conn := engine.DB().WithContext(ctx)

	var existing int64
	if errCount := conn.Model(&models.User{}).Count(&existing).Error; errCount != nil {
		return nil, errCount
	}
	if existing > 0 {
		log.Infof("seed: %d users present, skipping demo data", existing)
		return &Summary{Skipped: true}, nil
	}

	if strings.TrimSpace(password) == "" {
		password = DefaultPassword
	}
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return nil, fmt.Errorf("seed: hash password: %w", errHash)
	}

	summary := &Summary{}
	usersByEmail := make(map[string]*models.User, len(demoUsers))
	for _, spec := range demoUsers {
		balance := decimal.Zero
		if spec.balance != "" {
			balance = decimal.RequireFromString(spec.balance)
		}
		user := &models.User{
			Name:       spec.name,
			Email:      spec.email,
			Password:   hash,
			Role:       spec.role,
			Balance:    balance,
			Priority:   spec.priority,
			IsVerified: true,
		}
		if errCreate := conn.Create(user).Error; errCreate != nil {
			return nil, fmt.Errorf("seed: create user %s: %w", spec.email, errCreate)
		}
		usersByEmail[spec.email] = user
		summary.Users++
	}

	merchantsByName := make(map[string]*models.Merchant, len(demoMerchants))
	for _, spec := range demoMerchants {
		accountID := usersByEmail[spec.account].ID
		merchant, err := engine.CreateMerchant(ctx, spec.name, &accountID, decimal.RequireFromString(spec.rate))
		if err != nil {
			return nil, fmt.Errorf("seed: create merchant %s: %w", spec.name, err)
		}
		merchantsByName[spec.name] = merchant
		summary.Merchants++
	}

	typesByName := make(map[string]*models.CouponType, len(demoCouponTypes))
	for _, spec := range demoCouponTypes {
		couponType, err := engine.CreateCouponType(ctx, ledger.CouponTypeSpec{
			MerchantID: merchantsByName[spec.merchant].ID,
			Name:       spec.name,
			Category:   spec.category,
			Amount:     decimal.RequireFromString(spec.amount),
		})
		if err != nil {
			return nil, fmt.Errorf("seed: create coupon type %s: %w", spec.name, err)
		}
		typesByName[spec.name] = couponType
		summary.CouponTypes++
	}

	donor := usersByEmail["ahmet@payda.local"]
	donations := []struct {
		couponType string
		amount     string
	}{
		{couponType: "Öğrenci Menüsü Desteği", amount: "120"},
		{couponType: "Tablet Bağışı", amount: "800"},
		{couponType: "Kitap Seti Desteği", amount: "300"},
	}
	for _, d := range donations {
		if _, err := engine.Donate(ctx, donor.ID, decimal.RequireFromString(d.amount), typesByName[d.couponType].ID); err != nil {
			return nil, fmt.Errorf("seed: donate to %s: %w", d.couponType, err)
		}
		summary.Donations++
	}

	needs := []ledger.NeedSpec{
		{
			UserID:       usersByEmail["zeynep@payda.local"].ID,
			Title:        "Fotokopi Desteği",
			Description:  "Ders notları için fotokopi bakiyesi.",
			Category:     "kırtasiye",
			TargetAmount: decimal.RequireFromString("200"),
		},
		{
			UserID:       usersByEmail["mehmet@payda.local"].ID,
			Title:        "Kışlık Bot",
			Description:  "Kış gelmeden bot ihtiyacı.",
			Category:     "giyim",
			TargetAmount: decimal.RequireFromString("1200"),
		},
	}
	for _, spec := range needs {
		if _, err := engine.CreateNeed(ctx, spec); err != nil {
			return nil, fmt.Errorf("seed: create need %s: %w", spec.Title, err)
		}
		summary.Needs++
	}

	log.WithFields(log.Fields{
		"users":        summary.Users,
		"merchants":    summary.Merchants,
		"coupon_types": summary.CouponTypes,
		"donations":    summary.Donations,
		"needs":        summary.Needs,
	}).Info("seed: demo data loaded")
	return summary, nil
}
