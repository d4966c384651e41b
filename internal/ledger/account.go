package ledger

import (
	"github.com/payda-app/payda/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Debit removes amount from the account balance. It is all-or-nothing: on
// ErrInsufficientFunds the balance is untouched. The caller persists the account.
func Debit(account *models.User, amount decimal.Decimal) error {
	if account.Balance.LessThan(amount) {
		return ErrInsufficientBalance.withf("insufficient balance: have %s, need %s", account.Balance.StringFixed(2), amount.StringFixed(2))
	}
	account.Balance = account.Balance.Sub(amount)
	return nil
}

// Credit adds amount to the account balance. The caller persists the account.
func Credit(account *models.User, amount decimal.Decimal) {
	account.Balance = account.Balance.Add(amount)
}

// saveBalance persists an account's balance and appends the matching money flow.
func saveBalance(tx *gorm.DB, account *models.User, before decimal.Decimal, flowType string, relatedID *uint64, description string) error {
	if errUpdate := tx.Model(account).Update("balance", account.Balance).Error; errUpdate != nil {
		return errUpdate
	}
	userID := account.ID
	flow := models.MoneyFlow{
		UserID:          &userID,
		TransactionType: flowType,
		Amount:          account.Balance.Sub(before).Abs(),
		BalanceBefore:   before,
		BalanceAfter:    account.Balance,
		RelatedID:       relatedID,
		Description:     description,
	}
	return tx.Create(&flow).Error
}
