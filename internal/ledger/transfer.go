package ledger

import (
	"context"
	"fmt"

	"github.com/payda-app/payda/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransferResult is returned by Transfer.
type TransferResult struct {
	TransferID      uint64          `json:"transfer_id"`
	SenderBalance   decimal.Decimal `json:"sender_balance"`
	ReceiverBalance decimal.Decimal `json:"receiver_balance"`
}

// Transfer moves amount from sender to receiver. Both balances change in the same
// unit of work, so their sum is conserved.
func (e *Engine) Transfer(ctx context.Context, senderID, receiverID uint64, amount decimal.Decimal) (*TransferResult, error) {
	if err := requirePositive(amount); err != nil {
		return nil, err
	}
	if senderID == receiverID {
		return nil, ErrSelfTransfer
	}

	var result *TransferResult
	errTx := e.inTx(ctx, func(tx *gorm.DB) error {
		accounts, err := lockUsers(tx, senderID, receiverID)
		if err != nil {
			return err
		}
		sender, receiver := accounts[senderID], accounts[receiverID]

		senderBefore, receiverBefore := sender.Balance, receiver.Balance
		if errDebit := Debit(sender, amount); errDebit != nil {
			return errDebit
		}
		Credit(receiver, amount)

		record := models.Transfer{SenderID: sender.ID, ReceiverID: receiver.ID, Amount: amount}
		if errCreate := tx.Create(&record).Error; errCreate != nil {
			return errCreate
		}
		if errSave := saveBalance(tx, sender, senderBefore, models.FlowTransferOut, &record.ID, fmt.Sprintf("transfer to user %d", receiver.ID)); errSave != nil {
			return errSave
		}
		if errSave := saveBalance(tx, receiver, receiverBefore, models.FlowTransferIn, &record.ID, fmt.Sprintf("transfer from user %d", sender.ID)); errSave != nil {
			return errSave
		}

		result = &TransferResult{
			TransferID:      record.ID,
			SenderBalance:   sender.Balance,
			ReceiverBalance: receiver.Balance,
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	if e.recorder != nil {
		e.recorder.TransferCommitted(amount)
	}
	return result, nil
}

// TopUp credits a wallet from outside the ledger (cash in, demo funding).
func (e *Engine) TopUp(ctx context.Context, userID uint64, amount decimal.Decimal) (*models.User, error) {
	if err := requirePositive(amount); err != nil {
		return nil, err
	}
	var account *models.User
	errTx := e.inTx(ctx, func(tx *gorm.DB) error {
		locked, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		before := locked.Balance
		Credit(locked, amount)
		account = locked
		return saveBalance(tx, locked, before, models.FlowTopUp, nil, "wallet top-up")
	})
	if errTx != nil {
		return nil, errTx
	}
	return account, nil
}
