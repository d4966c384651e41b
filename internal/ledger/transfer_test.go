package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/payda-app/payda/internal/models"
)

func TestTransferConservesBalances(t *testing.T) {
	rec := newRecordingRecorder()
	e, conn := newTestEngine(t, WithRecorder(rec))
	sender := createUser(t, conn, "Oya", models.RoleDonor, "500")
	receiver := createUser(t, conn, "Kerem", models.RoleBoth, "20")

	result, err := e.Transfer(context.Background(), sender.ID, receiver.ID, dec("120.5"))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !result.SenderBalance.Equal(dec("379.5")) || !result.ReceiverBalance.Equal(dec("140.5")) {
		t.Fatalf("unexpected balances: %+v", result)
	}
	total := reloadUser(t, conn, sender.ID).Balance.Add(reloadUser(t, conn, receiver.ID).Balance)
	if !total.Equal(dec("520")) {
		t.Fatalf("sum not conserved: %s", total)
	}
	flows, err := e.ListMoneyFlows(context.Background(), receiver.ID, 0)
	if err != nil {
		t.Fatalf("list flows: %v", err)
	}
	if len(flows) != 1 || flows[0].TransactionType != models.FlowTransferIn || !flows[0].BalanceAfter.Equal(dec("140.5")) {
		t.Fatalf("unexpected receiver flows: %+v", flows)
	}
	if rec.transfers != 1 {
		t.Fatalf("expected one transfer recorded, got %d", rec.transfers)
	}
}

func TestTransferFailuresLeaveBalancesUntouched(t *testing.T) {
	e, conn := newTestEngine(t)
	sender := createUser(t, conn, "Oya", models.RoleDonor, "50")
	receiver := createUser(t, conn, "Kerem", models.RoleDonor, "0")
	ctx := context.Background()

	if _, err := e.Transfer(ctx, sender.ID, receiver.ID, dec("60")); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, err := e.Transfer(ctx, sender.ID, 9999, dec("10")); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := e.Transfer(ctx, sender.ID, sender.ID, dec("10")); !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("expected ErrSelfTransfer, got %v", err)
	}
	if _, err := e.Transfer(ctx, sender.ID, receiver.ID, dec("-1")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if got := reloadUser(t, conn, sender.ID).Balance; !got.Equal(dec("50")) {
		t.Fatalf("sender balance changed: %s", got)
	}
	if n := countRows(t, conn, &models.Transfer{}); n != 0 {
		t.Fatalf("expected no transfer rows, got %d", n)
	}
}

func TestConcurrentTransfersConserveTotal(t *testing.T) {
	e, conn := newTestEngine(t)
	a := createUser(t, conn, "A", models.RoleDonor, "1000")
	b := createUser(t, conn, "B", models.RoleDonor, "1000")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = e.Transfer(context.Background(), a.ID, b.ID, dec("7"))
		}()
		go func() {
			defer wg.Done()
			_, _ = e.Transfer(context.Background(), b.ID, a.ID, dec("3"))
		}()
	}
	wg.Wait()

	total := reloadUser(t, conn, a.ID).Balance.Add(reloadUser(t, conn, b.ID).Balance)
	if !total.Equal(dec("2000")) {
		t.Fatalf("total drifted to %s", total)
	}
}

func TestTopUpCreditsAndAudits(t *testing.T) {
	e, conn := newTestEngine(t)
	user := createUser(t, conn, "Nur", models.RoleDonor, "10")

	updated, err := e.TopUp(context.Background(), user.ID, dec("90"))
	if err != nil {
		t.Fatalf("top up: %v", err)
	}
	if !updated.Balance.Equal(dec("100")) {
		t.Fatalf("expected 100, got %s", updated.Balance)
	}
	var flow models.MoneyFlow
	if errFind := conn.Where("user_id = ?", user.ID).First(&flow).Error; errFind != nil {
		t.Fatalf("load flow: %v", errFind)
	}
	if flow.TransactionType != models.FlowTopUp || !flow.BalanceBefore.Equal(dec("10")) || !flow.Amount.Equal(dec("90")) {
		t.Fatalf("unexpected flow: %+v", flow)
	}
}
