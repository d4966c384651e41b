package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/payda-app/payda/internal/db"
	"github.com/payda-app/payda/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

const testDay = "2026-03-10"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := db.Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	t.Cleanup(func() {
		if sqlDB, errDB := conn.DB(); errDB == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *gorm.DB) {
	t.Helper()
	conn := openTestDB(t)
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewEngine(conn, opts...), conn
}

type userOpt func(*models.User)

func withPriority(p int) userOpt { return func(u *models.User) { u.Priority = p } }
func verified() userOpt          { return func(u *models.User) { u.IsVerified = true } }
func createdAt(ts time.Time) userOpt {
	return func(u *models.User) { u.CreatedAt = ts }
}

func createUser(t *testing.T, conn *gorm.DB, name string, role models.Role, balance string, opts ...userOpt) *models.User {
	t.Helper()
	user := &models.User{Name: name, Role: role, Balance: dec(balance)}
	for _, opt := range opts {
		opt(user)
	}
	if errCreate := conn.Create(user).Error; errCreate != nil {
		t.Fatalf("create user %s: %v", name, errCreate)
	}
	return user
}

type shop struct {
	account    *models.User
	merchant   *models.Merchant
	couponType *models.CouponType
}

// createShop registers a merchant account, the merchant and one coupon type whose
// pool target equals its face value unless target is given.
func createShop(t *testing.T, e *Engine, conn *gorm.DB, amount, target string) shop {
	t.Helper()
	ctx := context.Background()
	account := createUser(t, conn, "Market Account", models.RoleMerchant, "0")
	accountID := account.ID
	merchant, errMerchant := e.CreateMerchant(ctx, "Mahalle Market", &accountID, decimal.Zero)
	if errMerchant != nil {
		t.Fatalf("create merchant: %v", errMerchant)
	}
	spec := CouponTypeSpec{MerchantID: merchant.ID, Name: "Gıda Kuponu", Category: "gıda", Amount: dec(amount)}
	if target != "" {
		spec.TargetAmount = dec(target)
	}
	couponType, errType := e.CreateCouponType(ctx, spec)
	if errType != nil {
		t.Fatalf("create coupon type: %v", errType)
	}
	return shop{account: account, merchant: merchant, couponType: couponType}
}

func createNeed(t *testing.T, conn *gorm.DB, ownerID uint64, title, target, current string) *models.Need {
	t.Helper()
	need := &models.Need{
		UserID:        ownerID,
		Title:         title,
		Category:      "gıda",
		TargetAmount:  dec(target),
		CurrentAmount: dec(current),
		Status:        models.NeedActive,
	}
	if errCreate := conn.Create(need).Error; errCreate != nil {
		t.Fatalf("create need: %v", errCreate)
	}
	return need
}

func reloadUser(t *testing.T, conn *gorm.DB, id uint64) *models.User {
	t.Helper()
	var user models.User
	if errFind := conn.First(&user, id).Error; errFind != nil {
		t.Fatalf("reload user %d: %v", id, errFind)
	}
	return &user
}

func reloadPool(t *testing.T, conn *gorm.DB, couponTypeID uint64) *models.Pool {
	t.Helper()
	var pool models.Pool
	if errFind := conn.Where("coupon_type_id = ?", couponTypeID).First(&pool).Error; errFind != nil {
		t.Fatalf("reload pool: %v", errFind)
	}
	return &pool
}

func reloadCoupon(t *testing.T, conn *gorm.DB, id uint64) *models.Coupon {
	t.Helper()
	var coupon models.Coupon
	if errFind := conn.First(&coupon, id).Error; errFind != nil {
		t.Fatalf("reload coupon %d: %v", id, errFind)
	}
	return &coupon
}

func reloadNeed(t *testing.T, conn *gorm.DB, id uint64) *models.Need {
	t.Helper()
	var need models.Need
	if errFind := conn.First(&need, id).Error; errFind != nil {
		t.Fatalf("reload need %d: %v", id, errFind)
	}
	return &need
}

func countRows(t *testing.T, conn *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if errCount := conn.Model(model).Count(&n).Error; errCount != nil {
		t.Fatalf("count %T: %v", model, errCount)
	}
	return n
}

type recordingRecorder struct {
	mu         sync.Mutex
	donations  int
	transfers  int
	redeemed   int
	rejected   []string
	minted     map[string]int
	ruleRuns   int
	ruleFailed int
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{minted: map[string]int{}}
}

func (r *recordingRecorder) DonationCommitted(decimal.Decimal, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.donations++
}

func (r *recordingRecorder) TransferCommitted(decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transfers++
}

func (r *recordingRecorder) RedemptionCommitted(_, _ decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redeemed++
}

func (r *recordingRecorder) RedemptionRejected(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, reason)
}

func (r *recordingRecorder) CouponsMinted(source string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.minted[source] += n
}

func (r *recordingRecorder) RuleRunCompleted(_, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ruleRuns++
	r.ruleFailed += failed
}
