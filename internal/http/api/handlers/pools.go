package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/payda-app/payda/internal/ledger"
	"github.com/shopspring/decimal"
)

// PoolHandler serves pools and coupon types.
type PoolHandler struct {
	engine *ledger.Engine
}

// NewPoolHandler constructs a PoolHandler.
func NewPoolHandler(engine *ledger.Engine) *PoolHandler {
	return &PoolHandler{engine: engine}
}

// List returns pools with their funding progress.
func (h *PoolHandler) List(c *gin.Context) {
	merchantID, ok := parseOptionalID(c, "merchant_id")
	if !ok {
		return
	}
	pools, err := h.engine.ListPools(c.Request.Context(), ledger.PoolFilter{MerchantID: merchantID, Category: c.Query("category")})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pools": pools})
}

type createCouponTypeRequest struct {
	MerchantID   uint64          `json:"merchant_id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Amount       decimal.Decimal `json:"amount"`
	TargetAmount decimal.Decimal `json:"target_amount"`
}

// CreateCouponType registers a coupon type and its pool. Admin only.
func (h *PoolHandler) CreateCouponType(c *gin.Context) {
	var body createCouponTypeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	couponType, err := h.engine.CreateCouponType(c.Request.Context(), ledger.CouponTypeSpec{
		MerchantID:   body.MerchantID,
		Name:         body.Name,
		Category:     body.Category,
		Amount:       body.Amount,
		TargetAmount: body.TargetAmount,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, couponType)
}

type createMerchantRequest struct {
	Name         string          `json:"name"`
	UserID       *uint64         `json:"user_id"`
	BackflowRate decimal.Decimal `json:"backflow_rate"`
}

// CreateMerchant registers a merchant. Admin only.
func (h *PoolHandler) CreateMerchant(c *gin.Context) {
	var body createMerchantRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	merchant, err := h.engine.CreateMerchant(c.Request.Context(), body.Name, body.UserID, body.BackflowRate)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, merchant)
}
