package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/payda-app/payda/internal/ledger"
	"github.com/shopspring/decimal"
)

// MerchantHandler serves merchant earnings endpoints.
type MerchantHandler struct {
	engine *ledger.Engine
}

// NewMerchantHandler constructs a MerchantHandler.
func NewMerchantHandler(engine *ledger.Engine) *MerchantHandler {
	return &MerchantHandler{engine: engine}
}

// Earnings returns today's earnings and all-time totals. Merchants and admins only.
func (h *MerchantHandler) Earnings(c *gin.Context) {
	merchantID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if role := getRole(c); !role.CanRedeem() && !role.IsAdmin() {
		forbid(c)
		return
	}
	snapshot, err := h.engine.GetMerchantEarnings(c.Request.Context(), merchantID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

type dailyLimitRequest struct {
	DailyLimit    *decimal.Decimal `json:"daily_limit"`
	ResetEarnings bool             `json:"reset_earnings"`
}

// DailyLimit changes today's cap and optionally clears today's earnings. Admin only.
func (h *MerchantHandler) DailyLimit(c *gin.Context) {
	merchantID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body dailyLimitRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	row, err := h.engine.ResetDailyLimit(c.Request.Context(), merchantID, body.DailyLimit, body.ResetEarnings)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"merchant_id":    row.MerchantID,
		"day":            row.Day,
		"daily_limit":    row.DailyLimit,
		"daily_earnings": row.DailyEarnings,
	})
}
