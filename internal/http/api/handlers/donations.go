package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/payda-app/payda/internal/ledger"
	"github.com/shopspring/decimal"
)

// DonationHandler serves pool and need donations.
type DonationHandler struct {
	engine *ledger.Engine
}

// NewDonationHandler constructs a DonationHandler.
func NewDonationHandler(engine *ledger.Engine) *DonationHandler {
	return &DonationHandler{engine: engine}
}

type donateRequest struct {
	CouponTypeID uint64          `json:"coupon_type_id"`
	Amount       decimal.Decimal `json:"amount"`
}

// Donate funds a coupon type's pool from the caller's wallet.
func (h *DonationHandler) Donate(c *gin.Context) {
	var body donateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.CouponTypeID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing coupon_type_id"})
		return
	}
	if !getRole(c).CanDonate() {
		forbid(c)
		return
	}
	result, err := h.engine.Donate(c.Request.Context(), getUserID(c), body.Amount, body.CouponTypeID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type needDonateRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// DonateToNeed funds a need directly from the caller's wallet.
func (h *DonationHandler) DonateToNeed(c *gin.Context) {
	needID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body needDonateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !getRole(c).CanDonate() {
		forbid(c)
		return
	}
	result, err := h.engine.DonateToNeed(c.Request.Context(), needID, getUserID(c), body.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// List returns the caller's donations; admins may pass user_id.
func (h *DonationHandler) List(c *gin.Context) {
	userID := getUserID(c)
	if isAdmin(c) {
		requested, ok := parseOptionalID(c, "user_id")
		if !ok {
			return
		}
		userID = 0
		if requested != nil {
			userID = *requested
		}
	}
	donations, err := h.engine.ListDonations(c.Request.Context(), userID, parseLimit(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"donations": donations})
}
