package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/payda-app/payda/internal/ledger"
	"github.com/payda-app/payda/internal/models"
)

// CouponHandler serves coupon lifecycle endpoints.
type CouponHandler struct {
	engine *ledger.Engine
}

// NewCouponHandler constructs a CouponHandler.
func NewCouponHandler(engine *ledger.Engine) *CouponHandler {
	return &CouponHandler{engine: engine}
}

type couponRequest struct {
	CouponID uint64 `json:"coupon_id"`
}

// Redeem pays the owning merchant for a coupon. Merchants and admins only.
func (h *CouponHandler) Redeem(c *gin.Context) {
	var body couponRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.CouponID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing coupon_id"})
		return
	}
	if role := getRole(c); !role.CanRedeem() && !role.IsAdmin() {
		forbid(c)
		return
	}
	result, err := h.engine.RedeemCoupon(c.Request.Context(), body.CouponID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Backflow returns the merchant's share of a used coupon to its pool.
func (h *CouponHandler) Backflow(c *gin.Context) {
	var body couponRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.CouponID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing coupon_id"})
		return
	}
	if role := getRole(c); !role.CanRedeem() && !role.IsAdmin() {
		forbid(c)
		return
	}
	result, err := h.engine.MerchantBackflow(c.Request.Context(), body.CouponID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type assignRequest struct {
	CouponID      uint64 `json:"coupon_id"`
	BeneficiaryID uint64 `json:"beneficiary_id"`
}

// Assign binds a created coupon to a beneficiary. Admin only.
func (h *CouponHandler) Assign(c *gin.Context) {
	var body assignRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.CouponID == 0 || body.BeneficiaryID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing coupon_id or beneficiary_id"})
		return
	}
	coupon, err := h.engine.AssignCoupon(c.Request.Context(), body.CouponID, body.BeneficiaryID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, coupon)
}

// Issue mints a single coupon of a type outside pool settlement. Admin only.
func (h *CouponHandler) Issue(c *gin.Context) {
	couponTypeID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	coupon, err := h.engine.IssueCoupon(c.Request.Context(), couponTypeID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, coupon)
}

// List returns coupons. Beneficiaries and donors only see coupons assigned to them.
func (h *CouponHandler) List(c *gin.Context) {
	var filter ledger.CouponFilter
	var ok bool
	if filter.CouponTypeID, ok = parseOptionalID(c, "coupon_type_id"); !ok {
		return
	}
	if filter.MerchantID, ok = parseOptionalID(c, "merchant_id"); !ok {
		return
	}
	if filter.BeneficiaryID, ok = parseOptionalID(c, "beneficiary_id"); !ok {
		return
	}
	if role := getRole(c); !role.IsAdmin() && !role.CanRedeem() {
		self := getUserID(c)
		filter.BeneficiaryID = &self
	}
	filter.Status = models.CouponStatus(c.Query("status"))
	filter.Limit = parseLimit(c)

	coupons, err := h.engine.ListCoupons(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupons": coupons})
}

// Eligibility reports a user's coupon allowance.
func (h *CouponHandler) Eligibility(c *gin.Context) {
	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}
	if userID != getUserID(c) && !isAdmin(c) {
		forbid(c)
		return
	}
	result, err := h.engine.CheckEligibility(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
