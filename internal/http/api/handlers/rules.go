package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/payda-app/payda/internal/ledger"
	"github.com/shopspring/decimal"
)

// RuleHandler serves auto-donation rules.
type RuleHandler struct {
	engine *ledger.Engine
}

// NewRuleHandler constructs a RuleHandler.
func NewRuleHandler(engine *ledger.Engine) *RuleHandler {
	return &RuleHandler{engine: engine}
}

type createRuleRequest struct {
	CouponTypeID uint64          `json:"coupon_type_id"`
	Amount       decimal.Decimal `json:"amount"`
	Frequency    string          `json:"frequency"`
}

// Create registers a rule donating on behalf of the caller.
func (h *RuleHandler) Create(c *gin.Context) {
	var body createRuleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !getRole(c).CanDonate() {
		forbid(c)
		return
	}
	rule, err := h.engine.CreateAutoDonationRule(c.Request.Context(), ledger.RuleSpec{
		UserID:       getUserID(c),
		CouponTypeID: body.CouponTypeID,
		Amount:       body.Amount,
		Frequency:    body.Frequency,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// Run replays every active rule once. Admin only.
func (h *RuleHandler) Run(c *gin.Context) {
	results, err := h.engine.RunAutoDonationRules(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// LatestRun returns the most recent runner pass. Admin only.
func (h *RuleHandler) LatestRun(c *gin.Context) {
	run, err := h.engine.LatestRuleRun(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no runs recorded"})
		return
	}
	c.JSON(http.StatusOK, run)
}

type setRuleActiveRequest struct {
	Active *bool `json:"active"`
}

// SetActive pauses or resumes a rule. Admin only.
func (h *RuleHandler) SetActive(c *gin.Context) {
	ruleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body setRuleActiveRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.Active == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "active is required"})
		return
	}
	if err := h.engine.SetRuleActive(c.Request.Context(), ruleID, *body.Active); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": ruleID, "active": *body.Active})
}
