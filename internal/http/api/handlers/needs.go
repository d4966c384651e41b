package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/payda-app/payda/internal/ledger"
	"github.com/payda-app/payda/internal/models"
	"github.com/shopspring/decimal"
)

// NeedHandler serves need endpoints.
type NeedHandler struct {
	engine *ledger.Engine
}

// NewNeedHandler constructs a NeedHandler.
func NewNeedHandler(engine *ledger.Engine) *NeedHandler {
	return &NeedHandler{engine: engine}
}

// List returns needs filtered by status, category and owner.
func (h *NeedHandler) List(c *gin.Context) {
	userID, ok := parseOptionalID(c, "user_id")
	if !ok {
		return
	}
	needs, err := h.engine.ListNeeds(c.Request.Context(), ledger.NeedFilter{
		UserID:   userID,
		Status:   models.NeedStatus(c.Query("status")),
		Category: c.Query("category"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"needs": needs})
}

type createNeedRequest struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	TargetAmount decimal.Decimal `json:"target_amount"`
}

// Create opens a need owned by the caller.
func (h *NeedHandler) Create(c *gin.Context) {
	var body createNeedRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	need, err := h.engine.CreateNeed(c.Request.Context(), ledger.NeedSpec{
		UserID:       getUserID(c),
		Title:        body.Title,
		Description:  body.Description,
		Category:     body.Category,
		TargetAmount: body.TargetAmount,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, need)
}

// Cancel closes an active need. Owners and admins only.
func (h *NeedHandler) Cancel(c *gin.Context) {
	needID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if !isAdmin(c) {
		need, err := h.engine.GetNeed(c.Request.Context(), needID)
		if err != nil {
			writeError(c, err)
			return
		}
		if need.UserID != getUserID(c) {
			forbid(c)
			return
		}
	}
	need, err := h.engine.CancelNeed(c.Request.Context(), needID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, need)
}
