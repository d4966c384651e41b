package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/payda-app/payda/internal/ledger"
	"github.com/shopspring/decimal"
)

// WalletHandler serves balance operations.
type WalletHandler struct {
	engine *ledger.Engine
}

// NewWalletHandler constructs a WalletHandler.
func NewWalletHandler(engine *ledger.Engine) *WalletHandler {
	return &WalletHandler{engine: engine}
}

// Me returns the caller's account.
func (h *WalletHandler) Me(c *gin.Context) {
	user, err := h.engine.GetUser(c.Request.Context(), getUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":          user.ID,
		"name":        user.Name,
		"email":       user.Email,
		"role":        user.Role,
		"balance":     user.Balance,
		"priority":    user.Priority,
		"is_verified": user.IsVerified,
	})
}

type transferRequest struct {
	ReceiverID uint64          `json:"receiver_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// Transfer moves funds from the caller to another account.
func (h *WalletHandler) Transfer(c *gin.Context) {
	var body transferRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.ReceiverID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing receiver_id"})
		return
	}
	result, err := h.engine.Transfer(c.Request.Context(), getUserID(c), body.ReceiverID, body.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type topUpRequest struct {
	UserID uint64          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

// TopUp credits any wallet. Admin only.
func (h *WalletHandler) TopUp(c *gin.Context) {
	var body topUpRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.UserID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user_id"})
		return
	}
	user, err := h.engine.TopUp(c.Request.Context(), body.UserID, body.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": user.ID, "balance": user.Balance})
}

// Flows returns the caller's balance audit trail.
func (h *WalletHandler) Flows(c *gin.Context) {
	flows, err := h.engine.ListMoneyFlows(c.Request.Context(), getUserID(c), parseLimit(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flows": flows})
}

// Users searches accounts by name. Admin only.
func (h *WalletHandler) Users(c *gin.Context) {
	users, err := h.engine.FindUsers(c.Request.Context(), c.Query("name"), "")
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, gin.H{"id": u.ID, "name": u.Name, "role": u.Role, "balance": u.Balance, "priority": u.Priority})
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}
