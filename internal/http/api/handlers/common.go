package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/payda-app/payda/internal/ledger"
	"github.com/payda-app/payda/internal/models"
	log "github.com/sirupsen/logrus"
)

// Context keys set by the auth middleware.
const (
	ContextUserID = "userID"
	ContextRole   = "role"
)

// getUserID extracts the user ID from gin context.
func getUserID(c *gin.Context) uint64 {
	val, exists := c.Get(ContextUserID)
	if !exists {
		return 0
	}
	switch v := val.(type) {
	case uint64:
		return v
	case int64:
		return uint64(v)
	case uint:
		return uint64(v)
	case int:
		return uint64(v)
	default:
		return 0
	}
}

// getRole extracts the caller's role from gin context.
func getRole(c *gin.Context) models.Role {
	val, _ := c.Get(ContextRole)
	role, _ := val.(models.Role)
	return role
}

func isAdmin(c *gin.Context) bool { return getRole(c).IsAdmin() }

// parseIDParam reads a positive numeric path parameter.
func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// parseOptionalID reads an optional numeric query parameter.
func parseOptionalID(c *gin.Context, name string) (*uint64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return nil, false
	}
	return &id, true
}

func parseLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || n <= 0 || n > 500 {
		return 100
	}
	return n
}

// StatusForError maps a ledger error kind to an HTTP status.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, ledger.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, ledger.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Business errors expose their code and message;
// anything else is logged and reported generically.
func writeError(c *gin.Context, err error) {
	if be, ok := ledger.AsError(err); ok {
		c.JSON(StatusForError(be), gin.H{"error": be.Message, "code": be.Code})
		return
	}
	log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func forbid(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
}
