package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/payda-app/payda/internal/db"
	"github.com/payda-app/payda/internal/settings"
	"gorm.io/gorm"
)

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(conn *gorm.DB) *HealthHandler {
	return &HealthHandler{db: conn}
}

// Healthz pings the database and reports the dialect and settings freshness.
func (h *HealthHandler) Healthz(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
		return
	}
	if errPing := sqlDB.PingContext(c.Request.Context()); errPing != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "database unreachable"})
		return
	}
	body := gin.H{"ok": true, "db": db.DialectName(h.db)}
	if updated := settings.DBConfigUpdatedAt(); !updated.IsZero() {
		body["settings_updated_at"] = updated
	}
	c.JSON(http.StatusOK, body)
}
