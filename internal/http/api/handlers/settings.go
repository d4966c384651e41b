package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/payda-app/payda/internal/settings"
	"gorm.io/gorm"
)

// SettingsHandler exposes runtime settings to admins.
type SettingsHandler struct {
	db *gorm.DB
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{db: db}
}

var editableSettings = map[string]struct{}{
	settings.SiteNameKey:                    {},
	settings.MerchantDailyLimitKey:          {},
	settings.AutoDonationIntervalSecondsKey: {},
	settings.IdempotencyTTLSecondsKey:       {},
}

// List returns every stored setting.
func (h *SettingsHandler) List(c *gin.Context) {
	out := make(gin.H)
	for _, key := range settings.DBConfigKeys() {
		if raw, ok := settings.DBConfigValue(key); ok {
			out[key] = raw
		}
	}
	c.JSON(http.StatusOK, gin.H{"settings": out})
}

// Get returns the current value of one setting.
func (h *SettingsHandler) Get(c *gin.Context) {
	key := strings.ToUpper(strings.TrimSpace(c.Param("key")))
	raw, ok := settings.DBConfigValue(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "setting not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": raw})
}

type putSettingRequest struct {
	Value json.RawMessage `json:"value"`
}

// Put stores a setting and refreshes the in-memory snapshot.
func (h *SettingsHandler) Put(c *gin.Context) {
	key := strings.ToUpper(strings.TrimSpace(c.Param("key")))
	if _, ok := editableSettings[key]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown setting"})
		return
	}
	var body putSettingRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || len(body.Value) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if errPut := settings.Put(c.Request.Context(), h.db, key, body.Value); errPut != nil {
		writeError(c, errPut)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": body.Value})
}
