package models

import (
	"encoding/json"
	"time"
)

// Setting stores a runtime ledger knob as a JSON value keyed by name.
type Setting struct {
	Key       string          `gorm:"type:varchar(255);primaryKey"`                      // Setting name.
	Value     json.RawMessage `gorm:"type:jsonb"`                                        // JSON-encoded value.
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime;default:CURRENT_TIMESTAMP"` // Last update timestamp.
}
