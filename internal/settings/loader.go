package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/payda-app/payda/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errNilDB = errors.New("settings: nil db")

// RefreshDBConfigSnapshot reloads the settings table into the in-memory snapshot.
// Servers call it at startup and periodically; until then every lookup falls
// back to its default.
func RefreshDBConfigSnapshot(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errNilDB
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var rows []models.Setting
	if errFind := db.WithContext(ctx).Select("key", "value", "updated_at").Find(&rows).Error; errFind != nil {
		return errFind
	}

	values := make(map[string]json.RawMessage, len(rows))
	var newest time.Time
	for _, row := range rows {
		values[row.Key] = row.Value
		if row.UpdatedAt.After(newest) {
			newest = row.UpdatedAt
		}
	}
	StoreDBConfig(newest, values)
	return nil
}

// Put upserts a setting and refreshes the in-memory snapshot.
func Put(ctx context.Context, db *gorm.DB, key string, value any) error {
	if db == nil {
		return errNilDB
	}
	if ctx == nil {
		ctx = context.Background()
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("settings: empty key")
	}
	raw, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return errMarshal
	}

	row := models.Setting{Key: key, Value: raw, UpdatedAt: time.Now().UTC()}
	if errUpsert := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error; errUpsert != nil {
		return errUpsert
	}
	return RefreshDBConfigSnapshot(ctx, db)
}
