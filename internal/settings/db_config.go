package settings

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"sync/atomic"
	"time"
)

// snapshot is an immutable view of the settings table.
type snapshot struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

var current atomic.Pointer[snapshot]

func init() {
	current.Store(&snapshot{values: map[string]json.RawMessage{}})
}

// StoreDBConfig swaps in a new snapshot. Values are copied so callers may reuse
// their buffers; blank keys are dropped.
func StoreDBConfig(updatedAt time.Time, values map[string]json.RawMessage) {
	next := &snapshot{updatedAt: updatedAt.UTC(), values: make(map[string]json.RawMessage, len(values))}
	for k, v := range values {
		if key := strings.TrimSpace(k); key != "" {
			next.values[key] = cloneRaw(v)
		}
	}
	current.Store(next)
}

// DBConfigUpdatedAt returns the newest updated_at seen by the last refresh.
func DBConfigUpdatedAt() time.Time {
	return current.Load().updatedAt
}

// DBConfigValue returns a copy of the raw JSON stored under key.
func DBConfigValue(key string) (json.RawMessage, bool) {
	val, ok := current.Load().values[strings.TrimSpace(key)]
	if !ok {
		return nil, false
	}
	return cloneRaw(val), true
}

// DBConfigKeys lists the keys present in the snapshot, sorted.
func DBConfigKeys() []string {
	return slices.Sorted(maps.Keys(current.Load().values))
}

func cloneRaw(v json.RawMessage) json.RawMessage {
	if v == nil {
		return nil
	}
	return append(json.RawMessage(nil), v...)
}
