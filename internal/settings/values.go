package settings

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// IntValue returns the integer setting for key, or def when unset or malformed.
func IntValue(key string, def int) int {
	raw, ok := DBConfigValue(key)
	if !ok {
		return def
	}
	if parsed, okParse := parseDBConfigInt(raw); okParse {
		return parsed
	}
	return def
}

// DecimalValue returns the decimal setting for key, or def when unset or malformed.
func DecimalValue(key string, def decimal.Decimal) decimal.Decimal {
	raw, ok := DBConfigValue(key)
	if !ok {
		return def
	}
	if parsed, okParse := parseDBConfigDecimal(raw); okParse {
		return parsed
	}
	return def
}

func parseDBConfigInt(raw json.RawMessage) (int, bool) {
	raw = bytesTrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var n int
	if errUnmarshal := json.Unmarshal(raw, &n); errUnmarshal == nil {
		return n, true
	}
	var f float64
	if errUnmarshal := json.Unmarshal(raw, &f); errUnmarshal == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		if f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	}
	var s string
	if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal == nil {
		parsed, errParse := strconv.Atoi(strings.TrimSpace(s))
		if errParse == nil {
			return parsed, true
		}
	}
	var wrapper struct {
		Value json.RawMessage `json:"value"`
	}
	if errUnmarshal := json.Unmarshal(raw, &wrapper); errUnmarshal == nil && len(wrapper.Value) > 0 {
		return parseDBConfigInt(wrapper.Value)
	}
	return 0, false
}

func parseDBConfigDecimal(raw json.RawMessage) (decimal.Decimal, bool) {
	raw = bytesTrimSpace(raw)
	if len(raw) == 0 {
		return decimal.Zero, false
	}
	var s string
	if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal == nil {
		parsed, errParse := decimal.NewFromString(strings.TrimSpace(s))
		return parsed, errParse == nil
	}
	var wrapper struct {
		Value json.RawMessage `json:"value"`
	}
	if raw[0] == '{' {
		if errUnmarshal := json.Unmarshal(raw, &wrapper); errUnmarshal == nil && len(wrapper.Value) > 0 {
			return parseDBConfigDecimal(wrapper.Value)
		}
		return decimal.Zero, false
	}
	parsed, errParse := decimal.NewFromString(string(raw))
	return parsed, errParse == nil
}

func bytesTrimSpace(input []byte) []byte {
	if len(input) == 0 {
		return nil
	}
	start := 0
	end := len(input)
	for start < end {
		if input[start] > ' ' {
			break
		}
		start++
	}
	for end > start {
		if input[end-1] > ' ' {
			break
		}
		end--
	}
	return input[start:end]
}
