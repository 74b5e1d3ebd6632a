package step

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MinutesToHuman renders a duration in minutes as "X hr Y min", "X hr" or
// "Y min". Zero and negative values render as "0 min". Values that are not
// numeric are returned in their fmt.Sprint form.
func MinutesToHuman(minutes any) string {
	total, ok := toMinutes(minutes)
	if !ok {
		return fmt.Sprint(minutes)
	}
	if total <= 0 {
		return "0 min"
	}

	hours := total / 60
	mins := total % 60
	switch {
	case hours > 0 && mins > 0:
		return fmt.Sprintf("%d hr %d min", hours, mins)
	case hours > 0:
		return fmt.Sprintf("%d hr", hours)
	default:
		return fmt.Sprintf("%d min", mins)
	}
}

func toMinutes(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return clampUint(uint64(n)), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return clampUint(n), true
	case float32:
		return floatMinutes(float64(n))
	case float64:
		return floatMinutes(n)
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatMinutes(f)
		}
		return 0, false
	default:
		return 0, false
	}
}

func floatMinutes(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f <= 0 {
		return 0, true
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64, true
	}
	return int64(f), true
}

func clampUint(u uint64) int64 {
	if u > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(u)
}
