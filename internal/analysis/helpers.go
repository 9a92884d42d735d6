package analysis

import (
	"fmt"
	"strconv"

	"clarity-workers/internal/engine"
)

func truthy(v interface{}) bool {
	return engine.IsTruthy(v)
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []interface{}:
		out := ""
		for i, item := range t {
			if i > 0 {
				out += ","
			}
			out += stringify(item)
		}
		return out
	}
	return fmt.Sprint(v)
}

func numeric(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
