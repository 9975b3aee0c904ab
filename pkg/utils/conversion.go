package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ToFloat coerces a record value to float64. Unparseable values become zero
// so a single bad entry never aborts an aggregation pass.
func ToFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	case nil:
		return 0
	default:
		f, err := strconv.ParseFloat(fmt.Sprintf("%v", n), 64)
		if err != nil {
			return 0
		}
		return f
	}
}

// MonthPeriod formats a time as the remote YYYYMM monthly period
func MonthPeriod(t time.Time) string {
	return fmt.Sprintf("%04d%02d", t.Year(), int(t.Month()))
}

// PeriodToDate converts a YYYYMM period to the first day of that month in
// ISO date form. Returns false when the value is not a six-digit period.
func PeriodToDate(period string) (string, bool) {
	if len(period) != 6 {
		return "", false
	}
	if _, err := strconv.Atoi(period); err != nil {
		return "", false
	}
	return period[:4] + "-" + period[4:6] + "-01", true
}
