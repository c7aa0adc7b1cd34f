package service

import (
	"fmt"
	"time"
)

const dateTimeLayout = "Jan 2, 2006, 03:04:05 PM MST"

// FormatDateTime renders t like "Mar 5, 2025, 02:07:09 PM UTC" in loc.
func FormatDateTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dateTimeLayout)
}

// FormatDuration renders milliseconds as "850ms", "12.3s" or "4m 5s".
func FormatDuration(ms int64) string {
	switch {
	case ms < 1000:
		return fmt.Sprintf("%dms", ms)
	case ms < 60000:
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	return fmt.Sprintf("%dm %ds", ms/60000, (ms%60000)/1000)
}
