package analytics

import "time"

// TimeRange 统计时间窗口
type TimeRange string

const (
	Range1h  TimeRange = "1h"
	Range1d  TimeRange = "1d"
	Range7d  TimeRange = "7d"
	Range30d TimeRange = "30d"
	Range90d TimeRange = "90d"
	Range1y  TimeRange = "1y"

	DefaultRange = Range30d
)

// ParseTimeRange 无法识别的值一律按默认 30 天处理
func ParseTimeRange(s string) TimeRange {
	switch r := TimeRange(s); r {
	case Range1h, Range1d, Range7d, Range30d, Range90d, Range1y:
		return r
	}
	return DefaultRange
}

// Start 返回窗口起点
func (r TimeRange) Start(now time.Time) time.Time {
	now = now.UTC()
	switch r {
	case Range1h:
		return now.Add(-time.Hour)
	case Range1d:
		return now.Add(-24 * time.Hour)
	case Range7d:
		return now.AddDate(0, 0, -7)
	case Range90d:
		return now.AddDate(0, 0, -90)
	case Range1y:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, 0, -30)
	}
}
