// Package analytics 把扫码记录归约为看板和 API 使用的统计结果.
// 所有计算都是对查询结果的纯函数归约, 相同输入得到相同输出.
package analytics

import (
	"sort"
	"time"

	"qrcode-platform/internal/model"
)

// Unknown 缺失字段的归类键
const Unknown = "Unknown"

// MetricCount 名称与次数
type MetricCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type HourlyCount struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

type WeekdayCount struct {
	Day   int    `json:"day"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type TopQRCode struct {
	QRCodeID uint   `json:"qrCodeId"`
	Name     string `json:"name"`
	Count    int64  `json:"count"`
}

// Breakdowns 按维度计数
type Breakdowns struct {
	Devices   map[string]int64 `json:"devices"`
	Countries map[string]int64 `json:"countries"`
	Browsers  map[string]int64 `json:"browsers"`
	OS        map[string]int64 `json:"os"`
}

// Charts 时间分布
type Charts struct {
	Daily   []DailyCount   `json:"daily"`
	Hourly  []HourlyCount  `json:"hourly"`
	Weekday []WeekdayCount `json:"weekday"`
}

// RecentScan 最近扫码, 不包含 IP、UA、来源和城市
type RecentScan struct {
	ID        uint      `json:"id"`
	QRCodeID  uint      `json:"qrCodeId"`
	ScannedAt time.Time `json:"scannedAt"`
	Device    string    `json:"device"`
	OS        string    `json:"os"`
	Browser   string    `json:"browser"`
	Country   string    `json:"country"`
}

type Summary struct {
	TotalScans     int64     `json:"totalScans"`
	UniqueVisitors int       `json:"uniqueVisitors"`
	TimeRange      TimeRange `json:"timeRange"`
	StartDate      time.Time `json:"startDate"`
	TopCountry     string    `json:"topCountry,omitempty"`
	TopDevice      string    `json:"topDevice,omitempty"`
	PeakHour       int       `json:"peakHour"`
}

// Report 完整统计结果
type Report struct {
	Summary     Summary      `json:"summary"`
	Breakdowns  Breakdowns   `json:"breakdowns"`
	Charts      Charts       `json:"charts"`
	TopQRCodes  []TopQRCode  `json:"topQrCodes"`
	RecentScans []RecentScan `json:"recentScans"`
}

// Options 归约参数
type Options struct {
	TopN   int
	Recent int
}

// Aggregate 归约扫码记录, names 用于填充排行中的二维码名称
func Aggregate(scans []model.Scan, names map[uint]string, opts Options) Report {
	b := Breakdowns{
		Devices:   CountBy(scans, func(s *model.Scan) *string { return s.Device }),
		Countries: CountBy(scans, func(s *model.Scan) *string { return s.Country }),
		Browsers:  CountBy(scans, func(s *model.Scan) *string { return s.Browser }),
		OS:        CountBy(scans, func(s *model.Scan) *string { return s.OS }),
	}
	hourly := Hourly(scans)

	return Report{
		Summary: Summary{
			TotalScans:     int64(len(scans)),
			UniqueVisitors: UniqueVisitors(scans),
			TopCountry:     topKey(b.Countries),
			TopDevice:      topKey(b.Devices),
			PeakHour:       peakHour(hourly),
		},
		Breakdowns: b,
		Charts: Charts{
			Daily:   Daily(scans),
			Hourly:  hourly,
			Weekday: Weekday(scans),
		},
		TopQRCodes:  TopQRCodes(scans, names, opts.TopN),
		RecentScans: Recent(scans, opts.Recent),
	}
}

// CountBy 按字段计数, 空值归入 Unknown
func CountBy(scans []model.Scan, field func(*model.Scan) *string) map[string]int64 {
	counts := make(map[string]int64)
	for i := range scans {
		counts[valueOrUnknown(field(&scans[i]))]++
	}
	return counts
}

// Daily 按 UTC 日期计数, 日期升序
func Daily(scans []model.Scan) []DailyCount {
	counts := make(map[string]int64)
	for i := range scans {
		counts[scans[i].ScannedAt.UTC().Format(time.DateOnly)]++
	}

	out := make([]DailyCount, 0, len(counts))
	for date, n := range counts {
		out = append(out, DailyCount{Date: date, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Hourly 固定 24 个小时槽位, 没有扫码的小时为 0
func Hourly(scans []model.Scan) []HourlyCount {
	out := make([]HourlyCount, 24)
	for h := range out {
		out[h].Hour = h
	}
	for i := range scans {
		out[scans[i].ScannedAt.UTC().Hour()].Count++
	}
	return out
}

// Weekday 固定 7 个槽位, 0 为周日
func Weekday(scans []model.Scan) []WeekdayCount {
	out := make([]WeekdayCount, 7)
	for d := range out {
		out[d].Day = d
		out[d].Name = time.Weekday(d).String()
	}
	for i := range scans {
		out[int(scans[i].ScannedAt.UTC().Weekday())].Count++
	}
	return out
}

// UniqueVisitors 以 (国家, 设备, 浏览器) 组合去重的访客估算, 不是真实的独立访客数
func UniqueVisitors(scans []model.Scan) int {
	type visitor struct{ country, device, browser string }
	seen := make(map[visitor]struct{})
	for i := range scans {
		s := &scans[i]
		seen[visitor{valueOrUnknown(s.Country), valueOrUnknown(s.Device), valueOrUnknown(s.Browser)}] = struct{}{}
	}
	return len(seen)
}

// TopQRCodes 按扫码次数降序取前 n 个, 次数相同按 id 升序
func TopQRCodes(scans []model.Scan, names map[uint]string, n int) []TopQRCode {
	counts := make(map[uint]int64)
	for i := range scans {
		counts[scans[i].QRCodeID]++
	}

	out := make([]TopQRCode, 0, len(counts))
	for id, c := range counts {
		out = append(out, TopQRCode{QRCodeID: id, Name: names[id], Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].QRCodeID < out[j].QRCodeID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Recent 最近 n 条扫码, 时间倒序
func Recent(scans []model.Scan, n int) []RecentScan {
	idx := make([]int, len(scans))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		sa, sb := &scans[idx[a]], &scans[idx[b]]
		if !sa.ScannedAt.Equal(sb.ScannedAt) {
			return sa.ScannedAt.After(sb.ScannedAt)
		}
		return sa.ID > sb.ID
	})
	if n >= 0 && len(idx) > n {
		idx = idx[:n]
	}

	out := make([]RecentScan, 0, len(idx))
	for _, i := range idx {
		s := &scans[i]
		out = append(out, RecentScan{
			ID:        s.ID,
			QRCodeID:  s.QRCodeID,
			ScannedAt: s.ScannedAt.UTC(),
			Device:    valueOrUnknown(s.Device),
			OS:        valueOrUnknown(s.OS),
			Browser:   valueOrUnknown(s.Browser),
			Country:   valueOrUnknown(s.Country),
		})
	}
	return out
}

// SortedCounts 把计数转成按次数降序、名称升序的列表
func SortedCounts(counts map[string]int64) []MetricCount {
	out := make([]MetricCount, 0, len(counts))
	for name, c := range counts {
		out = append(out, MetricCount{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func topKey(counts map[string]int64) string {
	sorted := SortedCounts(counts)
	if len(sorted) == 0 {
		return ""
	}
	return sorted[0].Name
}

func peakHour(hourly []HourlyCount) int {
	peak := 0
	for _, h := range hourly {
		if h.Count > hourly[peak].Count {
			peak = h.Hour
		}
	}
	return peak
}

func valueOrUnknown(v *string) string {
	if v == nil || *v == "" {
		return Unknown
	}
	return *v
}
